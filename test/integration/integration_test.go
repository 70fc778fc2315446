//go:build integration
// +build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	journal "github.com/behrlich/mjournal"
	"github.com/behrlich/mjournal/internal/replay"
)

// TestFullRoundTripAsyncThenReplay exercises the real filesystem path
// end to end: LogMetadata(Async) against a real temp file, a flush to
// the device, and an offline Replay that recovers the same events.
func TestFullRoundTripAsyncThenReplay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.img")

	core, err := journal.Init(journal.Config{DevicePath: path})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && core.Metrics().Snapshot().FlushBatches == 0 {
		// Wait out the readiness monitor's first poll; harmless to race
		// with LogMetadata below since async entries just queue until ready.
		time.Sleep(5 * time.Millisecond)
	}

	want := []struct {
		ino  uint32
		name string
	}{
		{10, "alpha"},
		{11, "beta"},
		{12, "gamma"},
	}
	for _, w := range want {
		node := &journal.Node{Ino: w.ino, Mode: 0o100644, Size: 128}
		info := &journal.Info{Action: "create", Name: w.name, ParentIno: 1}
		if err := core.LogMetadata(node, info, journal.Async); err != nil {
			t.Fatalf("LogMetadata(%s): %v", w.name, err)
		}
	}
	core.FlushNow()

	flushDeadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(flushDeadline) && core.Metrics().Snapshot().FlushedEvents < uint64(len(want)) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("journal file missing after shutdown: %v", err)
	}

	res, err := replay.Replay(path)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if len(res.Events) != len(want) {
		t.Fatalf("Replay returned %d events, want %d", len(res.Events), len(want))
	}
	for i, w := range want {
		if res.Events[i].Ino != w.ino {
			t.Errorf("event %d: Ino = %d, want %d", i, res.Events[i].Ino, w.ino)
		}
	}
}
