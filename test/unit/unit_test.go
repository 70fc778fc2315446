//go:build !integration
// +build !integration

package unit

import (
	"testing"

	journal "github.com/behrlich/mjournal"
	"github.com/behrlich/mjournal/internal/layout"
)

func TestReExportedConstantsMatchLayout(t *testing.T) {
	if journal.DeviceSize != layout.DeviceSize {
		t.Errorf("DeviceSize = %d, want %d", journal.DeviceSize, layout.DeviceSize)
	}
	if journal.NumEntries != layout.NumEntries {
		t.Errorf("NumEntries = %d, want %d", journal.NumEntries, layout.NumEntries)
	}
	if journal.MaxFieldLen != layout.MaxFieldLen {
		t.Errorf("MaxFieldLen = %d, want %d", journal.MaxFieldLen, layout.MaxFieldLen)
	}
	if journal.DefaultQueueCapacity <= 0 {
		t.Errorf("DefaultQueueCapacity = %d, want > 0", journal.DefaultQueueCapacity)
	}
	if journal.FlushDeadline <= 0 {
		t.Errorf("FlushDeadline = %v, want > 0", journal.FlushDeadline)
	}
}

func TestInitWithDeviceAcceptsMockDevice(t *testing.T) {
	dev := journal.NewMockDevice(layout.DeviceSize)
	core, err := journal.InitWithDevice(journal.Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	if core.Metrics() == nil {
		t.Fatalf("Metrics() returned nil")
	}
}

func TestLogMetadataRejectsNilArguments(t *testing.T) {
	dev := journal.NewMockDevice(layout.DeviceSize)
	core, err := journal.InitWithDevice(journal.Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	err = core.LogMetadata(nil, &journal.Info{Action: "create"}, journal.Async)
	if !journal.IsKind(err, journal.KindPayloadInvalid) {
		t.Errorf("LogMetadata(nil node) = %v, want KindPayloadInvalid", err)
	}

	err = core.LogMetadata(&journal.Node{Ino: 1}, nil, journal.Async)
	if !journal.IsKind(err, journal.KindPayloadInvalid) {
		t.Errorf("LogMetadata(nil info) = %v, want KindPayloadInvalid", err)
	}
}

func TestLogMetadataAsyncEnqueuesSuccessfully(t *testing.T) {
	dev := journal.NewMockDevice(layout.DeviceSize)
	core, err := journal.InitWithDevice(journal.Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	node := &journal.Node{Ino: 42, Mode: 0o100644, Size: 10}
	info := &journal.Info{Action: "create", Name: "hello.txt", ParentIno: 1}
	if err := core.LogMetadata(node, info, journal.Async); err != nil {
		t.Fatalf("LogMetadata: %v", err)
	}

	snap := core.Metrics().Snapshot()
	if snap.Enqueued != 1 {
		t.Errorf("Enqueued = %d, want 1", snap.Enqueued)
	}
	if snap.AsyncWrites != 1 {
		t.Errorf("AsyncWrites = %d, want 1", snap.AsyncWrites)
	}
}

func TestShutdownIsIdempotentUnit(t *testing.T) {
	dev := journal.NewMockDevice(layout.DeviceSize)
	core, err := journal.InitWithDevice(journal.Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("first Shutdown: %v", err)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}
