package journal

import (
	"errors"
	"testing"
	"time"
)

func waitForReady(t *testing.T, c *JournalCore, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if c.readiness.Load() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("device never became ready")
}

func TestLogMetadataRejectsNilInputs(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	core, err := InitWithDevice(Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	if err := core.LogMetadata(nil, &Info{Action: "create"}, Async); !IsKind(err, KindPayloadInvalid) {
		t.Fatalf("LogMetadata(nil node) = %v, want PayloadInvalid", err)
	}
	if err := core.LogMetadata(&Node{Ino: 1}, nil, Async); !IsKind(err, KindPayloadInvalid) {
		t.Fatalf("LogMetadata(nil info) = %v, want PayloadInvalid", err)
	}
}

func TestLogMetadataHonorsIgnoreList(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	core, err := InitWithDevice(Config{IgnoredInodes: []uint32{42}}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	if err := core.LogMetadata(&Node{Ino: 42}, &Info{Action: "create"}, Async); err != nil {
		t.Fatalf("LogMetadata(ignored inode) = %v, want nil", err)
	}
	if core.metrics.Snapshot().Enqueued != 0 {
		t.Errorf("ignored inode should never reach the queue")
	}
}

func TestLogMetadataAsyncFlushesToDevice(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	core, err := InitWithDevice(Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	waitForReady(t, core, 2*time.Second)

	if err := core.LogMetadata(&Node{Ino: 7}, &Info{Action: "create", Name: "foo"}, Async); err != nil {
		t.Fatalf("LogMetadata: %v", err)
	}
	core.FlushNow()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if core.metrics.Snapshot().FlushedEvents > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("async LogMetadata was never flushed to the device")
}

func TestLogMetadataSyncFallsBackToAsyncWhenNotReady(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	dev.FailSync = errors.New("injected: device never becomes ready")
	core, err := InitWithDevice(Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	defer core.Shutdown()

	time.Sleep(50 * time.Millisecond) // let the monitor observe not-ready
	if err := core.LogMetadata(&Node{Ino: 7}, &Info{Action: "create"}, Sync); err != nil {
		t.Fatalf("LogMetadata(sync, not ready) = %v, want nil (falls back to enqueue per step 7)", err)
	}
	if core.metrics.Snapshot().SyncWrites != 0 {
		t.Errorf("a not-ready Sync call must not count as a sync write")
	}
	if core.metrics.Snapshot().AsyncWrites != 1 {
		t.Errorf("a not-ready Sync call should fall back to the async path")
	}
}

func TestLogMetadataClampsUnreasonableTimestamps(t *testing.T) {
	got := clampTime(-5)
	if got != -1 {
		t.Errorf("clampTime(-5) = %d, want -1", got)
	}
	got = clampTime(maxReasonableTime + 1)
	if got != -1 {
		t.Errorf("clampTime(future) = %d, want -1", got)
	}
	got = clampTime(1_700_000_000)
	if got != 1_700_000_000 {
		t.Errorf("clampTime(reasonable) = %d, want unchanged", got)
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	core, err := InitWithDevice(Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := core.Shutdown(); err != nil {
		t.Fatalf("second Shutdown: %v", err)
	}
}

func TestLogMetadataRejectedAfterShutdownEnqueuesFail(t *testing.T) {
	dev := NewMockDevice(DeviceSize)
	core, err := InitWithDevice(Config{}, dev)
	if err != nil {
		t.Fatalf("InitWithDevice: %v", err)
	}
	core.Shutdown()

	err = core.LogMetadata(&Node{Ino: 1}, &Info{Action: "create"}, Async)
	if !IsKind(err, KindShuttingDown) {
		t.Fatalf("LogMetadata after shutdown = %v, want ShuttingDown", err)
	}
}
