package mqueue

import (
	"sync"
	"testing"
	"time"

	"github.com/behrlich/mjournal/internal/layout"
)

type fakeWriter struct {
	mu      sync.Mutex
	batches [][]layout.Payload
}

func (w *fakeWriter) WriteBatch(entries []layout.Payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	cp := append([]layout.Payload(nil), entries...)
	w.batches = append(w.batches, cp)
	return nil
}

func (w *fakeWriter) snapshot() [][]layout.Payload {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]layout.Payload(nil), w.batches...)
}

func TestFlusherDrainsOnShutdown(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(16, ctr)
	w := &fakeWriter{}
	var ready Readiness
	ready.ready.Store(true)

	f := NewFlusher(q, w, &ready, nil)

	for i := uint64(1); i <= 5; i++ {
		if err := q.Enqueue(mkPayload(i)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	done := make(chan struct{})
	go func() {
		f.Run()
		close(done)
	}()

	q.Shutdown()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Flusher.Run did not exit after shutdown")
	}

	var total int
	for _, b := range w.snapshot() {
		total += len(b)
	}
	if total != 5 {
		t.Errorf("writer observed %d total entries, want 5", total)
	}
}

func TestFlusherWaitsForReadiness(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(16, ctr)
	w := &fakeWriter{}
	var ready Readiness // starts not-ready

	f := NewFlusher(q, w, &ready, nil)
	q.Enqueue(mkPayload(1))

	done := make(chan struct{})
	go func() {
		f.Run()
		close(done)
	}()

	// Give the flusher a moment to busy-wait on readiness; it must not
	// have written anything yet.
	time.Sleep(50 * time.Millisecond)
	if len(w.snapshot()) != 0 {
		t.Fatalf("flusher wrote before device was ready")
	}

	ready.ready.Store(true)
	q.Wake()

	q.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Flusher.Run did not exit after becoming ready and shutting down")
	}

	total := 0
	for _, b := range w.snapshot() {
		total += len(b)
	}
	if total != 1 {
		t.Errorf("writer observed %d entries, want 1", total)
	}
}
