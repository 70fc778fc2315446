package mqueue

import (
	"testing"

	"github.com/behrlich/mjournal/internal/layout"
)

type testCounter struct{ dropped uint64 }

func (c *testCounter) AddDropped(n uint64) { c.dropped += n }

func mkPayload(txID uint64) layout.Payload {
	var p layout.Payload
	p.TxID = txID
	return p
}

func TestEnqueueFIFOOrder(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(4, ctr)

	for i := uint64(1); i <= 3; i++ {
		if err := q.Enqueue(mkPayload(i)); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}

	q.mu.Lock()
	got := q.drainLocked()
	q.mu.Unlock()

	if len(got) != 3 {
		t.Fatalf("drainLocked: got %d entries, want 3", len(got))
	}
	for i, p := range got {
		if p.TxID != uint64(i+1) {
			t.Errorf("entry %d: TxID = %d, want %d", i, p.TxID, i+1)
		}
	}
}

func TestEnqueueRejectsWhenFull(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(2, ctr)

	if err := q.Enqueue(mkPayload(1)); err != nil {
		t.Fatalf("Enqueue(1): %v", err)
	}
	if err := q.Enqueue(mkPayload(2)); err != nil {
		t.Fatalf("Enqueue(2): %v", err)
	}
	if err := q.Enqueue(mkPayload(3)); err != ErrQueueFull {
		t.Fatalf("Enqueue(3) = %v, want ErrQueueFull", err)
	}
	if ctr.dropped != 1 {
		t.Errorf("dropped = %d, want 1", ctr.dropped)
	}
}

func TestEnqueueRejectsAfterShutdown(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(4, ctr)
	q.Shutdown()

	if err := q.Enqueue(mkPayload(1)); err != ErrShuttingDown {
		t.Fatalf("Enqueue after shutdown = %v, want ErrShuttingDown", err)
	}
}

func TestLenAndCapacity(t *testing.T) {
	ctr := &testCounter{}
	q := NewQueue(8, ctr)
	if q.Capacity() != 8 {
		t.Errorf("Capacity() = %d, want 8", q.Capacity())
	}
	q.Enqueue(mkPayload(1))
	if q.Len() != 1 {
		t.Errorf("Len() = %d, want 1", q.Len())
	}
}
