// Package mqueue implements the bounded in-memory pending-entry queue
// and the background flusher and readiness monitor that drain it onto
// the raw device. The queue is a fixed-capacity ring of payloads
// guarded by one mutex and condition variable; producers never block on
// it beyond acquiring that mutex.
package mqueue

import (
	"errors"
	"sync"

	"github.com/behrlich/mjournal/internal/iface"
	"github.com/behrlich/mjournal/internal/journalcfg"
	"github.com/behrlich/mjournal/internal/layout"
)

// ErrQueueFull is returned by Enqueue when the queue is at capacity.
// This is the drop path: the caller's payload is discarded and counted
// toward dropped_events.
var ErrQueueFull = errors.New("mqueue: queue is full")

// ErrShuttingDown is returned by Enqueue after Shutdown has been
// called.
var ErrShuttingDown = errors.New("mqueue: queue is shutting down")

// Queue is a fixed-capacity circular buffer of pending payloads.
type Queue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	slots    []layout.Payload
	head     int
	tail     int
	count    int
	shutdown bool
	dropped  iface.DroppedCounter
}

// NewQueue creates a queue with the given capacity.
func NewQueue(capacity int, dropped iface.DroppedCounter) *Queue {
	q := &Queue{
		slots:   make([]layout.Payload, capacity),
		dropped: dropped,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue copies p into the queue and signals any waiter. It never
// blocks: a full queue or a queue past shutdown rejects immediately.
func (q *Queue) Enqueue(p layout.Payload) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.shutdown {
		return ErrShuttingDown
	}
	if q.count == len(q.slots) {
		q.dropped.AddDropped(1)
		return ErrQueueFull
	}

	q.slots[q.tail] = p
	q.tail = (q.tail + 1) % len(q.slots)
	q.count++
	q.cond.Signal()
	return nil
}

// Shutdown flags the queue as draining. Enqueue starts rejecting
// immediately; Flusher.Run keeps draining whatever remains, then
// exits (if the device is not ready, the remaining entries are counted
// as dropped instead of written).
func (q *Queue) Shutdown() {
	q.mu.Lock()
	q.shutdown = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// Len reports the number of pending payloads, for diagnostics.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Capacity reports the queue's fixed capacity.
func (q *Queue) Capacity() int {
	return len(q.slots)
}

// Wake broadcasts on the queue's condition variable. The readiness
// monitor calls this the moment the device transitions to ready, so a
// flusher blocked on the condition re-checks its wait. A flusher in its
// not-ready backoff sleep is not interrupted by Wake; it sees the new
// readiness on its next poll.
func (q *Queue) Wake() {
	q.cond.Broadcast()
}

// drainLocked copies out every pending payload in head order, frees the
// slots, and advances head. Must be called with q.mu held.
func (q *Queue) drainLocked() []layout.Payload {
	n := q.count
	out := make([]layout.Payload, n)
	for i := 0; i < n; i++ {
		out[i] = q.slots[(q.head+i)%len(q.slots)]
	}
	q.head = (q.head + n) % len(q.slots)
	q.count = 0
	return out
}

// Default capacity used by the package-level constructor helpers in
// the root package.
const DefaultCapacity = journalcfg.QueueCapacity
