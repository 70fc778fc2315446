package mqueue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/behrlich/mjournal/internal/iface"
	"github.com/behrlich/mjournal/internal/journalcfg"
	"github.com/behrlich/mjournal/internal/layout"
)

// BatchWriter is the raw-writer surface the flusher needs. A
// *rawdevice.Writer satisfies this implicitly; the interface exists so
// mqueue does not import rawdevice.
type BatchWriter interface {
	WriteBatch(entries []layout.Payload) error
}

// Flusher drains Queue in coalesced batches and hands them to a
// BatchWriter. There is exactly one flusher per journal, running for
// the journal's lifetime.
type Flusher struct {
	q         *Queue
	writer    BatchWriter
	readiness *Readiness
	logger    iface.Logger
	kicked    atomic.Bool
}

// NewFlusher constructs a Flusher.
func NewFlusher(q *Queue, writer BatchWriter, readiness *Readiness, logger iface.Logger) *Flusher {
	return &Flusher{q: q, writer: writer, readiness: readiness, logger: logger}
}

// Kick requests an immediate drain: it cuts the current batch-accumulation
// wait short regardless of FlushDeadline. Safe to call concurrently from
// any goroutine.
func (f *Flusher) Kick() {
	f.kicked.Store(true)
	f.q.Wake()
}

// Run executes the flush loop until the queue is shut down and fully
// drained. It implements §4.3's six-step algorithm: busy-wait for
// readiness, wait for work, coalesce a burst up to FlushDeadline,
// bail out of draining into a device that went not-ready mid-wait,
// then snapshot and write the batch outside the lock.
func (f *Flusher) Run() {
	for {
		if !f.waitForReadyOrShutdown() {
			return // shutdown observed while not ready and queue empty
		}

		f.q.mu.Lock()
		for f.q.count == 0 && !f.q.shutdown {
			f.q.cond.Wait()
		}
		if f.q.count == 0 && f.q.shutdown {
			f.q.mu.Unlock()
			return
		}

		deadline := time.Now().Add(journalcfg.FlushDeadline)
		for f.q.count < len(f.q.slots) && !f.q.shutdown && time.Now().Before(deadline) {
			if f.kicked.Load() {
				break // FlushNow requested an immediate drain
			}
			if !waitUntil(f.q.cond, deadline) {
				break // deadline reached
			}
		}
		f.kicked.Store(false)

		if !f.readiness.Load() {
			// Device went not-ready mid-accumulation: do not drain into
			// it, leave the batch queued and restart the loop.
			f.q.mu.Unlock()
			continue
		}

		batch := f.q.drainLocked()
		f.q.mu.Unlock()

		if len(batch) == 0 {
			continue
		}
		if err := f.writer.WriteBatch(batch); err != nil && f.logger != nil {
			f.logger.Warnf("flush: write_batch of %d entries failed: %v", len(batch), err)
		}
	}
}

// waitForReadyOrShutdown busy-waits (§4.3 step 1) while the device is
// not ready and no shutdown has been requested. It returns false only
// when shutdown was observed while not ready, telling Run to exit
// immediately without draining: any entries still queued are discarded
// and added to the dropped-events counter, so Shutdown's caller can
// observe them there.
func (f *Flusher) waitForReadyOrShutdown() bool {
	for !f.readiness.Load() {
		f.q.mu.Lock()
		shutdown := f.q.shutdown
		if shutdown && f.q.count > 0 {
			f.q.dropped.AddDropped(uint64(len(f.q.drainLocked())))
		}
		f.q.mu.Unlock()
		if shutdown {
			return false
		}
		// Still running with an unready device: back off and re-poll.
		time.Sleep(journalcfg.FlusherNotReadyBackoff)
	}
	return true
}

// waitUntil calls cond.Wait but returns once deadline passes, using a
// timer that broadcasts the condition to unblock it. Returns false if
// the deadline was reached (or is already past) without being woken by
// a real signal; true otherwise. Caller must hold cond.L.
func waitUntil(cond *sync.Cond, deadline time.Time) bool {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return false
	}
	timer := time.AfterFunc(remaining, func() {
		cond.L.Lock()
		cond.Broadcast()
		cond.L.Unlock()
	})
	defer timer.Stop()
	cond.Wait()
	return time.Now().Before(deadline)
}
