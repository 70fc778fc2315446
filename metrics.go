package journal

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/mjournal/internal/iface"
)

// LatencyBuckets defines the flush-latency histogram buckets in
// nanoseconds, covering 100us to 1s with logarithmic spacing.
var LatencyBuckets = []uint64{
	100_000,     // 100us
	1_000_000,   // 1ms
	10_000_000,  // 10ms
	100_000_000, // 100ms
	1_000_000_000, // 1s
}

const numLatencyBuckets = 5

// Metrics tracks the operational statistics of a running journal:
// how many events were logged synchronously vs. queued, how many were
// dropped for queue overflow, and how flush batches have performed.
// It implements iface.DroppedCounter so the queue can report drops
// directly into it.
type Metrics struct {
	SyncWrites  atomic.Uint64 // LogMetadata calls routed to the sync writer (Sync with the device ready)
	AsyncWrites atomic.Uint64 // LogMetadata calls routed to the queue (Async, or Sync with the device not ready)
	Enqueued    atomic.Uint64 // Payloads accepted onto the queue
	Dropped     atomic.Uint64 // Payloads dropped for queue overflow, a failed device write, or left queued at shutdown with the device not ready
	Rejected    atomic.Uint64 // LogMetadata calls rejected before queuing (nil input)

	FlushBatches  atomic.Uint64 // Completed flush batches
	FlushedEvents atomic.Uint64 // Entries successfully written across all batches
	FlushFailures atomic.Uint64 // Batches that failed WriteBatch

	TotalFlushLatencyNs atomic.Uint64
	FlushLatencyBuckets [numLatencyBuckets]atomic.Uint64

	StartTime atomic.Int64
}

// NewMetrics creates a Metrics instance with StartTime set to now.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.StartTime.Store(time.Now().UnixNano())
	return m
}

// AddDropped implements iface.DroppedCounter.
func (m *Metrics) AddDropped(n uint64) {
	m.Dropped.Add(n)
}

var _ iface.DroppedCounter = (*Metrics)(nil)

// RecordSyncWrite records one synchronous LogMetadata call.
func (m *Metrics) RecordSyncWrite() {
	m.SyncWrites.Add(1)
}

// RecordAsyncWrite records one asynchronous (queued) LogMetadata call.
func (m *Metrics) RecordAsyncWrite() {
	m.AsyncWrites.Add(1)
}

// RecordEnqueued records a payload successfully accepted onto the queue.
func (m *Metrics) RecordEnqueued() {
	m.Enqueued.Add(1)
}

// RecordRejected records a LogMetadata call rejected before reaching
// either the sync writer or the queue.
func (m *Metrics) RecordRejected() {
	m.Rejected.Add(1)
}

// RecordFlush records the outcome of one flush batch.
func (m *Metrics) RecordFlush(entries int, latencyNs uint64, success bool) {
	m.FlushBatches.Add(1)
	if success {
		m.FlushedEvents.Add(uint64(entries))
	} else {
		m.FlushFailures.Add(1)
	}
	m.TotalFlushLatencyNs.Add(latencyNs)
	for i, bucket := range LatencyBuckets {
		if latencyNs <= bucket {
			m.FlushLatencyBuckets[i].Add(1)
		}
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics for reporting.
type MetricsSnapshot struct {
	SyncWrites    uint64
	AsyncWrites   uint64
	Enqueued      uint64
	Dropped       uint64
	Rejected      uint64
	FlushBatches  uint64
	FlushedEvents uint64
	FlushFailures uint64
	AvgFlushLatencyNs uint64
	UptimeNs          uint64
	LatencyHistogram  [numLatencyBuckets]uint64
}

// Snapshot returns a consistent point-in-time view of m.
func (m *Metrics) Snapshot() MetricsSnapshot {
	snap := MetricsSnapshot{
		SyncWrites:    m.SyncWrites.Load(),
		AsyncWrites:   m.AsyncWrites.Load(),
		Enqueued:      m.Enqueued.Load(),
		Dropped:       m.Dropped.Load(),
		Rejected:      m.Rejected.Load(),
		FlushBatches:  m.FlushBatches.Load(),
		FlushedEvents: m.FlushedEvents.Load(),
		FlushFailures: m.FlushFailures.Load(),
		UptimeNs:      uint64(time.Now().UnixNano() - m.StartTime.Load()),
	}
	if snap.FlushBatches > 0 {
		snap.AvgFlushLatencyNs = m.TotalFlushLatencyNs.Load() / snap.FlushBatches
	}
	for i := 0; i < numLatencyBuckets; i++ {
		snap.LatencyHistogram[i] = m.FlushLatencyBuckets[i].Load()
	}
	return snap
}

// Reset zeroes all counters; useful for tests.
func (m *Metrics) Reset() {
	m.SyncWrites.Store(0)
	m.AsyncWrites.Store(0)
	m.Enqueued.Store(0)
	m.Dropped.Store(0)
	m.Rejected.Store(0)
	m.FlushBatches.Store(0)
	m.FlushedEvents.Store(0)
	m.FlushFailures.Store(0)
	m.TotalFlushLatencyNs.Store(0)
	for i := 0; i < numLatencyBuckets; i++ {
		m.FlushLatencyBuckets[i].Store(0)
	}
	m.StartTime.Store(time.Now().UnixNano())
}
