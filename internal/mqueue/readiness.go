package mqueue

import (
	"sync/atomic"
	"time"

	"github.com/behrlich/mjournal/internal/iface"
	"github.com/behrlich/mjournal/internal/journalcfg"
)

// Readiness is a process-wide advisory flag for whether the backing
// device currently looks usable. It is read and written with plain
// atomics — per the journal's concurrency model, readiness is
// advisory, not an ordering primitive, so relaxed atomics suffice.
type Readiness struct {
	ready atomic.Bool
}

// Load reports the current readiness.
func (r *Readiness) Load() bool { return r.ready.Load() }

// Probe is a no-argument readiness test: open for read/write, fsync,
// and pread at least one byte from offset 0.
type Probe func() bool

// Monitor polls a Probe on an interval that shortens while not-ready
// and lengthens once ready, and wakes a Queue's flusher the moment
// readiness flips from false to true. Per §4.3 it runs as a best-effort
// daemon: Stop requests it to exit but nothing joins it.
type Monitor struct {
	probe     Probe
	readiness *Readiness
	queue     *Queue
	logger    iface.Logger

	stopCh chan struct{}
}

// NewMonitor creates a readiness monitor. queue may be nil in tests
// that only care about the readiness flag.
func NewMonitor(probe Probe, readiness *Readiness, queue *Queue, logger iface.Logger) *Monitor {
	return &Monitor{
		probe:     probe,
		readiness: readiness,
		queue:     queue,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// Run polls until Stop is called. Intended to be run in its own
// goroutine for the lifetime of the journal.
func (m *Monitor) Run() {
	for {
		select {
		case <-m.stopCh:
			return
		default:
		}

		wasReady := m.readiness.Load()
		nowReady := m.probe()
		m.readiness.ready.Store(nowReady)

		if nowReady && !wasReady {
			if m.logger != nil {
				m.logger.Printf("device became ready")
			}
			if m.queue != nil {
				m.queue.Wake()
			}
		} else if !nowReady && wasReady {
			if m.logger != nil {
				m.logger.Warnf("device no longer ready")
			}
		}

		interval := journalcfg.NotReadyPollInterval
		if nowReady {
			interval = journalcfg.ReadyPollInterval
		}
		select {
		case <-m.stopCh:
			return
		case <-time.After(interval):
		}
	}
}

// Stop requests the monitor to exit on its next poll boundary. It does
// not block waiting for the goroutine to observe it.
func (m *Monitor) Stop() {
	close(m.stopCh)
}
