// Package journalcfg holds the journal's compile-time timing and
// capacity constants. Per the journal's design there are no runtime
// flags for these — only the offline tooling in cmd/ exposes flags,
// and those configure the tool, not the on-device format or the
// concurrency timing below.
package journalcfg

import "time"

const (
	// QueueCapacity is the number of pending payloads the in-memory
	// queue can hold before enqueue starts rejecting (the drop path).
	QueueCapacity = 4096

	// FlushDeadline bounds how long the flusher coalesces a burst
	// before draining, even if the queue never fills.
	FlushDeadline = 500 * time.Millisecond

	// HeaderPersistAttempts is the number of pwrite+fsync attempts the
	// raw writer makes when persisting the header before giving up.
	HeaderPersistAttempts = 3

	// HeaderPersistRetryDelay is the pause between header persist
	// attempts.
	HeaderPersistRetryDelay = 1 * time.Millisecond

	// NotReadyPollInterval is how often the readiness monitor probes
	// the device while it is not ready.
	NotReadyPollInterval = 100 * time.Millisecond

	// ReadyPollInterval is how often the readiness monitor re-probes
	// the device once it has been observed ready.
	ReadyPollInterval = 1000 * time.Millisecond

	// FlusherNotReadyBackoff is the sleep the flusher uses while
	// busy-waiting for the device to become ready (§4.3 step 1).
	FlusherNotReadyBackoff = 100 * time.Millisecond
)
