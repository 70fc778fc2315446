package journal

import (
	"github.com/behrlich/mjournal/internal/journalcfg"
	"github.com/behrlich/mjournal/internal/layout"
)

// Re-exported tuning and layout constants, for callers that want to
// size their own buffers or reason about on-device capacity without
// reaching into internal packages.
const (
	DeviceSize  = layout.DeviceSize
	NumEntries  = layout.NumEntries
	MaxFieldLen = layout.MaxFieldLen

	DefaultQueueCapacity = journalcfg.QueueCapacity
	FlushDeadline        = journalcfg.FlushDeadline
)
