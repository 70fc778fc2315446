package journal

import (
	"github.com/behrlich/mjournal/internal/devtest"
	"github.com/behrlich/mjournal/internal/iface"
)

// MockDevice is an in-memory fake backing device for unit tests,
// re-exported from internal/devtest so callers outside this module
// can exercise Init without touching a real file.
type MockDevice = devtest.MockDevice

// NewMockDevice creates a zero-filled mock device of the given size.
// Pass DeviceSize to match the layout the journal expects.
func NewMockDevice(size int64) *MockDevice {
	return devtest.NewMockDevice(size)
}

// InitWithDevice wires a JournalCore directly to dev instead of
// opening cfg.DevicePath, for tests that want full control over the
// backing device (fault injection, call counting) without touching
// the filesystem.
func InitWithDevice(cfg Config, dev *MockDevice) (*JournalCore, error) {
	cfg.Open = func() (iface.Device, error) { return dev, nil }
	return Init(cfg)
}
