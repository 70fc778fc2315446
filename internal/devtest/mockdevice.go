// Package devtest provides an in-memory fake of iface.Device: a byte
// slice behind a mutex, with call-tracking and fault-injection knobs,
// sized to the journal's small fixed device interface
// (ReadAt/WriteAt/Sync/Close only — no discard/resize/stat surface,
// since the raw writer never needs them).
package devtest

import (
	"errors"
	"sync"
)

// ErrClosed is returned by MockDevice methods after Close.
var ErrClosed = errors.New("devtest: device closed")

// MockDevice is an in-memory fake backing device for unit tests.
type MockDevice struct {
	mu   sync.Mutex
	data []byte
	size int64

	closed bool

	// Fault injection
	FailReadAt  error
	FailWriteAt error
	FailSync    error

	readCalls  int
	writeCalls int
	syncCalls  int
}

// NewMockDevice creates a zero-filled device of the given size.
func NewMockDevice(size int64) *MockDevice {
	return &MockDevice{data: make([]byte, size), size: size}
}

// ReadAt implements iface.Device.
func (m *MockDevice) ReadAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.readCalls++
	if m.closed {
		return 0, ErrClosed
	}
	if m.FailReadAt != nil {
		return 0, m.FailReadAt
	}
	if off >= m.size {
		return 0, nil
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}
	n := copy(p, m.data[off:off+int64(len(p))])
	return n, nil
}

// WriteAt implements iface.Device.
func (m *MockDevice) WriteAt(p []byte, off int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.writeCalls++
	if m.closed {
		return 0, ErrClosed
	}
	if m.FailWriteAt != nil {
		return 0, m.FailWriteAt
	}
	if off >= m.size {
		return 0, errors.New("devtest: write past end of device")
	}
	available := m.size - off
	if int64(len(p)) > available {
		p = p[:available]
	}
	n := copy(m.data[off:off+int64(len(p))], p)
	return n, nil
}

// Sync implements iface.Device.
func (m *MockDevice) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.syncCalls++
	if m.closed {
		return ErrClosed
	}
	return m.FailSync
}

// Close implements iface.Device.
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// CallCounts reports how many times each method has been invoked.
func (m *MockDevice) CallCounts() (reads, writes, syncs int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCalls, m.writeCalls, m.syncCalls
}

// Bytes returns a copy of the device's raw contents, for assertions.
func (m *MockDevice) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(m.data))
	copy(cp, m.data)
	return cp
}

// IsClosed reports whether Close has been called.
func (m *MockDevice) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Reopen clears the closed flag, simulating a fresh handle to the same
// backing bytes — used to test the writer's lazy-reopen path.
func (m *MockDevice) Reopen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = false
}
