// Package rawdevice owns the single backing-device handle and the
// circular-log write path: header read/validate, slot append with
// ring eviction, and the batched and synchronous persistence paths.
package rawdevice

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/behrlich/mjournal/internal/iface"
	"github.com/behrlich/mjournal/internal/layout"
)

// FileDevice is a fixed-size regular file accessed with raw
// pread/pwrite/fsync, standing in for the raw block backing described
// in the journal's on-device layout. It implements iface.Device.
type FileDevice struct {
	fd   int
	path string
}

// OpenFileDevice opens (creating if necessary) the backing file at
// path and ensures it is exactly layout.DeviceSize bytes.
func OpenFileDevice(path string) (*FileDevice, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, fmt.Errorf("rawdevice: open %s: %w", path, err)
	}
	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("rawdevice: fstat %s: %w", path, err)
	}
	if st.Size != layout.DeviceSize {
		if err := unix.Ftruncate(fd, layout.DeviceSize); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("rawdevice: resize %s to %d: %w", path, layout.DeviceSize, err)
		}
	}
	return &FileDevice{fd: fd, path: path}, nil
}

// ReadAt implements iface.Device.
func (d *FileDevice) ReadAt(p []byte, off int64) (int, error) {
	return unix.Pread(d.fd, p, off)
}

// WriteAt implements iface.Device.
func (d *FileDevice) WriteAt(p []byte, off int64) (int, error) {
	return unix.Pwrite(d.fd, p, off)
}

// Sync implements iface.Device.
func (d *FileDevice) Sync() error {
	return unix.Fsync(d.fd)
}

// Close implements iface.Device.
func (d *FileDevice) Close() error {
	return unix.Close(d.fd)
}

// Probe reports whether a device handle still looks usable: fsync
// succeeds and at least one byte can be read back from offset 0. This
// is also the readiness test used by the monitor in internal/mqueue,
// and the staleness test the writer uses before reusing a handle.
func Probe(d iface.Device) bool {
	if d == nil {
		return false
	}
	if err := d.Sync(); err != nil {
		return false
	}
	var b [1]byte
	n, err := d.ReadAt(b[:], 0)
	return err == nil && n == 1
}

// compile-time interface check
var _ iface.Device = (*FileDevice)(nil)
