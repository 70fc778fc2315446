// Package layout defines the on-device binary format of the metadata
// journal: the fixed header, the fixed-size entry slots that follow it,
// and the payload record each slot carries. All integers are encoded
// little-endian; structures are (de)serialized field-by-field rather
// than via struct punning, so the wire format never depends on the
// host's struct alignment rules.
package layout

const (
	// DeviceSize is the required size, in bytes, of the backing file.
	DeviceSize = 8 << 20 // 8 MiB

	// Reserved is the byte range at the start of the device set aside
	// for the header. Entry slots begin immediately after it.
	Reserved = 4096

	// EntrySize is the fixed size, in bytes, of a single entry slot.
	EntrySize = 4096

	// NumEntries is the number of entry slots the device holds.
	NumEntries = (DeviceSize - Reserved) / EntrySize

	// Magic identifies a valid header or entry slot ("JNL0").
	Magic uint32 = 0x4A4E4C30

	// Version is the on-disk format version this package writes and
	// expects to read.
	Version uint32 = 1

	// MaxFieldLen is the fixed width, in bytes, of each textual field
	// in a Payload, including its terminating NUL.
	MaxFieldLen = 256
)

// HeaderSize is the wire size, in bytes, of an encoded Header.
const HeaderSize = 4 + 4 + 8 + 8 + 4 // magic + version + start + end + crc32

// PayloadSize is the wire size, in bytes, of an encoded Payload.
const PayloadSize = 8 + 8 + // tx_id, timestamp_ms
	4 + 4 + 4 + 4 + // parent_ino, src_parent_ino, dst_parent_ino, ino
	4 + 8 + 8 + 8 + 8 + 8 + // st_mode, st_size, st_nlink, st_blocks, mtime, ctime
	4 + 4 + 1 + 1 + 1 + 1 + // uid, gid, has_mode, has_size, has_uid, has_gid
	6*MaxFieldLen // action, name, old_name, new_name, target, extra

// entryOverhead is the bytes in a slot outside the payload region:
// magic + version at the front, crc32 at the tail.
const entryOverhead = 4 + 4 + 4

// EntryPaddingSize is the zero-fill between the payload and the
// trailing CRC within one entry slot.
const EntryPaddingSize = EntrySize - entryOverhead - PayloadSize

func init() {
	if EntryPaddingSize < 0 {
		panic("layout: PayloadSize exceeds EntrySize capacity")
	}
}
