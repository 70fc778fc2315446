package layout

// Header is the 28-byte record stored at device offset 0. It carries the
// circular log's live bounds and is itself CRC-protected so a crash mid
// write leaves a detectable, recoverable header rather than silent
// corruption.
type Header struct {
	Magic      uint32
	Version    uint32
	StartIndex uint64
	EndIndex   uint64
	CRC32      uint32
}

// Payload is the fixed-size metadata-event record carried by one entry
// slot. Text fields are always exactly MaxFieldLen bytes, NUL-terminated
// and NUL-padded; numeric override fields are paired with Has* flags so
// a caller can distinguish "left untouched" from "explicitly set to
// zero".
type Payload struct {
	TxID        uint64
	TimestampMs uint64

	ParentIno    uint32
	SrcParentIno uint32
	DstParentIno uint32
	Ino          uint32

	StMode   uint32
	StSize   uint64
	StNlink  uint64
	StBlocks uint64
	Mtime    int64
	Ctime    int64

	UID     uint32
	GID     uint32
	HasMode bool
	HasSize bool
	HasUID  bool
	HasGID  bool

	Action  [MaxFieldLen]byte
	Name    [MaxFieldLen]byte
	OldName [MaxFieldLen]byte
	NewName [MaxFieldLen]byte
	Target  [MaxFieldLen]byte
	Extra   [MaxFieldLen]byte
}

// SetField copies s into one of the fixed-width text fields, truncating
// at MaxFieldLen-1 and always leaving a terminating NUL, per the
// NUL-termination invariant on every textual field.
func SetField(dst *[MaxFieldLen]byte, s string) {
	for i := range dst {
		dst[i] = 0
	}
	n := len(s)
	if n > MaxFieldLen-1 {
		n = MaxFieldLen - 1
	}
	copy(dst[:n], s[:n])
}

// GetField returns the string stored in a fixed-width text field, cut at
// the first NUL.
func GetField(src *[MaxFieldLen]byte) string {
	for i, b := range src {
		if b == 0 {
			return string(src[:i])
		}
	}
	return string(src[:])
}
