package layout

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

// ErrShortBuffer is returned by the Decode* functions when the supplied
// buffer is smaller than the structure being decoded.
var ErrShortBuffer = errors.New("layout: buffer too short")

// EncodeHeader marshals h into a HeaderSize-byte buffer, little-endian,
// field by field. The CRC32 field is computed over the header with
// itself zeroed first, per the on-device format: "Header CRC is
// computed over the full header struct with the crc32 field
// pre-zeroed".
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.StartIndex)
	binary.LittleEndian.PutUint64(buf[16:24], h.EndIndex)
	binary.LittleEndian.PutUint32(buf[24:28], 0) // crc32 zeroed for the checksum scope
	sum := crc32.ChecksumIEEE(buf)
	binary.LittleEndian.PutUint32(buf[24:28], sum)
	return buf
}

// DecodeHeader unmarshals a HeaderSize-byte buffer into a Header. It does
// not itself validate magic/version/CRC; callers validate with
// ValidateHeader.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrShortBuffer
	}
	return Header{
		Magic:      binary.LittleEndian.Uint32(buf[0:4]),
		Version:    binary.LittleEndian.Uint32(buf[4:8]),
		StartIndex: binary.LittleEndian.Uint64(buf[8:16]),
		EndIndex:   binary.LittleEndian.Uint64(buf[16:24]),
		CRC32:      binary.LittleEndian.Uint32(buf[24:28]),
	}, nil
}

// ValidateHeader reports whether h is a self-consistent, in-range
// header: magic and version match, its indices are within
// [0, NumEntries), and its CRC validates against a zeroed-CRC
// re-encoding.
func ValidateHeader(h Header) bool {
	if h.Magic != Magic || h.Version != Version {
		return false
	}
	if h.StartIndex >= NumEntries || h.EndIndex >= NumEntries {
		return false
	}
	check := h
	check.CRC32 = 0
	want := EncodeHeader(check)
	return binary.LittleEndian.Uint32(want[24:28]) == h.CRC32
}

// EncodePayload marshals p into a PayloadSize-byte buffer, field by
// field, little-endian.
func EncodePayload(p Payload) []byte {
	buf := make([]byte, PayloadSize)
	off := 0

	putU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[off:off+8], v)
		off += 8
	}
	putU32 := func(v uint32) {
		binary.LittleEndian.PutUint32(buf[off:off+4], v)
		off += 4
	}
	putI64 := func(v int64) { putU64(uint64(v)) }
	putBool := func(v bool) {
		if v {
			buf[off] = 1
		} else {
			buf[off] = 0
		}
		off++
	}
	putField := func(f [MaxFieldLen]byte) {
		copy(buf[off:off+MaxFieldLen], f[:])
		off += MaxFieldLen
	}

	putU64(p.TxID)
	putU64(p.TimestampMs)
	putU32(p.ParentIno)
	putU32(p.SrcParentIno)
	putU32(p.DstParentIno)
	putU32(p.Ino)
	putU32(p.StMode)
	putU64(p.StSize)
	putU64(p.StNlink)
	putU64(p.StBlocks)
	putI64(p.Mtime)
	putI64(p.Ctime)
	putU32(p.UID)
	putU32(p.GID)
	putBool(p.HasMode)
	putBool(p.HasSize)
	putBool(p.HasUID)
	putBool(p.HasGID)
	putField(p.Action)
	putField(p.Name)
	putField(p.OldName)
	putField(p.NewName)
	putField(p.Target)
	putField(p.Extra)

	return buf
}

// DecodePayload unmarshals a PayloadSize-byte buffer into a Payload.
func DecodePayload(buf []byte) (Payload, error) {
	if len(buf) < PayloadSize {
		return Payload{}, ErrShortBuffer
	}
	var p Payload
	off := 0

	getU64 := func() uint64 {
		v := binary.LittleEndian.Uint64(buf[off : off+8])
		off += 8
		return v
	}
	getU32 := func() uint32 {
		v := binary.LittleEndian.Uint32(buf[off : off+4])
		off += 4
		return v
	}
	getI64 := func() int64 { return int64(getU64()) }
	getBool := func() bool {
		v := buf[off] != 0
		off++
		return v
	}
	getField := func() [MaxFieldLen]byte {
		var f [MaxFieldLen]byte
		copy(f[:], buf[off:off+MaxFieldLen])
		off += MaxFieldLen
		return f
	}

	p.TxID = getU64()
	p.TimestampMs = getU64()
	p.ParentIno = getU32()
	p.SrcParentIno = getU32()
	p.DstParentIno = getU32()
	p.Ino = getU32()
	p.StMode = getU32()
	p.StSize = getU64()
	p.StNlink = getU64()
	p.StBlocks = getU64()
	p.Mtime = getI64()
	p.Ctime = getI64()
	p.UID = getU32()
	p.GID = getU32()
	p.HasMode = getBool()
	p.HasSize = getBool()
	p.HasUID = getBool()
	p.HasGID = getBool()
	p.Action = getField()
	p.Name = getField()
	p.OldName = getField()
	p.NewName = getField()
	p.Target = getField()
	p.Extra = getField()

	return p, nil
}

// PayloadCRC32 computes the entry CRC, scoped to the payload region
// only — never the slot's magic/version header or its zero padding.
func PayloadCRC32(p Payload) uint32 {
	return crc32.ChecksumIEEE(EncodePayload(p))
}

// EncodeEntry builds a full EntrySize-byte slot for p: magic, version,
// the encoded payload, zero padding, and a trailing CRC32 computed over
// the payload region alone.
func EncodeEntry(p Payload) []byte {
	buf := make([]byte, EntrySize)
	binary.LittleEndian.PutUint32(buf[0:4], Magic)
	binary.LittleEndian.PutUint32(buf[4:8], Version)
	payload := EncodePayload(p)
	copy(buf[8:8+PayloadSize], payload)
	// buf[8+PayloadSize : EntrySize-4] is already zero (padding).
	sum := crc32.ChecksumIEEE(payload)
	binary.LittleEndian.PutUint32(buf[EntrySize-4:EntrySize], sum)
	return buf
}

// DecodeEntry validates and decodes a full EntrySize-byte slot. It
// checks magic, version, and the payload-scoped CRC before returning
// the payload.
func DecodeEntry(buf []byte) (Payload, error) {
	if len(buf) < EntrySize {
		return Payload{}, ErrShortBuffer
	}
	magic := binary.LittleEndian.Uint32(buf[0:4])
	version := binary.LittleEndian.Uint32(buf[4:8])
	if magic != Magic || version != Version {
		return Payload{}, errSlotFormat
	}
	payloadBytes := buf[8 : 8+PayloadSize]
	wantCRC := binary.LittleEndian.Uint32(buf[EntrySize-4 : EntrySize])
	gotCRC := crc32.ChecksumIEEE(payloadBytes)
	if wantCRC != gotCRC {
		return Payload{}, errSlotCRC
	}
	return DecodePayload(payloadBytes)
}

var (
	errSlotFormat = errors.New("layout: slot magic/version mismatch")
	errSlotCRC    = errors.New("layout: slot payload CRC mismatch")
)
