// Package replay implements the offline scan that recovers a
// well-ordered event stream from the on-device circular log: validate
// the header, walk every live slot, validate each one, and sort the
// surviving payloads into arrival order.
package replay

import (
	"errors"
	"sort"

	"golang.org/x/sys/unix"

	"github.com/behrlich/mjournal/internal/layout"
)

// ErrOpen is returned when the backing file cannot be opened read-only.
var ErrOpen = errors.New("replay: failed to open device")

// ErrHeaderInvalid is returned when the header fails to validate
// (magic, version, CRC, or out-of-range indices).
var ErrHeaderInvalid = errors.New("replay: invalid header")

// ErrSlotInvalid is returned when a slot in [start_index, end_index)
// fails validation (short read, magic/version/CRC mismatch, or a
// minimally-invalid payload).
var ErrSlotInvalid = errors.New("replay: invalid slot")

// ErrTimestampSkew is returned when the scan observes a non-monotonic
// entry (timestamp_ms or tx_id going backwards) whose timestamp differs
// from its predecessor's by more than the large-skew threshold, which
// §4.4 treats as fatal rather than a warning.
var ErrTimestampSkew = errors.New("replay: timestamp skew exceeds threshold")

// maxSkewMs is the large-skew threshold from §4.4: a non-monotonic
// jump in timestamp_ms larger than this aborts the replay.
const maxSkewMs = 10_000

// Result is the outcome of a successful replay.
type Result struct {
	Events   []layout.Payload
	Warnings []string
}

// Replay opens path read-only, validates the header, and walks every
// live slot from start_index to end_index, validating each one and
// collecting its payload. On success the events are sorted by
// (timestamp_ms asc, tx_id asc) per §4.4 step 4.
func Replay(path string) (Result, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return Result{}, ErrOpen
	}
	defer unix.Close(fd)

	hdrBuf := make([]byte, layout.HeaderSize)
	if _, err := unix.Pread(fd, hdrBuf, 0); err != nil {
		return Result{}, ErrHeaderInvalid
	}
	h, err := layout.DecodeHeader(hdrBuf)
	if err != nil || !layout.ValidateHeader(h) {
		return Result{}, ErrHeaderInvalid
	}

	var (
		events        []layout.Payload
		warnings      []string
		haveLast      bool
		lastTxID      uint64
		lastTimestamp uint64
	)

	slot := make([]byte, layout.EntrySize)
	for i := h.StartIndex; i != h.EndIndex; i = (i + 1) % layout.NumEntries {
		off := int64(layout.Reserved) + int64(i)*int64(layout.EntrySize)
		n, err := unix.Pread(fd, slot, off)
		if err != nil || n < layout.EntrySize {
			return Result{}, ErrSlotInvalid
		}

		p, err := layout.DecodeEntry(slot)
		if err != nil {
			return Result{}, ErrSlotInvalid
		}
		if layout.GetField(&p.Action) == "" || p.Ino == 0 {
			return Result{}, ErrSlotInvalid
		}

		if haveLast && (p.TimestampMs < lastTimestamp || p.TxID < lastTxID) {
			// Only a non-monotonic entry whose timestamp differs from its
			// predecessor's by more than the large-skew threshold is
			// fatal. A small decrease in timestamp_ms or tx_id is exactly
			// what the step-4 sort below exists to recover from, so it is
			// downgraded to a warning rather than aborting the scan. A
			// forward gap between monotonic entries is not checked.
			delta := int64(p.TimestampMs) - int64(lastTimestamp)
			if delta < 0 {
				delta = -delta
			}
			if delta > maxSkewMs {
				return Result{}, ErrTimestampSkew
			}
			warnings = append(warnings, monotonicityWarning(lastTxID, lastTimestamp, p.TxID, p.TimestampMs))
		}
		haveLast = true
		lastTxID = p.TxID
		lastTimestamp = p.TimestampMs

		events = append(events, p)
	}

	sort.SliceStable(events, func(a, b int) bool {
		if events[a].TimestampMs != events[b].TimestampMs {
			return events[a].TimestampMs < events[b].TimestampMs
		}
		return events[a].TxID < events[b].TxID
	})

	return Result{Events: events, Warnings: warnings}, nil
}

func monotonicityWarning(lastTxID, lastTs, txID, ts uint64) string {
	return "replay: non-monotonic entry observed (prev tx_id=" +
		itoa(lastTxID) + " ts=" + itoa(lastTs) + ", next tx_id=" +
		itoa(txID) + " ts=" + itoa(ts) + ")"
}

func itoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}
