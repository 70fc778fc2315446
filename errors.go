package journal

import (
	"errors"
	"fmt"
	"syscall"
)

// Kind is the high-level category a JournalError falls into.
type Kind string

const (
	KindTransientIO    Kind = "transient_io"
	KindFormatInvalid  Kind = "format_invalid"
	KindSlotCorruption Kind = "slot_corruption"
	KindPayloadInvalid Kind = "payload_invalid"
	KindQueueOverflow  Kind = "queue_overflow"
	KindNotReady       Kind = "not_ready"
	KindShuttingDown   Kind = "shutting_down"
)

// JournalError is a structured error carrying the operation that
// failed, its Kind, and (when applicable) the underlying errno and
// wrapped error.
type JournalError struct {
	Op    string
	Kind  Kind
	Errno syscall.Errno
	Msg   string
	Inner error
}

// Error implements the error interface.
func (e *JournalError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("journal: %s", msg)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("journal: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("journal: %s: %s", e.Op, msg)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *JournalError) Unwrap() error {
	return e.Inner
}

// Is reports whether target is a *JournalError with the same Kind, so
// callers can do errors.Is(err, &JournalError{Kind: KindNotReady}).
func (e *JournalError) Is(target error) bool {
	te, ok := target.(*JournalError)
	if !ok {
		return false
	}
	return e.Kind == te.Kind
}

// NewError builds a JournalError with no wrapped cause.
func NewError(op string, kind Kind, msg string) *JournalError {
	return &JournalError{Op: op, Kind: kind, Msg: msg}
}

// WrapError wraps inner under op, mapping syscall errnos to a Kind via
// mapErrnoToKind. A nil inner returns nil, mirroring errors.Wrap-style
// helpers.
func WrapError(op string, kind Kind, inner error) *JournalError {
	if inner == nil {
		return nil
	}
	je := &JournalError{Op: op, Kind: kind, Msg: inner.Error(), Inner: inner}
	var errno syscall.Errno
	if errors.As(inner, &errno) {
		je.Errno = errno
		if kind == "" {
			je.Kind = mapErrnoToKind(errno)
		}
	}
	return je
}

// mapErrnoToKind maps a kernel errno to the closest Kind when the
// caller did not already know which one applied.
func mapErrnoToKind(errno syscall.Errno) Kind {
	switch errno {
	case syscall.EIO, syscall.ETIMEDOUT, syscall.EAGAIN:
		return KindTransientIO
	case syscall.EINVAL:
		return KindFormatInvalid
	default:
		return KindTransientIO
	}
}

// IsKind reports whether err is a *JournalError of the given Kind.
func IsKind(err error, kind Kind) bool {
	var je *JournalError
	if errors.As(err, &je) {
		return je.Kind == kind
	}
	return false
}
