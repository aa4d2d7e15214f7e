package jtag

import (
	"errors"
	"fmt"
)

var (
	// ErrMismatch is matched by every *MismatchError.
	ErrMismatch = errors.New("jtag: verification mismatch")

	// ErrNotShifting reports a shift through a scan that is no longer the
	// active one, or while the TAP is not in a shift phase.
	ErrNotShifting = errors.New("jtag: shift outside of an active scan")
)

// MismatchError reports a captured value that failed verification: an ID
// code, a handshake readback, an acknowledge pattern. Mismatches are never
// retried; they mean the wiring or the silicon is not what we expect.
type MismatchError struct {
	Check string
	Got   uint64
	Want  uint64
	// Mask, when non-zero, was applied to Got before comparing.
	Mask uint64
	// Reason is an optional human-readable verdict ("device not recognized").
	Reason string
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("%s: got 0x%X, want 0x%X", e.Check, e.Got, e.Want)
	if e.Mask != 0 {
		msg += fmt.Sprintf(" (mask 0x%X)", e.Mask)
	}
	if e.Reason != "" {
		msg = e.Reason + ": " + msg
	}
	return msg
}

func (e *MismatchError) Is(target error) bool {
	return target == ErrMismatch
}

// Verify returns a *MismatchError unless got&mask == want. A zero mask
// compares all bits.
func Verify(check string, got, mask, want uint64) error {
	m := mask
	if m == 0 {
		m = ^uint64(0)
	}
	if got&m == want {
		return nil
	}
	return &MismatchError{Check: check, Got: got, Want: want, Mask: mask}
}
