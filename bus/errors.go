package bus

import (
	"errors"
	"fmt"
)

// Bus faults. These surface as values up to the FFI boundary, which
// is the single place that decides whether to raise a simulated bus
// error trap.
var (
	// ErrAccess - no device is mapped at the address, or the offset
	// falls outside the device's valid range.
	ErrAccess = errors.New("access error")

	// ErrAlignment - 16- or 32-bit access on an odd offset.
	ErrAlignment = errors.New("alignment error")

	// ErrReadOnly - write attempted against read-only backing store.
	ErrReadOnly = errors.New("read-only error")
)

// InitError is a configuration-time failure (bad address range,
// unusable ROM image). Fatal at startup, never raised during
// emulation.
type InitError struct {
	Msg string
}

func (e *InitError) Error() string {
	return fmt.Sprintf("initialization error: %s", e.Msg)
}

func initErrorf(format string, args ...any) error {
	return &InitError{Msg: fmt.Sprintf(format, args...)}
}
