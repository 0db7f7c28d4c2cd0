package rtpool

import (
	"errors"
	"fmt"
)

// Error taxonomy at the pool boundary, per spec §7.
var (
	// ErrAlreadyStarted is returned by Add when the pool has left the
	// Configuring state.
	ErrAlreadyStarted = errors.New("rtpool: pool already started")
	// ErrNullPeriod is returned by Start when any task carries a
	// zero-valued period. Checked at start, not at add, so configuration
	// order never matters (spec §4.B).
	ErrNullPeriod = errors.New("rtpool: task period must be positive")
	// ErrEmpty is returned by Start when no task was ever added.
	ErrEmpty = errors.New("rtpool: pool has no tasks")
)

// LibraryError wraps an underlying OS/scheduler fault, carrying a numeric
// code the way spec §7's "Library" error does.
type LibraryError struct {
	Code int
	Err  error
}

func (e *LibraryError) Error() string {
	return fmt.Sprintf("rtpool: library error (code %d): %v", e.Code, e.Err)
}

func (e *LibraryError) Unwrap() error { return e.Err }
