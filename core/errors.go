package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrDanglingReference  = errors.New("dangling reference")
	ErrDegenerateGeometry = errors.New("degenerate geometry")
	ErrToleranceMismatch  = errors.New("tolerance mismatch")

	// ErrInstanceGeometry rejects geometry edits addressed to an instance.
	ErrInstanceGeometry = fmt.Errorf("geometry is owned by the instance source: %w", ErrInvalidSelection)
)

// Recoverable reports whether err is a user-facing rejection (no state was
// changed) rather than an internal invariant violation.
func Recoverable(err error) bool {
	if err == nil || errors.Is(err, ErrDanglingReference) {
		return false
	}
	return errors.Is(err, ErrInvalidSelection) ||
		errors.Is(err, ErrToleranceMismatch) ||
		errors.Is(err, ErrDegenerateGeometry) ||
		errors.Is(err, ErrNotFound)
}
