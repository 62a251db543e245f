package suppression

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable matches every StoreError via errors.Is.
var ErrStoreUnavailable = errors.New("suppression store unavailable")

// StoreError wraps a backend failure.
type StoreError struct {
	Backend   string // "memory" or "sqlite"
	Operation string // get, put, delete_expired, count
	Cause     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	return fmt.Sprintf("suppression %s backend: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}
