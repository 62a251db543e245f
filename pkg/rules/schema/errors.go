package schema

import (
	"errors"
	"fmt"
)

// ErrCategoryNotFound is returned by Loader.Load when no document defines the
// requested category.
var ErrCategoryNotFound = errors.New("category not found")

// LoadError represents a failure to read category documents from a source.
// This includes file system errors and size or encoding violations.
type LoadError struct {
	// Path is the file or directory that failed to load
	Path string

	// Message describes the error
	Message string

	// Cause is the underlying error, if any
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load rules from %q: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load rules from %q: %s", e.Path, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *LoadError) Unwrap() error {
	return e.Cause
}
