package evaluators

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotAllowed is wrapped by FieldAccessError.
	ErrFieldNotAllowed = errors.New("field not allowed")

	// ErrUnknownEvaluator is wrapped by UnknownEvaluatorError.
	ErrUnknownEvaluator = errors.New("unknown evaluator")

	// ErrInvalidArgument is wrapped by ArgumentError.
	ErrInvalidArgument = errors.New("invalid evaluator argument")
)

// FieldAccessError reports a rule referencing a field outside the whitelist.
type FieldAccessError struct {
	Field string
}

// Error returns the error message.
func (e *FieldAccessError) Error() string {
	return fmt.Sprintf("field %q is not accessible to rules", e.Field)
}

// Unwrap returns ErrFieldNotAllowed.
func (e *FieldAccessError) Unwrap() error {
	return ErrFieldNotAllowed
}

// UnknownEvaluatorError reports an evaluator name outside the whitelist.
type UnknownEvaluatorError struct {
	Name string
}

// Error returns the error message.
func (e *UnknownEvaluatorError) Error() string {
	return fmt.Sprintf("unknown evaluator %q", e.Name)
}

// Unwrap returns ErrUnknownEvaluator.
func (e *UnknownEvaluatorError) Unwrap() error {
	return ErrUnknownEvaluator
}

// ArgumentError reports a missing or mistyped evaluator argument.
type ArgumentError struct {
	Evaluator string
	Arg       string
	Reason    string
}

// Error returns the error message.
func (e *ArgumentError) Error() string {
	return fmt.Sprintf("evaluator %s: argument %q %s", e.Evaluator, e.Arg, e.Reason)
}

// Unwrap returns ErrInvalidArgument.
func (e *ArgumentError) Unwrap() error {
	return ErrInvalidArgument
}
