package errors

import (
	"fmt"
	"strings"
)

// ErrorType categorizes a configuration error.
type ErrorType string

const (
	ErrorTypeSyntax              ErrorType = "syntax"               // YAML syntax error
	ErrorTypeIO                  ErrorType = "io"                   // File I/O error
	ErrorTypeStructural          ErrorType = "structural"           // Missing/duplicate/invalid schema fields
	ErrorTypeMalformedExpression ErrorType = "malformed_expression" // Expression has an unrecognized shape
	ErrorTypeUnknownEvaluator    ErrorType = "unknown_evaluator"    // Evaluator not in the whitelist
	ErrorTypeDepthExceeded       ErrorType = "depth_exceeded"       // Expression nests deeper than allowed
)

// Error is a single configuration error with enough context to fix it.
type Error struct {
	Type       ErrorType // Category of error
	Category   string    // Offending category_id, when known
	Source     string    // File the category was read from, when known
	Rule       string    // Indicator or trigger the error was found in
	Message    string    // Error message
	Suggestion string    // Suggested fix (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[%s]", e.Type))
	if e.Category != "" {
		sb.WriteString(fmt.Sprintf(" category %q:", e.Category))
	}
	if e.Rule != "" {
		sb.WriteString(fmt.Sprintf(" %s:", e.Rule))
	}
	sb.WriteString(" ")
	sb.WriteString(e.Message)

	if e.Source != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Source))
	}
	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("; suggestion: %s", e.Suggestion))
	}

	return sb.String()
}

// ErrorList collects errors so a whole category can be reported at once.
type ErrorList struct {
	Errors []*Error
}

// NewErrorList creates a new empty error list.
func NewErrorList() *ErrorList {
	return &ErrorList{
		Errors: make([]*Error, 0),
	}
}

// Add appends an error to the list.
func (el *ErrorList) Add(err *Error) {
	el.Errors = append(el.Errors, err)
}

// AddError creates and adds a new error.
func (el *ErrorList) AddError(errType ErrorType, category, rule, message string) {
	el.Add(&Error{
		Type:     errType,
		Category: category,
		Rule:     rule,
		Message:  message,
	})
}

// Merge appends every error of other. A nil list is ignored.
func (el *ErrorList) Merge(other *ErrorList) {
	if other == nil {
		return
	}
	el.Errors = append(el.Errors, other.Errors...)
}

// HasErrors returns true if the error list contains any errors.
func (el *ErrorList) HasErrors() bool {
	return len(el.Errors) > 0
}

// Count returns the number of errors in the list.
func (el *ErrorList) Count() int {
	return len(el.Errors)
}

// Error implements the error interface.
func (el *ErrorList) Error() string {
	if !el.HasErrors() {
		return ""
	}
	if el.Count() == 1 {
		return el.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("found %d error(s):\n", el.Count()))
	for _, err := range el.Errors {
		sb.WriteString("  - ")
		sb.WriteString(err.Error())
		sb.WriteString("\n")
	}

	return sb.String()
}

// ToError returns nil if the error list is empty, otherwise the list itself.
func (el *ErrorList) ToError() error {
	if !el.HasErrors() {
		return nil
	}
	return el
}

// ByType returns all errors of the given type.
func (el *ErrorList) ByType(errType ErrorType) []*Error {
	var result []*Error
	for _, err := range el.Errors {
		if err.Type == errType {
			result = append(result, err)
		}
	}
	return result
}

// HasErrorType returns true if the list contains at least one error of errType.
func (el *ErrorList) HasErrorType(errType ErrorType) bool {
	for _, err := range el.Errors {
		if err.Type == errType {
			return true
		}
	}
	return false
}

// WithCategory stamps category and source onto every error that lacks them.
func (el *ErrorList) WithCategory(category, source string) *ErrorList {
	for _, err := range el.Errors {
		if err.Category == "" {
			err.Category = category
		}
		if err.Source == "" {
			err.Source = source
		}
	}
	return el
}
