package reload

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownMember is the cause of a CallError for a method or symbol the
	// current definition does not have.
	ErrUnknownMember = errors.New("unknown member")

	// ErrCall matches every *CallError via errors.Is.
	ErrCall = errors.New("call failed")
)

// CallError represents a failed call through a proxy or an instance: an
// unknown member, arguments that do not fit the signature, a constructor
// error or a panic in script code. Reload errors are never reported this way.
type CallError struct {
	// Symbol is the proxied definition name
	Symbol string

	// Member is the method, constructor or symbol that was called
	Member string

	// Message describes the error
	Message string

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface.
func (e *CallError) Error() string {
	target := e.Symbol
	if e.Member != "" {
		target = e.Symbol + "." + e.Member
	}
	if e.Cause != nil {
		return fmt.Sprintf("call to %s failed: %s: %v", target, e.Message, e.Cause)
	}
	return fmt.Sprintf("call to %s failed: %s", target, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *CallError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrCall.
func (e *CallError) Is(target error) bool {
	return target == ErrCall
}

// ErrorList contains multiple errors that occurred while setting up several
// proxies, where some may succeed and others fail.
type ErrorList struct {
	Errors []error
}

// Error implements the error interface.
func (e *ErrorList) Error() string {
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %v\n", i+1, err))
	}
	return sb.String()
}

// Unwrap returns the collected errors so errors.Is and errors.As see them.
func (e *ErrorList) Unwrap() []error {
	return e.Errors
}

// Add adds an error to the list.
func (e *ErrorList) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if the list contains any errors.
func (e *ErrorList) HasErrors() bool {
	return len(e.Errors) > 0
}

// ToError returns nil if there are no errors, the single error if there is one,
// or the ErrorList itself if there are multiple errors.
func (e *ErrorList) ToError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	if len(e.Errors) == 1 {
		return e.Errors[0]
	}
	return e
}
