package source

import (
	"errors"
	"fmt"
)

var (
	// ErrParse matches every *ParseError via errors.Is.
	ErrParse = errors.New("source parse error")

	// ErrNotFound matches every *NotFoundError via errors.Is.
	ErrNotFound = errors.New("definition not found")

	// ErrInvalidKind is returned for kinds other than KindClass and KindFunction.
	ErrInvalidKind = errors.New("invalid definition kind")
)

// ParseError represents a source file that could not be read or parsed as Go.
type ParseError struct {
	// File is the path of the source file
	File string

	// Line is the line number where parsing failed (1-indexed, 0 if unknown)
	Line int

	// Column is the column where parsing failed (1-indexed, 0 if unknown)
	Column int

	// Message describes the error
	Message string

	// Cause is the underlying parser or I/O error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %q at line %d, column %d: %s", e.File, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %q at line %d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %q: %s", e.File, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NotFoundError represents a definition missing from its source file.
type NotFoundError struct {
	// File is the path of the searched source file
	File string

	// Name is the requested symbol name
	Name string

	// Kind is the requested definition kind
	Kind Kind
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found in %q", e.Kind, e.Name, e.File)
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
