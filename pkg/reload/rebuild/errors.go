package rebuild

import (
	"errors"
	"fmt"

	"reloadr-hq/reloadr/pkg/reload/source"
)

var (
	// ErrRebuild matches every *RebuildError via errors.Is.
	ErrRebuild = errors.New("rebuild failed")

	// ErrPanic matches every *PanicError via errors.Is.
	ErrPanic = errors.New("panic in script code")
)

// Rebuild stages.
const (
	StagePrepare  = "prepare"
	StageEvaluate = "evaluate"
	StageExtract  = "extract"
	StageLoad     = "load"
)

// RebuildError represents a definition that could not be evaluated into a
// usable value.
type RebuildError struct {
	// File is the script file
	File string

	// Name is the definition name, empty for a whole file load
	Name string

	// Kind is the definition kind, zero for a whole file load
	Kind source.Kind

	// Stage is the step that failed
	Stage string

	// Message describes the error
	Message string

	// Cause is the underlying interpreter error
	Cause error
}

// Error implements the error interface.
func (e *RebuildError) Error() string {
	subject := fmt.Sprintf("%q", e.File)
	if e.Name != "" {
		subject = fmt.Sprintf("%s %q in %q", e.Kind, e.Name, e.File)
	}
	if e.Cause != nil {
		return fmt.Sprintf("rebuild of %s failed at %s: %s: %v", subject, e.Stage, e.Message, e.Cause)
	}
	return fmt.Sprintf("rebuild of %s failed at %s: %s", subject, e.Stage, e.Message)
}

// Unwrap implements the errors.Unwrap interface for error chain support.
func (e *RebuildError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrRebuild.
func (e *RebuildError) Is(target error) bool {
	return target == ErrRebuild
}

// PanicError carries a value recovered from a panic raised by script code.
type PanicError struct {
	Value any
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Is reports whether target is ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}
