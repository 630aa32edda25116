package main

import (
	"errors"
	"fmt"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
)

// StepError wraps a pipeline step failure with the step's identity.
//
// # Description
//
// Provides structured context for step failures: which step failed,
// whether its failure halted the run, and the underlying error.
// Implements the error interface and supports unwrapping, so sentinel
// checks like errors.Is(err, envctl.ErrEnvNotRunning) keep working
// through the wrapper.
//
// # Example
//
//	err := NewStepError("start-environment", profile.CriticalityFatal, startErr)
//	fmt.Println(err.Error()) // `step "start-environment" failed: ...`
//
//	var stepErr *StepError
//	if errors.As(err, &stepErr) {
//	    fmt.Println(stepErr.Step) // "start-environment"
//	}
type StepError struct {
	// Step is the name of the step that failed.
	Step string

	// Criticality is the failed step's criticality.
	Criticality string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *StepError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("step %q failed: %v", e.Step, e.Wrapped)
	}
	return fmt.Sprintf("step %q failed", e.Step)
}

// Unwrap returns the underlying error.
//
// # Description
//
// Enables errors.Is() and errors.As() to work through the error chain.
func (e *StepError) Unwrap() error {
	return e.Wrapped
}

// IsFatal reports whether the failed step's criticality halted the run.
func (e *StepError) IsFatal() bool {
	return e.Criticality == profile.CriticalityFatal
}

// NewStepError creates a StepError with full context.
//
// # Inputs
//
//   - step: Name of the failed step
//   - criticality: The step's criticality
//   - wrapped: Underlying error (may be nil)
//
// # Outputs
//
//   - *StepError: New error with full context
func NewStepError(step, criticality string, wrapped error) *StepError {
	return &StepError{
		Step:        step,
		Criticality: criticality,
		Wrapped:     wrapped,
	}
}

// FailedStepName extracts the failing step's name from an error chain.
//
// # Description
//
// Walks the error chain looking for a StepError. Returns the step name
// of the first one found, or empty string if none. The exit path uses
// this to name the step that halted the run.
//
// # Example
//
//	if name := FailedStepName(err); name != "" {
//	    ux.Error(fmt.Sprintf("provisioning halted at step %q", name))
//	}
func FailedStepName(err error) string {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step
	}
	return ""
}
