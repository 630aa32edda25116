// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/pkg/logging"
	"github.com/drydocklabs/drydock/pkg/ux"
)

// =============================================================================
// Errors
// =============================================================================

// ErrPanicRecovered wraps panics caught inside a step so a broken step
// surfaces as a normal failure instead of crashing the run.
var ErrPanicRecovered = errors.New("panic recovered during operation")

// =============================================================================
// Step Definition
// =============================================================================

// Step is one unit of work in a provisioning run.
//
// Criticality decides what a failure means: a fatal step halts the run
// immediately and every later step (cleanup included) is recorded as
// not run; a recoverable step logs a warning and the run continues.
type Step struct {
	// Name identifies the step in output and the run report.
	Name string

	// Criticality is profile.CriticalityFatal or
	// profile.CriticalityRecoverable.
	Criticality string

	// Run does the work. A nil return is success.
	Run func(ctx context.Context, rc *RunContext) error
}

// IsFatal reports whether a failure of this step halts the run.
func (s *Step) IsFatal() bool {
	return s.Criticality == profile.CriticalityFatal
}

// RunContext carries the identifiers steps share. One context describes
// one run end to end, so every log line and report row can be tied back
// to the same run ID.
type RunContext struct {
	// RunID is a UUID minted per run.
	RunID string

	// Project is the ddev project name.
	Project string

	// Profile is the name of the profile being provisioned.
	Profile string

	// WorkspaceDir is the absolute path of the workspace.
	WorkspaceDir string

	// Logger receives structured step telemetry.
	Logger *logging.Logger

	// Out receives step-level user output.
	Out io.Writer
}

// NewRunContext builds a context with a fresh run ID.
func NewRunContext(project, profileName, workspaceDir string, logger *logging.Logger) *RunContext {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RunContext{
		RunID:        uuid.NewString(),
		Project:      project,
		Profile:      profileName,
		WorkspaceDir: workspaceDir,
		Logger:       logger,
		Out:          os.Stdout,
	}
}

// =============================================================================
// Run Report
// =============================================================================

// StepOutcome records one executed step.
type StepOutcome struct {
	Name     string
	Err      error
	Duration time.Duration
}

// RunReport is the full account of a provisioning run.
//
// Every attempted step lands in exactly one of Succeeded or Failed.
// Steps that never ran because a fatal failure (or cancellation) came
// first are listed in NotRun, in pipeline order.
type RunReport struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration

	// Succeeded and Failed partition the attempted steps.
	Succeeded []StepOutcome
	Failed    []StepOutcome

	// FatalStep names the step whose failure halted the run, empty
	// when the run was halted by cancellation or ran to the end.
	FatalStep string

	// FatalErr is the error that halted the run, nil when the run
	// completed (recoverable failures do not halt).
	FatalErr error

	// NotRun lists the steps skipped because the run halted.
	NotRun []string
}

// Success reports whether the run completed. Recoverable failures
// still count as a completed run and exit zero.
func (r *RunReport) Success() bool {
	return r.FatalErr == nil
}

// HasWarnings reports whether any recoverable step failed.
func (r *RunReport) HasWarnings() bool {
	for _, f := range r.Failed {
		if f.Name != r.FatalStep {
			return true
		}
	}
	return false
}

// Attempted returns how many steps actually ran.
func (r *RunReport) Attempted() int {
	return len(r.Succeeded) + len(r.Failed)
}

// =============================================================================
// Interface Definition
// =============================================================================

// Orchestrator executes a step pipeline and accounts for every step.
type Orchestrator interface {
	// Run executes the steps in order.
	//
	// The returned error is non-nil only when the run halted: a fatal
	// step failed or the context was cancelled between steps. The
	// report is populated on every return path.
	Run(ctx context.Context, rc *RunContext, steps []Step) (*RunReport, error)
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultOrchestrator runs steps sequentially.
//
// # Description
//
// The orchestrator owns the failure policy and nothing else: steps do
// the work, the orchestrator decides whether the run continues. A
// panic inside a step is converted into a step failure and handled by
// the same policy.
//
// # Thread Safety
//
// A mutex serializes Run so one orchestrator drives at most one run at
// a time.
type DefaultOrchestrator struct {
	output io.Writer
	mu     sync.Mutex
}

// NewDefaultOrchestrator creates an orchestrator writing progress to
// stdout.
func NewDefaultOrchestrator() *DefaultOrchestrator {
	return &DefaultOrchestrator{output: os.Stdout}
}

// SetOutput redirects progress output. Passing nil discards it.
func (o *DefaultOrchestrator) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	o.output = w
}

// Run implements Orchestrator.
//
// # Description
//
// Steps execute in order. Cancellation is checked between steps, a
// cancelled context halts the run exactly like a fatal failure except
// that no step is blamed: FatalStep stays empty and FatalErr carries
// the context's error.
//
// # Inputs
//
//   - ctx: Context for cancellation between steps.
//   - rc: Shared run context; its logger receives step telemetry.
//   - steps: Pipeline in execution order.
//
// # Outputs
//
//   - *RunReport: Full accounting, populated on every return path.
//   - error: Non-nil only when the run halted early.
func (o *DefaultOrchestrator) Run(ctx context.Context, rc *RunContext, steps []Step) (*RunReport, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	logger := rc.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	start := time.Now()
	report := &RunReport{RunID: rc.RunID, StartedAt: start}

	for i := range steps {
		step := steps[i]

		if err := ctx.Err(); err != nil {
			report.FatalErr = err
			report.NotRun = stepNames(steps[i:])
			report.Duration = time.Since(start)
			logger.Warn("run cancelled",
				"run_id", rc.RunID, "next_step", step.Name)
			return report, fmt.Errorf("run cancelled before step %s: %w", step.Name, err)
		}

		fmt.Fprintf(o.output, "%s %s\n", ux.IconArrow.Render(), step.Name)
		outcome := o.runStep(ctx, rc, step)

		if outcome.Err == nil {
			report.Succeeded = append(report.Succeeded, outcome)
			fmt.Fprintf(o.output, "%s %s (%s)\n",
				ux.IconSuccess.Render(), step.Name, outcome.Duration.Round(time.Millisecond))
			logger.Debug("step succeeded",
				"run_id", rc.RunID, "step", step.Name, "duration", outcome.Duration)
			continue
		}

		report.Failed = append(report.Failed, outcome)

		if step.IsFatal() {
			report.FatalStep = step.Name
			report.FatalErr = outcome.Err
			report.NotRun = stepNames(steps[i+1:])
			report.Duration = time.Since(start)
			fmt.Fprintf(o.output, "%s %s: %v\n",
				ux.IconError.Render(), step.Name, outcome.Err)
			logger.Error("fatal step failed",
				"run_id", rc.RunID, "step", step.Name, "error", outcome.Err)
			return report, NewStepError(step.Name, step.Criticality, outcome.Err)
		}

		fmt.Fprintf(o.output, "  Warning: step %s failed, continuing: %v\n",
			step.Name, outcome.Err)
		logger.Warn("recoverable step failed",
			"run_id", rc.RunID, "step", step.Name, "error", outcome.Err)
	}

	report.Duration = time.Since(start)
	return report, nil
}

// runStep executes one step, converting panics into step failures.
func (o *DefaultOrchestrator) runStep(ctx context.Context, rc *RunContext, step Step) StepOutcome {
	outcome := StepOutcome{Name: step.Name}
	start := time.Now()

	func() {
		defer func() {
			recoverPanic(recover(), &outcome.Err)
		}()
		outcome.Err = step.Run(ctx, rc)
	}()

	outcome.Duration = time.Since(start)
	return outcome
}

func stepNames(steps []Step) []string {
	names := make([]string, len(steps))
	for i := range steps {
		names[i] = steps[i].Name
	}
	return names
}

// recoverPanic converts a recovered panic value into an error.
//
// Intended to be called from a deferred function with recover(). Does
// not overwrite an error that is already set.
func recoverPanic(r interface{}, errPtr *error) {
	if r == nil {
		return
	}

	var panicErr error
	switch v := r.(type) {
	case error:
		panicErr = fmt.Errorf("%w: %v", ErrPanicRecovered, v)
	case string:
		panicErr = fmt.Errorf("%w: %s", ErrPanicRecovered, v)
	default:
		panicErr = fmt.Errorf("%w: %v", ErrPanicRecovered, v)
	}

	if *errPtr == nil {
		*errPtr = panicErr
	}
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockOrchestrator implements Orchestrator for testing.
type MockOrchestrator struct {
	RunFunc func(ctx context.Context, rc *RunContext, steps []Step) (*RunReport, error)

	RunCalls  int
	LastSteps []Step
	mu        sync.Mutex
}

// Run implements Orchestrator. Defaults to reporting every step as
// succeeded.
func (m *MockOrchestrator) Run(ctx context.Context, rc *RunContext, steps []Step) (*RunReport, error) {
	m.mu.Lock()
	m.RunCalls++
	m.LastSteps = steps
	m.mu.Unlock()

	if m.RunFunc != nil {
		return m.RunFunc(ctx, rc, steps)
	}

	report := &RunReport{RunID: rc.RunID, StartedAt: time.Now()}
	for _, s := range steps {
		report.Succeeded = append(report.Succeeded, StepOutcome{Name: s.Name})
	}
	return report, nil
}

// Interface compliance checks.
var (
	_ Orchestrator = (*DefaultOrchestrator)(nil)
	_ Orchestrator = (*MockOrchestrator)(nil)
)
