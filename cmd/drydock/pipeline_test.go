// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package main pipeline tests.

The failure policy is the contract under test: a fatal failure halts
the run with every later step accounted as not run, a recoverable
failure is a warning, and every attempted step lands in exactly one of
Succeeded or Failed.
*/
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/pkg/logging"
)

// mkStep builds a test step that appends its name to ran when executed.
func mkStep(name, criticality string, runErr error, ran *[]string) Step {
	return Step{
		Name:        name,
		Criticality: criticality,
		Run: func(ctx context.Context, rc *RunContext) error {
			*ran = append(*ran, name)
			return runErr
		},
	}
}

func newTestOrchestrator() (*DefaultOrchestrator, *bytes.Buffer) {
	o := NewDefaultOrchestrator()
	buf := &bytes.Buffer{}
	o.SetOutput(buf)
	return o, buf
}

func newTestRunContext() *RunContext {
	rc := NewRunContext("my-site", "laravel", "/work/my-site", logging.Discard())
	rc.Out = io.Discard
	return rc
}

// assertPartition verifies every pipeline step lands in exactly one of
// Succeeded, Failed, or NotRun.
func assertPartition(t *testing.T, report *RunReport, steps []Step) {
	t.Helper()
	seen := map[string]int{}
	for _, s := range report.Succeeded {
		seen[s.Name]++
	}
	for _, f := range report.Failed {
		seen[f.Name]++
	}
	for _, n := range report.NotRun {
		seen[n]++
	}
	for _, s := range steps {
		require.Equalf(t, 1, seen[s.Name],
			"step %s must be accounted for exactly once", s.Name)
	}
	require.Len(t, seen, len(steps))
}

func TestRun_AllSucceed(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()

	var ran []string
	steps := []Step{
		mkStep("alpha", profile.CriticalityFatal, nil, &ran),
		mkStep("beta", profile.CriticalityFatal, nil, &ran),
		mkStep("gamma", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "gamma"}, ran)
	assert.Equal(t, rc.RunID, report.RunID)
	assert.Len(t, report.Succeeded, 3)
	assert.Empty(t, report.Failed)
	assert.Empty(t, report.NotRun)
	assert.True(t, report.Success())
	assert.False(t, report.HasWarnings())
	assert.Equal(t, 3, report.Attempted())
	assert.False(t, report.StartedAt.IsZero())
	assertPartition(t, report, steps)
}

// TestRun_FatalHaltsPipeline verifies the halt contract: the failing
// step is the last one attempted, and everything after it, the cleanup
// step included, is recorded as not run.
func TestRun_FatalHaltsPipeline(t *testing.T) {
	o, out := newTestOrchestrator()
	rc := newTestRunContext()

	boom := errors.New("ddev start exploded")
	var ran []string
	steps := []Step{
		mkStep("reset-workspace", profile.CriticalityFatal, nil, &ran),
		mkStep("start-environment", profile.CriticalityFatal, boom, &ran),
		mkStep("install-framework", profile.CriticalityFatal, nil, &ran),
		mkStep("apply-patches", profile.CriticalityRecoverable, nil, &ran),
		mkStep("cleanup", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.Error(t, err)
	assert.Equal(t, []string{"reset-workspace", "start-environment"}, ran)
	assert.Equal(t, "start-environment", report.FatalStep)
	assert.ErrorIs(t, report.FatalErr, boom)
	assert.False(t, report.Success())
	assert.Equal(t, []string{"install-framework", "apply-patches", "cleanup"}, report.NotRun)
	assert.Equal(t, 2, report.Attempted())
	assertPartition(t, report, steps)

	// The wrapper names the step and stays unwrappable.
	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, "start-environment", stepErr.Step)
	assert.True(t, stepErr.IsFatal())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "start-environment", FailedStepName(err))

	assert.Contains(t, out.String(), "start-environment")
}

// TestRun_RecoverableContinues verifies a recoverable failure is a
// warning, not a halt.
func TestRun_RecoverableContinues(t *testing.T) {
	o, out := newTestOrchestrator()
	rc := newTestRunContext()

	helperErr := errors.New("ide-helper generation failed")
	var ran []string
	steps := []Step{
		mkStep("install-framework", profile.CriticalityFatal, nil, &ran),
		mkStep("generate-ide-helper", profile.CriticalityRecoverable, helperErr, &ran),
		mkStep("cleanup", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"install-framework", "generate-ide-helper", "cleanup"}, ran)
	assert.True(t, report.Success())
	assert.True(t, report.HasWarnings())
	assert.Equal(t, "", report.FatalStep)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "generate-ide-helper", report.Failed[0].Name)
	assert.ErrorIs(t, report.Failed[0].Err, helperErr)
	assert.Empty(t, report.NotRun)
	assertPartition(t, report, steps)

	assert.Contains(t, out.String(), "Warning: step generate-ide-helper failed")
}

// TestRun_PanicBecomesFatalFailure verifies a panicking fatal step is
// reported like any other fatal failure.
func TestRun_PanicBecomesFatalFailure(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()

	var ran []string
	steps := []Step{
		mkStep("reset-workspace", profile.CriticalityFatal, nil, &ran),
		{
			Name:        "configure-project",
			Criticality: profile.CriticalityFatal,
			Run: func(ctx context.Context, rc *RunContext) error {
				panic("nil controller dereferenced")
			},
		},
		mkStep("cleanup", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.Error(t, err)
	assert.ErrorIs(t, report.FatalErr, ErrPanicRecovered)
	assert.Contains(t, report.FatalErr.Error(), "nil controller dereferenced")
	assert.Equal(t, "configure-project", report.FatalStep)
	assert.Equal(t, []string{"cleanup"}, report.NotRun)
	assertPartition(t, report, steps)
}

// TestRun_PanicInRecoverableStepContinues verifies panics obey the
// same criticality policy as plain errors.
func TestRun_PanicInRecoverableStepContinues(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()

	var ran []string
	steps := []Step{
		{
			Name:        "apply-patches",
			Criticality: profile.CriticalityRecoverable,
			Run: func(ctx context.Context, rc *RunContext) error {
				panic(errors.New("patch index out of range"))
			},
		},
		mkStep("cleanup", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.NoError(t, err)
	assert.Equal(t, []string{"cleanup"}, ran)
	require.Len(t, report.Failed, 1)
	assert.ErrorIs(t, report.Failed[0].Err, ErrPanicRecovered)
	assert.True(t, report.Success())
}

// TestRun_ContextCancelledBetweenSteps verifies cancellation halts the
// pipeline without blaming a step.
func TestRun_ContextCancelledBetweenSteps(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()
	ctx, cancel := context.WithCancel(context.Background())

	var ran []string
	steps := []Step{
		{
			Name:        "reset-workspace",
			Criticality: profile.CriticalityFatal,
			Run: func(ctx context.Context, rc *RunContext) error {
				ran = append(ran, "reset-workspace")
				cancel()
				return nil
			},
		},
		mkStep("configure-project", profile.CriticalityFatal, nil, &ran),
		mkStep("cleanup", profile.CriticalityRecoverable, nil, &ran),
	}

	report, err := o.Run(ctx, rc, steps)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"reset-workspace"}, ran)
	assert.Equal(t, "", report.FatalStep, "no step failed, none should be blamed")
	assert.ErrorIs(t, report.FatalErr, context.Canceled)
	assert.False(t, report.Success())
	assert.Equal(t, []string{"configure-project", "cleanup"}, report.NotRun)
	assertPartition(t, report, steps)
}

func TestRun_EmptyPipeline(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()

	report, err := o.Run(context.Background(), rc, nil)

	require.NoError(t, err)
	assert.True(t, report.Success())
	assert.Equal(t, 0, report.Attempted())
}

func TestRun_OutcomeDurationsRecorded(t *testing.T) {
	o, _ := newTestOrchestrator()
	rc := newTestRunContext()

	steps := []Step{
		{
			Name:        "slow-step",
			Criticality: profile.CriticalityFatal,
			Run: func(ctx context.Context, rc *RunContext) error {
				time.Sleep(5 * time.Millisecond)
				return nil
			},
		},
	}

	report, err := o.Run(context.Background(), rc, steps)

	require.NoError(t, err)
	require.Len(t, report.Succeeded, 1)
	assert.GreaterOrEqual(t, report.Succeeded[0].Duration, 5*time.Millisecond)
	assert.GreaterOrEqual(t, report.Duration, report.Succeeded[0].Duration)
}

func TestNewRunContext(t *testing.T) {
	rc := NewRunContext("my-site", "drupal11", "/work/my-site", nil)

	assert.NotEmpty(t, rc.RunID)
	assert.Equal(t, "my-site", rc.Project)
	assert.Equal(t, "drupal11", rc.Profile)
	assert.Equal(t, "/work/my-site", rc.WorkspaceDir)
	assert.NotNil(t, rc.Logger, "nil logger must fall back to discard")
	assert.NotNil(t, rc.Out)

	other := NewRunContext("my-site", "drupal11", "/work/my-site", nil)
	assert.NotEqual(t, rc.RunID, other.RunID, "run IDs must be unique per run")
}

func TestStepError(t *testing.T) {
	inner := errors.New("exit status 1")
	err := NewStepError("start-environment", profile.CriticalityFatal, inner)

	assert.Contains(t, err.Error(), `step "start-environment" failed`)
	assert.ErrorIs(t, err, inner)
	assert.True(t, err.IsFatal())

	recov := NewStepError("apply-patches", profile.CriticalityRecoverable, inner)
	assert.False(t, recov.IsFatal())

	assert.Equal(t, "", FailedStepName(fmt.Errorf("plain error")))
	assert.Equal(t, "start-environment", FailedStepName(fmt.Errorf("wrapped: %w", err)))
}

func TestMockOrchestrator(t *testing.T) {
	mock := &MockOrchestrator{}
	rc := newTestRunContext()
	steps := []Step{
		{Name: "one", Criticality: profile.CriticalityFatal},
		{Name: "two", Criticality: profile.CriticalityRecoverable},
	}

	report, err := mock.Run(context.Background(), rc, steps)

	require.NoError(t, err)
	assert.Equal(t, 1, mock.RunCalls)
	assert.Len(t, mock.LastSteps, 2)
	assert.Len(t, report.Succeeded, 2)
	assert.True(t, report.Success())
}
