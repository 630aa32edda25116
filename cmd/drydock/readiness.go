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
	"strings"
	"sync"
	"time"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
)

// =============================================================================
// Health States
// =============================================================================

// HealthState represents the health of the database container as
// reported by its Docker healthcheck.
type HealthState string

const (
	// HealthStateStarting indicates the container is not healthy yet.
	// Probe failures also map here: early in a start the container
	// usually does not exist at all.
	HealthStateStarting HealthState = "starting"

	// HealthStateHealthy indicates the healthcheck is passing.
	HealthStateHealthy HealthState = "healthy"

	// HealthStateUnhealthy indicates the healthcheck has given up.
	HealthStateUnhealthy HealthState = "unhealthy"

	// HealthStateUnknown indicates the container reports no healthcheck
	// status. Polling continues, the state is not terminal.
	HealthStateUnknown HealthState = "unknown"
)

// Sentinel errors for readiness polling.
var (
	// ErrReadinessTimeout indicates the deadline passed without a
	// terminal health state. Callers treat this as a warning: the
	// environment may still finish starting on its own.
	ErrReadinessTimeout = errors.New("service did not report healthy before the deadline")

	// ErrServiceUnhealthy indicates the healthcheck reported unhealthy,
	// which is terminal. More polling will not fix it.
	ErrServiceUnhealthy = errors.New("service reported unhealthy")
)

// =============================================================================
// Options and Result
// =============================================================================

// Defaults for database readiness polling.
const (
	DefaultReadinessMaxWait  = 2 * time.Minute
	DefaultReadinessInterval = 5 * time.Second
)

// WaitOptions configures one readiness wait.
type WaitOptions struct {
	// ContainerName is the Docker container to probe.
	ContainerName string

	// MaxWait bounds the total wait. Default: DefaultReadinessMaxWait.
	MaxWait time.Duration

	// Interval is the pause between samples. Default: DefaultReadinessInterval.
	Interval time.Duration
}

// DefaultWaitOptions returns the standard options for a project's
// database container.
func DefaultWaitOptions(projectName string) WaitOptions {
	return WaitOptions{
		ContainerName: DatabaseContainerName(projectName),
		MaxWait:       DefaultReadinessMaxWait,
		Interval:      DefaultReadinessInterval,
	}
}

// DatabaseContainerName returns the name ddev gives the project's
// database container.
func DatabaseContainerName(projectName string) string {
	return fmt.Sprintf("ddev-%s-db", projectName)
}

// WaitResult describes how a readiness wait ended.
type WaitResult struct {
	// State is the last observed health state.
	State HealthState

	// Samples is the number of health probes taken.
	Samples int

	// Elapsed is the wall time spent waiting.
	Elapsed time.Duration

	// TimedOut is true when MaxWait passed without a terminal state.
	TimedOut bool

	// LastMessage is the raw status from the final probe, for logs.
	LastMessage string
}

// =============================================================================
// Interface Definition
// =============================================================================

// HealthWaiter blocks until a service container reports a terminal
// health state or a deadline passes.
type HealthWaiter interface {
	// WaitForDatabase polls the database container's healthcheck.
	//
	// Returns a nil error only when the container reported healthy.
	// ErrServiceUnhealthy and ErrReadinessTimeout both come back with a
	// populated result so callers can report what was observed.
	WaitForDatabase(ctx context.Context, opts WaitOptions) (*WaitResult, error)
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultHealthWaiter polls `docker inspect` for the container's
// healthcheck status.
//
// # Description
//
// ddev defines healthchecks on the containers it starts, so the
// database container's Docker health status is the readiness signal.
// The waiter samples it on a fixed interval until the state is
// terminal (healthy or unhealthy) or MaxWait passes.
//
// A probe that fails is counted as "still starting", not as an error:
// the container commonly does not exist for the first seconds after
// `ddev start` returns.
//
// # Example
//
//	waiter := NewDefaultHealthWaiter(proc)
//	result, err := waiter.WaitForDatabase(ctx, DefaultWaitOptions("my-site"))
//	if errors.Is(err, ErrReadinessTimeout) {
//	    // warn and proceed, the install steps surface real failures
//	}
type DefaultHealthWaiter struct {
	proc process.Runner

	// now and sleep are injectable for deterministic tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
}

// NewDefaultHealthWaiter creates a waiter that probes via the given
// process runner.
func NewDefaultHealthWaiter(proc process.Runner) *DefaultHealthWaiter {
	return &DefaultHealthWaiter{
		proc:  proc,
		now:   time.Now,
		sleep: sleepWithContext,
	}
}

// WaitForDatabase implements HealthWaiter.
//
// # Description
//
// Samples the container's health on every interval boundary starting
// immediately. The loop exits on the first terminal state, when the
// context is cancelled, or once the elapsed time reaches MaxWait.
//
// # Inputs
//
//   - ctx: Context for cancellation.
//   - opts: Container name, deadline, and interval.
//
// # Outputs
//
//   - *WaitResult: Populated on every return path.
//   - error: nil on healthy; ErrServiceUnhealthy, ErrReadinessTimeout,
//     or the context's error otherwise.
func (w *DefaultHealthWaiter) WaitForDatabase(ctx context.Context, opts WaitOptions) (*WaitResult, error) {
	if opts.ContainerName == "" {
		return nil, fmt.Errorf("readiness wait requires a container name")
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = DefaultReadinessMaxWait
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultReadinessInterval
	}

	start := w.now()
	result := &WaitResult{State: HealthStateStarting}

	for {
		if err := ctx.Err(); err != nil {
			result.Elapsed = w.now().Sub(start)
			return result, err
		}

		elapsed := w.now().Sub(start)
		if elapsed >= opts.MaxWait {
			result.Elapsed = elapsed
			result.TimedOut = true
			return result, fmt.Errorf("%w: %s after %s (%d samples, last status: %s)",
				ErrReadinessTimeout, opts.ContainerName,
				elapsed.Round(time.Second), result.Samples, result.LastMessage)
		}

		state, msg := w.sampleHealth(ctx, opts.ContainerName)
		result.Samples++
		result.State = state
		result.LastMessage = msg

		switch state {
		case HealthStateHealthy:
			result.Elapsed = w.now().Sub(start)
			return result, nil
		case HealthStateUnhealthy:
			result.Elapsed = w.now().Sub(start)
			return result, fmt.Errorf("%w: container %s", ErrServiceUnhealthy, opts.ContainerName)
		}

		w.sleep(ctx, opts.Interval)
	}
}

// sampleHealth takes one health probe.
//
// Probe failures count as still starting. A container without a
// healthcheck reports "<no value>", which maps to HealthStateUnknown
// and keeps the loop polling.
func (w *DefaultHealthWaiter) sampleHealth(ctx context.Context, container string) (HealthState, string) {
	out, err := w.proc.Run(ctx, "docker", "inspect", "--format", "{{.State.Health.Status}}", container)
	raw := strings.TrimSpace(string(out))
	if err != nil {
		msg := raw
		if msg == "" {
			msg = err.Error()
		}
		return HealthStateStarting, firstLine(msg)
	}

	switch raw {
	case "healthy":
		return HealthStateHealthy, raw
	case "unhealthy":
		return HealthStateUnhealthy, raw
	case "starting":
		return HealthStateStarting, raw
	default:
		return HealthStateUnknown, raw
	}
}

// sleepWithContext pauses for d or until the context is done,
// whichever comes first. Keeps Ctrl+C responsive mid-interval.
func sleepWithContext(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockHealthWaiter implements HealthWaiter for testing.
type MockHealthWaiter struct {
	WaitFunc func(ctx context.Context, opts WaitOptions) (*WaitResult, error)

	Calls []WaitOptions
	mu    sync.Mutex
}

// WaitForDatabase implements HealthWaiter. Defaults to an immediately
// healthy result.
func (m *MockHealthWaiter) WaitForDatabase(ctx context.Context, opts WaitOptions) (*WaitResult, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, opts)
	m.mu.Unlock()

	if m.WaitFunc != nil {
		return m.WaitFunc(ctx, opts)
	}
	return &WaitResult{State: HealthStateHealthy, Samples: 1}, nil
}

// Interface compliance checks.
var (
	_ HealthWaiter = (*DefaultHealthWaiter)(nil)
	_ HealthWaiter = (*MockHealthWaiter)(nil)
)
