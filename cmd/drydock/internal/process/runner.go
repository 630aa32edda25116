// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
)

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// Runner handles external process operations.
//
// This interface abstracts all interaction with the operating system's process
// management, enabling testable code that doesn't require real process execution.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use from multiple goroutines.
//
// # Context Handling
//
// All methods accept a context.Context for cancellation and timeout support.
// Long-running processes should respect context cancellation.
type Runner interface {
	// Run executes a command synchronously and returns its output.
	//
	// # Description
	//
	// Executes the specified command with arguments and waits for completion.
	// Returns the stdout output on success. Stderr is folded into the error
	// on failure.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - []byte: Stdout output
	//   - error: Non-nil if command fails or is cancelled
	//
	// # Examples
	//
	//   output, err := runner.Run(ctx, "docker", "inspect", ref)
	//   if err != nil {
	//       return fmt.Errorf("failed to inspect container: %w", err)
	//   }
	//
	// # Limitations
	//
	//   - Large output may consume significant memory
	Run(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDir executes a command in a working directory with an environment.
	//
	// # Description
	//
	// Executes the command with its working directory set to dir and, when env
	// is non-nil, a fully replaced environment. Stdout and stderr are captured
	// separately and the process exit code is reported even on failure, so
	// callers can distinguish "command ran and failed" from "command never ran".
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation/timeout
	//   - dir: Working directory ("" inherits the caller's)
	//   - env: Complete environment in KEY=VALUE form (nil inherits the caller's)
	//   - name: The executable name or path
	//   - args: Command arguments (variadic)
	//
	// # Outputs
	//
	//   - string: Captured stdout
	//   - string: Captured stderr
	//   - int: Process exit code (-1 if the process never ran)
	//   - error: Non-nil only if the process could not run or was cancelled
	//
	// # Examples
	//
	//   stdout, stderr, code, err := runner.RunInDir(ctx, workdir, nil, "ddev", "start", "-y")
	RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error)

	// RunStreaming executes a command and streams combined output to a writer.
	//
	// Used for follow-style commands where output must appear as it is
	// produced. Context cancellation terminates the stream and is treated
	// as a normal exit.
	RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// LookPath reports the absolute path of an executable, searching PATH.
	LookPath(name string) (string, error)
}

// -----------------------------------------------------------------------------
// Implementation
// -----------------------------------------------------------------------------

// DefaultRunner implements Runner using os/exec.
//
// This is the production implementation that executes real processes on the
// system. Use MockRunner in tests instead.
type DefaultRunner struct{}

// NewDefaultRunner creates a Runner that executes real processes.
func NewDefaultRunner() *DefaultRunner {
	return &DefaultRunner{}
}

// Run executes a command synchronously and returns its output.
func (r *DefaultRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Include stderr in error for debugging
		if stderr.Len() > 0 {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	return stdout.Bytes(), nil
}

// RunInDir executes a command in a working directory with an environment.
func (r *DefaultRunner) RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if env != nil {
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The process ran to completion with a nonzero code. That is a
			// result, not a transport failure.
			return stdout.String(), stderr.String(), exitErr.ExitCode(), nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return stdout.String(), stderr.String(), -1, fmt.Errorf("%s cancelled: %w", name, ctxErr)
		}
		return stdout.String(), stderr.String(), -1, fmt.Errorf("failed to run %s: %w", name, err)
	}

	return stdout.String(), stderr.String(), 0, nil
}

// RunStreaming executes a command and streams combined output to a writer.
func (r *DefaultRunner) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	if dir != "" {
		cmd.Dir = dir
	}
	cmd.Stdout = w
	cmd.Stderr = w

	err := cmd.Run()
	if ctx.Err() != nil {
		// An interrupted follow is how streaming sessions normally end.
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s stream failed: %w", name, err)
	}
	return nil
}

// LookPath reports the absolute path of an executable, searching PATH.
func (r *DefaultRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// -----------------------------------------------------------------------------
// Mock Implementation for Testing
// -----------------------------------------------------------------------------

// MockRunner is a test double for Runner.
//
// Configure the mock by setting function fields before use. If a function
// field is nil and the corresponding method is called, it will panic.
//
// # Examples
//
//	mock := &MockRunner{
//	    RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
//	        if name == "ddev" && args[0] == "start" {
//	            return "started", "", 0, nil
//	        }
//	        return "", "", 1, nil
//	    },
//	}
type MockRunner struct {
	// RunFunc is called when Run is invoked
	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

	// RunInDirFunc is called when RunInDir is invoked
	RunInDirFunc func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error)

	// RunStreamingFunc is called when RunStreaming is invoked
	RunStreamingFunc func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error

	// LookPathFunc is called when LookPath is invoked
	LookPathFunc func(name string) (string, error)

	// Calls records all method invocations for verification
	Calls []RunnerCall

	// mu protects Calls for concurrent access
	mu sync.Mutex
}

// RunnerCall records a single method invocation.
type RunnerCall struct {
	Method string
	Dir    string
	Name   string
	Args   []string
}

// Run delegates to RunFunc and records the call.
func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RunnerCall{
		Method: "Run",
		Name:   name,
		Args:   args,
	})
	m.mu.Unlock()
	if m.RunFunc == nil {
		panic("MockRunner.RunFunc not set")
	}
	return m.RunFunc(ctx, name, args...)
}

// RunInDir delegates to RunInDirFunc and records the call.
func (m *MockRunner) RunInDir(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RunnerCall{
		Method: "RunInDir",
		Dir:    dir,
		Name:   name,
		Args:   args,
	})
	m.mu.Unlock()
	if m.RunInDirFunc == nil {
		panic("MockRunner.RunInDirFunc not set")
	}
	return m.RunInDirFunc(ctx, dir, env, name, args...)
}

// RunStreaming delegates to RunStreamingFunc and records the call.
func (m *MockRunner) RunStreaming(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, RunnerCall{
		Method: "RunStreaming",
		Dir:    dir,
		Name:   name,
		Args:   args,
	})
	m.mu.Unlock()
	if m.RunStreamingFunc == nil {
		panic("MockRunner.RunStreamingFunc not set")
	}
	return m.RunStreamingFunc(ctx, dir, w, name, args...)
}

// LookPath delegates to LookPathFunc and records the call.
func (m *MockRunner) LookPath(name string) (string, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, RunnerCall{
		Method: "LookPath",
		Name:   name,
	})
	m.mu.Unlock()
	if m.LookPathFunc == nil {
		panic("MockRunner.LookPathFunc not set")
	}
	return m.LookPathFunc(name)
}

// Reset clears all recorded calls.
func (m *MockRunner) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
}

// GetCalls returns a copy of all recorded calls.
func (m *MockRunner) GetCalls() []RunnerCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]RunnerCall, len(m.Calls))
	copy(result, m.Calls)
	return result
}

// Compile-time interface compliance check.
var (
	_ Runner = (*DefaultRunner)(nil)
	_ Runner = (*MockRunner)(nil)
)
