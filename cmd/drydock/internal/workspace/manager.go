// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package workspace manages the on-disk project directory for one environment.

A workspace is BaseDir/Name. Reset tears the whole thing down, containers
first, then the directory, and leaves a fresh empty workspace behind so a
provisioning run always starts from a known-clean state. Remove is the
teardown half alone, for when nothing should be left behind.

# Destruction Order

Containers stop before the directory goes away. ddev keeps per-project
state inside the workspace (.ddev/), so removing the directory while the
project still runs would orphan containers that ddev can no longer
address by name. Stop failures are warnings, not fatal: the project may
never have been registered, or docker may be mid-restart, and in both
cases deleting and recreating the directory is still the right move.
Filesystem failures ARE fatal, a run cannot continue without its
workspace.
*/
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrInvalidWorkspace is returned when the workspace configuration is invalid.
	ErrInvalidWorkspace = errors.New("invalid workspace configuration")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")

	// ErrWorkspaceRemove is returned when the workspace directory cannot be removed.
	ErrWorkspaceRemove = errors.New("workspace removal failed")

	// ErrWorkspaceCreate is returned when the workspace directory cannot be created.
	ErrWorkspaceCreate = errors.New("workspace creation failed")
)

// workspaceNamePattern validates workspace names.
// ddev project names become DNS labels, so: lowercase letters, digits,
// and hyphens, starting with a letter or digit.
var workspaceNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// =============================================================================
// Result Types
// =============================================================================

// ResetResult contains the outcome of a Reset operation.
//
// Reset succeeds as long as the filesystem phases succeed; the container
// phase records its outcome here instead of failing the reset.
type ResetResult struct {
	// Path is the workspace directory that now exists, fresh and empty.
	Path string

	// Existed is true if the directory was present before the reset.
	Existed bool

	// WasRegistered is true if ddev knew the project before the reset.
	WasRegistered bool

	// StopError contains the container stop failure, if any (non-fatal).
	StopError error

	// Duration is how long the reset took.
	Duration time.Duration
}

// RemoveResult contains the outcome of a Remove operation.
type RemoveResult struct {
	// Path is the workspace directory that was removed.
	Path string

	// Existed is true if the directory was present before removal.
	Existed bool

	// WasRegistered is true if ddev knew the project before removal.
	WasRegistered bool

	// StopError contains the container stop failure, if any (non-fatal).
	StopError error
}

// =============================================================================
// Interface Definition
// =============================================================================

// Manager owns the lifecycle of one on-disk workspace.
//
// # Thread Safety
//
// Implementations must serialize mutating operations. Two concurrent
// resets of the same directory would race each other's RemoveAll.
type Manager interface {
	// Reset destroys and recreates the workspace.
	//
	// # Description
	//
	// Runs the full clean-slate sequence: query ddev for the project,
	// stop and unregister it if present (a failure here is recorded in
	// the result and warned about, never fatal), remove the directory
	// tree, and recreate it empty. After a successful Reset the
	// returned path exists and contains nothing.
	//
	// # Outputs
	//
	//   - *ResetResult: What was found and what was done
	//   - error: Only for filesystem failures (remove or create)
	Reset(ctx context.Context) (*ResetResult, error)

	// Remove destroys the workspace without recreating it.
	//
	// Same container-first sequence as Reset, but the directory stays
	// gone. Used by teardown.
	Remove(ctx context.Context) (*RemoveResult, error)

	// Path returns the workspace directory path.
	// The path is derived from configuration; Path does not touch disk.
	Path() string

	// Exists reports whether the workspace directory is present.
	Exists() (bool, error)
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures a workspace manager.
type Config struct {
	// BaseDir is the parent directory holding all workspaces. Required.
	BaseDir string

	// Name is the workspace and ddev project name. Required.
	// Must match [a-z0-9][a-z0-9-]* (ddev project names become DNS labels).
	Name string
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultManager implements Manager against the local filesystem and ddev.
type DefaultManager struct {
	config Config
	env    envctl.EnvController
	output io.Writer

	// mu serializes mutating operations (Reset, Remove).
	mu sync.Mutex
}

// NewDefaultManager creates a workspace manager.
//
// # Inputs
//
//   - cfg: BaseDir and Name (both required, Name must be a valid ddev
//     project name)
//   - env: Controller used to stop and unregister the project (required)
//
// # Outputs
//
//   - *DefaultManager: Ready-to-use manager
//   - error: ErrInvalidWorkspace or ErrNilDependency
//
// # Example
//
//	mgr, err := workspace.NewDefaultManager(workspace.Config{
//	    BaseDir: cfg.BaseDir,
//	    Name:    cfg.ProjectName,
//	}, ctl)
func NewDefaultManager(cfg Config, env envctl.EnvController) (*DefaultManager, error) {
	if cfg.BaseDir == "" {
		return nil, fmt.Errorf("%w: BaseDir is required", ErrInvalidWorkspace)
	}
	if !filepath.IsAbs(cfg.BaseDir) {
		return nil, fmt.Errorf("%w: BaseDir must be absolute, got %q", ErrInvalidWorkspace, cfg.BaseDir)
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: Name is required", ErrInvalidWorkspace)
	}
	if !workspaceNamePattern.MatchString(cfg.Name) {
		return nil, fmt.Errorf("%w: name %q must match %s", ErrInvalidWorkspace, cfg.Name, workspaceNamePattern.String())
	}
	if env == nil {
		return nil, fmt.Errorf("%w: EnvController", ErrNilDependency)
	}

	return &DefaultManager{
		config: cfg,
		env:    env,
		output: os.Stdout,
	}, nil
}

// SetOutput redirects warning messages, for testing or quiet mode.
// nil discards them.
func (m *DefaultManager) SetOutput(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	m.output = w
}

// Path returns the workspace directory path.
func (m *DefaultManager) Path() string {
	return filepath.Join(m.config.BaseDir, m.config.Name)
}

// Exists reports whether the workspace directory is present.
func (m *DefaultManager) Exists() (bool, error) {
	info, err := os.Stat(m.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if !info.IsDir() {
		return false, fmt.Errorf("%w: %s exists but is not a directory", ErrInvalidWorkspace, m.Path())
	}
	return true, nil
}

// Reset destroys and recreates the workspace.
func (m *DefaultManager) Reset(ctx context.Context) (*ResetResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	startTime := time.Now()
	result := &ResetResult{Path: m.Path()}

	result.WasRegistered, result.StopError = m.stopProject(ctx)
	if result.StopError != nil {
		fmt.Fprintf(m.output, "  Warning: could not stop project, continuing with reset: %v\n", result.StopError)
	}

	existed, err := m.removeDir(result.Path)
	if err != nil {
		return nil, err
	}
	result.Existed = existed

	if err := os.MkdirAll(result.Path, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrWorkspaceCreate, result.Path, err)
	}

	result.Duration = time.Since(startTime)
	slog.Debug("Workspace reset complete",
		"path", result.Path,
		"existed", result.Existed,
		"was_registered", result.WasRegistered,
		"duration", result.Duration)
	return result, nil
}

// Remove destroys the workspace without recreating it.
func (m *DefaultManager) Remove(ctx context.Context) (*RemoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := &RemoveResult{Path: m.Path()}

	result.WasRegistered, result.StopError = m.stopProject(ctx)
	if result.StopError != nil {
		fmt.Fprintf(m.output, "  Warning: could not stop project, continuing with removal: %v\n", result.StopError)
	}

	existed, err := m.removeDir(result.Path)
	if err != nil {
		return nil, err
	}
	result.Existed = existed

	slog.Debug("Workspace removed",
		"path", result.Path,
		"existed", result.Existed,
		"was_registered", result.WasRegistered)
	return result, nil
}

// stopProject stops and unregisters the ddev project if it exists.
//
// Returns whether the project was registered and any stop failure.
// An unregistered project is the normal first-run case and produces
// neither. When the registration query itself fails (docker down,
// ddev misbehaving) the stop is attempted anyway; the worst case is a
// redundant stop error that the caller reports as a warning.
func (m *DefaultManager) stopProject(ctx context.Context) (registered bool, stopErr error) {
	_, err := m.env.Describe(ctx)
	if errors.Is(err, envctl.ErrEnvNotFound) {
		return false, nil
	}
	registered = err == nil

	if _, err := m.env.Stop(ctx, envctl.StopOptions{Unlist: true}); err != nil {
		return registered, err
	}
	return registered, nil
}

// removeDir removes the directory tree, reporting whether it existed.
func (m *DefaultManager) removeDir(path string) (existed bool, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		existed = true
	}
	if err := os.RemoveAll(path); err != nil {
		return existed, fmt.Errorf("%w: %s: %v", ErrWorkspaceRemove, path, err)
	}
	return existed, nil
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockManager is a test double for Manager.
//
// Each method can be configured with a custom function; unset methods
// return success defaults. Tracks call counts for verification.
type MockManager struct {
	ResetFunc  func(context.Context) (*ResetResult, error)
	RemoveFunc func(context.Context) (*RemoveResult, error)
	PathValue  string
	ExistsVal  bool

	ResetCalls  int
	RemoveCalls int
	mu          sync.Mutex
}

// Reset implements Manager.
func (m *MockManager) Reset(ctx context.Context) (*ResetResult, error) {
	m.mu.Lock()
	m.ResetCalls++
	m.mu.Unlock()

	if m.ResetFunc != nil {
		return m.ResetFunc(ctx)
	}
	return &ResetResult{Path: m.Path()}, nil
}

// Remove implements Manager.
func (m *MockManager) Remove(ctx context.Context) (*RemoveResult, error) {
	m.mu.Lock()
	m.RemoveCalls++
	m.mu.Unlock()

	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx)
	}
	return &RemoveResult{Path: m.Path(), Existed: true}, nil
}

// Path implements Manager.
func (m *MockManager) Path() string {
	if m.PathValue != "" {
		return m.PathValue
	}
	return "/tmp/drydock-test-workspace"
}

// Exists implements Manager.
func (m *MockManager) Exists() (bool, error) {
	return m.ExistsVal, nil
}

// Compile-time interface compliance checks.
var (
	_ Manager = (*DefaultManager)(nil)
	_ Manager = (*MockManager)(nil)
)
