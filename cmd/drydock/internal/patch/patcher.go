// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package patch applies optional unified-diff payloads to a provisioned
project.

Patches are best effort by contract: a payload that does not exist on
the host is a logged skip, not a failure, and every way an existing
payload can fail (malformed diff, rejected hunks, exec error) is
reported to the caller as an ordinary error for the pipeline to absorb.
Nothing in this package halts a run.

The applier validates that a payload parses as a unified diff before
anything touches the environment, stages it into a transient directory
under the workspace (which ddev mounts into the web container), and
applies it there with patch -p1.
*/
package patch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sourcegraph/go-diff/diff"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrInvalidJob is returned when a patch job is missing required fields.
	ErrInvalidJob = errors.New("invalid patch job")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")

	// ErrMalformedPatch is returned when a payload is not a parseable
	// unified diff.
	ErrMalformedPatch = errors.New("malformed patch")

	// ErrPatchApply is returned when an otherwise valid payload fails to
	// apply inside the environment.
	ErrPatchApply = errors.New("patch application failed")
)

// =============================================================================
// Constants
// =============================================================================

// stagingDirName is the transient directory under the workspace where
// payloads are staged. ddev mounts the workspace into the web
// container, so a file written here is immediately visible inside.
const stagingDirName = ".drydock-tmp"

// containerProjectRoot is where ddev mounts the project inside the web
// container.
const containerProjectRoot = "/var/www/html"

// StagingDir returns the host path of the transient staging directory
// for a workspace. The cleanup stage removes this directory.
func StagingDir(workspaceDir string) string {
	return filepath.Join(workspaceDir, stagingDirName)
}

// =============================================================================
// Job and Result Types
// =============================================================================

// Job describes one patch to attempt.
type Job struct {
	// Name identifies the patch in logs and the run report.
	Name string

	// PayloadPath is the host path of the unified-diff payload.
	// A nonexistent path makes the job a skip, not a failure.
	PayloadPath string

	// Target is the directory the diff applies against, relative to the
	// project root inside the environment. Empty means the project root.
	Target string
}

// Result describes what an Apply attempt did.
type Result struct {
	// Applied is true when the payload was applied in the environment.
	Applied bool

	// Skipped is true when the payload was absent and nothing ran.
	Skipped bool

	// SkipReason explains a skip in human terms.
	SkipReason string

	// FilesAffected is the number of files the diff touches.
	FilesAffected int

	// LinesAdded counts added lines across all hunks.
	LinesAdded int

	// LinesRemoved counts removed lines across all hunks.
	LinesRemoved int
}

// =============================================================================
// Interface Definition
// =============================================================================

// Applier applies one patch payload to the provisioned project.
type Applier interface {
	// Apply attempts one patch job.
	//
	// # Description
	//
	// Checks the payload exists (absence is a successful skip), parses
	// it as a unified diff, stages it into the workspace's transient
	// directory, and applies it inside the environment with patch -p1
	// against the job's target directory.
	//
	// # Outputs
	//
	//   - *Result: What happened, including skip and diff stats
	//   - error: Malformed payload or failed application. Callers treat
	//     every error from Apply as recoverable.
	Apply(ctx context.Context, job Job) (*Result, error)
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultApplier implements Applier against the host filesystem and ddev.
type DefaultApplier struct {
	env          envctl.EnvController
	workspaceDir string
}

// NewDefaultApplier creates a patch applier for one workspace.
//
// # Inputs
//
//   - env: Controller used to run patch inside the environment (required)
//   - workspaceDir: Host path of the project root (required, absolute)
func NewDefaultApplier(env envctl.EnvController, workspaceDir string) (*DefaultApplier, error) {
	if env == nil {
		return nil, fmt.Errorf("%w: EnvController", ErrNilDependency)
	}
	if workspaceDir == "" {
		return nil, fmt.Errorf("%w: workspaceDir is required", ErrInvalidJob)
	}
	if !filepath.IsAbs(workspaceDir) {
		return nil, fmt.Errorf("%w: workspaceDir must be absolute, got %q", ErrInvalidJob, workspaceDir)
	}

	return &DefaultApplier{
		env:          env,
		workspaceDir: workspaceDir,
	}, nil
}

// Apply attempts one patch job.
func (a *DefaultApplier) Apply(ctx context.Context, job Job) (*Result, error) {
	if job.Name == "" {
		return nil, fmt.Errorf("%w: Name is required", ErrInvalidJob)
	}
	if job.PayloadPath == "" {
		return nil, fmt.Errorf("%w: PayloadPath is required", ErrInvalidJob)
	}
	target := job.Target
	if target == "" {
		target = "."
	}

	payload, err := os.ReadFile(job.PayloadPath)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Info("Patch payload absent, skipping",
				"patch", job.Name,
				"path", job.PayloadPath)
			return &Result{
				Skipped:    true,
				SkipReason: fmt.Sprintf("payload %s not present", job.PayloadPath),
			}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrMalformedPatch, job.PayloadPath, err)
	}

	result, err := a.validatePayload(payload)
	if err != nil {
		return nil, err
	}

	stagedName, err := a.stage(job, payload)
	if err != nil {
		return nil, err
	}

	containerPath := containerProjectRoot + "/" + stagingDirName + "/" + stagedName
	execResult, err := a.env.Exec(ctx, envctl.ExecOptions{
		Command: []string{"patch", "-p1", "-d", target, "-i", containerPath},
	})
	if err != nil {
		detail := ""
		if execResult != nil && execResult.Stderr != "" {
			detail = ": " + strings.TrimSpace(execResult.Stderr)
		}
		return nil, fmt.Errorf("%w: %s%s", ErrPatchApply, job.Name, detail)
	}

	result.Applied = true
	slog.Debug("Patch applied",
		"patch", job.Name,
		"target", target,
		"files", result.FilesAffected,
		"added", result.LinesAdded,
		"removed", result.LinesRemoved)
	return result, nil
}

// validatePayload parses the payload as a unified diff and collects
// its stats. A payload that parses but touches no files is malformed,
// applying it would silently do nothing.
func (a *DefaultApplier) validatePayload(payload []byte) (*Result, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(strings.NewReader(string(payload))).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPatch, err)
	}
	if len(fileDiffs) == 0 {
		return nil, fmt.Errorf("%w: payload contains no file diffs", ErrMalformedPatch)
	}

	result := &Result{FilesAffected: len(fileDiffs)}
	for _, fd := range fileDiffs {
		for _, hunk := range fd.Hunks {
			for _, line := range strings.Split(string(hunk.Body), "\n") {
				if strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++") {
					result.LinesAdded++
				} else if strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---") {
					result.LinesRemoved++
				}
			}
		}
	}
	return result, nil
}

// stage copies the payload into the workspace's transient directory and
// returns the staged filename.
func (a *DefaultApplier) stage(job Job, payload []byte) (string, error) {
	stagingDir := StagingDir(a.workspaceDir)
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating staging dir: %v", ErrPatchApply, err)
	}

	name := filepath.Base(job.PayloadPath)
	if err := os.WriteFile(filepath.Join(stagingDir, name), payload, 0o644); err != nil {
		return "", fmt.Errorf("%w: staging payload: %v", ErrPatchApply, err)
	}
	return name, nil
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockApplier is a test double for Applier.
type MockApplier struct {
	ApplyFunc func(context.Context, Job) (*Result, error)

	ApplyCalls []Job
	mu         sync.Mutex
}

// Apply implements Applier.
func (m *MockApplier) Apply(ctx context.Context, job Job) (*Result, error) {
	m.mu.Lock()
	m.ApplyCalls = append(m.ApplyCalls, job)
	m.mu.Unlock()

	if m.ApplyFunc != nil {
		return m.ApplyFunc(ctx, job)
	}
	return &Result{Applied: true, FilesAffected: 1}, nil
}

// Compile-time interface compliance checks.
var (
	_ Applier = (*DefaultApplier)(nil)
	_ Applier = (*MockApplier)(nil)
)
