// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/infra"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/patch"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/workspace"
	"github.com/drydocklabs/drydock/pkg/ux"
)

// =============================================================================
// Constants
// =============================================================================

// minFreeDiskBytes is the headroom a provisioning run wants before it
// starts pulling images and installing a vendor tree.
const minFreeDiskBytes int64 = 5 << 30

// =============================================================================
// Dependencies
// =============================================================================

// pipelineDeps bundles the collaborators the provisioning steps close
// over. Every field is an interface so command tests can substitute
// mocks for the whole pipeline.
type pipelineDeps struct {
	checker infra.ToolChecker
	ws      workspace.Manager
	env     envctl.EnvController
	waiter  HealthWaiter
	applier patch.Applier

	// patchDir is the host directory holding this profile's payloads.
	patchDir string

	// skipPatches drops the patch steps from the pipeline entirely.
	skipPatches bool

	// showSpinner animates the readiness wait. Off for tests, JSON
	// output, and non-interactive sessions.
	showSpinner bool
}

// =============================================================================
// Pipeline Assembly
// =============================================================================

// buildPipeline assembles the full provisioning pipeline for a profile.
//
// Ordering matters: preflight checks run before anything touches the
// filesystem, the workspace is reset before ddev sees it, and cleanup
// is always last so a fatal halt skips it.
func buildPipeline(deps pipelineDeps, prof *profile.Profile) []Step {
	steps := []Step{
		verifyToolsStep(deps.checker, prof),
		checkDdevVersionStep(deps.checker),
		checkDaemonStep(deps.checker),
		checkDiskSpaceStep(deps.checker),
		resetWorkspaceStep(deps.ws),
		configureProjectStep(deps.env, prof),
		startEnvironmentStep(deps.env),
		waitForDatabaseStep(deps.waiter, deps.showSpinner),
	}

	for _, st := range prof.InstallSteps {
		steps = append(steps, profileStep(deps.env, st))
	}
	for _, st := range prof.HelperSteps {
		steps = append(steps, profileStep(deps.env, st))
	}

	if !deps.skipPatches {
		for _, p := range prof.Patches {
			steps = append(steps, patchStep(deps.applier, deps.patchDir, p))
		}
	}

	steps = append(steps, cleanupStep())
	return steps
}

// =============================================================================
// Preflight Steps
// =============================================================================

// verifyToolsStep confirms every required binary is on PATH. Runs
// before any side effects, so a missing tool leaves the host untouched.
func verifyToolsStep(checker infra.ToolChecker, prof *profile.Profile) Step {
	return Step{
		Name:        "verify-tools",
		Criticality: profile.CriticalityFatal,
		Run: func(ctx context.Context, rc *RunContext) error {
			tools := mergeRequiredTools(infra.DefaultRequiredTools, prof.RequiredTools)
			return checker.VerifyTools(tools)
		},
	}
}

// checkDdevVersionStep warns when the installed ddev predates the
// features the teardown path relies on. Recoverable: an old ddev
// usually still provisions fine.
func checkDdevVersionStep(checker infra.ToolChecker) Step {
	return Step{
		Name:        "check-ddev-version",
		Criticality: profile.CriticalityRecoverable,
		Run: func(ctx context.Context, rc *RunContext) error {
			return checker.CheckToolVersion(ctx, "ddev", infra.MinDdevVersion)
		},
	}
}

func checkDaemonStep(checker infra.ToolChecker) Step {
	return Step{
		Name:        "check-docker-daemon",
		Criticality: profile.CriticalityFatal,
		Run: func(ctx context.Context, rc *RunContext) error {
			return checker.CheckDaemonRunning(ctx)
		},
	}
}

// checkDiskSpaceStep warns when disk is tight. Recoverable: plenty of
// runs succeed on a nearly full disk, so this should never block one.
func checkDiskSpaceStep(checker infra.ToolChecker) Step {
	return Step{
		Name:        "check-disk-space",
		Criticality: profile.CriticalityRecoverable,
		Run: func(ctx context.Context, rc *RunContext) error {
			return checker.CheckDiskSpace(minFreeDiskBytes)
		},
	}
}

// mergeRequiredTools combines the baseline tool list with a profile's
// extras, preserving order and dropping duplicates.
func mergeRequiredTools(base, extra []string) []string {
	merged := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]struct{}, len(base)+len(extra))
	for _, lst := range [][]string{base, extra} {
		for _, tool := range lst {
			if _, ok := seen[tool]; ok {
				continue
			}
			seen[tool] = struct{}{}
			merged = append(merged, tool)
		}
	}
	return merged
}

// =============================================================================
// Environment Steps
// =============================================================================

func resetWorkspaceStep(ws workspace.Manager) Step {
	return Step{
		Name:        "reset-workspace",
		Criticality: profile.CriticalityFatal,
		Run: func(ctx context.Context, rc *RunContext) error {
			res, err := ws.Reset(ctx)
			if err != nil {
				return err
			}
			if res.StopError != nil {
				fmt.Fprintf(rc.Out, "  %s stale environment stop failed: %v\n",
					ux.IconWarning.Render(), res.StopError)
			}
			return nil
		},
	}
}

func configureProjectStep(env envctl.EnvController, prof *profile.Profile) Step {
	return Step{
		Name:        "configure-project",
		Criticality: profile.CriticalityFatal,
		Run: func(ctx context.Context, rc *RunContext) error {
			_, err := env.Configure(ctx, envctl.ConfigureOptions{
				ProjectType: prof.ProjectType,
				Docroot:     prof.Docroot,
				PHPVersion:  prof.PHPVersion,
			})
			return err
		},
	}
}

func startEnvironmentStep(env envctl.EnvController) Step {
	return Step{
		Name:        "start-environment",
		Criticality: profile.CriticalityFatal,
		Run: func(ctx context.Context, rc *RunContext) error {
			_, err := env.Start(ctx, envctl.StartOptions{})
			return err
		},
	}
}

// waitForDatabaseStep polls the database container until it reports
// healthy. Recoverable on timeout and on an unhealthy report alike: a
// slow or misreporting database is worth a warning, but the install
// steps get their chance to run and fail on their own terms.
func waitForDatabaseStep(waiter HealthWaiter, showSpinner bool) Step {
	return Step{
		Name:        "wait-for-database",
		Criticality: profile.CriticalityRecoverable,
		Run: func(ctx context.Context, rc *RunContext) error {
			opts := DefaultWaitOptions(rc.Project)
			if showSpinner {
				spin := ux.NewSpinner(fmt.Sprintf("Waiting for %s", opts.ContainerName))
				spin.Start()
				defer spin.Stop()
			}
			res, err := waiter.WaitForDatabase(ctx, opts)
			if err != nil {
				return err
			}
			rc.Logger.Debug("database ready",
				"samples", res.Samples,
				"elapsed", res.Elapsed.String(),
			)
			return nil
		},
	}
}

// =============================================================================
// Profile Steps
// =============================================================================

// profileStep adapts a profile-defined step to the pipeline, routing
// the command through the runner the profile names.
func profileStep(env envctl.EnvController, st profile.Step) Step {
	return Step{
		Name:        st.Name,
		Criticality: st.Criticality,
		Run: func(ctx context.Context, rc *RunContext) error {
			switch st.RunnerOrDefault() {
			case profile.RunnerComposer:
				_, err := env.Composer(ctx, envctl.ComposerOptions{Args: st.Command})
				return err
			case profile.RunnerExec:
				_, err := env.Exec(ctx, envctl.ExecOptions{
					Service: st.Service,
					Dir:     st.Dir,
					Command: st.Command,
				})
				return err
			default:
				return fmt.Errorf("unknown runner %q for step %s", st.Runner, st.Name)
			}
		},
	}
}

// =============================================================================
// Patch Steps
// =============================================================================

// patchStep applies one profile patch. A missing payload is a skip,
// not a failure, and the skip reason is surfaced inline.
func patchStep(applier patch.Applier, patchDir string, p profile.Patch) Step {
	return Step{
		Name:        "patch-" + p.Name,
		Criticality: profile.CriticalityRecoverable,
		Run: func(ctx context.Context, rc *RunContext) error {
			res, err := applier.Apply(ctx, patch.Job{
				Name:        p.Name,
				PayloadPath: filepath.Join(patchDir, p.File),
				Target:      p.Target,
			})
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintf(rc.Out, "  %s %s: %s\n",
					ux.IconSkipped.Render(), p.Name, res.SkipReason)
				return nil
			}
			rc.Logger.Debug("patch applied",
				"patch", p.Name,
				"files", res.FilesAffected,
				"added", res.LinesAdded,
				"removed", res.LinesRemoved,
			)
			return nil
		},
	}
}

// =============================================================================
// Cleanup Step
// =============================================================================

// cleanupStep removes the patch staging directory from the workspace.
// Last in the pipeline, so a fatal halt leaves the staging area in
// place for inspection.
func cleanupStep() Step {
	return Step{
		Name:        "cleanup",
		Criticality: profile.CriticalityRecoverable,
		Run: func(ctx context.Context, rc *RunContext) error {
			staging := patch.StagingDir(rc.WorkspaceDir)
			if _, err := os.Stat(staging); os.IsNotExist(err) {
				return nil
			}
			return os.RemoveAll(staging)
		},
	}
}
