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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/drydocklabs/drydock/cmd/drydock/config"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/infra"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/patch"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/workspace"
	"github.com/drydocklabs/drydock/pkg/logging"
	"github.com/drydocklabs/drydock/pkg/ux"
)

func runUp(cmd *cobra.Command, args []string) {
	start := time.Now()
	outCfg := OutputConfig{JSON: jsonOutput, Quiet: quietOutput}

	report, err := executeUp(cmd.Context(), outCfg)

	if outCfg.JSON || outCfg.Quiet {
		os.Exit(OutputResult(outCfg, "up", start, runReportJSON(report), false, err))
	}

	if report != nil {
		renderReport(os.Stdout, report)
		ux.Summary(len(report.Succeeded), len(report.Failed), report.Attempted())
	}
	if err != nil {
		var stepErr *StepError
		if errors.As(err, &stepErr) {
			ux.Error(fmt.Sprintf("Provisioning failed at step %s: %v", stepErr.Step, stepErr.Wrapped))
		} else {
			ux.Error(fmt.Sprintf("Provisioning failed: %v", err))
		}
		os.Exit(CLIExitError)
	}
}

// executeUp assembles the pipeline's collaborators from configuration
// and runs it end to end under a per-project process lock.
func executeUp(parent context.Context, outCfg OutputConfig) (*RunReport, error) {
	decorated := !outCfg.JSON && !outCfg.Quiet
	cfg := config.Global
	if projectName != "" {
		cfg.ProjectName = projectName
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	prof, err := profile.Get(profileName)
	if err != nil {
		return nil, err
	}

	absBase, err := cfg.AbsBaseDir()
	if err != nil {
		return nil, err
	}
	workspaceDir, err := cfg.WorkspaceDir()
	if err != nil {
		return nil, err
	}
	patchDir, err := config.PatchDir(prof.Name)
	if err != nil {
		return nil, err
	}

	// Log file under ~/.drydock/logs. Stderr logging stays off unless
	// --verbose, so the tables own the terminal.
	logDir, _ := config.LogDir()
	level := logging.LevelInfo
	if verbose {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "drydock",
		Quiet:   !verbose,
	})
	defer logger.Close()

	// One run per project at a time.
	lock := process.NewProcessLock(process.ProjectLockConfig(cfg.ProjectName))
	if err := lock.Acquire(); err != nil {
		return nil, err
	}
	defer lock.Release()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	proc := process.NewDefaultRunner()
	checker := infra.NewDefaultToolChecker(proc, absBase)
	env, err := envctl.NewDefaultEnvController(envctl.EnvConfig{
		AppRoot: workspaceDir,
		Name:    cfg.ProjectName,
	}, proc)
	if err != nil {
		return nil, err
	}
	ws, err := workspace.NewDefaultManager(workspace.Config{
		BaseDir: absBase,
		Name:    cfg.ProjectName,
	}, env)
	if err != nil {
		return nil, err
	}
	applier, err := patch.NewDefaultApplier(env, workspaceDir)
	if err != nil {
		return nil, err
	}

	deps := pipelineDeps{
		checker:     checker,
		ws:          ws,
		env:         env,
		waiter:      NewDefaultHealthWaiter(proc),
		applier:     applier,
		patchDir:    patchDir,
		skipPatches: skipPatchesFlag,
		showSpinner: decorated && ux.IsInteractive(),
	}

	rc := NewRunContext(cfg.ProjectName, prof.Name, workspaceDir, logger)
	logger.Info("provisioning started",
		"run_id", rc.RunID,
		"project", cfg.ProjectName,
		"profile", prof.Name,
		"workspace", workspaceDir,
	)

	orch := NewDefaultOrchestrator()
	if decorated {
		ux.Title(fmt.Sprintf("Provisioning %s (profile: %s)", cfg.ProjectName, prof.Name))
	} else {
		// Stdout carries only the JSON envelope in machine modes.
		orch.SetOutput(io.Discard)
		rc.Out = io.Discard
	}

	report, runErr := orch.Run(ctx, rc, buildPipeline(deps, prof))
	if runErr != nil {
		logger.Error("provisioning failed",
			"run_id", rc.RunID,
			"fatal_step", report.FatalStep,
			"error", runErr.Error(),
		)
		return report, runErr
	}

	logger.Info("provisioning finished",
		"run_id", rc.RunID,
		"succeeded", len(report.Succeeded),
		"warnings", len(report.Failed),
		"duration", report.Duration.String(),
	)

	if decorated {
		ux.Success(fmt.Sprintf("Environment %s is ready", cfg.ProjectName))
		if status, derr := env.Describe(ctx); derr == nil && status.PrimaryURL != "" {
			ux.Info(fmt.Sprintf("Site available at %s", status.PrimaryURL))
		}
		ux.Muted(fmt.Sprintf("Completed in %s", report.Duration.Round(time.Second)))
	}

	return report, nil
}
