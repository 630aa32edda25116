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
	"os/signal"
	"syscall"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/drydocklabs/drydock/cmd/drydock/config"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/workspace"
	"github.com/drydocklabs/drydock/pkg/ux"
)

func runTeardown(cmd *cobra.Command, args []string) {
	if err := executeTeardown(cmd.Context()); err != nil {
		ux.Error(fmt.Sprintf("Teardown failed: %v", err))
		os.Exit(CLIExitError)
	}
}

func executeTeardown(parent context.Context) error {
	cfg := config.Global
	if projectName != "" {
		cfg.ProjectName = projectName
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	workspaceDir, err := cfg.WorkspaceDir()
	if err != nil {
		return err
	}

	if !forceTeardown {
		// Scripts must opt in explicitly; a prompt nobody answers is a
		// hung pipeline.
		if !ux.IsInteractive() {
			return fmt.Errorf("refusing to tear down %s without --force in a non-interactive session", cfg.ProjectName)
		}

		confirmed := false
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Tear down %s?", cfg.ProjectName)).
					Description(fmt.Sprintf("Stops the ddev environment and permanently deletes %s.", workspaceDir)).
					Affirmative("Tear it down").
					Negative("Keep it").
					Value(&confirmed),
			),
		)
		if err := form.Run(); err != nil {
			return err
		}
		if !confirmed {
			ux.Info("Aborted. No changes were made")
			return nil
		}
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lock := process.NewProcessLock(process.ProjectLockConfig(cfg.ProjectName))
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	proc := process.NewDefaultRunner()
	env, err := envctl.NewDefaultEnvController(envctl.EnvConfig{
		AppRoot: workspaceDir,
		Name:    cfg.ProjectName,
	}, proc)
	if err != nil {
		return err
	}
	absBase, err := cfg.AbsBaseDir()
	if err != nil {
		return err
	}
	ws, err := workspace.NewDefaultManager(workspace.Config{
		BaseDir: absBase,
		Name:    cfg.ProjectName,
	}, env)
	if err != nil {
		return err
	}

	res, err := ws.Remove(ctx)
	if err != nil {
		return err
	}
	if res.StopError != nil {
		ux.Warning(fmt.Sprintf("Environment stop reported an error (continuing): %v", res.StopError))
	}
	if !res.Existed {
		ux.Info(fmt.Sprintf("Workspace %s was already gone", workspaceDir))
	}

	ux.Success(fmt.Sprintf("Environment %s torn down", cfg.ProjectName))
	return nil
}
