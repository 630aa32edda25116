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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drydocklabs/drydock/cmd/drydock/config"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
	"github.com/drydocklabs/drydock/pkg/ux"
)

func runStatus(cmd *cobra.Command, args []string) {
	if err := executeStatus(cmd.Context()); err != nil {
		ux.Error(fmt.Sprintf("Status check failed: %v", err))
		os.Exit(CLIExitError)
	}
}

func executeStatus(parent context.Context) error {
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

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := envctl.NewDefaultEnvController(envctl.EnvConfig{
		AppRoot: workspaceDir,
		Name:    cfg.ProjectName,
	}, process.NewDefaultRunner())
	if err != nil {
		return err
	}

	status, err := env.Describe(ctx)
	if err != nil {
		if errors.Is(err, envctl.ErrEnvNotFound) {
			ux.Info(fmt.Sprintf("No environment named %s is registered. Run 'drydock up' to create one.", cfg.ProjectName))
			return nil
		}
		return err
	}

	if jsonOutput {
		return OutputJSON(status, false)
	}

	renderStatusTable(os.Stdout, status)
	return nil
}
