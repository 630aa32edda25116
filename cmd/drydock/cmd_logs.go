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

func runLogsCommand(cmd *cobra.Command, args []string) {
	cfg := config.Global
	if projectName != "" {
		cfg.ProjectName = projectName
	}
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	if err := cfg.Validate(); err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	workspaceDir, err := cfg.WorkspaceDir()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	// A positional service name wins over the flag.
	service := logsService
	if len(args) > 0 {
		service = args[0]
	}
	if service != "" {
		ux.Info(fmt.Sprintf("Streaming logs for %s", service))
	} else {
		ux.Info("Streaming the logs for all services")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := envctl.NewDefaultEnvController(envctl.EnvConfig{
		AppRoot: workspaceDir,
		Name:    cfg.ProjectName,
	}, process.NewDefaultRunner())
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	err = env.Logs(ctx, envctl.LogsOptions{
		Follow:     followLogs,
		Service:    service,
		Tail:       logsTail,
		Timestamps: logsTimestamps,
	}, os.Stdout)
	if err != nil {
		// Ctrl+C during --follow lands here as a cancellation.
		if errors.Is(err, context.Canceled) {
			ux.Info("Log streaming stopped")
			return
		}
		ux.Error(fmt.Sprintf("Log streaming failed: %v", err))
		os.Exit(CLIExitError)
	}
}
