// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/drydocklabs/drydock/cmd/drydock/config"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/infra"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
	"github.com/drydocklabs/drydock/pkg/ux"
)

// runDoctor diagnoses the host without touching any workspace. Exits
// non-zero when any check fails so it can gate CI provisioning jobs.
func runDoctor(cmd *cobra.Command, args []string) {
	cfg := config.Global
	if baseDir != "" {
		cfg.BaseDir = baseDir
	}
	absBase, err := cfg.AbsBaseDir()
	if err != nil {
		ux.Error(err.Error())
		os.Exit(CLIExitError)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := infra.NewDefaultToolChecker(process.NewDefaultRunner(), absBase)
	report := checker.RunDiagnostics(ctx)

	if jsonOutput {
		if err := OutputJSON(report, false); err != nil {
			ux.Error(err.Error())
			os.Exit(CLIExitError)
		}
	} else {
		fmt.Print(report.String())
	}

	if len(report.Errors) > 0 {
		os.Exit(CLIExitFindings)
	}
}
