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

	"github.com/spf13/cobra"

	"github.com/drydocklabs/drydock/cmd/drydock/config"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/pkg/ux"
)

// --- Global Command Variables ---
var (
	projectName      string // CLI override for PROJECT_NAME
	baseDir          string // CLI override for BASE_DIR
	profileName      string
	skipPatchesFlag  bool
	forceTeardown    bool
	jsonOutput       bool
	quietOutput      bool
	followLogs       bool
	logsService      string
	logsTail         int
	logsTimestamps   bool
	verbose          bool
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	rootCmd = &cobra.Command{
		Use:   "drydock",
		Short: "A cli to provision disposable ddev site environments",
		Long: `Drydock rebuilds a ddev-backed development site from a named
				profile: it wipes the workspace, configures and boots the
				environment, runs the profile's install steps, and applies
				any local patches you keep under ~/.drydock/patches.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Initialize UX personality from flag or environment
			if personalityLevel != "" {
				ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
			} else {
				ux.InitPersonality()
			}
			if err := config.Load(); err != nil {
				ux.Error(fmt.Sprintf("Configuration error: %v", err))
				os.Exit(CLIExitError)
			}
		},
	}

	// --- Provisioning ---
	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Provision the site environment from scratch",
		Run:   runUp, // Defined in cmd_up.go
	}

	teardownCmd = &cobra.Command{
		Use:   "teardown",
		Short: "DANGER: Stops the environment AND deletes the workspace",
		Run:   runTeardown, // Defined in cmd_teardown.go
	}

	// --- Inspection ---
	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show the environment and its service containers",
		Run:   runStatus, // Defined in cmd_status.go
	}

	logsCmd = &cobra.Command{
		Use:   "logs [service_name]",
		Short: "Stream logs from an environment service container",
		Run:   runLogsCommand, // Defined in cmd_logs.go
	}

	doctorCmd = &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the host toolchain and Docker daemon",
		Run:   runDoctor, // Defined in cmd_doctor.go
	}

	profilesCmd = &cobra.Command{
		Use:   "profiles",
		Short: "List the built-in provisioning profiles",
		Run:   runProfiles, // Defined in cmd_profiles.go
	}
)

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default, rich nautical), standard, minimal, or machine (scripting)")
	rootCmd.PersistentFlags().StringVar(&projectName, "project-name", "",
		"Project name (overrides PROJECT_NAME)")
	rootCmd.PersistentFlags().StringVar(&baseDir, "base-dir", "",
		"Directory the workspace is created under (overrides BASE_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging")

	// --- Provisioning Commands ---
	rootCmd.AddCommand(upCmd)
	upCmd.Flags().StringVar(&profileName, "profile", profile.DefaultProfileName,
		"Provisioning profile to use (see 'drydock profiles')")
	upCmd.Flags().BoolVar(&skipPatchesFlag, "skip-patches", false,
		"Skip the local patch steps")
	upCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Emit the run report as JSON")
	upCmd.Flags().BoolVar(&quietOutput, "quiet", false,
		"No output, exit code only")

	rootCmd.AddCommand(teardownCmd)
	teardownCmd.Flags().BoolVar(&forceTeardown, "force", false,
		"Required to skip the confirmation prompt in scripts")

	// --- Inspection Commands ---
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&jsonOutput, "json", false,
		"Emit the environment status as JSON")

	rootCmd.AddCommand(logsCmd)
	logsCmd.Flags().BoolVarP(&followLogs, "follow", "f", false, "Follow log output")
	logsCmd.Flags().StringVarP(&logsService, "service", "s", "",
		"Service to show logs for (default: all services)")
	logsCmd.Flags().IntVar(&logsTail, "tail", 0, "Number of lines from the end of the logs")
	logsCmd.Flags().BoolVar(&logsTimestamps, "timestamps", false, "Show timestamps")

	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the report as JSON")

	rootCmd.AddCommand(profilesCmd)
}
