// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Environment variables read at startup. A .env file in the working
// directory can seed them, set variables always win.
const (
	EnvProjectName = "PROJECT_NAME"
	EnvBaseDir     = "BASE_DIR"
)

// Defaults applied when the environment leaves a variable unset.
const (
	DefaultProjectName = "drydock-site"
	DefaultBaseDir     = "."
)

const (
	homeDirName  = ".drydock"
	patchDirName = "patches"
	logDirName   = "logs"
)

// projectNamePattern matches valid ddev project names. ddev derives
// container names and hostnames from the project name, so it must be a
// DNS label.
var projectNamePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// DrydockConfig is the runtime configuration for one provisioning run.
type DrydockConfig struct {
	// ProjectName is the ddev project name. The workspace directory
	// under BaseDir carries the same name.
	ProjectName string

	// BaseDir is the directory the workspace is created under.
	BaseDir string
}

// DefaultConfig returns the configuration used when no environment
// variables are set.
func DefaultConfig() DrydockConfig {
	return DrydockConfig{
		ProjectName: DefaultProjectName,
		BaseDir:     DefaultBaseDir,
	}
}

// Validate checks that the configuration can drive a run.
func (c DrydockConfig) Validate() error {
	if !projectNamePattern.MatchString(c.ProjectName) {
		return fmt.Errorf("invalid %s %q: must start with a lowercase letter or digit and contain only lowercase letters, digits, and hyphens",
			EnvProjectName, c.ProjectName)
	}
	if strings.TrimSpace(c.BaseDir) == "" {
		return fmt.Errorf("%s must not be empty", EnvBaseDir)
	}
	return nil
}

// AbsBaseDir resolves BaseDir against the current working directory.
func (c DrydockConfig) AbsBaseDir() (string, error) {
	abs, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return "", fmt.Errorf("could not resolve %s %q: %w", EnvBaseDir, c.BaseDir, err)
	}
	return abs, nil
}

// WorkspaceDir is the directory the provisioned project lives in.
func (c DrydockConfig) WorkspaceDir() (string, error) {
	base, err := c.AbsBaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, c.ProjectName), nil
}

// HomeDir returns the tool's home directory, ~/.drydock.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not find the user's home directory: %w", err)
	}
	return filepath.Join(home, homeDirName), nil
}

// PatchDir returns the patch payload directory for a profile,
// ~/.drydock/patches/<profile>. Payloads are optional, the directory
// may not exist.
func PatchDir(profileName string) (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, patchDirName, profileName), nil
}

// LogDir returns the directory run logs are written to, ~/.drydock/logs.
func LogDir() (string, error) {
	home, err := HomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, logDirName), nil
}
