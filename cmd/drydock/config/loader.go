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
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

var (
	// Global is a singleton instance
	Global DrydockConfig
	once   sync.Once
)

// Load ensures the config is loaded into the Global variable
func Load() error {
	var err error
	once.Do(func() {
		err = loadInternal()
	})
	return err
}

func loadInternal() error {
	// A .env file in the working directory seeds the environment.
	// godotenv never overrides variables that are already set.
	_ = godotenv.Load()

	cfg := fromEnv()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ensureHomeDirs(); err != nil {
		return err
	}
	Global = cfg
	return nil
}

// fromEnv builds a config from the environment, falling back to
// defaults for unset or blank variables.
func fromEnv() DrydockConfig {
	cfg := DefaultConfig()
	if v := strings.TrimSpace(os.Getenv(EnvProjectName)); v != "" {
		cfg.ProjectName = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBaseDir)); v != "" {
		cfg.BaseDir = v
	}
	return cfg
}

// ensureHomeDirs creates ~/.drydock/patches on first run so users have
// a place to drop patch payloads.
func ensureHomeDirs() error {
	home, err := HomeDir()
	if err != nil {
		return err
	}
	patches := filepath.Join(home, patchDirName)
	if _, err := os.Stat(patches); os.IsNotExist(err) {
		fmt.Printf("First run detected, creating the patch directory at %s\n", patches)
	}
	if err := os.MkdirAll(patches, 0o755); err != nil {
		return fmt.Errorf("failed to create the patch directory: %w", err)
	}
	return nil
}
