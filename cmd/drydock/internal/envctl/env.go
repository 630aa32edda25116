// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package envctl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidEnvVar is returned when an environment variable key is invalid.
// This prevents config injection attacks through malformed env var names.
var ErrInvalidEnvVar = errors.New("invalid environment variable")

// envVarKeyRegex validates environment variable key names.
// Keys must:
//   - Start with a letter or underscore
//   - Contain only alphanumeric characters and underscores
//   - Not be empty
//
// This prevents shell metacharacter injection and other config attacks.
var envVarKeyRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// validateEnvVars validates all environment variable keys in the map.
//
// Ensures all keys match the allowed pattern (alphanumeric and
// underscore, starting with letter or underscore) before they are
// handed to ddev.
func validateEnvVars(env map[string]string) error {
	for key := range env {
		if !envVarKeyRegex.MatchString(key) {
			return fmt.Errorf("%w: key %q contains invalid characters (must match [a-zA-Z_][a-zA-Z0-9_]*)", ErrInvalidEnvVar, key)
		}
	}
	return nil
}

// isSensitiveEnvVar checks if an environment variable name is sensitive.
//
// Identifies variables that should not be logged in plaintext. Checks
// for common patterns like TOKEN, SECRET, KEY, PASSWORD.
func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	return strings.Contains(upper, "TOKEN") ||
		strings.Contains(upper, "SECRET") ||
		strings.Contains(upper, "KEY") ||
		strings.Contains(upper, "PASSWORD") ||
		strings.Contains(upper, "CREDENTIAL")
}
