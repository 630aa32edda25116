// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package envctl

import (
	"errors"
	"testing"
)

func TestValidateEnvVars(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr bool
	}{
		{"nil map", nil, false},
		{"valid keys", map[string]string{"FOO": "1", "_BAR": "2", "baz9": "3"}, false},
		{"dash in key", map[string]string{"BAD-KEY": "1"}, true},
		{"leading digit", map[string]string{"9LIVES": "1"}, true},
		{"empty key", map[string]string{"": "1"}, true},
		{"space in key", map[string]string{"HAS SPACE": "1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateEnvVars(tt.env)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateEnvVars(%v) error = %v, wantErr %v", tt.env, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidEnvVar) {
				t.Errorf("error = %v, want ErrInvalidEnvVar", err)
			}
		})
	}
}

func TestIsSensitiveEnvVar(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"API_TOKEN", true},
		{"secret_value", true},
		{"SSH_KEY", true},
		{"DB_PASSWORD", true},
		{"AWS_CREDENTIALS", true},
		{"PROJECT_NAME", false},
		{"BASE_DIR", false},
	}

	for _, tt := range tests {
		if got := isSensitiveEnvVar(tt.name); got != tt.want {
			t.Errorf("isSensitiveEnvVar(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
