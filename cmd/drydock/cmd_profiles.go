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

	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/pkg/ux"
)

func runProfiles(cmd *cobra.Command, args []string) {
	list, err := profile.List()
	if err != nil {
		ux.Error(fmt.Sprintf("Could not load the profile catalog: %v", err))
		os.Exit(CLIExitError)
	}
	renderProfilesTable(os.Stdout, list)
}
