// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/envctl"
	"github.com/drydocklabs/drydock/cmd/drydock/internal/profile"
	"github.com/drydocklabs/drydock/pkg/ux"
)

// maxDetailWidth keeps error detail cells from wrapping the table.
const maxDetailWidth = 60

// renderReport writes the per-step outcome table for a finished run.
// Rows are grouped: what succeeded, what failed, what never ran.
func renderReport(w io.Writer, report *RunReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"STEP", "RESULT", "DURATION", "DETAIL"})

	for _, o := range report.Succeeded {
		t.AppendRow(table.Row{
			o.Name,
			ux.IconSuccess.Render() + " ok",
			formatStepDuration(o.Duration),
			"",
		})
	}
	for _, o := range report.Failed {
		result := ux.IconWarning.Render() + " warning"
		if o.Name == report.FatalStep {
			result = ux.IconError.Render() + " failed"
		}
		t.AppendRow(table.Row{
			o.Name,
			result,
			formatStepDuration(o.Duration),
			truncateDetail(errDetail(o.Err), maxDetailWidth),
		})
	}
	for _, name := range report.NotRun {
		t.AppendRow(table.Row{
			name,
			ux.IconSkipped.Render() + " not run",
			"-",
			"",
		})
	}

	t.Render()
}

// renderStatusTable writes the environment overview followed by its
// per-service container table.
func renderStatusTable(w io.Writer, status *envctl.EnvStatus) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"PROPERTY", "VALUE"})
	t.AppendRow(table.Row{"name", status.Name})
	t.AppendRow(table.Row{"status", status.Status})
	if status.Type != "" {
		t.AppendRow(table.Row{"type", status.Type})
	}
	if status.PrimaryURL != "" {
		t.AppendRow(table.Row{"url", status.PrimaryURL})
	}
	if status.AppRoot != "" {
		t.AppendRow(table.Row{"approot", status.AppRoot})
	}
	t.Render()

	if len(status.Services) == 0 {
		return
	}

	st := table.NewWriter()
	st.SetOutputMirror(w)
	st.SetStyle(table.StyleRounded)
	st.AppendHeader(table.Row{"SERVICE", "STATE", "CONTAINER", "IMAGE"})
	for _, svc := range status.Services {
		st.AppendRow(table.Row{svc.Name, svc.State, svc.ContainerName, svc.Image})
	}
	st.Render()
}

// renderProfilesTable writes the provisioning profile catalog.
func renderProfilesTable(w io.Writer, profiles []profile.Profile) {
	if len(profiles) == 0 {
		fmt.Fprintln(w, "No profiles found")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"PROFILE", "TYPE", "PHP", "STEPS", "PATCHES", "DESCRIPTION"})
	for _, p := range profiles {
		php := p.PHPVersion
		if php == "" {
			php = "-"
		}
		t.AppendRow(table.Row{
			p.Name,
			p.ProjectType,
			php,
			len(p.InstallSteps) + len(p.HelperSteps),
			len(p.Patches),
			truncateDetail(p.Description, 48),
		})
	}
	t.Render()
}

func formatStepDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	return d.Round(time.Millisecond).String()
}

func errDetail(err error) string {
	if err == nil {
		return ""
	}
	return firstLine(err.Error())
}

func truncateDetail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
