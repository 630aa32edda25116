// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Exit codes for CLI commands.
const (
	CLIExitSuccess  = 0 // Operation completed, recovered warnings included
	CLIExitFindings = 1 // Diagnostics completed and found problems
	CLIExitError    = 2 // Operation failed
)

// OutputConfig controls output behavior.
type OutputConfig struct {
	JSON    bool // Output as JSON
	Compact bool // No indentation
	Quiet   bool // No output, exit code only
}

// CommandResult wraps command output with metadata.
type CommandResult struct {
	APIVersion string    `json:"api_version"`
	Command    string    `json:"command"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Data       any       `json:"data,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// OutputJSON writes structured data as JSON to stdout.
//
// # Inputs
//
//   - data: The data to encode. Must be JSON-serializable.
//   - compact: If true, output without indentation.
//
// # Outputs
//
//   - error: Non-nil if encoding fails.
func OutputJSON(data any, compact bool) error {
	encoder := json.NewEncoder(os.Stdout)
	if !compact {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(data)
}

// OutputError writes an error in the appropriate format.
//
// # Inputs
//
//   - jsonMode: If true, output as JSON to stdout.
//   - msg: Human-readable error message.
//   - err: The underlying error.
func OutputError(jsonMode bool, msg string, err error) {
	if jsonMode {
		result := CommandResult{
			APIVersion: "1.0",
			Timestamp:  time.Now(),
			Success:    false,
			Error:      fmt.Sprintf("%s: %v", msg, err),
		}
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		encoder.Encode(result)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
	}
}

// OutputResult handles the JSON and quiet output scenarios and maps the
// outcome to an exit code. Human-readable rendering stays with the
// individual commands.
//
// # Inputs
//
//   - cfg: Output configuration.
//   - cmd: Command name for metadata.
//   - start: Start time for duration calculation.
//   - data: The data to output.
//   - hasFindings: Whether the operation found issues (for exit code).
//   - err: Any error that occurred.
//
// # Outputs
//
//   - int: The exit code to use.
func OutputResult(cfg OutputConfig, cmd string, start time.Time, data any, hasFindings bool, err error) int {
	if cfg.Quiet {
		if err != nil {
			return CLIExitError
		}
		if hasFindings {
			return CLIExitFindings
		}
		return CLIExitSuccess
	}

	if err != nil {
		OutputError(cfg.JSON, "Command failed", err)
		return CLIExitError
	}

	if cfg.JSON {
		result := CommandResult{
			APIVersion: "1.0",
			Command:    cmd,
			Timestamp:  time.Now(),
			DurationMs: time.Since(start).Milliseconds(),
			Success:    true,
			Data:       data,
		}
		if encErr := OutputJSON(result, cfg.Compact); encErr != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", encErr)
			return CLIExitError
		}
	}

	if hasFindings {
		return CLIExitFindings
	}
	return CLIExitSuccess
}

// RunReportJSON is the run report shaped for machine consumption.
type RunReportJSON struct {
	RunID      string            `json:"run_id"`
	Succeeded  []StepOutcomeJSON `json:"succeeded"`
	Failed     []StepOutcomeJSON `json:"failed"`
	NotRun     []string          `json:"not_run,omitempty"`
	FatalStep  string            `json:"fatal_step,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// StepOutcomeJSON is one step outcome in the JSON report.
type StepOutcomeJSON struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// runReportJSON converts a run report into its JSON payload. A nil
// report (the run never started) yields nil so the envelope omits the
// data field.
func runReportJSON(report *RunReport) any {
	if report == nil {
		return nil
	}
	return RunReportJSON{
		RunID:      report.RunID,
		Succeeded:  stepOutcomesJSON(report.Succeeded),
		Failed:     stepOutcomesJSON(report.Failed),
		NotRun:     report.NotRun,
		FatalStep:  report.FatalStep,
		DurationMs: report.Duration.Milliseconds(),
	}
}

func stepOutcomesJSON(outcomes []StepOutcome) []StepOutcomeJSON {
	out := make([]StepOutcomeJSON, 0, len(outcomes))
	for _, o := range outcomes {
		s := StepOutcomeJSON{Name: o.Name, DurationMs: o.Duration.Milliseconds()}
		if o.Err != nil {
			s.Error = o.Err.Error()
		}
		out = append(out, s)
	}
	return out
}
