// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package infra contains toolcheck.go which provides pre-flight system checks
for the drydock up command.

# Problem Statement

When users run `drydock up`, several system requirements must be met:

 1. ddev must be installed (every environment operation shells out to it)
 2. The Docker daemon must be running (ddev containers live there)
 3. Sufficient disk space must be available for the workspace and images

Previously, users would encounter cryptic errors deep in provisioning:
  - "executable file not found" halfway through the pipeline
  - A hanging `ddev start` when the Docker daemon was down
  - Failed composer installs when the disk was full

These errors were confusing and didn't provide actionable remediation steps.

# Solution

ToolChecker provides explicit, early validation of system requirements:

	┌─────────────────────────────────────────────────────────────────┐
	│                         drydock up                              │
	├─────────────────────────────────────────────────────────────────┤
	│                                                                 │
	│  1. ToolChecker.VerifyTools(ddev, docker)  ← Clear error if     │
	│     └─ Names the exact missing tool           anything missing  │
	│                                                                 │
	│  2. ToolChecker.CheckToolVersion("ddev")   ← Minimum version    │
	│                                                                 │
	│  3. ToolChecker.CheckDaemonRunning()       ← Daemon probe       │
	│                                                                 │
	│  4. ToolChecker.CheckDiskSpace()           ← Before any write   │
	│                                                                 │
	│  5. Workspace reset, ddev config, ddev start                    │
	│                                                                 │
	└─────────────────────────────────────────────────────────────────┘

# Robustness Features

This component is the gatekeeper for every run. Key features:

1. STRUCTURED ERRORS:
  - CheckErrorType enum for programmatic handling
  - Human-readable messages with remediation steps
  - Technical details for debugging

2. DIAGNOSTIC MODE:
  - `drydock doctor` runs all checks verbosely
  - Probes run concurrently so the command stays fast
  - Generates a report suitable for bug filings

3. PATH CACHING:
  - Tool lookups are cached for the lifetime of the checker
  - Thread-safe for concurrent use

4. READ-ONLY:
  - Checks never modify the system. A failed check reports remediation
    steps instead of attempting repairs, so a preflight failure leaves
    no half-made state behind.

# Multi-Location Tool Detection

Searches for tools in multiple locations:
  - PATH lookup (standard)
  - Common install locations (/usr/local/bin, /opt/homebrew/bin, /snap/bin)

# Error Types

	CheckErrorToolMissing       - Required binary not found anywhere
	CheckErrorToolVersion       - Tool present but below the minimum version
	CheckErrorDaemonNotRunning  - Docker daemon not responding
	CheckErrorDiskSpaceLow      - Insufficient available space
	CheckErrorPermissionDenied  - Cannot read required paths

# Diagnostic Mode

Run comprehensive system diagnostics:

	$ drydock doctor

	=== Drydock System Diagnostics ===

	[Tools]
	  ddev:
	    Installed:   ✓ Yes
	    Path:        /usr/local/bin/ddev
	    Version:     v1.24.3
	  docker:
	    Installed:   ✓ Yes
	    Path:        /usr/bin/docker
	    Version:     v27.5.1

	[Docker]
	  Daemon:        ✓ Running (server 27.5.1)
	  Containers:    3 running

	[Disk]
	  Path:          /home/dev/drydock-sites
	  Free:          89.2 GB

	[Status]
	  ✓ All checks passed

# Usage

	checker := infra.NewDefaultToolChecker(nil, cfg.BaseDir)

	if err := checker.VerifyTools(infra.DefaultRequiredTools); err != nil {
	    var checkErr *infra.CheckError
	    if errors.As(err, &checkErr) {
	        fmt.Println(checkErr.FullError())
	    }
	    os.Exit(2)
	}

# Related Files

  - internal/process/runner.go: Subprocess execution for version and daemon probes
  - cmd_doctor.go: Integration point for the doctor command
  - steps.go: Preflight steps at the head of the provisioning pipeline
*/
package infra

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
)

// DefaultRequiredTools are the binaries every provisioning run depends on.
var DefaultRequiredTools = []string{"ddev", "docker"}

// MinDdevVersion is the oldest ddev release the pipeline is tested against.
// Older releases lack `ddev stop --unlist`, which teardown depends on.
const MinDdevVersion = "v1.23.0"

// -----------------------------------------------------------------------------
// Error Types
// -----------------------------------------------------------------------------

// CheckErrorType categorizes system check failures for programmatic handling.
type CheckErrorType int

const (
	// CheckErrorToolMissing indicates a required binary was not found anywhere.
	CheckErrorToolMissing CheckErrorType = iota

	// CheckErrorToolVersion indicates a tool is present but below the minimum version.
	CheckErrorToolVersion

	// CheckErrorDaemonNotRunning indicates Docker is installed but the daemon is not responding.
	CheckErrorDaemonNotRunning

	// CheckErrorDiskSpaceLow indicates insufficient available disk space.
	CheckErrorDiskSpaceLow

	// CheckErrorPermissionDenied indicates cannot read required paths.
	CheckErrorPermissionDenied
)

// String returns the error type as a string for logging.
func (t CheckErrorType) String() string {
	switch t {
	case CheckErrorToolMissing:
		return "TOOL_MISSING"
	case CheckErrorToolVersion:
		return "TOOL_VERSION_TOO_OLD"
	case CheckErrorDaemonNotRunning:
		return "DAEMON_NOT_RUNNING"
	case CheckErrorDiskSpaceLow:
		return "DISK_SPACE_LOW"
	case CheckErrorPermissionDenied:
		return "PERMISSION_DENIED"
	default:
		return "UNKNOWN"
	}
}

// CheckError provides structured error information for system checks.
type CheckError struct {
	// Type categorizes the error for programmatic handling.
	Type CheckErrorType

	// Message is a human-readable error description.
	Message string

	// Detail provides technical information for debugging.
	Detail string

	// Remediation suggests how to fix the issue.
	Remediation string
}

// Error implements the error interface.
func (e *CheckError) Error() string {
	return e.Message
}

// FullError returns a detailed error message including remediation.
func (e *CheckError) FullError() string {
	var buf bytes.Buffer
	buf.WriteString(e.Message)
	if e.Detail != "" {
		buf.WriteString("\n\nDetails: ")
		buf.WriteString(e.Detail)
	}
	if e.Remediation != "" {
		buf.WriteString("\n\nTo fix:\n")
		buf.WriteString(e.Remediation)
	}
	return buf.String()
}

// -----------------------------------------------------------------------------
// Diagnostic Report
// -----------------------------------------------------------------------------

// ToolStatus describes one probed binary in a diagnostic report.
type ToolStatus struct {
	Name    string
	Found   bool
	Path    string
	Version string
}

// DiagnosticReport contains the results of a full system diagnostic.
type DiagnosticReport struct {
	Timestamp time.Time

	// Tool status, one entry per required tool
	Tools []ToolStatus

	// Docker daemon status
	DockerDaemonRunning bool
	DockerServerVersion string
	ContainerCount      int

	// Disk status for the workspace base directory
	DiskPath string
	DiskFree int64

	// Errors encountered
	Errors []string
}

// String formats the diagnostic report for display.
func (r *DiagnosticReport) String() string {
	var buf bytes.Buffer

	buf.WriteString("=== Drydock System Diagnostics ===\n")
	buf.WriteString(fmt.Sprintf("Generated: %s\n\n", r.Timestamp.Format(time.RFC3339)))

	// Tools section
	buf.WriteString("[Tools]\n")
	for _, tool := range r.Tools {
		buf.WriteString(fmt.Sprintf("  %s:\n", tool.Name))
		buf.WriteString(fmt.Sprintf("    Installed:   %s\n", boolToCheck(tool.Found)))
		if tool.Path != "" {
			buf.WriteString(fmt.Sprintf("    Path:        %s\n", tool.Path))
		}
		if tool.Version != "" {
			buf.WriteString(fmt.Sprintf("    Version:     %s\n", tool.Version))
		}
	}
	buf.WriteString("\n")

	// Docker section
	buf.WriteString("[Docker]\n")
	if r.DockerDaemonRunning {
		buf.WriteString(fmt.Sprintf("  Daemon:        ✓ Running (server %s)\n", r.DockerServerVersion))
	} else {
		buf.WriteString("  Daemon:        ✗ Not responding\n")
	}
	if r.ContainerCount > 0 {
		buf.WriteString(fmt.Sprintf("  Containers:    %d running\n", r.ContainerCount))
	}
	buf.WriteString("\n")

	// Disk section
	buf.WriteString("[Disk]\n")
	buf.WriteString(fmt.Sprintf("  Path:          %s\n", r.DiskPath))
	buf.WriteString(fmt.Sprintf("  Free:          %s\n", formatBytes(r.DiskFree)))
	buf.WriteString("\n")

	// Errors section
	if len(r.Errors) > 0 {
		buf.WriteString("[Errors]\n")
		for _, e := range r.Errors {
			buf.WriteString(fmt.Sprintf("  ✗ %s\n", e))
		}
	} else {
		buf.WriteString("[Status]\n")
		buf.WriteString("  ✓ All checks passed\n")
	}

	return buf.String()
}

func boolToCheck(b bool) string {
	if b {
		return "✓ Yes"
	}
	return "✗ No"
}

// -----------------------------------------------------------------------------
// Interface Definition
// -----------------------------------------------------------------------------

// ToolChecker defines the contract for pre-flight system checks.
// This interface enables testing with mocks and ensures all system
// requirements are verified before a provisioning run touches the
// workspace.
//
// Implementations must be safe for concurrent use and must not modify
// the system under check.
type ToolChecker interface {
	// VerifyTools checks that every required binary is resolvable.
	// Returns a *CheckError naming the first missing tool, or nil.
	VerifyTools(requiredTools []string) error

	// ToolPath returns the path to a binary, or empty if not found.
	ToolPath(name string) string

	// ToolInstallInstructions returns platform-specific install instructions.
	ToolInstallInstructions(name string) string

	// CheckToolVersion verifies a tool meets a minimum semantic version.
	CheckToolVersion(ctx context.Context, tool, minVersion string) error

	// CheckDaemonRunning verifies the Docker daemon is responding.
	CheckDaemonRunning(ctx context.Context) error

	// CheckDiskSpace verifies sufficient disk space under the base path.
	CheckDiskSpace(requiredBytes int64) error

	// GetAvailableDiskSpace returns available disk space in bytes.
	GetAvailableDiskSpace() (int64, error)

	// BasePath returns the directory whose filesystem is checked.
	BasePath() string

	// RunDiagnostics performs comprehensive system checks and returns a report.
	RunDiagnostics(ctx context.Context) *DiagnosticReport
}

// -----------------------------------------------------------------------------
// Struct Definition
// -----------------------------------------------------------------------------

// DefaultToolChecker implements ToolChecker for the local system.
type DefaultToolChecker struct {
	// proc runs version and daemon probes.
	proc process.Runner

	// basePath is the directory whose filesystem backs disk checks.
	basePath string

	// Cache for expensive lookups
	cacheMu   sync.RWMutex
	pathCache map[string]string
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

// NewDefaultToolChecker creates a tool checker for the local system.
//
// # Description
//
// Creates a ToolChecker that resolves binaries via PATH with fallbacks
// to common install locations, probes the Docker daemon through the
// given runner, and checks free space on the filesystem backing
// basePath.
//
// # Inputs
//
//   - proc: Runner for subprocess probes. nil uses the default runner.
//   - basePath: Directory for disk space checks. Empty uses the home
//     directory. The path does not need to exist yet; the check walks
//     up to the nearest existing parent.
//
// # Outputs
//
//   - *DefaultToolChecker: Configured checker instance
//
// # Examples
//
//	checker := NewDefaultToolChecker(nil, "/home/dev/drydock-sites")
//	if err := checker.VerifyTools(DefaultRequiredTools); err != nil {
//	    return err
//	}
func NewDefaultToolChecker(proc process.Runner, basePath string) *DefaultToolChecker {
	if proc == nil {
		proc = process.NewDefaultRunner()
	}
	if basePath == "" {
		basePath, _ = os.UserHomeDir()
	}

	return &DefaultToolChecker{
		proc:      proc,
		basePath:  basePath,
		pathCache: make(map[string]string),
	}
}

// -----------------------------------------------------------------------------
// Tool Detection
// -----------------------------------------------------------------------------

var toolSearchDirs = map[string][]string{
	"darwin": {
		"/usr/local/bin",
		"/opt/homebrew/bin",
	},
	"linux": {
		"/usr/local/bin",
		"/usr/bin",
		"/snap/bin",
	},
}

// VerifyTools checks that every required binary is resolvable.
//
// # Description
//
// Resolves each tool in order and fails on the first one that cannot
// be found, naming it exactly. The check is read-only: nothing is
// installed, linked, or written.
//
// # Inputs
//
//   - requiredTools: Binary names that must resolve. An empty list
//     passes trivially.
//
// # Outputs
//
//   - error: nil when every tool resolves, otherwise a *CheckError of
//     type CheckErrorToolMissing naming the missing tool.
//
// # Examples
//
//	if err := checker.VerifyTools([]string{"ddev", "docker"}); err != nil {
//	    log.Error("preflight failed", "error", err)
//	    return err
//	}
func (c *DefaultToolChecker) VerifyTools(requiredTools []string) error {
	for _, name := range requiredTools {
		if c.ToolPath(name) == "" {
			return &CheckError{
				Type:        CheckErrorToolMissing,
				Message:     fmt.Sprintf("required tool not found: %s", name),
				Detail:      "searched PATH and common install locations",
				Remediation: c.ToolInstallInstructions(name),
			}
		}
	}
	return nil
}

// ToolPath returns the path to a binary, or empty if not found.
// Results are cached for the lifetime of the checker, including
// negative results.
func (c *DefaultToolChecker) ToolPath(name string) string {
	c.cacheMu.RLock()
	if path, ok := c.pathCache[name]; ok {
		c.cacheMu.RUnlock()
		return path
	}
	c.cacheMu.RUnlock()

	c.cacheMu.Lock()
	defer c.cacheMu.Unlock()

	if path, ok := c.pathCache[name]; ok {
		return path
	}

	path := c.locateTool(name)
	c.pathCache[name] = path
	return path
}

func (c *DefaultToolChecker) locateTool(name string) string {
	// 1. Check PATH first
	if path, err := c.proc.LookPath(name); err == nil {
		slog.Debug("Found tool in PATH", "tool", name, "path", path)
		return path
	}

	// 2. Check platform-specific common locations
	for _, dir := range toolSearchDirs[runtime.GOOS] {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			slog.Debug("Found tool at common location (not in PATH)", "tool", name, "path", candidate)
			return candidate
		}
	}

	slog.Debug("Tool not found", "tool", name)
	return ""
}

// ToolInstallInstructions returns platform-specific install instructions.
func (c *DefaultToolChecker) ToolInstallInstructions(name string) string {
	switch name {
	case "ddev":
		switch runtime.GOOS {
		case "darwin":
			return `ddev is required to build and run development environments.

Install ddev on macOS:
  Option 1: brew install ddev/ddev/ddev
  Option 2: Download from https://ddev.com/download

After installing, run: drydock up`

		case "linux":
			return `ddev is required to build and run development environments.

Install ddev on Linux:
  curl -fsSL https://ddev.com/install.sh | bash

After installing, run: drydock up`

		default:
			return `ddev is required to build and run development environments.

Install ddev from: https://ddev.com/download

After installing, run: drydock up`
		}

	case "docker":
		switch runtime.GOOS {
		case "darwin":
			return `Docker is required to run the containers ddev manages.

Install Docker on macOS:
  Option 1: Docker Desktop from https://docker.com/products/docker-desktop
  Option 2: brew install orbstack

After installing, start the app and run: drydock up`

		case "linux":
			return `Docker is required to run the containers ddev manages.

Install Docker on Linux:
  https://docs.docker.com/engine/install/

Then start the daemon:
  sudo systemctl enable --now docker

After installing, run: drydock up`

		default:
			return `Docker is required to run the containers ddev manages.

Install Docker from: https://docs.docker.com/get-docker/

After installing, run: drydock up`
		}

	default:
		return fmt.Sprintf("Install %s and make sure it is on your PATH, then run: drydock up", name)
	}
}

// -----------------------------------------------------------------------------
// Version Gate
// -----------------------------------------------------------------------------

// CheckToolVersion verifies a tool meets a minimum semantic version.
//
// # Description
//
// Runs `<tool> --version`, extracts the first semver-looking token from
// the output, and compares it against minVersion. Handles both bare
// ("1.24.3") and prefixed ("v1.24.3") forms on either side.
//
// # Inputs
//
//   - ctx: Context for cancellation
//   - tool: Binary name, must already resolve via ToolPath
//   - minVersion: Minimum acceptable version, e.g. "v1.23.0"
//
// # Outputs
//
//   - error: nil when the installed version is new enough, otherwise a
//     *CheckError of type CheckErrorToolVersion (or CheckErrorToolMissing
//     when the tool does not resolve at all).
func (c *DefaultToolChecker) CheckToolVersion(ctx context.Context, tool, minVersion string) error {
	if c.ToolPath(tool) == "" {
		return &CheckError{
			Type:        CheckErrorToolMissing,
			Message:     fmt.Sprintf("required tool not found: %s", tool),
			Detail:      "searched PATH and common install locations",
			Remediation: c.ToolInstallInstructions(tool),
		}
	}

	out, err := c.proc.Run(ctx, tool, "--version")
	if err != nil {
		return &CheckError{
			Type:        CheckErrorToolVersion,
			Message:     fmt.Sprintf("could not determine %s version", tool),
			Detail:      err.Error(),
			Remediation: fmt.Sprintf("Run `%s --version` manually and check the installation.", tool),
		}
	}

	have := parseVersionOutput(string(out))
	if have == "" {
		return &CheckError{
			Type:        CheckErrorToolVersion,
			Message:     fmt.Sprintf("could not parse %s version output", tool),
			Detail:      strings.TrimSpace(string(out)),
			Remediation: fmt.Sprintf("Run `%s --version` manually and check the installation.", tool),
		}
	}

	min := minVersion
	if !strings.HasPrefix(min, "v") {
		min = "v" + min
	}

	if semver.Compare(have, min) < 0 {
		return &CheckError{
			Type:        CheckErrorToolVersion,
			Message:     fmt.Sprintf("%s %s is too old, need %s or newer", tool, have, min),
			Detail:      strings.TrimSpace(string(out)),
			Remediation: upgradeInstructions(tool),
		}
	}

	return nil
}

// parseVersionOutput extracts the first semver-valid token from version
// command output. Tolerates trailing punctuation ("27.5.1,") and a
// missing "v" prefix.
func parseVersionOutput(out string) string {
	for _, field := range strings.Fields(out) {
		v := strings.TrimSuffix(field, ",")
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if semver.IsValid(v) {
			return v
		}
	}
	return ""
}

func upgradeInstructions(tool string) string {
	switch tool {
	case "ddev":
		switch runtime.GOOS {
		case "darwin":
			return `Upgrade ddev:
  brew upgrade ddev

Or download the latest release from https://ddev.com/download`
		default:
			return `Upgrade ddev:
  curl -fsSL https://ddev.com/install.sh | bash`
		}
	case "docker":
		return "Upgrade Docker using your platform's package manager or the Docker Desktop updater."
	default:
		return fmt.Sprintf("Upgrade %s to a newer release.", tool)
	}
}

// -----------------------------------------------------------------------------
// Docker Daemon
// -----------------------------------------------------------------------------

// CheckDaemonRunning verifies the Docker daemon is responding.
//
// `docker info` round-trips to the daemon, so a successful call means
// containers can actually be started, not just that the client binary
// exists.
func (c *DefaultToolChecker) CheckDaemonRunning(ctx context.Context) error {
	if c.ToolPath("docker") == "" {
		return &CheckError{
			Type:        CheckErrorToolMissing,
			Message:     "required tool not found: docker",
			Detail:      "searched PATH and common install locations",
			Remediation: c.ToolInstallInstructions("docker"),
		}
	}

	if _, err := c.proc.Run(ctx, "docker", "info", "--format", "{{.ServerVersion}}"); err != nil {
		return &CheckError{
			Type:        CheckErrorDaemonNotRunning,
			Message:     "Docker daemon is not responding",
			Detail:      err.Error(),
			Remediation: daemonStartInstructions(),
		}
	}

	return nil
}

func daemonStartInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Start Docker Desktop (or OrbStack) and wait for it to finish booting, then retry."
	case "linux":
		return `Start the Docker daemon:
  sudo systemctl start docker

Then retry.`
	default:
		return "Start the Docker daemon and retry."
	}
}

// -----------------------------------------------------------------------------
// Disk Space Checking
// -----------------------------------------------------------------------------

// CheckDiskSpace verifies sufficient disk space under the base path.
func (c *DefaultToolChecker) CheckDiskSpace(requiredBytes int64) error {
	if requiredBytes <= 0 {
		return nil
	}

	available, err := c.GetAvailableDiskSpace()
	if err != nil {
		if os.IsPermission(err) {
			return &CheckError{
				Type:        CheckErrorPermissionDenied,
				Message:     "Cannot check disk space: permission denied",
				Detail:      err.Error(),
				Remediation: fmt.Sprintf("Check permissions: ls -la %s", c.basePath),
			}
		}
		return &CheckError{
			Type:        CheckErrorDiskSpaceLow,
			Message:     "Failed to check disk space",
			Detail:      err.Error(),
			Remediation: "Check if the filesystem is accessible",
		}
	}

	if available < requiredBytes {
		return &CheckError{
			Type: CheckErrorDiskSpaceLow,
			Message: fmt.Sprintf(
				"Insufficient disk space: need %s, have %s",
				formatBytes(requiredBytes),
				formatBytes(available),
			),
			Detail: fmt.Sprintf("Workspace base path: %s", c.basePath),
			Remediation: fmt.Sprintf(`Free up disk space and try again.

Options:
  1. Delete unused files to free up %s
  2. Remove stale ddev projects: ddev clean --all
  3. Prune unused images: docker system prune`,
				formatBytes(requiredBytes-available),
			),
		}
	}

	return nil
}

// GetAvailableDiskSpace returns available disk space in bytes.
func (c *DefaultToolChecker) GetAvailableDiskSpace() (int64, error) {
	// The base path may not exist yet on a first run. Walk up to the
	// nearest existing parent so statfs has something to measure.
	checkPath := c.basePath
	for {
		if _, err := os.Stat(checkPath); err == nil {
			break
		}
		parent := filepath.Dir(checkPath)
		if parent == checkPath {
			checkPath, _ = os.UserHomeDir()
			break
		}
		checkPath = parent
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(checkPath, &stat); err != nil {
		return 0, fmt.Errorf("statfs failed for %s: %w", checkPath, err)
	}

	available := int64(stat.Bavail) * int64(stat.Bsize)
	return available, nil
}

// BasePath returns the directory whose filesystem is checked.
func (c *DefaultToolChecker) BasePath() string {
	return c.basePath
}

// -----------------------------------------------------------------------------
// Diagnostics
// -----------------------------------------------------------------------------

// RunDiagnostics performs comprehensive system checks and returns a report.
//
// # Description
//
// Probes every required tool, the Docker daemon, and free disk space,
// running the probes concurrently. Used by `drydock doctor`. Probe
// failures become report entries, never errors; the report always
// comes back complete.
//
// # Inputs
//
//   - ctx: Context for cancellation
//
// # Outputs
//
//   - *DiagnosticReport: Complete system status report
func (c *DefaultToolChecker) RunDiagnostics(ctx context.Context) *DiagnosticReport {
	report := &DiagnosticReport{
		Timestamp: time.Now(),
		DiskPath:  c.basePath,
		Tools:     make([]ToolStatus, len(DefaultRequiredTools)),
	}

	g, gctx := errgroup.WithContext(ctx)

	// Tool probes write to distinct slice slots, daemon and disk probes
	// to distinct fields, so the goroutines never share a location.
	for i, name := range DefaultRequiredTools {
		g.Go(func() error {
			st := ToolStatus{Name: name}
			if path := c.ToolPath(name); path != "" {
				st.Found = true
				st.Path = path
				if out, err := c.proc.Run(gctx, name, "--version"); err == nil {
					st.Version = parseVersionOutput(string(out))
				}
			}
			report.Tools[i] = st
			return nil
		})
	}

	g.Go(func() error {
		if c.ToolPath("docker") == "" {
			return nil
		}
		if out, err := c.proc.Run(gctx, "docker", "info", "--format", "{{.ServerVersion}}"); err == nil {
			report.DockerDaemonRunning = true
			report.DockerServerVersion = strings.TrimSpace(string(out))
		}
		if out, err := c.proc.Run(gctx, "docker", "ps", "-q"); err == nil {
			lines := strings.Split(strings.TrimSpace(string(out)), "\n")
			if len(lines) > 0 && lines[0] != "" {
				report.ContainerCount = len(lines)
			}
		}
		return nil
	})

	var diskErr error
	g.Go(func() error {
		free, err := c.GetAvailableDiskSpace()
		if err != nil {
			diskErr = err
			return nil
		}
		report.DiskFree = free
		return nil
	})

	_ = g.Wait()

	// Collect errors
	for _, tool := range report.Tools {
		if !tool.Found {
			report.Errors = append(report.Errors, fmt.Sprintf("required tool not found: %s", tool.Name))
		}
	}
	dockerFound := c.ToolPath("docker") != ""
	if dockerFound && !report.DockerDaemonRunning {
		report.Errors = append(report.Errors, "Docker daemon is not running")
	}
	if diskErr != nil {
		report.Errors = append(report.Errors, "Disk: "+diskErr.Error())
	}

	return report
}

// -----------------------------------------------------------------------------
// Helper Functions
// -----------------------------------------------------------------------------

func formatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}

var _ ToolChecker = (*DefaultToolChecker)(nil)
