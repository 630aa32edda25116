package envctl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
)

// =============================================================================
// Error Definitions
// =============================================================================

var (
	// ErrEnvNotFound is returned when ddev has no project under the given name.
	ErrEnvNotFound = errors.New("environment not found")

	// ErrEnvNotRunning is returned for exec against a stopped environment.
	ErrEnvNotRunning = errors.New("environment not running")

	// ErrInvalidConfig is returned when EnvConfig is invalid.
	ErrInvalidConfig = errors.New("invalid environment configuration")
)

// =============================================================================
// Interface Definition
// =============================================================================

// EnvController manages ddev operations for a single development environment.
//
// # Description
//
// This interface abstracts all interactions with the ddev CLI, enabling
// testable orchestration of environment lifecycle: configure, start,
// in-container command execution, teardown, and status queries. It is a
// thin proxy: ddev owns container wiring, this layer owns argument
// construction, environment injection, and result interpretation.
//
// # Security
//
//   - Sanitizes environment variable keys before injection
//   - Does not log sensitive environment values (tokens, secrets)
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Operations that modify
// environment state (Configure, Start, Stop) should be serialized.
type EnvController interface {
	// Configure writes ddev project configuration into the app root.
	//
	// # Description
	//
	// Executes `ddev config` with the project type, docroot, and project
	// name. Must run after the workspace directory exists; ddev writes
	// .ddev/config.yaml underneath it. Re-running against an existing
	// configuration is safe, ddev overwrites the managed fields.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - opts: Project type, docroot, and optional PHP version
	//
	// # Outputs
	//
	//   - *EnvResult: Execution result with stdout/stderr
	//   - error: If the config command fails
	//
	// # Example
	//
	//   result, err := ctl.Configure(ctx, ConfigureOptions{
	//       ProjectType: "drupal11",
	//       Docroot:     "web",
	//   })
	//
	// # Assumptions
	//
	//   - The app root directory exists
	//   - ddev is installed (verified by preflight)
	Configure(ctx context.Context, opts ConfigureOptions) (*EnvResult, error)

	// Start boots the environment containers.
	//
	// # Description
	//
	// Executes `ddev start -y`. The -y flag suppresses interactive
	// confirmation so provisioning never blocks on a prompt. First
	// start pulls images, so the default timeout is generous.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - opts: Optional env injection and timeout override
	//
	// # Outputs
	//
	//   - *EnvResult: Execution result with stdout/stderr
	//   - error: If the start command fails
	//
	// # Limitations
	//
	//   - Does not verify service health after startup (use a readiness
	//     poller; ddev reports started before databases accept queries)
	Start(ctx context.Context, opts StartOptions) (*EnvResult, error)

	// Exec runs a command inside an environment container.
	//
	// # Description
	//
	// Executes `ddev exec` against the web service by default. The
	// command runs in the container's project directory unless Dir
	// overrides it.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - opts: Service, working directory, and the command to run
	//
	// # Outputs
	//
	//   - *ExecResult: Exit code with captured stdout/stderr
	//   - error: If the command cannot run or exits nonzero
	//
	// # Example
	//
	//   result, err := ctl.Exec(ctx, ExecOptions{
	//       Command: []string{"composer", "install", "--no-interaction"},
	//   })
	Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error)

	// Composer runs a composer command through ddev's composer wrapper.
	//
	// # Description
	//
	// Executes `ddev composer <args>` in the app root. This is distinct
	// from Exec: ddev's composer wrapper knows how to create-project
	// into a directory that already holds .ddev/, which plain
	// `composer create-project` refuses.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation
	//   - opts: Composer arguments and timeout override
	//
	// # Outputs
	//
	//   - *ExecResult: Exit code with captured stdout/stderr
	//   - error: If the command cannot run or exits nonzero
	//
	// # Example
	//
	//   result, err := ctl.Composer(ctx, ComposerOptions{
	//       Args: []string{"create-project", "laravel/laravel", "--no-interaction"},
	//   })
	Composer(ctx context.Context, opts ComposerOptions) (*ExecResult, error)

	// Stop halts the environment, optionally removing its registration.
	//
	// # Description
	//
	// Executes `ddev stop <project>`, with --unlist when opts.Unlist is
	// set so ddev forgets the project entirely. Runs by project name,
	// not app root, so it works even after the workspace directory is
	// gone.
	//
	// # Inputs
	//
	//   - ctx: Context for cancellation and timeout
	//   - opts: Unlist flag and timeout override
	//
	// # Outputs
	//
	//   - *EnvResult: Execution result with stdout/stderr
	//   - error: If the stop command fails
	Stop(ctx context.Context, opts StopOptions) (*EnvResult, error)

	// Describe queries the current state of the environment.
	//
	// # Description
	//
	// Executes `ddev describe <project> -j` and parses the JSON payload
	// into an EnvStatus. Returns ErrEnvNotFound when ddev has no project
	// registered under the configured name.
	//
	// # Outputs
	//
	//   - *EnvStatus: Name, state, and per-service status
	//   - error: ErrEnvNotFound, or a query/parse failure
	Describe(ctx context.Context) (*EnvStatus, error)

	// Logs streams environment logs to the provided writer.
	//
	// Follow mode blocks until the context is cancelled; cancellation is
	// the normal way a follow ends, not an error.
	Logs(ctx context.Context, opts LogsOptions, w io.Writer) error

	// ProjectName returns the configured ddev project name.
	ProjectName() string

	// AppRoot returns the directory ddev operations run in.
	AppRoot() string
}

// =============================================================================
// Configuration and Option Types
// =============================================================================

// EnvConfig configures a controller for one environment.
type EnvConfig struct {
	// AppRoot is the directory holding the project.
	// ddev config and start run here. Required.
	AppRoot string

	// Name is the ddev project name.
	// Default: "drydock"
	Name string

	// DefaultTimeout is the default timeout for ddev operations.
	// Default: 5 minutes
	DefaultTimeout time.Duration

	// StartTimeout is the timeout for ddev start.
	// First start pulls images, so it gets its own, longer default.
	// Default: 15 minutes
	StartTimeout time.Duration
}

// ConfigureOptions configures the Configure operation.
type ConfigureOptions struct {
	// ProjectType is the ddev project type.
	// Maps to: --project-type flag
	// Required, e.g. "laravel", "drupal11", "typo3".
	ProjectType string

	// Docroot is the web-served directory relative to the app root.
	// Maps to: --docroot flag
	// Empty means the project type's default.
	Docroot string

	// PHPVersion overrides the project type's default PHP version.
	// Maps to: --php-version flag
	PHPVersion string

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// StartOptions configures the Start operation.
type StartOptions struct {
	// Env contains environment variables to inject into the command.
	Env map[string]string

	// Timeout overrides the start timeout.
	// Zero means use StartTimeout from config.
	Timeout time.Duration
}

// ExecOptions configures the Exec operation.
type ExecOptions struct {
	// Service is the ddev service to run in.
	// Default: "web"
	Service string

	// Dir overrides the working directory inside the container.
	// Maps to: --dir flag
	Dir string

	// Command is the command and arguments to execute.
	// Required, must have at least one element.
	Command []string

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// ComposerOptions configures the Composer operation.
type ComposerOptions struct {
	// Args are the composer arguments ("create-project", "require", ...).
	// Required, must have at least one element.
	Args []string

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// StopOptions configures the Stop operation.
type StopOptions struct {
	// Unlist removes the project from ddev's registry after stopping.
	// Maps to: --unlist flag
	Unlist bool

	// Timeout overrides the default operation timeout.
	Timeout time.Duration
}

// LogsOptions configures the Logs operation.
type LogsOptions struct {
	// Follow streams logs continuously.
	// Maps to: -f flag
	Follow bool

	// Service limits output to one service.
	// Maps to: -s flag
	Service string

	// Tail limits output to last N lines.
	// Zero means ddev's default.
	Tail int

	// Timestamps prepends each line with a timestamp.
	// Maps to: --time flag
	Timestamps bool
}

// =============================================================================
// Result Types
// =============================================================================

// EnvResult contains the result of a ddev operation.
type EnvResult struct {
	// Success indicates if the operation completed without error.
	Success bool

	// ExitCode is the exit code of the ddev command.
	ExitCode int

	// Stdout contains standard output.
	Stdout string

	// Stderr contains standard error.
	Stderr string

	// Duration is how long the operation took.
	Duration time.Duration

	// Command is the full command that was executed (for debugging).
	Command string
}

// ExecResult contains the result of an Exec operation.
type ExecResult struct {
	// ExitCode is the exit code of the executed command.
	ExitCode int

	// Stdout contains standard output.
	Stdout string

	// Stderr contains standard error.
	Stderr string
}

// EnvStatus contains the current state of an environment.
type EnvStatus struct {
	// Name is the ddev project name.
	Name string

	// Status is the overall project state reported by ddev
	// ("running", "stopped", "paused").
	Status string

	// Type is the ddev project type ("laravel", "drupal11", ...).
	Type string

	// PrimaryURL is the main site URL.
	PrimaryURL string

	// AppRoot is the project directory ddev has registered.
	AppRoot string

	// Services contains per-service status, sorted by name.
	Services []ServiceStatus

	// Running is the count of running services.
	Running int

	// Stopped is the count of services in any non-running state.
	Stopped int
}

// ServiceStatus contains the status of a single environment service.
type ServiceStatus struct {
	// Name is the ddev service name ("web", "db").
	Name string

	// ContainerName is the actual container name ("ddev-myproj-db").
	ContainerName string

	// State is the service state reported by ddev.
	State string

	// Image is the container image.
	Image string
}

// =============================================================================
// Default Implementation
// =============================================================================

// DefaultEnvController implements EnvController using the ddev CLI.
type DefaultEnvController struct {
	config EnvConfig
	proc   process.Runner
	mu     sync.Mutex
}

// NewDefaultEnvController creates a controller for one environment.
//
// # Description
//
// Validates the configuration, applies defaults, and wires the runner
// used for every ddev invocation.
//
// # Inputs
//
//   - cfg: Environment configuration (AppRoot required)
//   - proc: Runner for command execution. nil uses the default runner.
//
// # Outputs
//
//   - *DefaultEnvController: Configured controller
//   - error: If configuration is invalid
//
// # Example
//
//	ctl, err := NewDefaultEnvController(EnvConfig{
//	    AppRoot: "/home/dev/drydock-sites/my-site",
//	    Name:    "my-site",
//	}, nil)
//
// # Defaults Applied
//
//   - Name: "drydock"
//   - DefaultTimeout: 5 minutes
//   - StartTimeout: 15 minutes
func NewDefaultEnvController(cfg EnvConfig, proc process.Runner) (*DefaultEnvController, error) {
	if cfg.AppRoot == "" {
		return nil, fmt.Errorf("%w: AppRoot is required", ErrInvalidConfig)
	}

	if cfg.Name == "" {
		cfg.Name = "drydock"
	}
	if cfg.DefaultTimeout == 0 {
		cfg.DefaultTimeout = 5 * time.Minute
	}
	if cfg.StartTimeout == 0 {
		cfg.StartTimeout = 15 * time.Minute
	}
	if proc == nil {
		proc = process.NewDefaultRunner()
	}

	return &DefaultEnvController{
		config: cfg,
		proc:   proc,
	}, nil
}

// Configure writes ddev project configuration into the app root.
func (c *DefaultEnvController) Configure(ctx context.Context, opts ConfigureOptions) (*EnvResult, error) {
	if opts.ProjectType == "" {
		return nil, fmt.Errorf("%w: ProjectType is required", ErrInvalidConfig)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	args := []string{
		"config",
		"--project-type=" + opts.ProjectType,
		"--project-name=" + c.config.Name,
	}
	if opts.Docroot != "" {
		args = append(args, "--docroot="+opts.Docroot)
	}
	if opts.PHPVersion != "" {
		args = append(args, "--php-version="+opts.PHPVersion)
	}

	return c.runDdev(ctx, c.config.AppRoot, args, nil, c.resolveTimeout(opts.Timeout))
}

// Start boots the environment containers.
func (c *DefaultEnvController) Start(ctx context.Context, opts StartOptions) (*EnvResult, error) {
	if err := validateEnvVars(opts.Env); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = c.config.StartTimeout
	}

	return c.runDdev(ctx, c.config.AppRoot, []string{"start", "-y"}, opts.Env, timeout)
}

// Exec runs a command inside an environment container.
func (c *DefaultEnvController) Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("%w: Exec requires a command", ErrInvalidConfig)
	}

	args := []string{"exec"}
	if opts.Service != "" && opts.Service != "web" {
		args = append(args, "--service", opts.Service)
	}
	if opts.Dir != "" {
		args = append(args, "--dir", opts.Dir)
	}
	args = append(args, opts.Command...)

	result, err := c.runDdev(ctx, c.config.AppRoot, args, nil, c.resolveTimeout(opts.Timeout))

	execResult := &ExecResult{}
	if result != nil {
		execResult.ExitCode = result.ExitCode
		execResult.Stdout = result.Stdout
		execResult.Stderr = result.Stderr
	}

	if err != nil && c.isEnvNotRunningError(result) {
		return execResult, fmt.Errorf("%w: %s", ErrEnvNotRunning, c.config.Name)
	}
	return execResult, err
}

// Composer runs a composer command through ddev's composer wrapper.
func (c *DefaultEnvController) Composer(ctx context.Context, opts ComposerOptions) (*ExecResult, error) {
	if len(opts.Args) == 0 {
		return nil, fmt.Errorf("%w: Composer requires arguments", ErrInvalidConfig)
	}

	args := append([]string{"composer"}, opts.Args...)
	result, err := c.runDdev(ctx, c.config.AppRoot, args, nil, c.resolveTimeout(opts.Timeout))

	execResult := &ExecResult{}
	if result != nil {
		execResult.ExitCode = result.ExitCode
		execResult.Stdout = result.Stdout
		execResult.Stderr = result.Stderr
	}
	return execResult, err
}

// Stop halts the environment, optionally removing its registration.
func (c *DefaultEnvController) Stop(ctx context.Context, opts StopOptions) (*EnvResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	args := []string{"stop"}
	if opts.Unlist {
		args = append(args, "--unlist")
	}
	// By name, not app root: stop must work after the workspace is gone.
	args = append(args, c.config.Name)

	return c.runDdev(ctx, "", args, nil, c.resolveTimeout(opts.Timeout))
}

// Describe queries the current state of the environment.
func (c *DefaultEnvController) Describe(ctx context.Context) (*EnvStatus, error) {
	result, err := c.runDdev(ctx, "", []string{"describe", c.config.Name, "-j"}, nil, c.resolveTimeout(0))
	if err != nil {
		if c.isEnvNotFoundError(result) {
			return nil, fmt.Errorf("%w: %s", ErrEnvNotFound, c.config.Name)
		}
		return nil, err
	}

	return parseDescribeOutput(result.Stdout)
}

// Logs streams environment logs to the provided writer.
func (c *DefaultEnvController) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	args := []string{"logs"}
	if opts.Follow {
		args = append(args, "-f")
	}
	if opts.Service != "" {
		args = append(args, "-s", opts.Service)
	}
	if opts.Tail > 0 {
		args = append(args, "--tail", fmt.Sprintf("%d", opts.Tail))
	}
	if opts.Timestamps {
		args = append(args, "--time")
	}
	args = append(args, c.config.Name)

	cmdStr := fmt.Sprintf("ddev %s", strings.Join(args, " "))
	c.logCommand(cmdStr, nil)

	return c.proc.RunStreaming(ctx, "", w, "ddev", args...)
}

// ProjectName returns the configured ddev project name.
func (c *DefaultEnvController) ProjectName() string {
	return c.config.Name
}

// AppRoot returns the directory ddev operations run in.
func (c *DefaultEnvController) AppRoot() string {
	return c.config.AppRoot
}

// -----------------------------------------------------------------------------
// Command Execution
// -----------------------------------------------------------------------------

// runDdev executes a ddev command and wraps the outcome in an EnvResult.
//
// A nonzero exit becomes an error here (callers treat ddev failures as
// operation failures), but the EnvResult still carries the captured
// output so callers can classify what went wrong.
func (c *DefaultEnvController) runDdev(ctx context.Context, dir string, args []string, env map[string]string, timeout time.Duration) (*EnvResult, error) {
	start := time.Now()

	cmdEnv := c.buildCommandEnvironment(env)
	cmdStr := fmt.Sprintf("ddev %s", strings.Join(args, " "))
	c.logCommand(cmdStr, env)

	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	stdout, stderr, exitCode, err := c.proc.RunInDir(execCtx, dir, cmdEnv, "ddev", args...)

	result := &EnvResult{
		Success:  exitCode == 0 && err == nil,
		ExitCode: exitCode,
		Stdout:   stdout,
		Stderr:   stderr,
		Duration: time.Since(start),
		Command:  cmdStr,
	}

	if err != nil {
		return result, fmt.Errorf("ddev command failed: %w", err)
	}
	if exitCode != 0 {
		return result, fmt.Errorf("ddev command exited with code %d: %s", exitCode, strings.TrimSpace(stderr))
	}

	return result, nil
}

// buildCommandEnvironment merges overrides into the inherited environment.
// Returns nil for an empty map so the child simply inherits.
func (c *DefaultEnvController) buildCommandEnvironment(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}

	cmdEnv := os.Environ()
	for k, v := range env {
		cmdEnv = append(cmdEnv, fmt.Sprintf("%s=%s", k, v))
	}
	return cmdEnv
}

func (c *DefaultEnvController) resolveTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return c.config.DefaultTimeout
}

// -----------------------------------------------------------------------------
// Error Classification
// -----------------------------------------------------------------------------

// isEnvNotFoundError reports whether a failed describe means the project
// is simply not registered, as opposed to ddev itself failing.
func (c *DefaultEnvController) isEnvNotFoundError(result *EnvResult) bool {
	if result == nil {
		return false
	}
	combined := strings.ToLower(result.Stderr + " " + result.Stdout)
	return strings.Contains(combined, "could not find") ||
		strings.Contains(combined, "no project found") ||
		strings.Contains(combined, "is not a project")
}

// isEnvNotRunningError reports whether a failed exec means the
// environment is stopped.
func (c *DefaultEnvController) isEnvNotRunningError(result *EnvResult) bool {
	if result == nil {
		return false
	}
	combined := strings.ToLower(result.Stderr + " " + result.Stdout)
	return strings.Contains(combined, "not currently running") ||
		strings.Contains(combined, "try 'ddev start'") ||
		strings.Contains(combined, "project is stopped")
}

// -----------------------------------------------------------------------------
// Describe Parsing
// -----------------------------------------------------------------------------

// ddevDescribePayload matches the JSON envelope `ddev describe -j` emits.
// The interesting data sits under "raw".
type ddevDescribePayload struct {
	Raw struct {
		Name       string `json:"name"`
		Status     string `json:"status"`
		Type       string `json:"type"`
		PrimaryURL string `json:"primary_url"`
		Approot    string `json:"approot"`
		Services   map[string]struct {
			FullName string `json:"full_name"`
			Status   string `json:"status"`
			Image    string `json:"image"`
		} `json:"services"`
	} `json:"raw"`
}

// parseDescribeOutput extracts an EnvStatus from `ddev describe -j` output.
//
// ddev emits JSON log lines around the payload, so each line is tried
// until one carries a raw project description.
func parseDescribeOutput(stdout string) (*EnvStatus, error) {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}

		var payload ddevDescribePayload
		if err := json.Unmarshal([]byte(line), &payload); err != nil {
			continue
		}
		if payload.Raw.Name == "" && payload.Raw.Status == "" {
			continue
		}

		status := &EnvStatus{
			Name:       payload.Raw.Name,
			Status:     payload.Raw.Status,
			Type:       payload.Raw.Type,
			PrimaryURL: payload.Raw.PrimaryURL,
			AppRoot:    payload.Raw.Approot,
		}

		names := make([]string, 0, len(payload.Raw.Services))
		for name := range payload.Raw.Services {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			svc := payload.Raw.Services[name]
			status.Services = append(status.Services, ServiceStatus{
				Name:          name,
				ContainerName: svc.FullName,
				State:         svc.Status,
				Image:         svc.Image,
			})
			if svc.Status == "running" || svc.Status == "healthy" {
				status.Running++
			} else {
				status.Stopped++
			}
		}

		return status, nil
	}

	return nil, fmt.Errorf("no project description in ddev output")
}

// -----------------------------------------------------------------------------
// Command Logging
// -----------------------------------------------------------------------------

func (c *DefaultEnvController) logCommand(cmd string, env map[string]string) {
	attrs := []any{"command", cmd, "project", c.config.Name}
	for k, v := range env {
		if isSensitiveEnvVar(k) {
			attrs = append(attrs, "env_"+k, "[REDACTED]")
		} else {
			attrs = append(attrs, "env_"+k, v)
		}
	}
	slog.Debug("Executing ddev command", attrs...)
}

// =============================================================================
// Mock Implementation
// =============================================================================

// MockEnvController is a test double for EnvController.
//
// # Description
//
// Provides a configurable mock implementation for testing. Each method
// can be configured with a custom function; unset methods return
// success defaults. Tracks calls for verification.
//
// # Example
//
//	mock := &MockEnvController{
//	    StartFunc: func(ctx context.Context, opts StartOptions) (*EnvResult, error) {
//	        return &EnvResult{Success: true}, nil
//	    },
//	}
//	_, _ = mock.Start(ctx, StartOptions{})
//	// len(mock.StartCalls) == 1
type MockEnvController struct {
	ConfigureFunc func(context.Context, ConfigureOptions) (*EnvResult, error)
	StartFunc     func(context.Context, StartOptions) (*EnvResult, error)
	ExecFunc      func(context.Context, ExecOptions) (*ExecResult, error)
	ComposerFunc  func(context.Context, ComposerOptions) (*ExecResult, error)
	StopFunc      func(context.Context, StopOptions) (*EnvResult, error)
	DescribeFunc  func(context.Context) (*EnvStatus, error)
	LogsFunc      func(context.Context, LogsOptions, io.Writer) error

	Name string
	Root string

	ConfigureCalls []ConfigureOptions
	StartCalls     []StartOptions
	ExecCalls      []ExecOptions
	ComposerCalls  []ComposerOptions
	StopCalls      []StopOptions
	DescribeCalls  int
	mu             sync.Mutex
}

// Configure implements EnvController.
func (m *MockEnvController) Configure(ctx context.Context, opts ConfigureOptions) (*EnvResult, error) {
	m.mu.Lock()
	m.ConfigureCalls = append(m.ConfigureCalls, opts)
	m.mu.Unlock()

	if m.ConfigureFunc != nil {
		return m.ConfigureFunc(ctx, opts)
	}
	return &EnvResult{Success: true}, nil
}

// Start implements EnvController.
func (m *MockEnvController) Start(ctx context.Context, opts StartOptions) (*EnvResult, error) {
	m.mu.Lock()
	m.StartCalls = append(m.StartCalls, opts)
	m.mu.Unlock()

	if m.StartFunc != nil {
		return m.StartFunc(ctx, opts)
	}
	return &EnvResult{Success: true}, nil
}

// Exec implements EnvController.
func (m *MockEnvController) Exec(ctx context.Context, opts ExecOptions) (*ExecResult, error) {
	m.mu.Lock()
	m.ExecCalls = append(m.ExecCalls, opts)
	m.mu.Unlock()

	if m.ExecFunc != nil {
		return m.ExecFunc(ctx, opts)
	}
	return &ExecResult{ExitCode: 0}, nil
}

// Composer implements EnvController.
func (m *MockEnvController) Composer(ctx context.Context, opts ComposerOptions) (*ExecResult, error) {
	m.mu.Lock()
	m.ComposerCalls = append(m.ComposerCalls, opts)
	m.mu.Unlock()

	if m.ComposerFunc != nil {
		return m.ComposerFunc(ctx, opts)
	}
	return &ExecResult{ExitCode: 0}, nil
}

// Stop implements EnvController.
func (m *MockEnvController) Stop(ctx context.Context, opts StopOptions) (*EnvResult, error) {
	m.mu.Lock()
	m.StopCalls = append(m.StopCalls, opts)
	m.mu.Unlock()

	if m.StopFunc != nil {
		return m.StopFunc(ctx, opts)
	}
	return &EnvResult{Success: true}, nil
}

// Describe implements EnvController.
func (m *MockEnvController) Describe(ctx context.Context) (*EnvStatus, error) {
	m.mu.Lock()
	m.DescribeCalls++
	m.mu.Unlock()

	if m.DescribeFunc != nil {
		return m.DescribeFunc(ctx)
	}
	return &EnvStatus{Name: m.ProjectName(), Status: "running"}, nil
}

// Logs implements EnvController.
func (m *MockEnvController) Logs(ctx context.Context, opts LogsOptions, w io.Writer) error {
	if m.LogsFunc != nil {
		return m.LogsFunc(ctx, opts, w)
	}
	return nil
}

// ProjectName implements EnvController.
func (m *MockEnvController) ProjectName() string {
	if m.Name != "" {
		return m.Name
	}
	return "drydock"
}

// AppRoot implements EnvController.
func (m *MockEnvController) AppRoot() string {
	if m.Root != "" {
		return m.Root
	}
	return "/tmp/drydock-test"
}

// GetCalls returns a snapshot of all mutating call counts for assertions.
func (m *MockEnvController) GetCalls() (configures, starts, execs, stops int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ConfigureCalls), len(m.StartCalls), len(m.ExecCalls), len(m.StopCalls)
}

// Compile-time interface compliance checks.
var (
	_ EnvController = (*DefaultEnvController)(nil)
	_ EnvController = (*MockEnvController)(nil)
)
