// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package envctl contains unit tests for the ddev controller.

# Testing Strategy

Every ddev invocation goes through process.Runner, so the tests inject a
process.MockRunner and assert on the argument vectors the controller
builds, never on a real ddev binary. Describe parsing is tested against
captured ddev describe -j output shapes.
*/
package envctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/drydocklabs/drydock/cmd/drydock/internal/process"
)

// capturingRunner returns a MockRunner that records each RunInDir
// invocation into the provided slices and reports success.
func capturingRunner(dirs *[]string, argLists *[][]string, envs *[][]string) *process.MockRunner {
	return &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			*dirs = append(*dirs, dir)
			*argLists = append(*argLists, args)
			*envs = append(*envs, env)
			return "", "", 0, nil
		},
	}
}

func newTestController(t *testing.T, proc process.Runner) *DefaultEnvController {
	t.Helper()
	ctl, err := NewDefaultEnvController(EnvConfig{
		AppRoot: "/work/my-site",
		Name:    "my-site",
	}, proc)
	if err != nil {
		t.Fatalf("NewDefaultEnvController() error = %v", err)
	}
	return ctl
}

func assertArgs(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q (full: %v)", i, got[i], want[i], got)
		}
	}
}

// =============================================================================
// Constructor Tests
// =============================================================================

func TestNewDefaultEnvController_RequiresAppRoot(t *testing.T) {
	_, err := NewDefaultEnvController(EnvConfig{}, nil)
	if err == nil {
		t.Fatal("expected error for missing AppRoot")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestNewDefaultEnvController_Defaults(t *testing.T) {
	ctl, err := NewDefaultEnvController(EnvConfig{AppRoot: "/work/site"}, &process.MockRunner{})
	if err != nil {
		t.Fatalf("NewDefaultEnvController() error = %v", err)
	}

	if got := ctl.ProjectName(); got != "drydock" {
		t.Errorf("ProjectName() = %q, want %q", got, "drydock")
	}
	if got := ctl.AppRoot(); got != "/work/site" {
		t.Errorf("AppRoot() = %q, want %q", got, "/work/site")
	}
}

// =============================================================================
// Configure Tests
// =============================================================================

func TestConfigure_BuildsArgs(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	result, err := ctl.Configure(context.Background(), ConfigureOptions{
		ProjectType: "drupal11",
		Docroot:     "web",
	})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}
	if !result.Success {
		t.Error("result.Success = false, want true")
	}

	if len(argLists) != 1 {
		t.Fatalf("got %d ddev invocations, want 1", len(argLists))
	}
	if dirs[0] != "/work/my-site" {
		t.Errorf("dir = %q, want app root", dirs[0])
	}

	want := []string{"config", "--project-type=drupal11", "--project-name=my-site", "--docroot=web"}
	assertArgs(t, argLists[0], want)

	if result.Command != "ddev config --project-type=drupal11 --project-name=my-site --docroot=web" {
		t.Errorf("result.Command = %q", result.Command)
	}
}

func TestConfigure_PHPVersionFlag(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Configure(context.Background(), ConfigureOptions{
		ProjectType: "laravel",
		PHPVersion:  "8.3",
	})
	if err != nil {
		t.Fatalf("Configure() error = %v", err)
	}

	want := []string{"config", "--project-type=laravel", "--project-name=my-site", "--php-version=8.3"}
	assertArgs(t, argLists[0], want)
}

func TestConfigure_RequiresProjectType(t *testing.T) {
	ctl := newTestController(t, &process.MockRunner{})

	_, err := ctl.Configure(context.Background(), ConfigureOptions{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

// =============================================================================
// Start Tests
// =============================================================================

func TestStart_PassesYesFlag(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Start(context.Background(), StartOptions{})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	assertArgs(t, argLists[0], []string{"start", "-y"})
	if dirs[0] != "/work/my-site" {
		t.Errorf("dir = %q, want app root", dirs[0])
	}
	if envs[0] != nil {
		t.Error("env should be nil when no overrides are given")
	}
}

func TestStart_InjectsEnvironment(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Start(context.Background(), StartOptions{
		Env: map[string]string{"COMPOSER_MEMORY_LIMIT": "-1"},
	})
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if envs[0] == nil {
		t.Fatal("env should be populated when overrides are given")
	}
	found := false
	for _, kv := range envs[0] {
		if kv == "COMPOSER_MEMORY_LIMIT=-1" {
			found = true
		}
	}
	if !found {
		t.Error("injected variable missing from command environment")
	}
}

func TestStart_RejectsInvalidEnvKey(t *testing.T) {
	ctl := newTestController(t, &process.MockRunner{})

	_, err := ctl.Start(context.Background(), StartOptions{
		Env: map[string]string{"BAD-KEY": "value"},
	})
	if !errors.Is(err, ErrInvalidEnvVar) {
		t.Errorf("error = %v, want ErrInvalidEnvVar", err)
	}
}

// =============================================================================
// Exec Tests
// =============================================================================

func TestExec_DefaultService(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Exec(context.Background(), ExecOptions{
		Command: []string{"composer", "install", "--no-interaction"},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	// The web service is ddev's default, no --service flag needed.
	assertArgs(t, argLists[0], []string{"exec", "composer", "install", "--no-interaction"})
}

func TestExec_ServiceAndDirFlags(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Exec(context.Background(), ExecOptions{
		Service: "db",
		Dir:     "/var/www/html",
		Command: []string{"mysql", "-e", "SELECT 1"},
	})
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	want := []string{"exec", "--service", "db", "--dir", "/var/www/html", "mysql", "-e", "SELECT 1"}
	assertArgs(t, argLists[0], want)
}

func TestExec_RequiresCommand(t *testing.T) {
	ctl := newTestController(t, &process.MockRunner{})

	_, err := ctl.Exec(context.Background(), ExecOptions{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestExec_NonzeroExit(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "partial output", "composer failed", 2, nil
		},
	}
	ctl := newTestController(t, proc)

	result, err := ctl.Exec(context.Background(), ExecOptions{
		Command: []string{"composer", "install"},
	})
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if !strings.Contains(err.Error(), "exited with code 2") {
		t.Errorf("error = %v, want exit code mention", err)
	}

	if result == nil {
		t.Fatal("result should carry captured output even on failure")
	}
	if result.ExitCode != 2 {
		t.Errorf("ExitCode = %d, want 2", result.ExitCode)
	}
	if result.Stdout != "partial output" {
		t.Errorf("Stdout = %q", result.Stdout)
	}
	if result.Stderr != "composer failed" {
		t.Errorf("Stderr = %q", result.Stderr)
	}
}

func TestExec_StoppedEnvironmentMapped(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", "Project is not currently running. Try 'ddev start'.", 1, nil
		},
	}
	ctl := newTestController(t, proc)

	_, err := ctl.Exec(context.Background(), ExecOptions{
		Command: []string{"true"},
	})
	if !errors.Is(err, ErrEnvNotRunning) {
		t.Errorf("error = %v, want ErrEnvNotRunning", err)
	}
	if !strings.Contains(err.Error(), "my-site") {
		t.Errorf("error should name the project, got %v", err)
	}
}

// =============================================================================
// Composer Tests
// =============================================================================

func TestComposer_WrapsArgs(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Composer(context.Background(), ComposerOptions{
		Args: []string{"create-project", "laravel/laravel", "--no-interaction"},
	})
	if err != nil {
		t.Fatalf("Composer() error = %v", err)
	}

	want := []string{"composer", "create-project", "laravel/laravel", "--no-interaction"}
	assertArgs(t, argLists[0], want)
	if dirs[0] != "/work/my-site" {
		t.Errorf("dir = %q, composer must run in the app root", dirs[0])
	}
}

func TestComposer_RequiresArgs(t *testing.T) {
	ctl := newTestController(t, &process.MockRunner{})

	_, err := ctl.Composer(context.Background(), ComposerOptions{})
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestComposer_NonzeroExitKeepsOutput(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", "Could not find package laravel/laravle", 1, nil
		},
	}
	ctl := newTestController(t, proc)

	result, err := ctl.Composer(context.Background(), ComposerOptions{
		Args: []string{"create-project", "laravel/laravle"},
	})
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if result == nil || result.ExitCode != 1 {
		t.Errorf("result = %+v, want exit code 1 preserved", result)
	}
}

// =============================================================================
// Stop Tests
// =============================================================================

func TestStop_ByNameWithUnlist(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Stop(context.Background(), StopOptions{Unlist: true})
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	assertArgs(t, argLists[0], []string{"stop", "--unlist", "my-site"})
	if dirs[0] != "" {
		t.Errorf("dir = %q, stop should not depend on the app root", dirs[0])
	}
}

func TestStop_WithoutUnlist(t *testing.T) {
	var dirs []string
	var argLists [][]string
	var envs [][]string
	ctl := newTestController(t, capturingRunner(&dirs, &argLists, &envs))

	_, err := ctl.Stop(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}

	assertArgs(t, argLists[0], []string{"stop", "my-site"})
}

// =============================================================================
// Describe Tests
// =============================================================================

const describePayload = `{"level":"info","msg":"ok","raw":{"approot":"/work/my-site","name":"my-site","primary_url":"https://my-site.ddev.site","status":"running","type":"drupal11","services":{"web":{"full_name":"ddev-my-site-web","status":"running","image":"ddev/ddev-webserver:v1.24"},"db":{"full_name":"ddev-my-site-db","status":"running","image":"mariadb:10.11"}}}}`

func TestDescribe_ParsesPayload(t *testing.T) {
	var dirs []string
	var argLists [][]string
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			dirs = append(dirs, dir)
			argLists = append(argLists, args)
			return describePayload + "\n", "", 0, nil
		},
	}
	ctl := newTestController(t, proc)

	status, err := ctl.Describe(context.Background())
	if err != nil {
		t.Fatalf("Describe() error = %v", err)
	}

	assertArgs(t, argLists[0], []string{"describe", "my-site", "-j"})
	if dirs[0] != "" {
		t.Errorf("dir = %q, describe should not depend on the app root", dirs[0])
	}

	if status.Name != "my-site" {
		t.Errorf("Name = %q", status.Name)
	}
	if status.Status != "running" {
		t.Errorf("Status = %q", status.Status)
	}
	if status.Type != "drupal11" {
		t.Errorf("Type = %q", status.Type)
	}
	if status.PrimaryURL != "https://my-site.ddev.site" {
		t.Errorf("PrimaryURL = %q", status.PrimaryURL)
	}
	if status.Running != 2 || status.Stopped != 0 {
		t.Errorf("Running/Stopped = %d/%d, want 2/0", status.Running, status.Stopped)
	}

	if len(status.Services) != 2 {
		t.Fatalf("got %d services, want 2", len(status.Services))
	}
	// Sorted by name: db before web.
	if status.Services[0].Name != "db" || status.Services[1].Name != "web" {
		t.Errorf("service order = %q, %q", status.Services[0].Name, status.Services[1].Name)
	}
	if status.Services[0].ContainerName != "ddev-my-site-db" {
		t.Errorf("db ContainerName = %q", status.Services[0].ContainerName)
	}
}

func TestDescribe_NotFoundMapped(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", `Failed to describe project my-site: could not find requested project "my-site"`, 1, nil
		},
	}
	ctl := newTestController(t, proc)

	_, err := ctl.Describe(context.Background())
	if !errors.Is(err, ErrEnvNotFound) {
		t.Errorf("error = %v, want ErrEnvNotFound", err)
	}
}

func TestDescribe_OtherFailureNotMapped(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", "docker daemon unreachable", 1, nil
		},
	}
	ctl := newTestController(t, proc)

	_, err := ctl.Describe(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrEnvNotFound) {
		t.Error("daemon failure must not look like a missing project")
	}
}

func TestParseDescribeOutput_SkipsLogLines(t *testing.T) {
	stdout := `{"level":"info","msg":"Starting describe"}` + "\n" +
		"plain text line\n" +
		describePayload + "\n"

	status, err := parseDescribeOutput(stdout)
	if err != nil {
		t.Fatalf("parseDescribeOutput() error = %v", err)
	}
	if status.Name != "my-site" {
		t.Errorf("Name = %q", status.Name)
	}
}

func TestParseDescribeOutput_CountsStoppedServices(t *testing.T) {
	stdout := `{"raw":{"name":"my-site","status":"paused","services":{"web":{"full_name":"ddev-my-site-web","status":"exited"},"db":{"full_name":"ddev-my-site-db","status":"running"}}}}`

	status, err := parseDescribeOutput(stdout)
	if err != nil {
		t.Fatalf("parseDescribeOutput() error = %v", err)
	}
	if status.Running != 1 || status.Stopped != 1 {
		t.Errorf("Running/Stopped = %d/%d, want 1/1", status.Running, status.Stopped)
	}
}

func TestParseDescribeOutput_NoPayload(t *testing.T) {
	_, err := parseDescribeOutput("no json here\n")
	if err == nil {
		t.Fatal("expected error for output without a project payload")
	}
}

// =============================================================================
// Logs Tests
// =============================================================================

func TestLogs_BuildsArgsAndStreams(t *testing.T) {
	var gotArgs []string
	proc := &process.MockRunner{
		RunStreamingFunc: func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
			gotArgs = args
			fmt.Fprintln(w, "web log line")
			return nil
		},
	}
	ctl := newTestController(t, proc)

	var buf bytes.Buffer
	err := ctl.Logs(context.Background(), LogsOptions{
		Follow:     true,
		Service:    "web",
		Tail:       50,
		Timestamps: true,
	}, &buf)
	if err != nil {
		t.Fatalf("Logs() error = %v", err)
	}

	want := []string{"logs", "-f", "-s", "web", "--tail", "50", "--time", "my-site"}
	assertArgs(t, gotArgs, want)

	if !strings.Contains(buf.String(), "web log line") {
		t.Errorf("output = %q, want streamed line", buf.String())
	}
}

func TestLogs_MinimalArgs(t *testing.T) {
	var gotArgs []string
	proc := &process.MockRunner{
		RunStreamingFunc: func(ctx context.Context, dir string, w io.Writer, name string, args ...string) error {
			gotArgs = args
			return nil
		},
	}
	ctl := newTestController(t, proc)

	if err := ctl.Logs(context.Background(), LogsOptions{}, &bytes.Buffer{}); err != nil {
		t.Fatalf("Logs() error = %v", err)
	}
	assertArgs(t, gotArgs, []string{"logs", "my-site"})
}

// =============================================================================
// Failure Path Tests
// =============================================================================

func TestRunDdev_StartFailureWrapped(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			return "", "", -1, errors.New("exec: ddev: executable file not found")
		},
	}
	ctl := newTestController(t, proc)

	result, err := ctl.Start(context.Background(), StartOptions{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "ddev command failed") {
		t.Errorf("error = %v", err)
	}
	if result == nil || result.Success {
		t.Error("result should report failure")
	}
}

func TestRunDdev_RecordsDuration(t *testing.T) {
	proc := &process.MockRunner{
		RunInDirFunc: func(ctx context.Context, dir string, env []string, name string, args ...string) (string, string, int, error) {
			time.Sleep(10 * time.Millisecond)
			return "", "", 0, nil
		},
	}
	ctl := newTestController(t, proc)

	result, err := ctl.Stop(context.Background(), StopOptions{})
	if err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if result.Duration <= 0 {
		t.Error("Duration should be positive")
	}
}

// =============================================================================
// Mock Tests
// =============================================================================

func TestMockEnvController_Defaults(t *testing.T) {
	mock := &MockEnvController{}
	ctx := context.Background()

	result, err := mock.Start(ctx, StartOptions{})
	if err != nil || !result.Success {
		t.Errorf("Start() = %+v, %v, want success default", result, err)
	}

	execResult, err := mock.Exec(ctx, ExecOptions{Command: []string{"true"}})
	if err != nil || execResult.ExitCode != 0 {
		t.Errorf("Exec() = %+v, %v, want zero exit default", execResult, err)
	}

	status, err := mock.Describe(ctx)
	if err != nil || status.Status != "running" {
		t.Errorf("Describe() = %+v, %v, want running default", status, err)
	}

	if got := mock.ProjectName(); got != "drydock" {
		t.Errorf("ProjectName() = %q, want default", got)
	}
}

func TestMockEnvController_RecordsCalls(t *testing.T) {
	mock := &MockEnvController{Name: "my-site"}
	ctx := context.Background()

	_, _ = mock.Configure(ctx, ConfigureOptions{ProjectType: "laravel"})
	_, _ = mock.Start(ctx, StartOptions{})
	_, _ = mock.Exec(ctx, ExecOptions{Command: []string{"true"}})
	_, _ = mock.Exec(ctx, ExecOptions{Command: []string{"false"}})
	_, _ = mock.Composer(ctx, ComposerOptions{Args: []string{"install"}})
	_, _ = mock.Stop(ctx, StopOptions{Unlist: true})

	configures, starts, execs, stops := mock.GetCalls()
	if configures != 1 || starts != 1 || execs != 2 || stops != 1 {
		t.Errorf("GetCalls() = %d/%d/%d/%d, want 1/1/2/1", configures, starts, execs, stops)
	}

	if mock.ConfigureCalls[0].ProjectType != "laravel" {
		t.Errorf("ConfigureCalls[0].ProjectType = %q", mock.ConfigureCalls[0].ProjectType)
	}
	if len(mock.ComposerCalls) != 1 || mock.ComposerCalls[0].Args[0] != "install" {
		t.Errorf("ComposerCalls = %+v, want one install call", mock.ComposerCalls)
	}
	if !mock.StopCalls[0].Unlist {
		t.Error("StopCalls[0].Unlist = false, want true")
	}
}

// =============================================================================
// Interface Compliance Tests
// =============================================================================

func TestEnvController_InterfaceCompliance(t *testing.T) {
	var _ EnvController = (*DefaultEnvController)(nil)
	var _ EnvController = (*MockEnvController)(nil)
}
