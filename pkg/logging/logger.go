// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging provides structured logging for drydock components.
//
// The logger is a thin layer over the standard library slog package with
// two destinations:
//
//   - stderr (default): human-readable text, following Unix CLI conventions
//   - log file (optional): JSON lines under a log directory, one file per
//     service per day
//
// # Basic Usage
//
//	logger := logging.Default()
//	logger.Info("environment started", "project", name)
//	logger.Warn("readiness wait timed out", "container", ref)
//
// # File Logging
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    LogDir:  "~/.drydock/logs",
//	    Service: "cli",
//	})
//	defer logger.Close()
//
// # Run Correlation
//
// Provisioning runs attach their run ID once and every subsequent line
// carries it:
//
//	runLogger := logger.With("run_id", runID)
//
// # Thread Safety
//
// Logger is safe for concurrent use. The underlying slog handlers are
// thread-safe and mutable state is mutex-protected.
//
// This package does not redact values. Callers must not log secrets.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// =============================================================================
// Log Levels
// =============================================================================

// Level represents log severity, ordered Debug < Info < Warn < Error.
// Setting a minimum level discards everything below it.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational events.
	LevelInfo

	// LevelWarn is for recoverable problems the run continues past.
	LevelWarn

	// LevelError is for operation failures.
	LevelError
)

// String returns "DEBUG", "INFO", "WARN", "ERROR", or "UNKNOWN".
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a level name to a Level. Matching is
// case-insensitive; unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// toSlogLevel bridges Level to the standard library.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// =============================================================================
// Configuration
// =============================================================================

// Config configures Logger behavior. The zero value produces an Info-level
// text logger on stderr.
type Config struct {
	// Level is the minimum level written. Default: LevelInfo.
	Level Level

	// LogDir enables file logging when set. Files are named
	// "{Service}_{YYYY-MM-DD}.log" and always JSON regardless of the
	// stderr format. Supports "~" expansion. Default: disabled.
	LogDir string

	// Service is attached to every entry as the "service" attribute.
	// Default: no attribute.
	Service string

	// JSON switches the stderr destination to JSON lines.
	// Default: human-readable text.
	JSON bool

	// Quiet disables the stderr destination. File logging, if
	// configured, still receives entries.
	Quiet bool

	// Writer overrides the stderr destination. Intended for tests that
	// assert on log output. Ignored when Quiet is set.
	Writer io.Writer
}

// =============================================================================
// Logger
// =============================================================================

// Logger wraps slog.Logger with multi-destination output and cleanup.
//
// Always Close() a logger that has file logging configured:
//
//	logger := logging.New(cfg)
//	defer logger.Close()
type Logger struct {
	slog   *slog.Logger
	config Config
	file   *os.File
	mu     sync.Mutex
}

// New creates a Logger from the configuration. Failure to open the log
// file degrades to stderr-only rather than erroring; a provisioning run
// must not die because its log directory is unwritable.
func New(config Config) *Logger {
	opts := &slog.HandlerOptions{
		Level: config.Level.toSlogLevel(),
	}

	var handlers []slog.Handler

	if !config.Quiet {
		dst := io.Writer(os.Stderr)
		if config.Writer != nil {
			dst = config.Writer
		}
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(dst, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(dst, opts))
		}
	}

	logger := &Logger{config: config}

	if config.LogDir != "" {
		if file := openLogFile(config); file != nil {
			logger.file = file
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(os.Stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{
			slog.String("service", config.Service),
		})
	}

	logger.slog = slog.New(handler)
	return logger
}

// Default returns an Info-level stderr logger with service "drydock".
func Default() *Logger {
	return New(Config{
		Level:   LevelInfo,
		Service: "drydock",
	})
}

// Discard returns a logger that writes nowhere. Useful as a safe default
// in constructors that accept an optional logger.
func Discard() *Logger {
	return New(Config{Quiet: true, Writer: io.Discard})
}

// Debug logs at Debug level with slog-style key-value args.
func (l *Logger) Debug(msg string, args ...any) {
	l.slog.Debug(msg, args...)
}

// Info logs at Info level with slog-style key-value args.
func (l *Logger) Info(msg string, args ...any) {
	l.slog.Info(msg, args...)
}

// Warn logs at Warn level with slog-style key-value args.
func (l *Logger) Warn(msg string, args ...any) {
	l.slog.Warn(msg, args...)
}

// Error logs at Error level with slog-style key-value args.
func (l *Logger) Error(msg string, args ...any) {
	l.slog.Error(msg, args...)
}

// With returns a child Logger carrying additional attributes. The parent
// is not modified; the file handle is shared, so only the root logger
// should be closed.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		slog:   l.slog.With(args...),
		config: l.config,
		file:   l.file,
	}
}

// Slog exposes the underlying slog.Logger for callers that need features
// this wrapper does not surface.
func (l *Logger) Slog() *slog.Logger {
	return l.slog
}

// Close syncs and closes the log file if one is open. Safe to call on a
// stderr-only logger.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	var errs []error
	if err := l.file.Sync(); err != nil {
		errs = append(errs, fmt.Errorf("sync log file: %w", err))
	}
	if err := l.file.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close log file: %w", err))
	}
	l.file = nil

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// openLogFile opens today's log file for append, creating the directory
// as needed. Returns nil on any failure.
func openLogFile(config Config) *os.File {
	logDir := expandPath(config.LogDir)
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return nil
	}

	service := config.Service
	if service == "" {
		service = "drydock"
	}
	filename := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))

	file, err := os.OpenFile(filepath.Join(logDir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil
	}
	return file
}

// =============================================================================
// Multi-Handler (Internal)
// =============================================================================

// multiHandler fans out records to several slog handlers, enabling
// simultaneous text-on-stderr and JSON-in-file output.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
