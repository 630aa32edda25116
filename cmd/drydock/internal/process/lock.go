// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package process

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// ProcessLocker defines the interface for provisioning-run locking.
//
// # Description
//
// ProcessLocker prevents multiple provisioning runs from mutating the same
// project simultaneously, avoiding race conditions that could corrupt the
// workspace or leave the environment half-configured.
//
// # Thread Safety
//
// Implementations must be safe for use from a single goroutine. The lock
// itself provides inter-process synchronization, not intra-process.
type ProcessLocker interface {
	// Acquire attempts to get an exclusive lock.
	// Returns nil if lock acquired, error otherwise.
	Acquire() error

	// Release releases the lock if held.
	// Safe to call multiple times or if lock was never acquired.
	Release() error

	// IsHeld returns true if this instance currently holds the lock.
	IsHeld() bool

	// HolderPID returns the PID of the process holding the lock.
	// Returns 0 if no process holds the lock or if unable to determine.
	HolderPID() int
}

// LockConfig configures process lock behavior.
type LockConfig struct {
	// LockDir is the directory for lock files.
	// Default: system temp directory
	LockDir string

	// LockName is the base name for lock files.
	// Default: "drydock"
	LockName string
}

// DefaultLockConfig returns sensible defaults.
//
// Uses the system temp directory and "drydock" as the lock name. This
// ensures the lock file is in a writable location on all platforms.
func DefaultLockConfig() LockConfig {
	return LockConfig{
		LockDir:  os.TempDir(),
		LockName: "drydock",
	}
}

// ProjectLockConfig returns a lock config scoped to a single project.
//
// Two runs against different projects do not contend; two runs against the
// same project do.
func ProjectLockConfig(projectName string) LockConfig {
	name := "drydock"
	if projectName != "" {
		name = "drydock-" + projectName
	}
	return LockConfig{
		LockDir:  os.TempDir(),
		LockName: name,
	}
}

// ProcessLock implements ProcessLocker using file-based locking.
//
// # Description
//
// Uses flock(2) for advisory file locking. This prevents multiple drydock
// runs from mutating the same project simultaneously, avoiding races like:
//
//   - Terminal A: `drydock up` (waiting for the database container)
//   - Terminal B: `drydock teardown` (deletes the workspace A is installing into)
//
// # How It Works
//
//  1. Creates a lock file at {LockDir}/{LockName}.lock
//  2. Attempts exclusive flock on the file
//  3. Writes PID to {LockDir}/{LockName}.pid for debugging
//  4. On release, removes PID file and releases flock
//
// # Thread Safety
//
// ProcessLock is NOT safe for concurrent use from multiple goroutines.
// Use from a single goroutine (typically main).
//
// # Limitations
//
//   - Advisory lock only - other processes can ignore it if they don't check
//   - NFS and some network filesystems don't support flock properly
//   - Lock survives if process crashes without calling Release (OS releases flock)
type ProcessLock struct {
	config   LockConfig
	lockPath string
	pidPath  string
	lockFile *os.File
	held     bool
}

// NewProcessLock creates a new process lock. Does not acquire it.
func NewProcessLock(config LockConfig) *ProcessLock {
	if config.LockDir == "" {
		config.LockDir = os.TempDir()
	}
	if config.LockName == "" {
		config.LockName = "drydock"
	}

	return &ProcessLock{
		config:   config,
		lockPath: filepath.Join(config.LockDir, config.LockName+".lock"),
		pidPath:  filepath.Join(config.LockDir, config.LockName+".pid"),
	}
}

// Acquire attempts to get an exclusive lock.
//
// # Description
//
// Uses a non-blocking flock to try to acquire the lock. If another process
// holds the lock, returns an *ErrLockHeld carrying the holder PID when it
// can be determined.
//
// # Outputs
//
//   - error: nil if lock acquired, *ErrLockHeld or wrapped error otherwise
func (p *ProcessLock) Acquire() error {
	if p.held {
		return nil // Already held
	}

	f, err := os.OpenFile(p.lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to create lock file %s: %w", p.lockPath, err)
	}

	// Try non-blocking exclusive lock
	err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err != nil {
		f.Close()

		if errors.Is(err, unix.EWOULDBLOCK) {
			return &ErrLockHeld{
				HolderPID: p.readHolderPID(),
				LockPath:  p.lockPath,
			}
		}

		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	p.lockFile = f
	p.held = true

	// Write our PID for debugging. Failure is non-fatal, the flock is held.
	_ = p.writePID()

	return nil
}

// Release releases the lock if held.
//
// Removes the PID file and releases the flock. Safe to call multiple times
// or if the lock was never acquired.
func (p *ProcessLock) Release() error {
	if !p.held || p.lockFile == nil {
		return nil
	}

	// Remove PID file first
	os.Remove(p.pidPath)

	err := unix.Flock(int(p.lockFile.Fd()), unix.LOCK_UN)

	// Close file (also releases lock if flock failed)
	p.lockFile.Close()
	p.lockFile = nil
	p.held = false

	// Lock file is left in place for faster subsequent acquires.

	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	return nil
}

// IsHeld returns true if this instance currently holds the lock.
//
// Checks local state only, useful for conditional cleanup in defer blocks.
func (p *ProcessLock) IsHeld() bool {
	return p.held
}

// HolderPID returns the PID of the process holding the lock.
//
// Reads the PID file to determine which process holds the lock. Returns 0
// if no PID file exists or if unable to read it. May return a stale PID if
// the holder crashed without cleanup.
func (p *ProcessLock) HolderPID() int {
	return p.readHolderPID()
}

// writePID writes the current process PID to the PID file.
func (p *ProcessLock) writePID() error {
	pid := os.Getpid()
	content := fmt.Sprintf("%d\n", pid)
	return os.WriteFile(p.pidPath, []byte(content), 0644)
}

// readHolderPID reads the PID from the PID file.
func (p *ProcessLock) readHolderPID() int {
	data, err := os.ReadFile(p.pidPath)
	if err != nil {
		return 0
	}

	pidStr := strings.TrimSpace(string(data))
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return 0
	}

	return pid
}

// LockPath returns the path to the lock file.
func (p *ProcessLock) LockPath() string {
	return p.lockPath
}

// PIDPath returns the path to the PID file.
func (p *ProcessLock) PIDPath() string {
	return p.pidPath
}

// ErrLockHeld is returned when the lock is held by another process.
type ErrLockHeld struct {
	HolderPID int
	LockPath  string
}

// Error implements the error interface.
func (e *ErrLockHeld) Error() string {
	if e.HolderPID > 0 {
		return fmt.Sprintf("another drydock run is in progress (PID %d). If this is stale, remove %s", e.HolderPID, e.LockPath)
	}
	return fmt.Sprintf("another drydock run is in progress (check: lsof %s)", e.LockPath)
}

// Compile-time interface satisfaction check
var _ ProcessLocker = (*ProcessLock)(nil)
