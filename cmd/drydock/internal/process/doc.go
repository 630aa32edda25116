// Copyright (C) 2025 Drydock Labs (eng@drydocklabs.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

/*
Package process provides abstractions for external process execution and
inter-process synchronization.

# Overview

This package contains two main components:

  - Runner: Abstracts external process execution for testability
  - ProcessLocker: File-based locking to prevent concurrent provisioning runs

# Runner

Runner enables testable interaction with the operating system's process
management capabilities. All exec.Command calls should go through this
interface to enable mocking in unit tests.

	runner := process.NewDefaultRunner()
	output, err := runner.Run(ctx, "ddev", "--version")
	if err != nil {
	    return fmt.Errorf("failed to query ddev: %w", err)
	}

For testing, use MockRunner:

	mock := &process.MockRunner{
	    RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, error) {
	        return []byte("mock output"), nil
	    },
	}

# ProcessLocker

ProcessLocker prevents two provisioning runs from mutating the same project
simultaneously, avoiding race conditions like one terminal resetting the
workspace while another is mid-install. Uses flock(2) for advisory file
locking.

	lock := process.NewProcessLock(process.ProjectLockConfig("my-site"))
	if err := lock.Acquire(); err != nil {
	    fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	    os.Exit(1)
	}
	defer lock.Release()

# Thread Safety

  - Runner implementations are safe for concurrent use
  - ProcessLocker is NOT safe for concurrent use from multiple goroutines

# Limitations

  - ProcessLocker uses advisory locks - other processes can ignore if not checking
  - ProcessLocker requires OS support for flock(2)
*/
package process
