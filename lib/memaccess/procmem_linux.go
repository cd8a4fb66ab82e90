// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package memaccess

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// procMemAccessor does positioned I/O on /proc/self/mem. The file
// descriptor stays open for the life of the process: accessors are
// handed to payloads that have no close hook.
type procMemAccessor struct {
	fd int
}

// OpenProcMem returns the /proc/self/mem accessor.
func OpenProcMem() (Accessor, error) {
	fd, err := unix.Open("/proc/self/mem", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("opening /proc/self/mem: %w", err)
	}
	accessor := &procMemAccessor{fd: fd}
	if err := verify(accessor); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return accessor, nil
}

func (a *procMemAccessor) Method() string { return "proc_mem" }

func (a *procMemAccessor) Read(address uintptr, p []byte) (int, error) {
	n, err := unix.Pread(a.fd, p, int64(address))
	if err != nil {
		return n, fmt.Errorf("pread /proc/self/mem at %#x: %w", address, err)
	}
	return n, nil
}

func (a *procMemAccessor) Write(address uintptr, p []byte) (int, error) {
	n, err := unix.Pwrite(a.fd, p, int64(address))
	if err != nil {
		return n, fmt.Errorf("pwrite /proc/self/mem at %#x: %w", address, err)
	}
	return n, nil
}
