// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build linux

package memaccess

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// vmAccessor uses process_vm_readv/process_vm_writev on the current
// pid. The kernel checks the address range and reports EFAULT instead
// of faulting the process.
type vmAccessor struct {
	pid int
}

// OpenVM returns the process_vm_readv/writev accessor after checking
// that the syscalls are permitted.
func OpenVM() (Accessor, error) {
	accessor := &vmAccessor{pid: os.Getpid()}
	if err := verify(accessor); err != nil {
		return nil, err
	}
	return accessor, nil
}

func (a *vmAccessor) Method() string { return "process_vm" }

func (a *vmAccessor) Read(address uintptr, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))
	remote := []unix.RemoteIovec{{Base: address, Len: len(p)}}

	n, err := unix.ProcessVMReadv(a.pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("process_vm_readv at %#x: %w", address, err)
	}
	return n, nil
}

func (a *vmAccessor) Write(address uintptr, p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	local := []unix.Iovec{{Base: &p[0]}}
	local[0].SetLen(len(p))
	remote := []unix.RemoteIovec{{Base: address, Len: len(p)}}

	n, err := unix.ProcessVMWritev(a.pid, local, remote, 0)
	if err != nil {
		return n, fmt.Errorf("process_vm_writev at %#x: %w", address, err)
	}
	return n, nil
}
