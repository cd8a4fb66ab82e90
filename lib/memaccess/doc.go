// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package memaccess gives an injected payload raw read/write access to
// its host process's address space.
//
// A [Provider] tries a primary accessor and falls back to a second one
// when the first cannot be opened. On Linux the primary is
// process_vm_readv/process_vm_writev against the process's own pid;
// the fallback is positioned I/O on /proc/self/mem. When neither works
// (seccomp filters, hardened kernels, other platforms) Acquire returns
// nil and the payload runs without the capability. A missing accessor
// is never an error for the bootstrap.
//
// Accessors perform no validation: reading or writing an unmapped or
// protected address returns an error from the kernel, and writing a
// mapped one changes the running program.
package memaccess
