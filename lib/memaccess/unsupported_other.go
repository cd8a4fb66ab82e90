// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

//go:build !linux

package memaccess

// OpenVM is unavailable outside Linux.
func OpenVM() (Accessor, error) { return nil, ErrUnsupported }

// OpenProcMem is unavailable outside Linux.
func OpenProcMem() (Accessor, error) { return nil, ErrUnsupported }
