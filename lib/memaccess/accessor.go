// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package memaccess

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"unsafe"
)

// Accessor reads and writes memory at absolute addresses in the
// current process.
type Accessor interface {
	// Read copies len(p) bytes starting at address into p.
	Read(address uintptr, p []byte) (int, error)

	// Write copies p to address.
	Write(address uintptr, p []byte) (int, error)

	// Method names the mechanism, for logs and reports.
	Method() string
}

// ErrUnsupported is returned by openers on platforms without the
// mechanism.
var ErrUnsupported = errors.New("raw memory access is not supported on this platform")

// Opener opens one accessor tier.
type Opener func() (Accessor, error)

// Provider acquires an accessor from a primary tier with a fallback.
type Provider struct {
	Primary  Opener
	Fallback Opener
	Logger   *slog.Logger
}

// DefaultProvider returns the platform's two-tier provider.
func DefaultProvider(logger *slog.Logger) *Provider {
	return &Provider{
		Primary:  OpenVM,
		Fallback: OpenProcMem,
		Logger:   logger,
	}
}

// Acquire returns the first accessor that opens, or nil when both
// tiers fail. Failures are logged, never returned.
func (p *Provider) Acquire() Accessor {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var primaryErr error
	if p.Primary != nil {
		accessor, err := p.Primary()
		if err == nil {
			return accessor
		}
		primaryErr = err
		logger.Debug("primary memory accessor unavailable", "error", err)
	}

	if p.Fallback != nil {
		accessor, err := p.Fallback()
		if err == nil {
			logger.Info("using fallback memory accessor", "method", accessor.Method(), "primary_error", primaryErr)
			return accessor
		}
		logger.Warn("no memory accessor available", "primary_error", primaryErr, "fallback_error", err)
		return nil
	}

	logger.Warn("no memory accessor available", "primary_error", primaryErr)
	return nil
}

// verify round-trips a read of a known local value through accessor,
// so that an opener fails up front instead of on first use.
func verify(accessor Accessor) error {
	probe := [8]byte{'l', 'i', 'a', 'i', 's', 'o', 'n', '!'}
	var buffer [8]byte

	n, err := accessor.Read(uintptr(unsafe.Pointer(&probe[0])), buffer[:])
	runtime.KeepAlive(&probe)
	if err != nil {
		return fmt.Errorf("%s: probe read: %w", accessor.Method(), err)
	}
	if n != len(buffer) || buffer != probe {
		return fmt.Errorf("%s: probe read returned wrong bytes", accessor.Method())
	}
	return nil
}
