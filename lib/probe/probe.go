// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"unsafe"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
	"github.com/bureau-foundation/liaison/lib/remote"
)

const (
	StrategyName          = "liaison/probe"
	ReporterInterfaceName = "liaison/probe-reporter"
)

func init() {
	agent.RegisterStrategy(StrategyName, Strategy{})
	remote.RegisterInterface[Reporter](ReporterInterfaceName, "", func(stub remote.Stub) Reporter {
		return reporterProxy{stub}
	})
}

// Reporter receives probe results. The controller's Collector
// implements it; targets call it through a proxy.
type Reporter interface {
	Report(ctx context.Context, report Report) error
	AttachFailed(ctx context.Context, failure Failure) error
}

type reporterProxy struct{ remote.Stub }

func (p reporterProxy) Report(ctx context.Context, report Report) error {
	return p.Call(ctx, "Report", report, nil)
}

func (p reporterProxy) AttachFailed(ctx context.Context, failure Failure) error {
	return p.Call(ctx, "AttachFailed", failure, nil)
}

// Report is what one target found.
type Report struct {
	Label          string              `cbor:"label"`
	PID            int                 `cbor:"pid"`
	Name           string              `cbor:"name"`
	Snapshot       instrument.Snapshot `cbor:"snapshot"`
	Units          []string            `cbor:"units"`
	VisibleTypes   []string            `cbor:"visible_types"`
	MemoryMethod   string              `cbor:"memory_method,omitempty"`
	MemoryVerified bool                `cbor:"memory_verified"`
	MemoryError    string              `cbor:"memory_error,omitempty"`
}

// Failure is a target the agent could not be loaded into.
type Failure struct {
	Label  string            `cbor:"label"`
	Target attach.Descriptor `cbor:"target"`
	Cause  string            `cbor:"cause"`
}

// Strategy probes each target and reports to a Reporter callback.
type Strategy struct {
	Label string `cbor:"label"`
}

func (s Strategy) InvokeCallback(ctx context.Context, callback any, inst instrument.Instrumentation, mem memaccess.Accessor) error {
	reporter, ok := callback.(Reporter)
	if !ok {
		return fmt.Errorf("probe callback %T does not implement %s", callback, ReporterInterfaceName)
	}

	report := Report{
		Label:        s.Label,
		PID:          os.Getpid(),
		Name:         filepath.Base(os.Args[0]),
		Snapshot:     inst.Snapshot(),
		Units:        inst.Units(),
		VisibleTypes: inst.VisibleTypes(),
	}
	if mem != nil {
		report.MemoryMethod = mem.Method()
		if err := verifyMemory(mem); err != nil {
			report.MemoryError = err.Error()
		} else {
			report.MemoryVerified = true
		}
	}
	return reporter.Report(ctx, report)
}

func (s Strategy) OnAttachFailure(ctx context.Context, callback any, descriptor attach.Descriptor, cause error) error {
	reporter, ok := callback.(Reporter)
	if !ok {
		return fmt.Errorf("probe callback %T does not implement %s", callback, ReporterInterfaceName)
	}
	return reporter.AttachFailed(ctx, Failure{Label: s.Label, Target: descriptor, Cause: cause.Error()})
}

const (
	memoryBefore = "probe-before"
	memoryAfter  = "probe--after"
)

// verifyMemory overwrites a heap buffer through mem and reads it back.
func verifyMemory(mem memaccess.Accessor) error {
	target := heapBytes(memoryBefore)
	address := uintptr(unsafe.Pointer(&target[0]))
	defer runtime.KeepAlive(target)

	if _, err := mem.Write(address, []byte(memoryAfter)); err != nil {
		return err
	}
	readBack := make([]byte, len(target))
	if _, err := mem.Read(address, readBack); err != nil {
		return err
	}
	if !bytes.Equal(readBack, target) || string(target) != memoryAfter {
		return fmt.Errorf("%s: write was not observed", mem.Method())
	}
	return nil
}

// heapBytes copies s into a fresh heap allocation. Addresses handed to
// an accessor must be writable and must not move, which rules out
// converted literals (possibly read-only) and stack buffers.
//
//go:noinline
func heapBytes(s string) []byte {
	buffer := make([]byte, len(s))
	copy(buffer, s)
	return buffer
}
