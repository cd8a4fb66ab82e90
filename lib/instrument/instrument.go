// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"runtime/debug"
	"runtime/pprof"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/scope"
)

// ErrNotUnit is wrapped by AppendToScope when a location is neither a
// unit nor convertible to one.
var ErrNotUnit = errors.New("not a loadable unit")

// Instrumentation is the capability set an injected strategy receives.
type Instrumentation interface {
	// AppendToScope makes the code at path visible. Paths that are
	// not units are converted first.
	AppendToScope(path string) error

	// Scope returns the process's visibility scope.
	Scope() *scope.Scope

	// Units returns the units appended so far, in append order.
	Units() []string

	// VisibleTypes returns every registered type name currently
	// visible, sorted.
	VisibleTypes() []string

	// Snapshot samples the runtime's counters.
	Snapshot() Snapshot

	// WriteProfile writes the named pprof profile ("goroutine",
	// "heap", "allocs", ...) to w in its compressed protobuf form.
	WriteProfile(name string, w io.Writer) error

	// SetGCPercent sets the GC target and returns the previous one.
	SetGCPercent(percent int) int

	// FreeOSMemory forces a collection and returns memory to the
	// operating system.
	FreeOSMemory()
}

// Runtime is the in-process Instrumentation.
type Runtime struct {
	scope        *scope.Scope
	materializer *archive.Materializer
	logger       *slog.Logger
}

// NewRuntime returns an Instrumentation over s. materializer converts
// non-unit locations for AppendToScope; nil rejects them instead.
func NewRuntime(s *scope.Scope, materializer *archive.Materializer, logger *slog.Logger) *Runtime {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runtime{scope: s, materializer: materializer, logger: logger}
}

func (r *Runtime) AppendToScope(path string) error {
	unit := path
	if !archive.IsLoadable(path) {
		if r.materializer == nil {
			return fmt.Errorf("%s is not a unit (and cannot be converted to one): %w", path, ErrNotUnit)
		}
		converted, err := r.materializer.EnsureLoadable(path, nil)
		if err != nil {
			return fmt.Errorf("%s is not a unit (and cannot be converted to one): %w", path, errors.Join(ErrNotUnit, err))
		}
		r.logger.Debug("converted location to unit", "location", path, "unit", converted)
		unit = converted
	}

	if err := r.scope.Append(unit); err != nil {
		return err
	}
	r.logger.Info("appended unit to scope", "unit", unit)
	return nil
}

func (r *Runtime) Scope() *scope.Scope { return r.scope }

func (r *Runtime) Units() []string { return r.scope.Units() }

func (r *Runtime) VisibleTypes() []string { return r.scope.VisibleNames() }

func (r *Runtime) Snapshot() Snapshot { return takeSnapshot() }

func (r *Runtime) WriteProfile(name string, w io.Writer) error {
	profile := pprof.Lookup(name)
	if profile == nil {
		return fmt.Errorf("unknown profile %q", name)
	}
	return profile.WriteTo(w, 0)
}

func (r *Runtime) SetGCPercent(percent int) int {
	previous := debug.SetGCPercent(percent)
	r.logger.Info("changed GC percent", "previous", previous, "current", percent)
	return previous
}

func (r *Runtime) FreeOSMemory() { debug.FreeOSMemory() }

// TypeOf resolves a visible registered name to its Go type.
func TypeOf(inst Instrumentation, name string) (reflect.Type, error) {
	return inst.Scope().ResolveType(name)
}
