// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bureau-foundation/liaison/lib/instrument"
)

// EntryPoint is the function a loaded unit's manifest selects.
// argument is the opaque string the controller passed to LoadAgent.
// Entry points should return promptly; long-running work belongs on a
// goroutine of their own.
type EntryPoint func(ctx context.Context, argument string, inst instrument.Instrumentation) error

var (
	entryPointsMu sync.RWMutex
	entryPoints   = map[string]EntryPoint{}
)

// RegisterEntryPoint makes fn selectable by units whose manifest
// declares entry_point: name. Panics on duplicates; intended for init.
func RegisterEntryPoint(name string, fn EntryPoint) {
	if name == "" || fn == nil {
		panic("attach: RegisterEntryPoint requires a name and a function")
	}
	entryPointsMu.Lock()
	defer entryPointsMu.Unlock()
	if _, exists := entryPoints[name]; exists {
		panic(fmt.Sprintf("attach: entry point %q registered twice", name))
	}
	entryPoints[name] = fn
}

// LookupEntryPoint returns the entry point registered under name.
func LookupEntryPoint(name string) (EntryPoint, bool) {
	entryPointsMu.RLock()
	defer entryPointsMu.RUnlock()
	fn, ok := entryPoints[name]
	return fn, ok
}

// EntryPoints returns the registered entry point names, sorted.
func EntryPoints() []string {
	entryPointsMu.RLock()
	defer entryPointsMu.RUnlock()
	names := make([]string, 0, len(entryPoints))
	for name := range entryPoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
