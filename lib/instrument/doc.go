// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package instrument provides the instrumentation handle passed to an
// injected payload's strategy.
//
// An [Instrumentation] lets the payload extend the process's
// visibility scope with further units and inspect the Go runtime it is
// running in: goroutine and heap counters, named pprof profiles, and
// the GC knobs. The handle is process-wide; every agent loaded into a
// target shares the same one.
package instrument
