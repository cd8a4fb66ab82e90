// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package probe is the built-in injection strategy.
//
// The probe strategy reports back what it finds inside each target:
// process identity, a runtime snapshot, the units in its scope, and
// whether raw memory access works. Reports travel over the
// [Reporter] remote interface to a [Collector] the controller exports
// as the payload's callback. Targets the controller could not load
// into are reported to the same collector through AttachFailed.
package probe
