// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package inject drives agent payloads into target processes.
//
// A [Controller] holds one payload and one transport encoding of it,
// reused for every target of a campaign. [Controller.InjectInto]
// targets a single process and fails loudly. [Controller.InjectIntoAll]
// sweeps every process a directory lists and never fails: each target
// is attempted independently, load failures are handed to the
// strategy's OnAttachFailure hook, and pure I/O failures are recorded
// as skipped.
//
// Each attempt walks a small state machine (discovered, attaching,
// attached, loading, then detached or one of the failure states) and
// reports every transition to an optional [Observer].
package inject
