// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package attach is the agent-load mechanism between a controller and
// cooperating target processes.
//
// A target runs a [Listener] on attach-<pid>.sock inside a shared
// runtime directory. The controller discovers targets through a
// [Directory], opens a session with Attach, asks the target to load an
// agent unit with [Handle.LoadAgent], and ends the session with
// Detach.
//
// Loading validates the unit, appends it to the target's visibility
// scope, and calls the [EntryPoint] its manifest names. Entry points
// are registered statically with [RegisterEntryPoint]: a unit can only
// select among code already linked into the target.
//
// Error classification follows the three phases:
//   - [ErrNotSupported]: the process has no listener or refused the
//     session.
//   - [*AgentLoadError]: the unit was rejected before its entry point
//     ran.
//   - [*AgentInitializationError]: the entry point returned an error
//     or panicked.
package attach
