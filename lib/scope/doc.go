// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package scope tracks which registered types a process may resolve.
//
// Go programs are statically linked, so every type a payload can name
// is already compiled into the target. What varies is visibility: a
// [Registry] maps stable names to Go types and the code location
// (unit path) that provides them, and a [Scope] admits a name only
// once a unit providing it has been appended. Names registered with an
// empty location are built-in and always visible.
//
// The controller side uses a linked scope (see [Linked]) in which
// every registered name is visible: it serializes values, it never
// needs to prove their providing unit was loaded.
//
// Scopes are append-only and safe for concurrent use, so several
// agents loaded into the same target can extend one scope at once.
package scope
