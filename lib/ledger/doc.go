// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package ledger stores injection campaign history in SQLite.
//
// A [Ledger] is an inject.Observer: attach it to a controller and
// every target's state transitions are appended, in order, to a
// transitions table. The CLI's history command reads them back per
// campaign.
//
// The database is opened through a zombiezen sqlitex pool with WAL
// journaling, so a running campaign and a concurrent history query
// do not block each other.
package ledger
