// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for liaison packages.
//
// [SocketDir] creates a short directory in /tmp for Unix domain
// sockets. Socket paths are limited to 108 bytes (sun_path), and
// t.TempDir() paths under a build system's TEST_TMPDIR routinely
// exceed that.
//
// [RequireReceive] and [RequireClosed] wrap the select-with-timeout
// safety valve so individual tests never call time.After themselves.
//
// [WriteUnit] builds a loadable unit fixture (a zip archive with an
// optional manifest) from an in-memory file map.
//
// All helpers call t.Fatalf on failure: test setup failures are not
// recoverable.
package testutil
