// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package archive implements loadable units: zip archives that a
// target's attach listener accepts and appends to its visibility
// scope.
//
// A unit may carry a manifest at META-INF/unit.yaml declaring the
// entry point to invoke on load and the registered type names the
// unit provides. [Open] validates a unit and reads its manifest;
// [Write] produces one from a directory, a regular file, or another
// unit.
//
// [Materializer] turns an arbitrary code location into a loadable
// unit, synthesizing a temporary archive when the location is not
// already one (or lacks a required manifest). Results are cached by a
// BLAKE3 digest of the location, the requested manifest, and the
// location's content, so repeated requests for unchanged input return
// the same file. Every unit the materializer creates is removed by
// Close. Target processes keep their materializer for the life of the
// process and never close it.
package archive
