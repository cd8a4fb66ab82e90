// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports build version information for liaison
// binaries. Values are injected at build time with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/liaison/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
