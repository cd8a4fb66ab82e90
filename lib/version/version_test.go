// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	originalCommit, originalDirty := GitCommit, GitDirty
	t.Cleanup(func() { GitCommit, GitDirty = originalCommit, originalDirty })

	GitCommit, GitDirty = "abc1234", "true"
	if got := Info(); !strings.Contains(got, "abc1234-dirty") {
		t.Errorf("Info() = %q, want commit with -dirty suffix", got)
	}

	GitDirty = "false"
	if got := Info(); strings.Contains(got, "-dirty") {
		t.Errorf("Info() = %q, clean build marked dirty", got)
	}
}

func TestFullIncludesPlatform(t *testing.T) {
	if got := Full(); !strings.Contains(got, "Platform:") {
		t.Errorf("Full() = %q", got)
	}
}
