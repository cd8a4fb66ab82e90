// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/zip"
	"gopkg.in/yaml.v3"
)

// UnitManifest mirrors the manifest keys a unit fixture may declare.
// It is duplicated here (rather than importing lib/archive) so that
// archive's own tests can use WriteUnit.
type UnitManifest struct {
	EntryPoint string   `yaml:"entry_point,omitempty"`
	Provides   []string `yaml:"provides,omitempty"`
}

// WriteUnit writes a unit named name into directory and returns its
// path. A nil manifest produces a unit without META-INF/unit.yaml.
func WriteUnit(t *testing.T, directory, name string, manifest *UnitManifest, files map[string]string) string {
	t.Helper()

	path := filepath.Join(directory, name)
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating unit %s: %v", path, err)
	}
	defer file.Close()

	writer := zip.NewWriter(file)
	if manifest != nil {
		data, err := yaml.Marshal(manifest)
		if err != nil {
			t.Fatalf("marshaling unit manifest: %v", err)
		}
		entry, err := writer.Create("META-INF/unit.yaml")
		if err != nil {
			t.Fatalf("creating manifest entry: %v", err)
		}
		if _, err := entry.Write(data); err != nil {
			t.Fatalf("writing manifest entry: %v", err)
		}
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		entry, err := writer.Create(name)
		if err != nil {
			t.Fatalf("creating entry %s: %v", name, err)
		}
		if _, err := entry.Write([]byte(files[name])); err != nil {
			t.Fatalf("writing entry %s: %v", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("finishing unit %s: %v", path, err)
	}
	return path
}
