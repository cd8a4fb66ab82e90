// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/bureau-foundation/liaison/lib/testutil"
)

func TestOpenReadsManifest(t *testing.T) {
	directory := t.TempDir()
	path := testutil.WriteUnit(t, directory, "ping.zip",
		&testutil.UnitManifest{EntryPoint: "test/entry", Provides: []string{"test/ping"}},
		map[string]string{"ping.txt": "pong"},
	)

	unit, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !unit.HasManifest {
		t.Fatal("HasManifest = false")
	}
	if unit.Manifest.EntryPoint != "test/entry" {
		t.Errorf("EntryPoint = %q", unit.Manifest.EntryPoint)
	}
	if !reflect.DeepEqual(unit.Manifest.Provides, []string{"test/ping"}) {
		t.Errorf("Provides = %v", unit.Manifest.Provides)
	}
	if !reflect.DeepEqual(unit.Entries, []string{"ping.txt"}) {
		t.Errorf("Entries = %v", unit.Entries)
	}
}

func TestOpenWithoutManifest(t *testing.T) {
	path := testutil.WriteUnit(t, t.TempDir(), "bare.zip", nil, map[string]string{"a": "b"})

	unit, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if unit.HasManifest || unit.Manifest == nil || unit.Manifest.EntryPoint != "" {
		t.Errorf("unexpected manifest: has=%v %+v", unit.HasManifest, unit.Manifest)
	}
}

func TestOpenRejectsNonUnits(t *testing.T) {
	directory := t.TempDir()
	plain := filepath.Join(directory, "plain.txt")
	if err := os.WriteFile(plain, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{plain, directory, filepath.Join(directory, "missing.zip")} {
		if _, err := Open(path); !errors.Is(err, ErrNotLoadable) {
			t.Errorf("Open(%s) error = %v, want ErrNotLoadable", path, err)
		}
		if IsLoadable(path) {
			t.Errorf("IsLoadable(%s) = true", path)
		}
	}
}

func TestWriteDirectorySortsEntries(t *testing.T) {
	source := t.TempDir()
	writeFiles(t, source, map[string]string{
		"zeta.txt":      "z",
		"alpha/one.txt": "1",
		"mid.txt":       "m",
	})

	var buffer bytes.Buffer
	if err := Write(&buffer, source, &Manifest{EntryPoint: "test/entry"}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.zip")
	if err := os.WriteFile(path, buffer.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}

	unit, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	want := []string{"alpha/one.txt", "mid.txt", "zeta.txt"}
	if !reflect.DeepEqual(unit.Entries, want) {
		t.Errorf("Entries = %v, want %v", unit.Entries, want)
	}
	if unit.Manifest.EntryPoint != "test/entry" {
		t.Errorf("EntryPoint = %q", unit.Manifest.EntryPoint)
	}

	data, err := ReadEntry(path, "alpha/one.txt")
	if err != nil {
		t.Fatalf("ReadEntry: %v", err)
	}
	if string(data) != "1" {
		t.Errorf("entry content = %q", data)
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	source := t.TempDir()
	writeFiles(t, source, map[string]string{"a.txt": "alpha", "b/c.txt": "gamma"})

	var first, second bytes.Buffer
	if err := Write(&first, source, &Manifest{Source: "x"}); err != nil {
		t.Fatal(err)
	}
	if err := Write(&second, source, &Manifest{Source: "x"}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first.Bytes(), second.Bytes()) {
		t.Error("two writes of the same directory differ")
	}
}

func TestWriteMergesExistingUnitManifest(t *testing.T) {
	source := testutil.WriteUnit(t, t.TempDir(), "lib.zip",
		&testutil.UnitManifest{Provides: []string{"test/a"}},
		map[string]string{"lib.txt": "lib"},
	)

	path := filepath.Join(t.TempDir(), "merged.zip")
	file, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := Write(file, source, &Manifest{EntryPoint: "test/entry", Provides: []string{"test/b"}}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	file.Close()

	unit, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !reflect.DeepEqual(unit.Manifest.Provides, []string{"test/a", "test/b"}) {
		t.Errorf("Provides = %v", unit.Manifest.Provides)
	}
	if unit.Manifest.EntryPoint != "test/entry" {
		t.Errorf("EntryPoint = %q", unit.Manifest.EntryPoint)
	}
	if !reflect.DeepEqual(unit.Entries, []string{"lib.txt"}) {
		t.Errorf("Entries = %v", unit.Entries)
	}
}

func TestWriteRejectsMissingSource(t *testing.T) {
	var buffer bytes.Buffer
	err := Write(&buffer, filepath.Join(t.TempDir(), "nope"), nil)
	if !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("error = %v, want ErrNotConvertible", err)
	}
}

func TestManifestSatisfies(t *testing.T) {
	manifest := &Manifest{EntryPoint: "e", Provides: []string{"a", "b"}}

	tests := []struct {
		name     string
		required *Manifest
		want     bool
	}{
		{"nil requirement", nil, true},
		{"empty requirement", &Manifest{}, true},
		{"same entry point", &Manifest{EntryPoint: "e"}, true},
		{"other entry point", &Manifest{EntryPoint: "f"}, false},
		{"subset provides", &Manifest{Provides: []string{"b"}}, true},
		{"missing provide", &Manifest{Provides: []string{"c"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := manifest.Satisfies(tt.required); got != tt.want {
				t.Errorf("Satisfies = %v, want %v", got, tt.want)
			}
		})
	}
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}
