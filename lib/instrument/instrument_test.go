// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package instrument

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"runtime/debug"
	"slices"
	"strings"
	"testing"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/scope"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

type hostedValue struct{ N int }

func newRuntime(t *testing.T, withMaterializer bool) (*Runtime, *scope.Registry) {
	t.Helper()
	registry := scope.NewRegistry()
	var materializer *archive.Materializer
	if withMaterializer {
		var err error
		materializer, err = archive.NewMaterializer(archive.MaterializerConfig{Directory: t.TempDir()})
		if err != nil {
			t.Fatalf("NewMaterializer: %v", err)
		}
		t.Cleanup(func() { materializer.Close() })
	}
	return NewRuntime(scope.New(registry), materializer, nil), registry
}

func TestAppendToScopeUnit(t *testing.T) {
	inst, registry := newRuntime(t, false)
	if err := registry.Register("test/hosted", hostedValue{}, "/opt/hosted"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	unit := testutil.WriteUnit(t, t.TempDir(), "hosted.zip", &testutil.UnitManifest{
		Provides: []string{"test/hosted"},
	}, map[string]string{"data": "x"})

	if slices.Contains(inst.VisibleTypes(), "test/hosted") {
		t.Fatal("type visible before append")
	}
	if err := inst.AppendToScope(unit); err != nil {
		t.Fatalf("AppendToScope: %v", err)
	}
	if !slices.Contains(inst.VisibleTypes(), "test/hosted") {
		t.Errorf("VisibleTypes() = %v, missing test/hosted", inst.VisibleTypes())
	}
	if units := inst.Units(); len(units) != 1 {
		t.Errorf("Units() = %v", units)
	}
	if _, err := TypeOf(inst, "test/hosted"); err != nil {
		t.Errorf("TypeOf: %v", err)
	}
}

func TestAppendToScopeConvertsDirectories(t *testing.T) {
	inst, registry := newRuntime(t, true)
	directory := t.TempDir()
	if err := os.WriteFile(filepath.Join(directory, "code"), []byte("payload"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := registry.Register("test/hosted", hostedValue{}, directory); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := inst.AppendToScope(directory); err != nil {
		t.Fatalf("AppendToScope: %v", err)
	}
	if !inst.Scope().Visible("test/hosted") {
		t.Error("type at converted directory not visible")
	}
}

func TestAppendToScopeRejectsNonUnits(t *testing.T) {
	tests := []struct {
		name             string
		withMaterializer bool
		path             func(t *testing.T) string
	}{
		{
			name: "no materializer",
			path: func(t *testing.T) string { return t.TempDir() },
		},
		{
			name:             "missing location",
			withMaterializer: true,
			path:             func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, _ := newRuntime(t, tt.withMaterializer)
			path := tt.path(t)
			err := inst.AppendToScope(path)
			if !errors.Is(err, ErrNotUnit) {
				t.Fatalf("AppendToScope(%s) = %v, want ErrNotUnit", path, err)
			}
			want := path + " is not a unit (and cannot be converted to one)"
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not contain %q", err, want)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	inst, _ := newRuntime(t, false)
	snapshot := inst.Snapshot()
	if snapshot.Goroutines == 0 {
		t.Error("Goroutines = 0")
	}
	if snapshot.GoVersion == "" || snapshot.GOMAXPROCS == 0 {
		t.Errorf("incomplete snapshot: %+v", snapshot)
	}

	data, err := codec.Marshal(snapshot)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded Snapshot
	if err := codec.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded.Goroutines != snapshot.Goroutines || decoded.Taken.Unix() != snapshot.Taken.Unix() {
		t.Errorf("decoded %+v, want %+v", decoded, snapshot)
	}
}

func TestWriteProfile(t *testing.T) {
	inst, _ := newRuntime(t, false)
	var buffer bytes.Buffer
	if err := inst.WriteProfile("goroutine", &buffer); err != nil {
		t.Fatalf("WriteProfile: %v", err)
	}
	if buffer.Len() == 0 {
		t.Error("empty goroutine profile")
	}
	if err := inst.WriteProfile("no-such-profile", &buffer); err == nil {
		t.Error("unknown profile accepted")
	}
}

func TestSetGCPercent(t *testing.T) {
	inst, _ := newRuntime(t, false)
	original := debug.SetGCPercent(100)
	t.Cleanup(func() { debug.SetGCPercent(original) })

	if previous := inst.SetGCPercent(250); previous != 100 {
		t.Errorf("previous = %d, want 100", previous)
	}
	if previous := inst.SetGCPercent(100); previous != 250 {
		t.Errorf("previous = %d, want 250", previous)
	}
}
