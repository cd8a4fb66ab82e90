// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

type builtinValue struct{ A int }

type providedValue struct{ B string }

type locatedValue struct{ C bool }

func TestRegistryConflicts(t *testing.T) {
	registry := NewRegistry()

	if err := registry.Register("test/builtin", builtinValue{}, ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := registry.Register("test/builtin", builtinValue{}, ""); err != nil {
		t.Errorf("re-registering the same pair: %v", err)
	}
	if err := registry.Register("test/builtin", providedValue{}, ""); err == nil {
		t.Error("name reused for a different type")
	}
	if err := registry.Register("test/other", builtinValue{}, ""); err == nil {
		t.Error("type registered under a second name")
	}
	if err := registry.Register("test/nil", nil, ""); err == nil {
		t.Error("nil sample accepted")
	}

	name, err := registry.TypeName(reflect.TypeOf(builtinValue{}))
	if err != nil || name != "test/builtin" {
		t.Errorf("TypeName = %q, %v", name, err)
	}
	if _, err := registry.TypeName(reflect.TypeOf(0)); err == nil {
		t.Error("TypeName of an unregistered type succeeded")
	}
}

func TestRegistryNamesAt(t *testing.T) {
	registry := NewRegistry()
	directory := t.TempDir()
	location := filepath.Join(directory, "lib.zip")

	registry.Register("test/z", providedValue{}, location)
	registry.Register("test/a", locatedValue{}, location)
	registry.Register("test/builtin", builtinValue{}, "")

	got := registry.NamesAt(location)
	if want := []string{"test/a", "test/z"}; !reflect.DeepEqual(got, want) {
		t.Errorf("NamesAt = %v, want %v", got, want)
	}
}

func TestScopeVisibility(t *testing.T) {
	directory := t.TempDir()
	providing := testutil.WriteUnit(t, directory, "providing.zip",
		&testutil.UnitManifest{Provides: []string{"test/provided"}}, nil)
	locatedUnit := testutil.WriteUnit(t, directory, "located.zip", nil, map[string]string{"f": "x"})

	registry := NewRegistry()
	registry.Register("test/builtin", builtinValue{}, "")
	registry.Register("test/provided", providedValue{}, filepath.Join(directory, "elsewhere"))
	registry.Register("test/located", locatedValue{}, locatedUnit)

	s := New(registry)

	if !s.Visible("test/builtin") {
		t.Error("built-in type not visible in an empty scope")
	}
	for _, name := range []string{"test/provided", "test/located"} {
		_, err := s.ResolveType(name)
		var missing *codec.MissingDependencyError
		if !errors.As(err, &missing) || missing.Name != name {
			t.Errorf("ResolveType(%s) error = %v, want MissingDependencyError", name, err)
		}
	}

	if err := s.Append(providing); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !s.Visible("test/provided") {
		t.Error("manifest-provided name not visible after Append")
	}
	if s.Visible("test/located") {
		t.Error("located name visible before its unit was appended")
	}

	if err := s.Append(locatedUnit); err != nil {
		t.Fatalf("Append: %v", err)
	}
	resolved, err := s.ResolveType("test/located")
	if err != nil {
		t.Fatalf("ResolveType after Append: %v", err)
	}
	if resolved != reflect.TypeOf(locatedValue{}) {
		t.Errorf("resolved %s", resolved)
	}

	want := []string{"test/builtin", "test/located", "test/provided"}
	if got := s.VisibleNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("VisibleNames = %v, want %v", got, want)
	}
}

func TestScopeVisibilityThroughSynthesizedSource(t *testing.T) {
	directory := t.TempDir()
	source := filepath.Join(directory, "classes")
	if err := os.MkdirAll(source, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(source, "located.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	materializer, err := archive.NewMaterializer(archive.MaterializerConfig{Directory: filepath.Join(directory, "units")})
	if err != nil {
		t.Fatal(err)
	}
	defer materializer.Close()

	registry := NewRegistry()
	registry.Register("test/located", locatedValue{}, source)

	unit, err := materializer.EnsureLoadable(source, nil)
	if err != nil {
		t.Fatalf("EnsureLoadable: %v", err)
	}

	s := New(registry)
	if err := s.Append(unit); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !s.Visible("test/located") {
		t.Error("type at the synthesized unit's source location is not visible")
	}
}

func TestScopeAppendIdempotentAndRejectsNonUnits(t *testing.T) {
	unit := testutil.WriteUnit(t, t.TempDir(), "u.zip", nil, nil)
	s := New(NewRegistry())

	for i := 0; i < 3; i++ {
		if err := s.Append(unit); err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
	}
	if units := s.Units(); len(units) != 1 {
		t.Errorf("Units = %v, want exactly one", units)
	}

	if err := s.Append(filepath.Join(t.TempDir(), "missing.zip")); err == nil {
		t.Error("Append accepted a missing unit")
	}
}

func TestScopeConcurrentAppend(t *testing.T) {
	directory := t.TempDir()
	var units []string
	for _, name := range []string{"a.zip", "b.zip", "c.zip", "d.zip"} {
		units = append(units, testutil.WriteUnit(t, directory, name, nil, nil))
	}

	s := New(NewRegistry())
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(unit string) {
			defer wg.Done()
			if err := s.Append(unit); err != nil {
				t.Errorf("Append: %v", err)
			}
		}(units[i%len(units)])
	}
	wg.Wait()

	if got := len(s.Units()); got != len(units) {
		t.Errorf("len(Units) = %d, want %d", got, len(units))
	}
}

func TestLinkedScopeSeesEverything(t *testing.T) {
	registry := NewRegistry()
	registry.Register("test/located", locatedValue{}, "/nonexistent/unit.zip")

	if !Linked(registry).Visible("test/located") {
		t.Error("linked scope hides a registered name")
	}
	if New(registry).Visible("test/located") {
		t.Error("empty scope shows a located name")
	}
}

func TestScopeWorksWithCodec(t *testing.T) {
	registry := NewRegistry()
	unit := testutil.WriteUnit(t, t.TempDir(), "p.zip",
		&testutil.UnitManifest{Provides: []string{"test/provided"}}, nil)
	registry.Register("test/provided", providedValue{}, "/elsewhere")

	data, err := codec.Serialize(Linked(registry), providedValue{B: "hello"}, true)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	target := New(registry)
	if _, err := codec.Deserialize[providedValue](target, data, true); err == nil {
		t.Fatal("Deserialize succeeded before the providing unit was appended")
	}
	if err := target.Append(unit); err != nil {
		t.Fatal(err)
	}
	value, err := codec.Deserialize[providedValue](target, data, true)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if value.B != "hello" {
		t.Errorf("value = %+v", value)
	}
}
