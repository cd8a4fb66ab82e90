// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/codec"
)

// Scope is an append-only set of loaded units gating which registered
// names resolve. Implements [codec.TypeResolver].
type Scope struct {
	registry *Registry
	linked   bool

	mu        sync.RWMutex
	units     []string
	provided  map[string]string
	locations map[string]string
}

// New returns an empty scope over registry: only built-in names are
// visible until units are appended.
func New(registry *Registry) *Scope {
	return &Scope{
		registry:  registry,
		provided:  make(map[string]string),
		locations: make(map[string]string),
	}
}

// Linked returns a scope in which every name in registry is visible.
func Linked(registry *Registry) *Scope {
	s := New(registry)
	s.linked = true
	return s
}

// Registry returns the registry the scope resolves against.
func (s *Scope) Registry() *Registry { return s.registry }

// Append adds the unit at path to the scope. Names the unit's manifest
// provides become visible, as does every name registered at the unit's
// path or at the location it was synthesized from. Appending a unit
// already in the scope is a no-op.
func (s *Scope) Append(path string) error {
	unit, err := archive.Open(path)
	if err != nil {
		return fmt.Errorf("appending to scope: %w", err)
	}
	path = cleanLocation(path)

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.units, path) {
		return nil
	}
	s.units = append(s.units, path)
	for _, name := range unit.Manifest.Provides {
		if _, seen := s.provided[name]; !seen {
			s.provided[name] = path
		}
	}
	s.locations[path] = path
	if unit.Manifest.Source != "" {
		s.locations[cleanLocation(unit.Manifest.Source)] = path
	}
	return nil
}

// Units returns the appended unit paths in append order.
func (s *Scope) Units() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.units...)
}

// Visible reports whether name is registered and visible.
func (s *Scope) Visible(name string) bool {
	registration, ok := s.registry.Lookup(name)
	return ok && s.visible(registration)
}

func (s *Scope) visible(registration Registration) bool {
	if s.linked || registration.Builtin() {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.provided[registration.Name]; ok {
		return true
	}
	_, ok := s.locations[registration.Location]
	return ok
}

// VisibleNames returns every visible registered name, sorted.
func (s *Scope) VisibleNames() []string {
	var names []string
	for _, registration := range s.registry.Registrations() {
		if s.visible(registration) {
			names = append(names, registration.Name)
		}
	}
	sort.Strings(names)
	return names
}

// TypeName implements [codec.TypeNamer].
func (s *Scope) TypeName(t reflect.Type) (string, error) {
	return s.registry.TypeName(t)
}

// ResolveType implements [codec.TypeResolver]. Unregistered and
// not-yet-visible names fail with *codec.MissingDependencyError.
func (s *Scope) ResolveType(name string) (reflect.Type, error) {
	registration, ok := s.registry.Lookup(name)
	if !ok {
		return nil, &codec.MissingDependencyError{
			Name: name,
			Err:  fmt.Errorf("no type is registered under this name"),
		}
	}
	if !s.visible(registration) {
		return nil, &codec.MissingDependencyError{
			Name:     name,
			Location: registration.Location,
		}
	}
	return registration.Type, nil
}
