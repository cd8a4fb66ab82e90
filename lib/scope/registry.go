// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package scope

import (
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"sync"
)

// Registration is one named type.
type Registration struct {
	Name string
	Type reflect.Type

	// Location is the code location providing the type. Empty for
	// built-in types.
	Location string
}

// Builtin reports whether the registration is always visible.
func (r Registration) Builtin() bool { return r.Location == "" }

// Registry maps names to types. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]Registration
	byType map[reflect.Type]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]Registration),
		byType: make(map[reflect.Type]string),
	}
}

var defaultRegistry = NewRegistry()

// Default returns the process-wide registry that package init
// functions register into.
func Default() *Registry { return defaultRegistry }

// Register records sample's dynamic type under name. Registering the
// same name and type again is a no-op; reusing a name for a different
// type, or a type under a second name, is an error.
func (r *Registry) Register(name string, sample any, location string) error {
	if sample == nil {
		return fmt.Errorf("registering %q: nil sample", name)
	}
	return r.RegisterType(name, reflect.TypeOf(sample), location)
}

// RegisterType is Register for callers holding a reflect.Type, such
// as interface types that have no sample value.
func (r *Registry) RegisterType(name string, t reflect.Type, location string) error {
	if name == "" {
		return fmt.Errorf("registering %s: empty name", t)
	}
	if location != "" {
		location = cleanLocation(location)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		if existing.Type == t && existing.Location == location {
			return nil
		}
		return fmt.Errorf("name %q already registered for %s", name, existing.Type)
	}
	if existing, ok := r.byType[t]; ok {
		return fmt.Errorf("type %s already registered as %q", t, existing)
	}

	r.byName[name] = Registration{Name: name, Type: t, Location: location}
	r.byType[t] = name
	return nil
}

// Lookup returns the registration for name.
func (r *Registry) Lookup(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	registration, ok := r.byName[name]
	return registration, ok
}

// TypeName returns the name t was registered under.
func (r *Registry) TypeName(t reflect.Type) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if name, ok := r.byType[t]; ok {
		return name, nil
	}
	return "", fmt.Errorf("type %s is not registered", t)
}

// NamesAt returns the sorted names registered with location.
func (r *Registry) NamesAt(location string) []string {
	location = cleanLocation(location)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for name, registration := range r.byName {
		if registration.Location == location {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Registrations returns every registration sorted by name.
func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	registrations := make([]Registration, 0, len(r.byName))
	for _, registration := range r.byName {
		registrations = append(registrations, registration)
	}
	sort.Slice(registrations, func(i, j int) bool {
		return registrations[i].Name < registrations[j].Name
	})
	return registrations
}

// Register records sample in the default registry. Intended for init
// functions; panics on conflict.
func Register(name string, sample any, location string) {
	if err := defaultRegistry.Register(name, sample, location); err != nil {
		panic("scope: " + err.Error())
	}
}

// RegisterType records t in the default registry. Panics on conflict.
func RegisterType(name string, t reflect.Type, location string) {
	if err := defaultRegistry.RegisterType(name, t, location); err != nil {
		panic("scope: " + err.Error())
	}
}

// cleanLocation makes locations comparable regardless of how callers
// spelled them.
func cleanLocation(location string) string {
	if absolute, err := filepath.Abs(location); err == nil {
		return absolute
	}
	return filepath.Clean(location)
}
