// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/scope"
)

// Interface describes one registered remote interface.
type Interface struct {
	Name string
	Type reflect.Type

	// Location is the code location providing the interface. Empty
	// for built-in interfaces.
	Location string

	newProxy func(Stub) Proxy
}

var (
	interfacesMu sync.RWMutex
	interfaces   = map[string]Interface{}
)

var proxyType = reflect.TypeFor[Proxy]()

// RegisterInterface registers T (an interface type) as a remote
// interface under name, provided by location, with newProxy building
// its client-side proxy. T is also registered in the default scope
// registry so that targets can check its visibility. Panics on
// conflicts or when T is not an interface; intended for init.
func RegisterInterface[T any](name, location string, newProxy func(Stub) T) {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("remote: RegisterInterface[%s]: not an interface type", t))
	}
	if t == proxyType {
		panic("remote: the Proxy marker cannot be registered as a remote interface")
	}

	scope.RegisterType(name, t, location)

	interfacesMu.Lock()
	defer interfacesMu.Unlock()

	if _, exists := interfaces[name]; exists {
		panic(fmt.Sprintf("remote: interface %q registered twice", name))
	}
	interfaces[name] = Interface{
		Name:     name,
		Type:     t,
		Location: location,
		newProxy: func(stub Stub) Proxy {
			proxy, ok := any(newProxy(stub)).(Proxy)
			if !ok {
				panic(fmt.Sprintf("remote: proxy for %q does not embed remote.Stub", name))
			}
			return proxy
		},
	}
}

// LookupInterface returns the registered interface called name.
func LookupInterface(name string) (Interface, bool) {
	interfacesMu.RLock()
	defer interfacesMu.RUnlock()
	iface, ok := interfaces[name]
	return iface, ok
}

// InterfacesOf returns the registered remote interfaces value
// implements, sorted by name.
func InterfacesOf(value any) []Interface {
	if value == nil {
		return nil
	}
	t := reflect.TypeOf(value)

	interfacesMu.RLock()
	defer interfacesMu.RUnlock()

	var result []Interface
	for _, iface := range interfaces {
		if t.Implements(iface.Type) {
			result = append(result, iface)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Reconstruct builds a proxy for stub. Each of the stub's interface
// names must resolve through resolver (so a target that has not yet
// appended the providing units fails with
// *codec.MissingDependencyError). The returned proxy implements every
// interface the stub lists; a stub without interfaces yields the bare
// Stub.
func Reconstruct(resolver codec.TypeResolver, stub Stub) (Proxy, error) {
	var resolved []Interface
	for _, name := range stub.Interfaces {
		if _, err := resolver.ResolveType(name); err != nil {
			return nil, err
		}
		iface, ok := LookupInterface(name)
		if !ok {
			return nil, &codec.MissingDependencyError{
				Name: name,
				Err:  fmt.Errorf("no proxy is registered for this interface"),
			}
		}
		resolved = append(resolved, iface)
	}
	if len(resolved) == 0 {
		return stub, nil
	}

	for _, candidate := range resolved {
		proxy := candidate.newProxy(stub)
		if implementsAll(proxy, resolved) {
			return proxy, nil
		}
	}
	return nil, fmt.Errorf("no registered proxy implements all of %v", stub.Interfaces)
}

func implementsAll(proxy Proxy, required []Interface) bool {
	t := reflect.TypeOf(proxy)
	for _, iface := range required {
		if !t.Implements(iface.Type) {
			return false
		}
	}
	return true
}
