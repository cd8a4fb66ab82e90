// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// testRegistry is a minimal TypeResolver: names map to types, and a
// hidden set simulates names the scope cannot see yet.
type testRegistry struct {
	types  map[string]reflect.Type
	hidden map[string]bool
}

func newTestRegistry() *testRegistry {
	return &testRegistry{types: map[string]reflect.Type{}, hidden: map[string]bool{}}
}

func (r *testRegistry) add(name string, sample any) {
	r.types[name] = reflect.TypeOf(sample)
}

func (r *testRegistry) TypeName(t reflect.Type) (string, error) {
	for name, registered := range r.types {
		if registered == t {
			return name, nil
		}
	}
	return "", fmt.Errorf("type %s is not registered", t)
}

func (r *testRegistry) ResolveType(name string) (reflect.Type, error) {
	registered, ok := r.types[name]
	if !ok || r.hidden[name] {
		return nil, &MissingDependencyError{Name: name}
	}
	return registered, nil
}

type probeParams struct {
	Interval int      `cbor:"interval"`
	Labels   []string `cbor:"labels"`
}

type greeter interface{ Greet() string }

type pointerGreeter struct {
	Name string `cbor:"name"`
}

func (p *pointerGreeter) Greet() string { return "hello " + p.Name }

func TestSerializeRoundtrip(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/probe-params", probeParams{})

	original := probeParams{Interval: 5, Labels: []string{"a", "b"}}

	for _, compress := range []bool{false, true} {
		t.Run(fmt.Sprintf("compress=%v", compress), func(t *testing.T) {
			data, err := Serialize(registry, original, compress)
			if err != nil {
				t.Fatalf("Serialize: %v", err)
			}
			decoded, err := Deserialize[probeParams](registry, data, compress)
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if !reflect.DeepEqual(decoded, original) {
				t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
			}
		})
	}
}

func TestSerializeRoundtripEveryTag(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/probe-params", probeParams{})

	labels := make([]string, 64)
	for i := range labels {
		labels[i] = "repetitive-label"
	}
	original := probeParams{Interval: 1, Labels: labels}

	for _, tag := range []CompressionTag{CompressionNone, CompressionZstd, CompressionLZ4} {
		t.Run(tag.String(), func(t *testing.T) {
			data, err := SerializeWith(registry, original, tag)
			if err != nil {
				t.Fatalf("SerializeWith: %v", err)
			}
			recorded, err := FrameTag(data)
			if err != nil {
				t.Fatalf("FrameTag: %v", err)
			}
			if recorded != tag {
				t.Errorf("frame tag = %s, want %s", recorded, tag)
			}
			decoded, err := Deserialize[probeParams](registry, data, true)
			if err != nil {
				t.Fatalf("Deserialize: %v", err)
			}
			if !reflect.DeepEqual(decoded, original) {
				t.Error("roundtrip mismatch")
			}
		})
	}
}

func TestDeserializePointerTypeReturnsPointer(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/greeter", &pointerGreeter{})

	data, err := Serialize(registry, &pointerGreeter{Name: "target"}, true)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	decoded, err := Deserialize[greeter](registry, data, true)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if got := decoded.Greet(); got != "hello target" {
		t.Errorf("Greet() = %q, want %q", got, "hello target")
	}
}

func TestSerializeUnregisteredType(t *testing.T) {
	_, err := Serialize(newTestRegistry(), probeParams{}, false)
	if !errors.Is(err, ErrNotSerializable) {
		t.Fatalf("error = %v, want ErrNotSerializable", err)
	}
}

func TestSerializeUnsupportedMember(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/channel", make(chan int))

	_, err := Serialize(registry, make(chan int), false)
	if !errors.Is(err, ErrNotSerializable) {
		t.Fatalf("error = %v, want ErrNotSerializable", err)
	}
}

func TestSerializeNil(t *testing.T) {
	if _, err := Serialize(newTestRegistry(), nil, false); !errors.Is(err, ErrNotSerializable) {
		t.Fatalf("error = %v, want ErrNotSerializable", err)
	}
}

func TestDeserializeHiddenTypeIsMissingDependency(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/probe-params", probeParams{})

	data, err := Serialize(registry, probeParams{Interval: 1}, false)
	if err != nil {
		t.Fatal(err)
	}

	registry.hidden["test/probe-params"] = true
	_, err = Deserialize[probeParams](registry, data, false)

	var missing *MissingDependencyError
	if !errors.As(err, &missing) {
		t.Fatalf("error = %v (%T), want *MissingDependencyError", err, err)
	}
	if missing.Name != "test/probe-params" {
		t.Errorf("missing name = %q", missing.Name)
	}
}

func TestDeserializeMalformed(t *testing.T) {
	registry := newTestRegistry()

	tests := []struct {
		name       string
		data       []byte
		compressed bool
	}{
		{"garbage", []byte{0xff, 0x00, 0x13}, false},
		{"empty frame", nil, true},
		{"truncated frame", []byte{byte(CompressionZstd)}, true},
		{"no type name", mustMarshal(t, envelope{Value: []byte{0xf6}}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeValue(registry, tt.data, tt.compressed)
			var decodeErr *DeserializationError
			if !errors.As(err, &decodeErr) {
				t.Fatalf("error = %v (%T), want *DeserializationError", err, err)
			}
		})
	}
}

func TestDeserializeWrongType(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/probe-params", probeParams{})

	data, err := Serialize(registry, probeParams{}, false)
	if err != nil {
		t.Fatal(err)
	}

	_, err = Deserialize[greeter](registry, data, false)
	var decodeErr *DeserializationError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("error = %v, want *DeserializationError", err)
	}
}

func TestPeekType(t *testing.T) {
	registry := newTestRegistry()
	registry.add("test/probe-params", probeParams{})

	data, err := Serialize(registry, probeParams{}, true)
	if err != nil {
		t.Fatal(err)
	}
	name, err := PeekType(data, true)
	if err != nil {
		t.Fatalf("PeekType: %v", err)
	}
	if name != "test/probe-params" {
		t.Errorf("PeekType = %q", name)
	}
}

func mustMarshal(t *testing.T, value any) []byte {
	t.Helper()
	data, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}
