// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
	"reflect"
)

// TypeNamer maps a Go type to the name it was registered under. The
// controller side only needs this half: it serializes but never
// resolves.
type TypeNamer interface {
	TypeName(t reflect.Type) (string, error)
}

// TypeResolver maps registered names back to Go types, subject to
// whatever visibility rules the implementation enforces. lib/scope
// provides the production implementation.
type TypeResolver interface {
	TypeNamer
	ResolveType(name string) (reflect.Type, error)
}

// envelope is the wire form of a serialized value. The body stays raw
// until the type name has been resolved.
type envelope struct {
	Type  string     `cbor:"t"`
	Value RawMessage `cbor:"v"`
}

// Serialize encodes value as a named envelope. With compress set, the
// envelope is wrapped in a [DefaultCompression] frame. Encoding is
// deterministic: the same value always yields the same bytes.
func Serialize(namer TypeNamer, value any, compress bool) ([]byte, error) {
	if !compress {
		return encodeEnvelope(namer, value)
	}
	return SerializeWith(namer, value, DefaultCompression)
}

// SerializeWith is [Serialize] with an explicit compression tag. The
// result is always a frame readable by [Decompress], so it must be
// deserialized with compressed set. CompressionNone writes a frame
// with an uncompressed body.
func SerializeWith(namer TypeNamer, value any, tag CompressionTag) ([]byte, error) {
	data, err := encodeEnvelope(namer, value)
	if err != nil {
		return nil, err
	}
	return Compress(data, tag)
}

func encodeEnvelope(namer TypeNamer, value any) ([]byte, error) {
	if value == nil {
		return nil, fmt.Errorf("%w: nil value", ErrNotSerializable)
	}

	name, err := namer.TypeName(reflect.TypeOf(value))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSerializable, err)
	}

	body, err := Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding %s: %w", ErrNotSerializable, name, err)
	}

	data, err := Marshal(envelope{Type: name, Value: body})
	if err != nil {
		return nil, fmt.Errorf("%w: encoding envelope for %s: %w", ErrNotSerializable, name, err)
	}
	return data, nil
}

// Deserialize decodes bytes produced by [Serialize] and asserts the
// result is a T. The compressed flag must match the one used when
// serializing; the format is not self-describing at that level.
func Deserialize[T any](resolver TypeResolver, data []byte, compressed bool) (T, error) {
	var zero T

	value, err := DeserializeValue(resolver, data, compressed)
	if err != nil {
		return zero, err
	}

	typed, ok := value.(T)
	if !ok {
		return zero, &DeserializationError{
			Type: fmt.Sprintf("%T", value),
			Err:  fmt.Errorf("decoded value does not implement %s", reflect.TypeFor[T]()),
		}
	}
	return typed, nil
}

// DeserializeValue decodes bytes produced by [Serialize] into a value
// of whatever registered type the envelope names. Types registered as
// pointers are returned as pointers; value types as values.
func DeserializeValue(resolver TypeResolver, data []byte, compressed bool) (any, error) {
	if compressed {
		decompressed, err := Decompress(data)
		if err != nil {
			return nil, &DeserializationError{Err: err}
		}
		data = decompressed
	}

	var wrapped envelope
	if err := Unmarshal(data, &wrapped); err != nil {
		return nil, &DeserializationError{Err: err}
	}
	if wrapped.Type == "" {
		return nil, &DeserializationError{Err: errors.New("envelope has no type name")}
	}

	resolved, err := resolver.ResolveType(wrapped.Type)
	if err != nil {
		var missing *MissingDependencyError
		if errors.As(err, &missing) {
			return nil, err
		}
		return nil, &MissingDependencyError{Name: wrapped.Type, Err: err}
	}

	switch resolved.Kind() {
	case reflect.Interface:
		return nil, &DeserializationError{
			Type: wrapped.Type,
			Err:  errors.New("registered type is an interface and cannot be instantiated"),
		}
	case reflect.Pointer:
		target := reflect.New(resolved.Elem())
		if err := Unmarshal(wrapped.Value, target.Interface()); err != nil {
			return nil, &DeserializationError{Type: wrapped.Type, Err: err}
		}
		return target.Interface(), nil
	default:
		target := reflect.New(resolved)
		if err := Unmarshal(wrapped.Value, target.Interface()); err != nil {
			return nil, &DeserializationError{Type: wrapped.Type, Err: err}
		}
		return target.Elem().Interface(), nil
	}
}

// PeekType returns the type name recorded in an envelope without
// resolving it. Useful for diagnostics when resolution fails.
func PeekType(data []byte, compressed bool) (string, error) {
	if compressed {
		decompressed, err := Decompress(data)
		if err != nil {
			return "", &DeserializationError{Err: err}
		}
		data = decompressed
	}
	var wrapped envelope
	if err := Unmarshal(data, &wrapped); err != nil {
		return "", &DeserializationError{Err: err}
	}
	return wrapped.Type, nil
}
