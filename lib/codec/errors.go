// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"errors"
	"fmt"
)

// ErrNotSerializable is returned by [Serialize] when a value cannot be
// packaged: its type is not registered, or its object graph contains
// members CBOR cannot represent (functions, channels, unsafe pointers).
var ErrNotSerializable = errors.New("value is not serializable")

// DeserializationError reports bytes that could not be decoded: a
// corrupt compression frame, malformed CBOR, an envelope without a
// type name, or a decoded value of the wrong type.
type DeserializationError struct {
	// Type is the registered type name being decoded, when known.
	Type string
	Err  error
}

func (e *DeserializationError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("could not deserialize: %v", e.Err)
	}
	return fmt.Sprintf("could not deserialize %s: %v", e.Type, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

// MissingDependencyError reports a registered type name that the
// current visibility scope cannot resolve. On a target process this is
// the expected failure when dependency units have not been appended
// to the scope yet.
type MissingDependencyError struct {
	// Name is the unresolved type name.
	Name string
	// Location is the code location the type was registered with, if
	// the registry knows it.
	Location string
	Err      error
}

func (e *MissingDependencyError) Error() string {
	message := fmt.Sprintf("type %q is not visible in the current scope", e.Name)
	if e.Location != "" {
		message += fmt.Sprintf(" (provided by %s)", e.Location)
	}
	if e.Err != nil {
		message += ": " + e.Err.Error()
	}
	return message
}

func (e *MissingDependencyError) Unwrap() error { return e.Err }
