// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Payloads cross process boundaries between binaries built at
// different times, so both directions are pinned here rather than
// left to library defaults.
var (
	encMode = mustEncMode()
	decMode = mustDecMode()
)

// mustEncMode uses Core Deterministic Encoding (RFC 8949 §4.2). Equal
// values always produce equal bytes, which keeps transport encodings
// and materializer cache keys stable.
func mustEncMode() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building CBOR encoder: " + err.Error())
	}
	return mode
}

// mustDecMode ignores unknown struct fields, so a target tolerates
// fields added by a newer controller, but rejects duplicate map keys.
// Untyped maps decode as map[string]any for Diagnose and the CLI.
func mustDecMode() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TextUnmarshaler: cbor.TextUnmarshalerTextString,
	}.DecMode()
	if err != nil {
		panic("codec: building CBOR decoder: " + err.Error())
	}
	return mode
}

// Marshal encodes v deterministically.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }

type (
	// Encoder writes a stream of CBOR values.
	Encoder = cbor.Encoder
	// Decoder reads a stream of CBOR values.
	Decoder = cbor.Decoder
	// RawMessage holds an undecoded value until its type is resolved.
	RawMessage = cbor.RawMessage
)

// NewEncoder returns a deterministic stream encoder on w.
func NewEncoder(w io.Writer) *Encoder { return encMode.NewEncoder(w) }

// NewDecoder returns a stream decoder on r.
func NewDecoder(r io.Reader) *Decoder { return decMode.NewDecoder(r) }

// Diagnose renders data in CBOR diagnostic notation (RFC 8949 §8).
func Diagnose(data []byte) (string, error) { return cbor.Diagnose(data) }
