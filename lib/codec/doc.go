// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec is the payload codec: CBOR encoding, named-type
// envelopes, compression frames, and the text-safe transport encoding
// used to push a payload through the attach channel's single string
// argument.
//
// Three layers stack on top of each other:
//
//   - CBOR with Core Deterministic Encoding (RFC 8949 §4.2). Same
//     logical data always produces identical bytes, so a payload's
//     encoded size is a property of its content rather than of map
//     iteration order.
//   - Envelopes. [Serialize] wraps a value as {t: name, v: cbor} where
//     name is the value's registered type name. [Deserialize] resolves
//     the name through a [TypeResolver], which is where the target
//     process's visibility scope gets a say: a name the scope cannot
//     see fails with [*MissingDependencyError] rather than a generic
//     decode error.
//   - Compression frames and base64. [Compress] prepends a one-byte
//     [CompressionTag] and the uncompressed length; [EncodeForTransport]
//     produces standard base64 with no line breaks.
//
// For buffer-oriented operations:
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// # Struct Tag Rules
//
// Types that only ever travel as CBOR use `cbor` tags. Types that are
// also printed as JSON by the CLI use `json` tags, which fxamacker/cbor
// reads as a fallback. Never put both on one field.
package codec
