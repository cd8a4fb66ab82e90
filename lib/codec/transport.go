// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode"
)

// EncodeForTransport returns the standard base64 encoding of data.
// The output never contains line breaks, so it survives channels that
// carry exactly one line of text.
func EncodeForTransport(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeForTransport reverses [EncodeForTransport]. Whitespace is
// ignored, so text that was wrapped by an intermediary still decodes.
func DecodeForTransport(text string) ([]byte, error) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, text)

	data, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, fmt.Errorf("decoding transport text: %w", err)
	}
	return data, nil
}
