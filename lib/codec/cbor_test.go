// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"strings"
	"testing"
)

type sampleMessage struct {
	Action string `cbor:"action"`
	Target string `cbor:"target,omitempty"`
	Count  int    `cbor:"count"`
}

func TestMarshalUnmarshalRoundtrip(t *testing.T) {
	original := sampleMessage{Action: "load_agent", Target: "4242", Count: 3}

	data, err := Marshal(original)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var decoded sampleMessage
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if decoded != original {
		t.Errorf("roundtrip mismatch: got %+v, want %+v", decoded, original)
	}
}

func TestMarshalDeterministic(t *testing.T) {
	value := map[string]any{"zeta": 1, "alpha": 2, "mid": []string{"a", "b"}}

	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("first Marshal: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal #%d: %v", i, err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("deterministic encoding violated: %x != %x", first, again)
		}
	}
}

func TestEncoderDecoderStreamRoundtrip(t *testing.T) {
	messages := []sampleMessage{
		{Action: "attach", Count: 1},
		{Action: "load_agent", Target: "7", Count: 2},
		{Action: "detach"},
	}

	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, message := range messages {
		if err := encoder.Encode(message); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}

	decoder := NewDecoder(&buffer)
	for i, want := range messages {
		var got sampleMessage
		if err := decoder.Decode(&got); err != nil {
			t.Fatalf("Decode message %d: %v", i, err)
		}
		if got != want {
			t.Errorf("message %d: got %+v, want %+v", i, got, want)
		}
	}
}

func TestUnmarshalAnyYieldsStringKeyedMaps(t *testing.T) {
	data, err := Marshal(map[string]any{"nested": map[string]any{"key": "value"}})
	if err != nil {
		t.Fatal(err)
	}

	var decoded any
	if err := Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	top, ok := decoded.(map[string]any)
	if !ok {
		t.Fatalf("decoded %T, want map[string]any", decoded)
	}
	if _, ok := top["nested"].(map[string]any); !ok {
		t.Errorf("nested value is %T, want map[string]any", top["nested"])
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(sampleMessage{Action: "describe"})
	if err != nil {
		t.Fatal(err)
	}
	notation, err := Diagnose(data)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(notation, `"describe"`) {
		t.Errorf("diagnostic notation %q does not mention the action", notation)
	}
}

func TestUnmarshalInvalidCBOR(t *testing.T) {
	var message sampleMessage
	if err := Unmarshal([]byte{0xff, 0xfe, 0xfd}, &message); err == nil {
		t.Fatal("Unmarshal accepted garbage")
	}
}

func TestUnmarshalRejectsDuplicateKeys(t *testing.T) {
	// {"a": 1, "a": 2}
	data := []byte{0xa2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	var decoded map[string]any
	if err := Unmarshal(data, &decoded); err == nil {
		t.Fatalf("duplicate map key accepted: %v", decoded)
	}
}
