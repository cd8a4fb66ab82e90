// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warn", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"trace", 0, true},
	}
	for _, test := range tests {
		got, err := ParseLevel(test.name)
		if (err != nil) != test.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", test.name, err, test.wantErr)
			continue
		}
		if got != test.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestNewLogger_JSONWhenNotTerminal(t *testing.T) {
	var output bytes.Buffer
	logger := newLogger(&output, false, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("attached", "pid", 42)

	lines := strings.Split(strings.TrimSpace(output.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1 (debug filtered): %q", len(lines), output.String())
	}
	var record map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &record); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if record["msg"] != "attached" || record["pid"] != float64(42) {
		t.Errorf("record = %v", record)
	}
}

func TestNewLogger_TextOnTerminal(t *testing.T) {
	var output bytes.Buffer
	newLogger(&output, true, slog.LevelDebug).Debug("detached", "pid", 7)
	if !strings.Contains(output.String(), "msg=detached") || !strings.Contains(output.String(), "pid=7") {
		t.Errorf("text output = %q", output.String())
	}
}

func TestExitError(t *testing.T) {
	var err error = &ExitError{Code: 3}
	coder, ok := err.(interface{ ExitCode() int })
	if !ok || coder.ExitCode() != 3 {
		t.Fatalf("ExitError does not report its code")
	}
	if err.Error() != "exit code 3" {
		t.Errorf("Error() = %q", err.Error())
	}
}
