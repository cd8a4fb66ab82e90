// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Descriptor identifies a target process.
type Descriptor struct {
	PID int `cbor:"pid"`

	// ID is the identifier accepted by [Directory.AttachID]: the
	// decimal pid.
	ID string `cbor:"id"`

	// DisplayName is the process's command name. Best effort; empty
	// when unknown.
	DisplayName string `cbor:"name,omitempty"`

	// Socket is the path of the process's attach listener.
	Socket string `cbor:"socket,omitempty"`
}

func (d Descriptor) String() string {
	return fmt.Sprintf("{PID:%d,Name:%s}", d.PID, d.DisplayName)
}

// SocketPath returns the attach socket path for pid within directory.
func SocketPath(directory string, pid int) string {
	return filepath.Join(directory, fmt.Sprintf("attach-%d.sock", pid))
}

// parseSocketName returns the pid encoded in an attach socket file
// name.
func parseSocketName(name string) (int, bool) {
	trimmed, ok := strings.CutPrefix(name, "attach-")
	if !ok {
		return 0, false
	}
	trimmed, ok = strings.CutSuffix(trimmed, ".sock")
	if !ok {
		return 0, false
	}
	pid, err := strconv.Atoi(trimmed)
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processName reads /proc/<pid>/comm. Returns "" when unavailable.
func processName(pid int) string {
	data, err := os.ReadFile(filepath.Join("/proc", strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func describe(directory string, pid int) Descriptor {
	return Descriptor{
		PID:         pid,
		ID:          strconv.Itoa(pid),
		DisplayName: processName(pid),
		Socket:      SocketPath(directory, pid),
	}
}
