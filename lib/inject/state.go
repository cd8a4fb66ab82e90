// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"fmt"
	"time"

	"github.com/bureau-foundation/liaison/lib/attach"
)

// State is a target's position in an injection attempt.
type State int

const (
	Discovered State = iota
	Attaching
	Attached
	Loading
	Detached
	AttachFailed
	LoadFailed
)

var stateNames = [...]string{
	Discovered:   "discovered",
	Attaching:    "attaching",
	Attached:     "attached",
	Loading:      "loading",
	Detached:     "detached",
	AttachFailed: "attach_failed",
	LoadFailed:   "load_failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of String.
func ParseState(name string) (State, error) {
	for state, stateName := range stateNames {
		if stateName == name {
			return State(state), nil
		}
	}
	return 0, fmt.Errorf("unknown injection state %q", name)
}

// Terminal reports whether no further transitions follow s.
func (s State) Terminal() bool {
	return s == Detached || s == AttachFailed || s == LoadFailed
}

// Transition records one state change of one target.
type Transition struct {
	Campaign   string
	Descriptor attach.Descriptor
	From       State
	To         State
	// Err is the failure that caused the transition, if any.
	Err error
	At  time.Time
}
