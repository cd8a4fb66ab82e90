// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import "fmt"

// ArgumentError reports a single-target injection whose target could
// not be attached to.
type ArgumentError struct {
	Target string
	Err    error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("could not attach to: %s: %v", e.Target, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }

// StateError reports a single-target injection that attached but
// failed to load the agent or to detach afterwards. State is the
// target's final state: LoadFailed when the load did not happen,
// Detached when only the detach failed.
type StateError struct {
	Target string
	State  State
	Err    error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("injecting agent into %s: %v", e.Target, e.Err)
}

func (e *StateError) Unwrap() error { return e.Err }
