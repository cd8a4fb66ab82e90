// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import "github.com/bureau-foundation/liaison/lib/attach"

// Outcome is the result of one target in a sweep.
type Outcome struct {
	Descriptor attach.Descriptor
	State      State
	Err        error

	// Skipped marks targets dropped for an I/O failure that is not
	// an attach or load refusal. The failure hook is not called.
	Skipped bool

	// HookErr is the failure hook's own error, if it was called and
	// failed.
	HookErr error
}

// Succeeded reports whether the agent was loaded and the target
// cleanly detached.
func (o Outcome) Succeeded() bool { return o.State == Detached && o.Err == nil }

// Report summarizes a sweep.
type Report struct {
	Campaign string
	Outcomes []Outcome

	// DiscoveryErr is set when listing targets failed; Outcomes is
	// then empty.
	DiscoveryErr error
}

// Succeeded counts targets that loaded the agent.
func (r *Report) Succeeded() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Succeeded() {
			count++
		}
	}
	return count
}

// Failed counts targets that failed and were not skipped.
func (r *Report) Failed() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if !outcome.Succeeded() && !outcome.Skipped {
			count++
		}
	}
	return count
}

// Skipped counts targets dropped for I/O failures.
func (r *Report) Skipped() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Skipped {
			count++
		}
	}
	return count
}
