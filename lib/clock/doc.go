// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source.
//
// Components that stamp or expire things (attach sessions, campaign
// transitions, report collection windows) take a Clock instead of
// calling time.Now and time.After directly. Production code passes
// Real(); tests pass Fake() and move time forward with Advance:
//
//	c := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	listener := attach.NewListener(attach.ListenerConfig{Clock: c, ...})
//	c.Advance(3 * time.Minute) // the next request sees expired sessions
package clock
