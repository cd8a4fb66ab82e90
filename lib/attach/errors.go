// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"errors"
	"strings"
)

// Wire codes carried by failed attach protocol responses.
const (
	CodeNotAttached = "not_attached"
	CodeAgentLoad   = "agent_load"
	CodeAgentInit   = "agent_init"
)

// ErrNotSupported reports a process that cannot be attached to: it
// runs no listener, or its listener refused the session.
var ErrNotSupported = errors.New("attach not supported by target process")

const (
	loadPrefix = "could not load agent: "
	initPrefix = "could not initialize agent: "
)

// AgentLoadError reports a unit the target rejected before running
// its entry point.
type AgentLoadError struct {
	Unit   string
	Reason string
	Err    error
}

func (e *AgentLoadError) Error() string { return loadPrefix + e.Reason }

func (e *AgentLoadError) Unwrap() error { return e.Err }

// ErrorCode implements service.ErrorCoder.
func (e *AgentLoadError) ErrorCode() string { return CodeAgentLoad }

// AgentInitializationError reports an entry point that failed.
type AgentInitializationError struct {
	Unit   string
	Reason string
	Err    error
}

func (e *AgentInitializationError) Error() string { return initPrefix + e.Reason }

func (e *AgentInitializationError) Unwrap() error { return e.Err }

// ErrorCode implements service.ErrorCoder.
func (e *AgentInitializationError) ErrorCode() string { return CodeAgentInit }

type notAttachedError struct{ session string }

func (e *notAttachedError) Error() string {
	return "no attach session " + e.session + " (never opened, detached, or expired)"
}

func (e *notAttachedError) ErrorCode() string { return CodeNotAttached }

// loadErrorFromWire rebuilds the typed error for a failed load_agent
// response. Returns nil for codes it does not know.
func loadErrorFromWire(unit, code, message string) error {
	switch code {
	case CodeAgentLoad:
		return &AgentLoadError{Unit: unit, Reason: strings.TrimPrefix(message, loadPrefix)}
	case CodeAgentInit:
		return &AgentInitializationError{Unit: unit, Reason: strings.TrimPrefix(message, initPrefix)}
	}
	return nil
}
