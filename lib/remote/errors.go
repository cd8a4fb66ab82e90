// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import "fmt"

// Call error codes carried on the wire.
const (
	// CodeRemoteError: the remote method ran and returned an error.
	CodeRemoteError = "remote_error"

	// CodeNoSuchObject: the object id is not (or no longer) exported.
	CodeNoSuchObject = "no_such_object"

	// CodeNoSuchMethod: the method is not part of any remote
	// interface the object implements, or has an unsupported shape.
	CodeNoSuchMethod = "no_such_method"

	// CodeUnavailable: the exporter could not be reached. Never sent
	// on the wire; set by the client.
	CodeUnavailable = "unavailable"
)

// CallError reports a failed remote call.
type CallError struct {
	Method  string
	Code    string
	Message string
	Err     error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("remote call %s failed (%s): %s", e.Method, e.Code, e.Message)
}

func (e *CallError) Unwrap() error { return e.Err }

// codedError is a dispatch failure carrying its wire code.
type codedError struct {
	code string
	err  error
}

func (e *codedError) Error() string     { return e.err.Error() }
func (e *codedError) Unwrap() error     { return e.err }
func (e *codedError) ErrorCode() string { return e.code }
