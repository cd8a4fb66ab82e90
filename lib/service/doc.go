// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package service implements the request/response protocol liaison
// speaks over Unix sockets.
//
// Each connection carries exactly one exchange: the client writes one
// CBOR map containing an "action" field plus action-specific fields,
// the server dispatches to the handler registered for that action and
// writes one [Response], and the connection closes. CBOR values are
// self-delimiting, so no framing is needed.
//
// Two protocols are built on it: the attach protocol served by every
// cooperating target (lib/attach) and the remote-invocation protocol
// served by a controller's exporter (lib/remote).
//
// Handler errors that implement ErrorCode() string propagate that code
// in the response so clients can rebuild typed errors from it.
package service
