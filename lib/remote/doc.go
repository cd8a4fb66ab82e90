// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package remote lets a payload running inside a target call back into
// the controller that injected it.
//
// The controller exports a local object with an [Exporter] and gets a
// [Stub]: the exporter's socket path, an object id, and the names of
// the remote interfaces the object implements. The stub is plain data
// and travels inside the payload. On the target, [Reconstruct] turns
// it back into a proxy that implements those interfaces, after
// checking that each interface name is visible in the target's scope.
// Calling a proxy method sends an "invoke" request to the exporter,
// which dispatches it to the exported object by reflection.
//
// Remote interfaces are registered with [RegisterInterface], which
// records the interface under a stable name (and the code location
// that provides it) and supplies the constructor for its proxy type:
//
//	type Ping interface {
//	    Pong(ctx context.Context) error
//	}
//
//	type pingProxy struct{ remote.Stub }
//
//	func (p pingProxy) Pong(ctx context.Context) error {
//	    return p.Call(ctx, "Pong", nil, nil)
//	}
//
//	func init() {
//	    remote.RegisterInterface[Ping]("example/ping", "", func(s remote.Stub) Ping { return pingProxy{s} })
//	}
//
// Remotely callable methods take a context and at most one request
// value, and return an error and at most one response value.
package remote
