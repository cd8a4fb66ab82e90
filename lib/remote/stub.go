// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bureau-foundation/liaison/lib/scope"
	"github.com/bureau-foundation/liaison/lib/service"
)

// StubTypeName is the registered name of [Stub].
const StubTypeName = "liaison/remote-stub"

func init() {
	scope.Register(StubTypeName, Stub{}, "")
}

// Stub is a serializable reference to an object exported by another
// process.
type Stub struct {
	// Socket is the exporter's Unix socket path.
	Socket string `cbor:"socket"`

	// Object identifies the exported object within the exporter.
	Object string `cbor:"object"`

	// Interfaces are the registered names of the remote interfaces
	// the object implements, sorted.
	Interfaces []string `cbor:"interfaces,omitempty"`
}

// Proxy is implemented by every value standing in for a remote object.
// Proxy types embed Stub, which provides the method.
type Proxy interface {
	RemoteStub() Stub
}

// RemoteStub returns s, making every Stub (and every struct embedding
// one) a Proxy.
func (s Stub) RemoteStub() Stub { return s }

func (s Stub) String() string {
	return fmt.Sprintf("%s@%s[%s]", s.Object, s.Socket, strings.Join(s.Interfaces, ","))
}

// Call invokes method on the remote object. request may be nil for
// methods without a request value; response may be nil to discard the
// result. Every failure is a *CallError.
func (s Stub) Call(ctx context.Context, method string, request, response any) error {
	fields := map[string]any{
		"object": s.Object,
		"method": method,
	}
	if request != nil {
		fields["request"] = request
	}

	err := service.NewServiceClient(s.Socket).Call(ctx, actionInvoke, fields, response)
	if err == nil {
		return nil
	}

	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		code := serviceErr.Code
		if code == "" {
			code = CodeRemoteError
		}
		return &CallError{Method: method, Code: code, Message: serviceErr.Message, Err: err}
	}
	return &CallError{Method: method, Code: CodeUnavailable, Message: err.Error(), Err: err}
}
