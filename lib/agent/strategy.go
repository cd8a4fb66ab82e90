// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"

	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
	"github.com/bureau-foundation/liaison/lib/scope"
)

// Strategy decides what an injected agent does with its callback.
// Implementations are plain serializable values registered with
// RegisterStrategy.
type Strategy interface {
	// InvokeCallback runs inside the target. callback is a proxy
	// implementing the callback's remote interfaces. mem is nil when
	// no raw-memory accessor could be acquired.
	InvokeCallback(ctx context.Context, callback any, inst instrument.Instrumentation, mem memaccess.Accessor) error

	// OnAttachFailure runs on the controller when a sweep could not
	// load the agent into descriptor. callback is the controller's
	// own callback object.
	OnAttachFailure(ctx context.Context, callback any, descriptor attach.Descriptor, cause error) error
}

// RegisterStrategy registers sample's type as a built-in strategy
// under name. Panics on conflicts; intended for init.
func RegisterStrategy(name string, sample Strategy) {
	scope.Register(name, sample, "")
}
