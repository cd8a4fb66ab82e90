// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
	"github.com/bureau-foundation/liaison/lib/remote"
	"github.com/bureau-foundation/liaison/lib/scope"
)

// PayloadTypeName is the registered name of [Payload].
const PayloadTypeName = "liaison/agent-payload"

// DefaultBudget is the default limit, in characters, of a
// transport-encoded payload.
const DefaultBudget = 1024

// dependencySeparator joins DependencyPaths.
const dependencySeparator = ":"

func init() {
	scope.Register(PayloadTypeName, &Payload{}, "")
}

var payloadType = reflect.TypeFor[*Payload]()

// Payload is the unit of injection: a callback reference, a strategy,
// and the units the callback's interfaces need on the target.
type Payload struct {
	// CallbackBytes is the uncompressed codec envelope of the
	// callback's remote.Stub.
	CallbackBytes []byte `cbor:"callback"`

	// StrategyBytes is the uncompressed codec envelope of the
	// strategy.
	StrategyBytes []byte `cbor:"strategy"`

	// DependencyPaths is the ordered, colon-joined list of unit
	// paths providing the callback's remote interfaces.
	DependencyPaths string `cbor:"dependencies,omitempty"`

	callback    any
	strategy    Strategy
	hostUnit    string
	namer       codec.TypeNamer
	budget      int
	compression codec.CompressionTag

	encodeOnce sync.Once
	encoded    string
	encodeErr  error
}

// payloadNamer resolves the payload's own type even when the
// registry in use is not the default one.
type payloadNamer struct {
	codec.TypeNamer
}

func (n payloadNamer) TypeName(t reflect.Type) (string, error) {
	if t == payloadType {
		return PayloadTypeName, nil
	}
	return n.TypeNamer.TypeName(t)
}

// TransportEncode returns the payload's transport encoding. The
// encoding is computed once and reused. Fails with *PackagingError
// wrapping ErrSizeExceeded when it exceeds the budget.
func (p *Payload) TransportEncode() (string, error) {
	p.encodeOnce.Do(func() {
		p.encoded, p.encodeErr = p.encode()
	})
	return p.encoded, p.encodeErr
}

func (p *Payload) encode() (string, error) {
	namer := p.namer
	if namer == nil {
		namer = scope.Default()
	}
	budget := p.budget
	if budget <= 0 {
		budget = DefaultBudget
	}

	for _, field := range []struct {
		name string
		data []byte
	}{
		{"callback", p.CallbackBytes},
		{"strategy", p.StrategyBytes},
	} {
		if size := len(codec.EncodeForTransport(field.data)); size > budget {
			return "", sizeError(field.name, size, budget)
		}
	}

	data, err := codec.SerializeWith(payloadNamer{namer}, p, p.compression)
	if err != nil {
		return "", &PackagingError{Stage: StageSerialize, Err: err}
	}
	text := codec.EncodeForTransport(data)
	if len(text) > budget {
		return "", sizeError("agent", len(text), budget)
	}
	return text, nil
}

// Decode reverses TransportEncode. The payload type is built in, so
// any scope resolves it; the embedded callback and strategy are not
// decoded until Reconstruct.
func Decode(text string, resolver codec.TypeResolver) (*Payload, error) {
	data, err := codec.DecodeForTransport(text)
	if err != nil {
		return nil, &codec.DeserializationError{Err: err}
	}
	payload, err := codec.Deserialize[*Payload](resolver, data, true)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, &codec.DeserializationError{Err: fmt.Errorf("empty payload")}
	}
	payload.compression, _ = codec.FrameTag(data)
	return payload, nil
}

// Dependencies returns the dependency unit paths in order.
func (p *Payload) Dependencies() []string {
	if p.DependencyPaths == "" {
		return nil
	}
	return strings.Split(p.DependencyPaths, dependencySeparator)
}

// LoadDependencies makes every dependency loadable and passes the
// resulting path to extend, in order. materializer may be nil when
// extend converts locations itself.
func (p *Payload) LoadDependencies(materializer *archive.Materializer, extend func(path string) error) error {
	for _, dependency := range p.Dependencies() {
		path := dependency
		if materializer != nil {
			loadable, err := materializer.EnsureLoadable(dependency, nil)
			if err != nil {
				return fmt.Errorf("loading dependency %s: %w", dependency, err)
			}
			path = loadable
		}
		if err := extend(path); err != nil {
			return fmt.Errorf("loading dependency %s: %w", dependency, err)
		}
	}
	return nil
}

// Reconstruct decodes the callback and strategy using resolver. A name
// the resolver cannot see yet fails with *codec.MissingDependencyError.
func (p *Payload) Reconstruct(resolver codec.TypeResolver) (remote.Proxy, Strategy, error) {
	stub, err := codec.Deserialize[remote.Stub](resolver, p.CallbackBytes, false)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding callback: %w", err)
	}
	proxy, err := remote.Reconstruct(resolver, stub)
	if err != nil {
		return nil, nil, fmt.Errorf("reconstructing callback %s: %w", stub, err)
	}
	strategy, err := codec.Deserialize[Strategy](resolver, p.StrategyBytes, false)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding strategy: %w", err)
	}

	p.callback = proxy
	p.strategy = strategy
	return proxy, strategy, nil
}

// Callback returns the live callback: the exported object on the
// controller, the reconstructed proxy on the target.
func (p *Payload) Callback() any { return p.callback }

// Strategy returns the live strategy.
func (p *Payload) Strategy() Strategy { return p.strategy }

// HostUnit returns the unit targets load to run the payload. Set only
// on payloads built by Build.
func (p *Payload) HostUnit() string { return p.hostUnit }

// ExecutionName describes the strategy invocation for logs.
func (p *Payload) ExecutionName() string {
	callback := "<nil>"
	if proxy, ok := p.callback.(remote.Proxy); ok {
		callback = proxy.RemoteStub().String()
	} else if p.callback != nil {
		callback = fmt.Sprintf("%T", p.callback)
	}
	return fmt.Sprintf("Payload{%T.InvokeCallback(%s)}", p.strategy, callback)
}

// Run starts the strategy on runner and returns without waiting.
// Reconstruct must have succeeded first.
func (p *Payload) Run(ctx context.Context, runner *Runner, inst instrument.Instrumentation, mem memaccess.Accessor) *Execution {
	strategy, callback := p.strategy, p.callback
	return runner.Go(ctx, p.ExecutionName(), func(ctx context.Context) error {
		if strategy == nil {
			return fmt.Errorf("payload has not been reconstructed")
		}
		return strategy.InvokeCallback(ctx, callback, inst, mem)
	})
}
