// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package remote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/service"
)

const actionInvoke = "invoke"

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// Exporter makes local objects callable from other processes through
// its socket.
type Exporter struct {
	server *service.SocketServer
	logger *slog.Logger

	mu      sync.Mutex
	objects map[string]any
	ids     map[any]string
	next    uint64
}

// NewExporter returns an exporter that will serve on socketPath once
// Serve is called. Objects can be exported before Serve.
func NewExporter(socketPath string, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exporter := &Exporter{
		server:  service.NewSocketServer(socketPath, logger),
		logger:  logger,
		objects: make(map[string]any),
		ids:     make(map[any]string),
	}
	exporter.server.Handle(actionInvoke, exporter.handleInvoke)
	return exporter
}

// SocketPath returns the exporter's socket path.
func (e *Exporter) SocketPath() string { return e.server.SocketPath() }

// Ready is closed once Serve is accepting calls.
func (e *Exporter) Ready() <-chan struct{} { return e.server.Ready() }

// Serve accepts calls until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context) error { return e.server.Serve(ctx) }

// Export returns a stub for value. Exporting the same (comparable)
// value again returns the same stub.
func (e *Exporter) Export(value any) (Stub, error) {
	if value == nil {
		return Stub{}, errors.New("cannot export a nil value")
	}
	if _, isProxy := value.(Proxy); isProxy {
		return Stub{}, fmt.Errorf("cannot re-export proxy %T", value)
	}

	var names []string
	for _, iface := range InterfacesOf(value) {
		names = append(names, iface.Name)
	}

	comparable := reflect.TypeOf(value).Comparable()

	e.mu.Lock()
	defer e.mu.Unlock()

	if comparable {
		if id, ok := e.ids[value]; ok {
			return Stub{Socket: e.SocketPath(), Object: id, Interfaces: names}, nil
		}
	}

	e.next++
	id := fmt.Sprintf("obj-%d", e.next)
	e.objects[id] = value
	if comparable {
		e.ids[value] = id
	}

	e.logger.Debug("exported object", "object", id, "type", fmt.Sprintf("%T", value), "interfaces", names)
	return Stub{Socket: e.SocketPath(), Object: id, Interfaces: names}, nil
}

// Unexport withdraws the object behind stub. Later calls on the stub
// fail with CodeNoSuchObject.
func (e *Exporter) Unexport(stub Stub) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value, ok := e.objects[stub.Object]
	if !ok {
		return
	}
	delete(e.objects, stub.Object)
	if reflect.TypeOf(value).Comparable() {
		delete(e.ids, value)
	}
}

type invokeRequest struct {
	Object  string           `cbor:"object"`
	Method  string           `cbor:"method"`
	Request codec.RawMessage `cbor:"request,omitempty"`
}

func (e *Exporter) handleInvoke(ctx context.Context, raw []byte) (any, error) {
	var request invokeRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid invoke request: %w", err)
	}

	e.mu.Lock()
	object, ok := e.objects[request.Object]
	e.mu.Unlock()
	if !ok {
		return nil, &codedError{code: CodeNoSuchObject, err: fmt.Errorf("no exported object %q", request.Object)}
	}

	method, err := remoteMethod(object, request.Method)
	if err != nil {
		return nil, &codedError{code: CodeNoSuchMethod, err: err}
	}

	result, err := invoke(ctx, method, request.Request)
	if err != nil {
		e.logger.Debug("remote method failed",
			"object", request.Object,
			"method", request.Method,
			"error", err,
		)
		return nil, &codedError{code: CodeRemoteError, err: err}
	}
	return result, nil
}

// remoteMethod finds name among the methods of object's registered
// remote interfaces and checks its shape.
func remoteMethod(object any, name string) (reflect.Value, error) {
	declared := false
	for _, iface := range InterfacesOf(object) {
		if _, ok := iface.Type.MethodByName(name); ok {
			declared = true
			break
		}
	}
	if !declared {
		return reflect.Value{}, fmt.Errorf("%T has no remote method %q", object, name)
	}

	method := reflect.ValueOf(object).MethodByName(name)
	if !method.IsValid() {
		return reflect.Value{}, fmt.Errorf("%T has no method %q", object, name)
	}

	t := method.Type()
	if t.NumIn() < 1 || t.NumIn() > 2 || t.In(0) != contextType {
		return reflect.Value{}, fmt.Errorf("method %q must take (context.Context[, request])", name)
	}
	if t.NumOut() < 1 || t.NumOut() > 2 || t.Out(t.NumOut()-1) != errorType {
		return reflect.Value{}, fmt.Errorf("method %q must return ([response, ]error)", name)
	}
	return method, nil
}

// invoke decodes the request argument (if the method takes one), calls
// method, and returns its response value (if it has one).
func invoke(ctx context.Context, method reflect.Value, rawRequest codec.RawMessage) (any, error) {
	t := method.Type()
	arguments := []reflect.Value{reflect.ValueOf(ctx)}

	if t.NumIn() == 2 {
		argument := reflect.New(t.In(1))
		if len(rawRequest) > 0 {
			if err := codec.Unmarshal(rawRequest, argument.Interface()); err != nil {
				return nil, fmt.Errorf("decoding request for %s: %w", t, err)
			}
		}
		arguments = append(arguments, argument.Elem())
	}

	results := method.Call(arguments)

	if errValue := results[len(results)-1]; !errValue.IsNil() {
		return nil, errValue.Interface().(error)
	}
	if len(results) == 2 {
		return results[0].Interface(), nil
	}
	return nil, nil
}
