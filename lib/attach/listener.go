// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/clock"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/service"
)

const (
	actionAttach    = "attach"
	actionLoadAgent = "load_agent"
	actionDetach    = "detach"
	actionDescribe  = "describe"
)

// DefaultSessionTimeout bounds how long an undetached session stays
// valid.
const DefaultSessionTimeout = 2 * time.Minute

// ListenerConfig configures a [Listener].
type ListenerConfig struct {
	// SocketPath is where the listener serves, normally
	// SocketPath(runtimeDir, os.Getpid()).
	SocketPath string

	// Instrumentation is passed to every entry point and receives
	// loaded units. Required.
	Instrumentation instrument.Instrumentation

	// SessionTimeout defaults to DefaultSessionTimeout.
	SessionTimeout time.Duration

	// Clock defaults to clock.Real().
	Clock clock.Clock

	Logger *slog.Logger
}

// Listener is the target-side half of the attach protocol.
type Listener struct {
	server  *service.SocketServer
	inst    instrument.Instrumentation
	timeout time.Duration
	clock   clock.Clock
	logger  *slog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	controller string
	expires    time.Time
}

// NewListener validates config and registers the protocol actions.
func NewListener(config ListenerConfig) (*Listener, error) {
	if config.SocketPath == "" {
		return nil, fmt.Errorf("attach listener: socket path is required")
	}
	if config.Instrumentation == nil {
		return nil, fmt.Errorf("attach listener: instrumentation is required")
	}
	if config.SessionTimeout <= 0 {
		config.SessionTimeout = DefaultSessionTimeout
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	l := &Listener{
		server:   service.NewSocketServer(config.SocketPath, config.Logger),
		inst:     config.Instrumentation,
		timeout:  config.SessionTimeout,
		clock:    config.Clock,
		logger:   config.Logger,
		sessions: make(map[string]*session),
	}
	l.server.Handle(actionAttach, l.handleAttach)
	l.server.Handle(actionLoadAgent, l.handleLoadAgent)
	l.server.Handle(actionDetach, l.handleDetach)
	l.server.Handle(actionDescribe, l.handleDescribe)
	return l, nil
}

// SocketPath returns the listening socket.
func (l *Listener) SocketPath() string { return l.server.SocketPath() }

// Ready is closed once the socket accepts connections.
func (l *Listener) Ready() <-chan struct{} { return l.server.Ready() }

// Serve blocks until ctx is cancelled.
func (l *Listener) Serve(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(l.SocketPath()), 0o700); err != nil {
		return fmt.Errorf("creating attach socket directory: %w", err)
	}
	return l.server.Serve(ctx)
}

// Sessions returns the number of live sessions.
func (l *Listener) Sessions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expireLocked()
	return len(l.sessions)
}

type attachRequest struct {
	Controller string `cbor:"controller"`
}

type attachResponse struct {
	Session string `cbor:"session"`
}

func (l *Listener) handleAttach(ctx context.Context, raw []byte) (any, error) {
	var request attachRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid attach request: %w", err)
	}

	id, err := newSessionID()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.expireLocked()
	l.sessions[id] = &session{
		controller: request.Controller,
		expires:    l.clock.Now().Add(l.timeout),
	}
	l.mu.Unlock()

	l.logger.Info("controller attached", "session", id, "controller", request.Controller)
	return attachResponse{Session: id}, nil
}

type loadAgentRequest struct {
	Session  string `cbor:"session"`
	Unit     string `cbor:"unit"`
	Argument string `cbor:"argument"`
}

func (l *Listener) handleLoadAgent(ctx context.Context, raw []byte) (any, error) {
	var request loadAgentRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid load_agent request: %w", err)
	}
	if err := l.checkSession(request.Session); err != nil {
		return nil, err
	}
	return nil, l.loadAgent(ctx, request.Unit, request.Argument)
}

func (l *Listener) loadAgent(ctx context.Context, unitPath, argument string) error {
	unit, err := archive.Open(unitPath)
	if err != nil {
		return &AgentLoadError{Unit: unitPath, Reason: unitPath + " is not a loadable unit", Err: err}
	}
	name := unit.Manifest.EntryPoint
	if name == "" {
		return &AgentLoadError{Unit: unitPath, Reason: unitPath + " declares no entry point"}
	}
	entry, ok := LookupEntryPoint(name)
	if !ok {
		return &AgentLoadError{Unit: unitPath, Reason: fmt.Sprintf("entry point %q is not registered in this process", name)}
	}
	if err := l.inst.AppendToScope(unitPath); err != nil {
		return &AgentLoadError{Unit: unitPath, Reason: err.Error(), Err: err}
	}

	l.logger.Info("running agent entry point", "unit", unitPath, "entry_point", name)
	if err := runEntryPoint(ctx, entry, argument, l.inst); err != nil {
		l.logger.Error("agent entry point failed", "unit", unitPath, "entry_point", name, "error", err)
		return &AgentInitializationError{Unit: unitPath, Reason: err.Error(), Err: err}
	}
	return nil
}

func runEntryPoint(ctx context.Context, entry EntryPoint, argument string, inst instrument.Instrumentation) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("entry point panicked: %v", recovered)
		}
	}()
	return entry(ctx, argument, inst)
}

type detachRequest struct {
	Session string `cbor:"session"`
}

func (l *Listener) handleDetach(ctx context.Context, raw []byte) (any, error) {
	var request detachRequest
	if err := codec.Unmarshal(raw, &request); err != nil {
		return nil, fmt.Errorf("invalid detach request: %w", err)
	}
	if err := l.checkSession(request.Session); err != nil {
		return nil, err
	}

	l.mu.Lock()
	delete(l.sessions, request.Session)
	l.mu.Unlock()

	l.logger.Info("controller detached", "session", request.Session)
	return nil, nil
}

// Description is the describe action's response.
type Description struct {
	PID         int      `cbor:"pid"`
	Name        string   `cbor:"name"`
	Units       []string `cbor:"units"`
	EntryPoints []string `cbor:"entry_points"`
}

func (l *Listener) handleDescribe(ctx context.Context, raw []byte) (any, error) {
	pid := os.Getpid()
	name := processName(pid)
	if name == "" {
		name = filepath.Base(os.Args[0])
	}
	return Description{
		PID:         pid,
		Name:        name,
		Units:       l.inst.Units(),
		EntryPoints: EntryPoints(),
	}, nil
}

// Describe asks the listener at socketPath for its [Description].
func Describe(ctx context.Context, socketPath string) (*Description, error) {
	var description Description
	if err := service.NewServiceClient(socketPath).Call(ctx, actionDescribe, nil, &description); err != nil {
		return nil, err
	}
	return &description, nil
}

func (l *Listener) checkSession(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.expireLocked()
	if _, ok := l.sessions[id]; !ok {
		return &notAttachedError{session: id}
	}
	return nil
}

// expireLocked drops sessions past their deadline. Caller holds l.mu.
func (l *Listener) expireLocked() {
	now := l.clock.Now()
	for id, s := range l.sessions {
		if !now.Before(s.expires) {
			delete(l.sessions, id)
			l.logger.Warn("attach session expired without detach", "session", id, "controller", s.controller)
		}
	}
}

func newSessionID() (string, error) {
	var buffer [8]byte
	if _, err := rand.Read(buffer[:]); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(buffer[:]), nil
}
