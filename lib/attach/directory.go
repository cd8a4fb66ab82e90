// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package attach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/bureau-foundation/liaison/lib/service"
)

// Directory enumerates target processes and opens attach sessions.
type Directory interface {
	// List returns the currently attachable processes.
	List(ctx context.Context) ([]Descriptor, error)

	// Attach opens a session with the described process.
	Attach(ctx context.Context, descriptor Descriptor) (Handle, error)

	// AttachID opens a session with the process whose ID is id.
	AttachID(ctx context.Context, id string) (Handle, error)
}

// Handle is one attach session. It is owned by a single
// attach-load-detach sequence.
type Handle interface {
	Descriptor() Descriptor

	// LoadAgent asks the target to load unit and run its entry point
	// with argument. Target-side failures are *AgentLoadError or
	// *AgentInitializationError.
	LoadAgent(ctx context.Context, unit, argument string) error

	// Detach ends the session. Calling it again is a no-op.
	Detach(ctx context.Context) error
}

// SocketDirectory finds targets by their attach sockets in one runtime
// directory.
type SocketDirectory struct {
	directory  string
	controller string
	logger     *slog.Logger
}

// NewSocketDirectory returns a directory over the attach sockets in
// directory. controller names the caller in attach requests.
func NewSocketDirectory(directory, controller string, logger *slog.Logger) *SocketDirectory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketDirectory{directory: directory, controller: controller, logger: logger}
}

// Path returns the runtime directory being scanned.
func (d *SocketDirectory) Path() string { return d.directory }

// List returns live processes with an attach socket, ordered by pid.
// Sockets left behind by exited processes are skipped. A missing
// runtime directory lists nothing.
func (d *SocketDirectory) List(ctx context.Context) ([]Descriptor, error) {
	entries, err := os.ReadDir(d.directory)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing attach sockets in %s: %w", d.directory, err)
	}

	var descriptors []Descriptor
	for _, entry := range entries {
		if entry.Type()&os.ModeSocket == 0 {
			continue
		}
		pid, ok := parseSocketName(entry.Name())
		if !ok {
			continue
		}
		if !alive(pid) {
			d.logger.Debug("skipping stale attach socket", "pid", pid, "socket", entry.Name())
			continue
		}
		descriptors = append(descriptors, describe(d.directory, pid))
	}
	sort.Slice(descriptors, func(i, j int) bool { return descriptors[i].PID < descriptors[j].PID })
	return descriptors, nil
}

// alive reports whether a process with pid exists. EPERM means it
// exists but belongs to someone else.
func alive(pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (d *SocketDirectory) Attach(ctx context.Context, descriptor Descriptor) (Handle, error) {
	if descriptor.Socket == "" {
		descriptor.Socket = SocketPath(d.directory, descriptor.PID)
	}
	client := service.NewServiceClient(descriptor.Socket)

	var response attachResponse
	err := client.Call(ctx, actionAttach, map[string]any{"controller": d.controller}, &response)
	if err != nil {
		return nil, classifyAttachError(descriptor, err)
	}

	d.logger.Debug("attached", "pid", descriptor.PID, "session", response.Session)
	return &socketHandle{
		descriptor: descriptor,
		client:     client,
		session:    response.Session,
		logger:     d.logger,
	}, nil
}

func (d *SocketDirectory) AttachID(ctx context.Context, id string) (Handle, error) {
	pid, err := strconv.Atoi(id)
	if err != nil || pid <= 0 {
		return nil, fmt.Errorf("invalid process id %q: %w", id, ErrNotSupported)
	}
	return d.Attach(ctx, describe(d.directory, pid))
}

// classifyAttachError maps "no listener" and "listener said no" to
// ErrNotSupported. Other failures (timeouts, broken connections) stay
// plain I/O errors.
func classifyAttachError(descriptor Descriptor, err error) error {
	var serviceErr *service.ServiceError
	switch {
	case errors.As(err, &serviceErr):
		return fmt.Errorf("attaching to %s: %s: %w", descriptor, serviceErr.Message, ErrNotSupported)
	case errors.Is(err, unix.ENOENT), errors.Is(err, unix.ECONNREFUSED):
		return fmt.Errorf("attaching to %s: no attach listener: %w", descriptor, errors.Join(ErrNotSupported, err))
	default:
		return fmt.Errorf("attaching to %s: %w", descriptor, err)
	}
}

type socketHandle struct {
	descriptor Descriptor
	client     *service.ServiceClient
	session    string
	logger     *slog.Logger

	mu       sync.Mutex
	detached bool
}

func (h *socketHandle) Descriptor() Descriptor { return h.descriptor }

func (h *socketHandle) LoadAgent(ctx context.Context, unit, argument string) error {
	err := h.client.Call(ctx, actionLoadAgent, map[string]any{
		"session":  h.session,
		"unit":     unit,
		"argument": argument,
	}, nil)
	if err == nil {
		return nil
	}

	var serviceErr *service.ServiceError
	if errors.As(err, &serviceErr) {
		if typed := loadErrorFromWire(unit, serviceErr.Code, serviceErr.Message); typed != nil {
			return typed
		}
	}
	return fmt.Errorf("loading agent into %s: %w", h.descriptor, err)
}

func (h *socketHandle) Detach(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.detached {
		return nil
	}
	h.detached = true

	if err := h.client.Call(ctx, actionDetach, map[string]any{"session": h.session}, nil); err != nil {
		return fmt.Errorf("detaching from %s: %w", h.descriptor, err)
	}
	h.logger.Debug("detached", "pid", h.descriptor.PID, "session", h.session)
	return nil
}
