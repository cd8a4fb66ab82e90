// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/bureau-foundation/liaison/lib/codec"
)

// ActionFunc processes one request. raw is the full CBOR request
// (including the "action" field); handlers decode their own fields
// from it.
//
// A nil result produces {ok: true}; a non-nil result is marshaled into
// the response's "data" field.
type ActionFunc func(ctx context.Context, raw []byte) (any, error)

// Response is the wire envelope of every reply.
type Response struct {
	OK    bool             `cbor:"ok"`
	Error string           `cbor:"error,omitempty"`
	Code  string           `cbor:"code,omitempty"`
	Data  codec.RawMessage `cbor:"data,omitempty"`
}

// ErrorCoder is implemented by handler errors that carry a
// machine-readable code for the client.
type ErrorCoder interface {
	ErrorCode() string
}

// SocketServer serves the protocol on a Unix socket. Register actions
// with Handle before calling Serve.
type SocketServer struct {
	socketPath string
	handlers   map[string]ActionFunc
	logger     *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	activeConnections sync.WaitGroup
}

// NewSocketServer creates a server that will listen on socketPath. A
// nil logger discards output.
func NewSocketServer(socketPath string, logger *slog.Logger) *SocketServer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SocketServer{
		socketPath: socketPath,
		handlers:   make(map[string]ActionFunc),
		logger:     logger,
		ready:      make(chan struct{}),
	}
}

// SocketPath returns the path the server listens on.
func (s *SocketServer) SocketPath() string { return s.socketPath }

// Ready is closed once the socket is accepting connections.
func (s *SocketServer) Ready() <-chan struct{} { return s.ready }

// Handle registers handler for action. Panics on duplicates.
func (s *SocketServer) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("service.SocketServer: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Serve listens on the socket and dispatches requests until ctx is
// cancelled, then waits for in-flight handlers and returns. A stale
// socket file at the path is replaced; the socket file is removed on
// return.
func (s *SocketServer) Serve(ctx context.Context) error {
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing stale socket %s: %w", s.socketPath, err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.socketPath, err)
	}
	defer func() {
		listener.Close()
		os.Remove(s.socketPath)
	}()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	s.logger.Info("socket server listening", "path", s.socketPath)
	s.readyOnce.Do(func() { close(s.ready) })

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				break
			}
			s.logger.Error("accept failed", "error", err)
			continue
		}

		s.activeConnections.Add(1)
		go func() {
			defer s.activeConnections.Done()
			s.handleConnection(ctx, conn)
		}()
	}

	s.activeConnections.Wait()
	return nil
}

const (
	readTimeout  = 30 * time.Second
	writeTimeout = 10 * time.Second

	// maxRequestSize bounds a single request. Payload arguments are
	// capped at a few kilobytes of text; remote calls carry small
	// reports.
	maxRequestSize = 1024 * 1024
)

func (s *SocketServer) handleConnection(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	var raw codec.RawMessage
	if err := codec.NewDecoder(io.LimitReader(conn, maxRequestSize)).Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		s.reply(conn, failure(fmt.Sprintf("invalid request: %v", err), ""))
		return
	}
	s.reply(conn, s.dispatch(ctx, raw))
}

// dispatch routes one decoded request to its handler and builds the
// reply.
func (s *SocketServer) dispatch(ctx context.Context, raw codec.RawMessage) Response {
	var header struct {
		Action string `cbor:"action"`
	}
	if err := codec.Unmarshal(raw, &header); err != nil {
		return failure(fmt.Sprintf("invalid request: %v", err), "")
	}
	if header.Action == "" {
		return failure("missing required field: action", "")
	}
	handler, exists := s.handlers[header.Action]
	if !exists {
		return failure(fmt.Sprintf("unknown action %q", header.Action), "")
	}

	result, err := handler(ctx, []byte(raw))
	if err != nil {
		var code string
		var coder ErrorCoder
		if errors.As(err, &coder) {
			code = coder.ErrorCode()
		}
		s.logger.Debug("action failed", "action", header.Action, "code", code, "error", err)
		return failure(err.Error(), code)
	}

	response := Response{OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return failure(fmt.Sprintf("internal: marshaling response: %v", err), "")
		}
		response.Data = data
	}
	return response
}

func failure(message, code string) Response {
	return Response{Error: message, Code: code}
}

// reply writes response. Failures are logged at debug: the connection
// is closing regardless.
func (s *SocketServer) reply(conn net.Conn, response Response) {
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := codec.NewEncoder(conn).Encode(response); err != nil {
		s.logger.Debug("writing response", "ok", response.OK, "error", err)
	}
}
