// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"errors"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

func TestClientCallRoundtrip(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "c.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("add", func(ctx context.Context, raw []byte) (any, error) {
		var request struct {
			A int `cbor:"a"`
			B int `cbor:"b"`
		}
		if err := codec.Unmarshal(raw, &request); err != nil {
			return nil, err
		}
		return map[string]int{"sum": request.A + request.B}, nil
	})
	startServer(t, server)

	client := NewServiceClient(socketPath)
	var result struct {
		Sum int `cbor:"sum"`
	}
	if err := client.Call(context.Background(), "add", map[string]any{"a": 2, "b": 3}, &result); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if result.Sum != 5 {
		t.Errorf("sum = %d, want 5", result.Sum)
	}

	// A nil result pointer discards the data.
	if err := client.Call(context.Background(), "add", map[string]any{"a": 1, "b": 1}, nil); err != nil {
		t.Errorf("Call with nil result: %v", err)
	}
}

func TestClientServiceErrorCarriesCode(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "c.sock")
	server := NewSocketServer(socketPath, testLogger())
	server.Handle("fail", func(ctx context.Context, raw []byte) (any, error) {
		return nil, &codedError{code: "not_attached"}
	})
	startServer(t, server)

	err := NewServiceClient(socketPath).Call(context.Background(), "fail", nil, nil)

	var serviceErr *ServiceError
	if !errors.As(err, &serviceErr) {
		t.Fatalf("error = %v (%T), want *ServiceError", err, err)
	}
	if serviceErr.Code != "not_attached" || serviceErr.Action != "fail" {
		t.Errorf("ServiceError = %+v", serviceErr)
	}
}

func TestClientMissingSocket(t *testing.T) {
	socketPath := filepath.Join(testutil.SocketDir(t), "absent.sock")

	err := NewServiceClient(socketPath).Call(context.Background(), "anything", nil, nil)
	if err == nil {
		t.Fatal("Call to a missing socket succeeded")
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		t.Error("connection failure reported as a ServiceError")
	}
	if !errors.Is(err, syscall.ENOENT) {
		t.Errorf("error = %v, want it to wrap ENOENT", err)
	}
}
