// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
	"github.com/bureau-foundation/liaison/lib/remote"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

const pingInterfaceName = "agent-test/ping"

type pinger interface {
	Pong(ctx context.Context) error
}

type pingerProxy struct{ remote.Stub }

func (p pingerProxy) Pong(ctx context.Context) error {
	return p.Call(ctx, "Pong", nil, nil)
}

type pingServer struct {
	pongs chan struct{}
}

func newPingServer() *pingServer {
	return &pingServer{pongs: make(chan struct{}, 4)}
}

func (p *pingServer) Pong(ctx context.Context) error {
	p.pongs <- struct{}{}
	return nil
}

// plainCallback implements no remote interface.
type plainCallback struct{ name string }

type pingStrategy struct {
	Label string `cbor:"label"`
}

func (s pingStrategy) InvokeCallback(ctx context.Context, callback any, inst instrument.Instrumentation, mem memaccess.Accessor) error {
	p, ok := callback.(pinger)
	if !ok {
		return fmt.Errorf("callback %T is not a pinger", callback)
	}
	return p.Pong(ctx)
}

func (s pingStrategy) OnAttachFailure(ctx context.Context, callback any, descriptor attach.Descriptor, cause error) error {
	return nil
}

type failingStrategy struct{}

func (failingStrategy) InvokeCallback(context.Context, any, instrument.Instrumentation, memaccess.Accessor) error {
	return errors.New("strategy failed")
}

func (failingStrategy) OnAttachFailure(context.Context, any, attach.Descriptor, error) error {
	return nil
}

type panickingStrategy struct{}

func (panickingStrategy) InvokeCallback(context.Context, any, instrument.Instrumentation, memaccess.Accessor) error {
	panic("strategy exploded")
}

func (panickingStrategy) OnAttachFailure(context.Context, any, attach.Descriptor, error) error {
	return nil
}

var observedMemory = make(chan string, 4)

type memoryStrategy struct{}

func (memoryStrategy) InvokeCallback(ctx context.Context, callback any, inst instrument.Instrumentation, mem memaccess.Accessor) error {
	if mem == nil {
		observedMemory <- ""
		return nil
	}
	observedMemory <- mem.Method()
	return nil
}

func (memoryStrategy) OnAttachFailure(context.Context, any, attach.Descriptor, error) error {
	return nil
}

type unregisteredStrategy struct{ pingStrategy }

// unitU1 provides pingInterfaceName.
var unitU1 string

func TestMain(m *testing.M) {
	directory, err := os.MkdirTemp("", "liaison-agent-test-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	unitU1, err = writeU1(directory)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.RemoveAll(directory)
		os.Exit(1)
	}

	remote.RegisterInterface[pinger](pingInterfaceName, unitU1, func(stub remote.Stub) pinger {
		return pingerProxy{stub}
	})
	RegisterStrategy("agent-test/ping-strategy", pingStrategy{})
	RegisterStrategy("agent-test/failing-strategy", failingStrategy{})
	RegisterStrategy("agent-test/panicking-strategy", panickingStrategy{})
	RegisterStrategy("agent-test/memory-strategy", memoryStrategy{})

	code := m.Run()
	os.RemoveAll(directory)
	os.Exit(code)
}

func writeU1(directory string) (string, error) {
	source := filepath.Join(directory, "u1-source")
	if err := os.MkdirAll(source, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(source, "ping.def"), []byte("Pong"), 0o644); err != nil {
		return "", err
	}
	path := filepath.Join(directory, "u1.zip")
	file, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer file.Close()
	if err := archive.Write(file, source, &archive.Manifest{Provides: []string{pingInterfaceName}}); err != nil {
		return "", err
	}
	return path, nil
}

type environment struct {
	exporter     *remote.Exporter
	materializer *archive.Materializer
	host         string
}

func newEnvironment(t *testing.T) *environment {
	t.Helper()

	exporter := remote.NewExporter(filepath.Join(testutil.SocketDir(t), "callback.sock"), nil)
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		exporter.Serve(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	testutil.RequireClosed(t, exporter.Ready(), 5*time.Second, "exporter ready")

	materializer, err := archive.NewMaterializer(archive.MaterializerConfig{Directory: t.TempDir()})
	if err != nil {
		t.Fatalf("NewMaterializer: %v", err)
	}
	t.Cleanup(func() { materializer.Close() })

	host := filepath.Join(t.TempDir(), "controller")
	if err := os.WriteFile(host, []byte("controller code"), 0o755); err != nil {
		t.Fatal(err)
	}

	return &environment{exporter: exporter, materializer: materializer, host: host}
}

func (e *environment) options() BuildOptions {
	return BuildOptions{
		Exporter:     e.exporter,
		Materializer: e.materializer,
		HostLocation: e.host,
	}
}

func (e *environment) build(t *testing.T, callback any, strategy Strategy) (*Payload, string) {
	t.Helper()
	payload, err := Build(callback, strategy, e.options())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	encoded, err := payload.TransportEncode()
	if err != nil {
		t.Fatalf("TransportEncode: %v", err)
	}
	return payload, encoded
}
