// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/config"
	"github.com/bureau-foundation/liaison/lib/probe"
	"github.com/bureau-foundation/liaison/lib/scope"
	"github.com/bureau-foundation/liaison/lib/testutil"
)

func TestServeAcceptsAttachUntilCancelled(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.RuntimeDir = testutil.SocketDir(t)
	cfg.Paths.Units = t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var serveErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		serveErr = serve(ctx, cfg, slog.New(slog.DiscardHandler))
	}()

	socket := attach.SocketPath(cfg.Paths.RuntimeDir, os.Getpid())
	var description *attach.Description
	deadline := time.Now().Add(5 * time.Second)
	for {
		var err error
		description, err = attach.Describe(context.Background(), socket)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			cancel()
			wg.Wait()
			t.Fatalf("listener never answered describe: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	if description.PID != os.Getpid() {
		t.Errorf("described pid = %d, want %d", description.PID, os.Getpid())
	}
	if !slices.Contains(description.EntryPoints, agent.EntryPointName) {
		t.Errorf("entry points = %v, want %s", description.EntryPoints, agent.EntryPointName)
	}

	cancel()
	wg.Wait()
	if serveErr != nil {
		t.Errorf("serve returned %v", serveErr)
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Errorf("socket %s still present after shutdown", socket)
	}
}

func TestProbeStrategyLinked(t *testing.T) {
	for _, name := range []string{probe.StrategyName, probe.ReporterInterfaceName, agent.PayloadTypeName} {
		if _, ok := scope.Default().Lookup(name); !ok {
			t.Errorf("%s is not registered in this binary", name)
		}
	}
}

func TestLoadConfigPrefersFlag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.toml")
	if err := os.WriteFile(path, []byte("[attach]\nsession_timeout = \"45s\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvironmentVariable, "/nonexistent/liaison.yaml")

	cfg, err := loadConfig(path)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Attach.SessionTimeout != "45s" {
		t.Errorf("session timeout = %s, want 45s", cfg.Attach.SessionTimeout)
	}

	t.Setenv(config.EnvironmentVariable, "")
	cfg, err = loadConfig("")
	if err != nil {
		t.Fatalf("loadConfig default: %v", err)
	}
	if cfg.Attach.SessionTimeout != "2m" {
		t.Errorf("default session timeout = %s", cfg.Attach.SessionTimeout)
	}
}
