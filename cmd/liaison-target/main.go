// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Liaison-target is a process that accepts liaison agents. It serves
// an attach listener at <runtime dir>/attach-<pid>.sock until
// interrupted, and links the probe strategy so "liaison inject" can
// run against it.
//
// Programs that want to be injectable do the same thing: import
// lib/agent (which registers the callback entry point) plus the
// strategies they accept, and serve an attach.Listener.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/config"
	"github.com/bureau-foundation/liaison/lib/instrument"
	_ "github.com/bureau-foundation/liaison/lib/probe"
	"github.com/bureau-foundation/liaison/lib/process"
	"github.com/bureau-foundation/liaison/lib/scope"
	"github.com/bureau-foundation/liaison/lib/version"
)

// drainTimeout bounds how long shutdown waits for running strategies.
const drainTimeout = 5 * time.Second

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		runtimeDir  string
		verbose     bool
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("liaison-target", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "config file; defaults to $"+config.EnvironmentVariable)
	flagSet.StringVar(&runtimeDir, "runtime-dir", "", "directory for the attach socket (overrides config)")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Println(version.Full())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if runtimeDir != "" {
		cfg.Paths.RuntimeDir = runtimeDir
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := cli.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return err
	}
	if verbose {
		level = slog.LevelDebug
	}
	logger := cli.NewCommandLogger(level).With("pid", os.Getpid())
	// The agent bootstrapper and runner log through the default logger.
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, logger)
}

func loadConfig(path string) (*config.Config, error) {
	switch {
	case path != "":
		return config.LoadFile(path)
	case os.Getenv(config.EnvironmentVariable) != "":
		return config.Load()
	default:
		return config.Default(), nil
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	sessionTimeout, err := cfg.SessionTimeoutDuration()
	if err != nil {
		return err
	}

	materializer, err := archive.NewMaterializer(archive.MaterializerConfig{
		Directory:    filepath.Join(cfg.Paths.Units, fmt.Sprintf("target-%d", os.Getpid())),
		Logger:       logger,
		DisableCache: cfg.Payload.DisableCache,
	})
	if err != nil {
		return err
	}
	defer materializer.Close()

	runtime := instrument.NewRuntime(scope.New(scope.Default()), materializer, logger)
	listener, err := attach.NewListener(attach.ListenerConfig{
		SocketPath:      attach.SocketPath(cfg.Paths.RuntimeDir, os.Getpid()),
		Instrumentation: runtime,
		SessionTimeout:  sessionTimeout,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return listener.Serve(groupCtx)
	})
	group.Go(func() error {
		select {
		case <-listener.Ready():
			logger.Info("accepting agents",
				"socket", listener.SocketPath(),
				"entry_points", attach.EntryPoints(),
				"version", version.Info(),
			)
		case <-groupCtx.Done():
		}
		return nil
	})
	if err := group.Wait(); err != nil {
		return err
	}

	drainStrategies(logger)
	logger.Info("stopped", "units_loaded", len(runtime.Units()))
	return nil
}

// drainStrategies gives strategies started by loaded agents a bounded
// chance to finish before the process exits.
func drainStrategies(logger *slog.Logger) {
	done := make(chan struct{})
	go func() {
		agent.DefaultRunner().Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(drainTimeout):
		logger.Warn("strategies still running at shutdown", "waited", drainTimeout)
	}
}
