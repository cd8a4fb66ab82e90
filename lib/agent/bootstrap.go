// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/instrument"
	"github.com/bureau-foundation/liaison/lib/memaccess"
)

// EntryPointName is the entry point host units declare.
const EntryPointName = "liaison/callback-agent"

func init() {
	attach.RegisterEntryPoint(EntryPointName, func(ctx context.Context, argument string, inst instrument.Instrumentation) error {
		bootstrapper, err := DefaultBootstrapper()
		if err != nil {
			return err
		}
		return bootstrapper.Bootstrap(ctx, argument, inst)
	})
}

// Bootstrapper runs payloads inside a target process.
type Bootstrapper struct {
	// Materializer converts dependency locations that are not units.
	// May be nil when the instrumentation converts them itself.
	Materializer *archive.Materializer

	// Memory supplies the raw-memory accessor. Nil means strategies
	// always receive a nil accessor.
	Memory *memaccess.Provider

	// Runner runs strategies. Required.
	Runner *Runner

	Logger *slog.Logger
}

var defaultBootstrapper = sync.OnceValues(func() (*Bootstrapper, error) {
	logger := slog.Default().With("component", "agent-bootstrap")
	materializer, err := archive.NewMaterializer(archive.MaterializerConfig{
		Directory: filepath.Join(os.TempDir(), fmt.Sprintf("liaison-target-%d", os.Getpid())),
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	return &Bootstrapper{
		Materializer: materializer,
		Memory:       memaccess.DefaultProvider(logger),
		Runner:       DefaultRunner(),
		Logger:       logger,
	}, nil
})

// DefaultBootstrapper returns the process-wide bootstrapper used by
// the registered entry point. Its materializer is never closed: units
// it creates stay for the life of the host's temporary directory.
func DefaultBootstrapper() (*Bootstrapper, error) { return defaultBootstrapper() }

var defaultRunner = sync.OnceValue(func() *Runner {
	return NewRunner(slog.Default().With("component", "agent-runner"))
})

// DefaultRunner returns the process-wide runner strategies started by
// the registered entry point run on.
func DefaultRunner() *Runner { return defaultRunner() }

// Bootstrap decodes argument as a payload and starts its strategy.
// It returns once the strategy is running. Decode, dependency, and
// reconstruction failures are returned; strategy failures are only
// logged.
func (b *Bootstrapper) Bootstrap(ctx context.Context, argument string, inst instrument.Instrumentation) error {
	_, err := b.bootstrap(ctx, argument, inst)
	return err
}

func (b *Bootstrapper) bootstrap(ctx context.Context, argument string, inst instrument.Instrumentation) (*Execution, error) {
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if b.Runner == nil {
		return nil, fmt.Errorf("bootstrapper has no runner")
	}

	payload, err := Decode(argument, inst.Scope())
	if err != nil {
		logger.Error("decoding agent payload", "error", err)
		return nil, fmt.Errorf("decoding agent payload: %w", err)
	}

	if err := payload.LoadDependencies(b.Materializer, inst.AppendToScope); err != nil {
		logger.Error("loading agent dependencies", "dependencies", payload.DependencyPaths, "error", err)
		return nil, err
	}

	if _, _, err := payload.Reconstruct(inst.Scope()); err != nil {
		logger.Error("reconstructing agent payload", "error", err)
		return nil, err
	}

	var mem memaccess.Accessor
	if b.Memory != nil {
		mem = b.Memory.Acquire()
	}
	if mem == nil {
		logger.Warn("running strategy without raw memory access")
	}

	execution := payload.Run(ctx, b.Runner, inst, mem)
	logger.Info("started agent strategy", "execution", execution.Name())
	return execution, nil
}
