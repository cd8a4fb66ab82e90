// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
)

// Runner starts functions on their own goroutines and keeps track of
// them. Started work cannot be cancelled.
type Runner struct {
	logger *slog.Logger
	wg     sync.WaitGroup
}

// NewRunner returns a runner logging failures to logger.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger}
}

// Execution is one function started by a Runner.
type Execution struct {
	name string
	done chan struct{}
	err  error
}

// Name returns the name the execution was started with.
func (e *Execution) Name() string { return e.name }

// Done is closed when the function returns.
func (e *Execution) Done() <-chan struct{} { return e.done }

// Err returns the function's error. Valid after Done is closed.
func (e *Execution) Err() error { return e.err }

// Go runs fn on a new goroutine and returns immediately. fn receives
// a context that keeps ctx's values but not its cancellation. A panic
// in fn is recovered and becomes the execution's error.
func (r *Runner) Go(ctx context.Context, name string, fn func(context.Context) error) *Execution {
	execution := &Execution{name: name, done: make(chan struct{})}
	detached := context.WithoutCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(execution.done)
		defer func() {
			if recovered := recover(); recovered != nil {
				execution.err = fmt.Errorf("%s panicked: %v", name, recovered)
				r.logger.Error("execution panicked",
					"execution", name,
					"panic", recovered,
					"stack", string(debug.Stack()),
				)
			}
		}()

		if err := fn(detached); err != nil {
			execution.err = err
			r.logger.Error("execution failed", "execution", name, "error", err)
			return
		}
		r.logger.Debug("execution finished", "execution", name)
	}()
	return execution
}

// Wait blocks until every started function has returned.
func (r *Runner) Wait() { r.wg.Wait() }
