// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"context"
	"log/slog"
	"sync"
)

// Collector gathers reports and failures on the controller. Safe for
// concurrent use; every target's calls arrive on their own connection.
type Collector struct {
	logger *slog.Logger

	mu       sync.Mutex
	reports  []Report
	failures []Failure
	changed  chan struct{}
}

// NewCollector returns an empty collector.
func NewCollector(logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Collector{logger: logger, changed: make(chan struct{})}
}

func (c *Collector) Report(ctx context.Context, report Report) error {
	c.logger.Info("probe report",
		"pid", report.PID,
		"name", report.Name,
		"goroutines", report.Snapshot.Goroutines,
		"memory_method", report.MemoryMethod,
		"memory_verified", report.MemoryVerified,
	)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	c.notifyLocked()
	return nil
}

func (c *Collector) AttachFailed(ctx context.Context, failure Failure) error {
	c.logger.Warn("probe could not attach", "target", failure.Target.String(), "cause", failure.Cause)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, failure)
	c.notifyLocked()
	return nil
}

func (c *Collector) notifyLocked() {
	close(c.changed)
	c.changed = make(chan struct{})
}

// Reports returns the reports received so far.
func (c *Collector) Reports() []Report {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Report(nil), c.reports...)
}

// Failures returns the failures received so far.
func (c *Collector) Failures() []Failure {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Failure(nil), c.failures...)
}

// WaitForReports blocks until at least n reports have arrived or ctx
// is done, and returns the reports received.
func (c *Collector) WaitForReports(ctx context.Context, n int) ([]Report, error) {
	for {
		c.mu.Lock()
		if len(c.reports) >= n {
			reports := append([]Report(nil), c.reports...)
			c.mu.Unlock()
			return reports, nil
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return c.Reports(), ctx.Err()
		}
	}
}
