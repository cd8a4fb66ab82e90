// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/config"
	"github.com/bureau-foundation/liaison/lib/inject"
	"github.com/bureau-foundation/liaison/lib/ledger"
	"github.com/bureau-foundation/liaison/lib/probe"
	"github.com/bureau-foundation/liaison/lib/remote"
)

type injectOptions struct {
	common      commonOptions
	all         bool
	label       string
	budget      int
	compression string
	wait        time.Duration
	noLedger    bool
	host        string
}

func injectCommand(stdout io.Writer) *cli.Command {
	var options injectOptions
	return &cli.Command{
		Name:    "inject",
		Summary: "Inject the probe agent into target processes",
		Usage:   "liaison inject [flags] (--all | <pid>...)",
		Description: `Package the probe strategy with a reporter callback served by this
process, then attach to each target, load the agent, and detach.

Targets report back over the callback socket. The command waits up
to --wait for one report per successful injection, prints what it
received, and records every state transition in the ledger.

Exits 1 when any target failed.`,
		Examples: []cli.Example{
			{Description: "Probe every attachable process", Command: "liaison inject --all --label nightly"},
			{Description: "Probe two processes with lz4 compression", Command: "liaison inject --compression lz4 4242 4343"},
		},
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("inject", pflag.ContinueOnError)
			options.common.bind(flagSet)
			flagSet.BoolVar(&options.all, "all", false, "inject into every discovered process")
			flagSet.StringVar(&options.label, "label", "", "label carried in every probe report")
			flagSet.IntVar(&options.budget, "budget", 0, "transport size limit in characters (default from config)")
			flagSet.StringVar(&options.compression, "compression", "", "none, zstd, or lz4 (default from config)")
			flagSet.DurationVar(&options.wait, "wait", 10*time.Second, "how long to wait for probe reports")
			flagSet.BoolVar(&options.noLedger, "no-ledger", false, "do not record transitions")
			flagSet.StringVar(&options.host, "host", "", "code location packaged as the host unit (default: this executable)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if options.all == (len(args) > 0) {
				return errors.New("specify either --all or at least one target pid")
			}
			cfg, logger, err := options.common.load("inject")
			if err != nil {
				return err
			}
			if options.budget > 0 {
				cfg.Payload.Budget = options.budget
			}
			if options.compression != "" {
				cfg.Payload.Compression = options.compression
			}
			return runInject(ctx, stdout, cfg, &options, args, logger)
		},
	}
}

// runInject serves the reporter callback for the whole campaign and
// stops serving once results are in.
func runInject(ctx context.Context, stdout io.Writer, cfg *config.Config, options *injectOptions, targets []string, logger *slog.Logger) error {
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}

	materializer, err := archive.NewMaterializer(archive.MaterializerConfig{
		Directory:    cfg.Paths.Units,
		Logger:       logger,
		DisableCache: cfg.Payload.DisableCache,
	})
	if err != nil {
		return err
	}
	defer materializer.Close()

	socketPath := filepath.Join(cfg.Paths.RuntimeDir, fmt.Sprintf("controller-%d.sock", os.Getpid()))
	exporter := remote.NewExporter(socketPath, logger)
	collector := probe.NewCollector(logger)

	group, groupCtx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(groupCtx)
	defer stopServing()

	group.Go(func() error {
		return exporter.Serve(serveCtx)
	})
	group.Go(func() error {
		defer stopServing()
		select {
		case <-exporter.Ready():
		case <-groupCtx.Done():
			return groupCtx.Err()
		}
		return runCampaign(groupCtx, stdout, cfg, options, targets, campaignParts{
			exporter:     exporter,
			materializer: materializer,
			collector:    collector,
		}, logger)
	})
	return group.Wait()
}

type campaignParts struct {
	exporter     *remote.Exporter
	materializer *archive.Materializer
	collector    *probe.Collector
}

func runCampaign(ctx context.Context, stdout io.Writer, cfg *config.Config, options *injectOptions, targets []string, parts campaignParts, logger *slog.Logger) error {
	payload, err := agent.Build(parts.collector, probe.Strategy{Label: options.label}, agent.BuildOptions{
		Exporter:     parts.exporter,
		Materializer: parts.materializer,
		HostLocation: options.host,
		Budget:       cfg.Payload.Budget,
		Compression:  cfg.Payload.Compression,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	observers := inject.Observers{logTransitions(logger)}
	if cfg.Paths.Ledger != "" && !options.noLedger {
		history, err := ledger.Open(ledger.Config{Path: cfg.Paths.Ledger, Logger: logger})
		if err != nil {
			return err
		}
		defer history.Close()
		observers = append(observers, history)
	}

	directory := attach.NewSocketDirectory(cfg.Paths.RuntimeDir, cfg.Attach.Controller, logger)
	controller, err := inject.New(payload, directory, inject.Options{
		Logger:   logger,
		Observer: observers,
	})
	if err != nil {
		return err
	}
	logger.Info("campaign starting",
		"campaign", controller.Campaign(),
		"payload_size", len(controller.Encoded()),
		"budget", cfg.Payload.Budget,
	)

	var report *inject.Report
	if options.all {
		report = controller.InjectIntoAll(ctx)
		if report.DiscoveryErr != nil {
			return fmt.Errorf("discovering targets: %w", report.DiscoveryErr)
		}
	} else {
		report = injectTargets(ctx, controller, targets)
	}

	fmt.Fprintf(stdout, "campaign %s: %d succeeded, %d failed, %d skipped\n",
		controller.Campaign(), report.Succeeded(), report.Failed(), report.Skipped())
	if err := writeOutcomes(stdout, report); err != nil {
		return err
	}

	if expected := report.Succeeded(); expected > 0 {
		waitCtx, cancel := context.WithTimeout(ctx, options.wait)
		defer cancel()
		if _, err := parts.collector.WaitForReports(waitCtx, expected); err != nil {
			logger.Warn("not every target reported",
				"expected", expected,
				"received", len(parts.collector.Reports()),
				"error", err,
			)
		}
	}
	if err := writeReports(stdout, parts.collector); err != nil {
		return err
	}

	if report.Failed() > 0 {
		return &cli.ExitError{Code: 1}
	}
	return nil
}

// injectTargets runs single-target injections in argument order and
// assembles the same report shape InjectIntoAll returns.
func injectTargets(ctx context.Context, controller *inject.Controller, targets []string) *inject.Report {
	report := &inject.Report{Campaign: controller.Campaign()}
	for _, target := range targets {
		report.Outcomes = append(report.Outcomes, targetOutcome(target, controller.InjectInto(ctx, target)))
	}
	return report
}

// targetOutcome maps an InjectInto result onto a report row.
func targetOutcome(target string, err error) inject.Outcome {
	outcome := inject.Outcome{State: inject.Detached, Err: err}
	if pid, parseErr := strconv.Atoi(target); parseErr == nil {
		outcome.Descriptor = attach.Descriptor{PID: pid, ID: target}
	} else {
		outcome.Descriptor = attach.Descriptor{ID: target}
	}

	var (
		argumentError *inject.ArgumentError
		stateError    *inject.StateError
	)
	switch {
	case err == nil:
	case errors.As(err, &argumentError):
		outcome.State = inject.AttachFailed
	case errors.As(err, &stateError):
		outcome.State = stateError.State
	default:
		outcome.State = inject.LoadFailed
	}
	return outcome
}

func writeOutcomes(stdout io.Writer, report *inject.Report) error {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, outcome := range report.Outcomes {
		detail := ""
		switch {
		case outcome.Err != nil:
			detail = outcome.Err.Error()
		case outcome.Skipped:
			detail = "skipped"
		}
		if outcome.HookErr != nil {
			detail += " (failure hook: " + outcome.HookErr.Error() + ")"
		}
		rows = append(rows, []string{
			outcome.Descriptor.ID,
			outcome.Descriptor.DisplayName,
			outcome.State.String(),
			detail,
		})
	}
	return writeTable(stdout, []string{"TARGET", "NAME", "STATE", "DETAIL"}, rows)
}

func writeReports(stdout io.Writer, collector *probe.Collector) error {
	var rows [][]string
	for _, report := range collector.Reports() {
		memory := report.MemoryMethod
		switch {
		case report.MemoryError != "":
			memory += " (" + report.MemoryError + ")"
		case report.MemoryVerified:
			memory += " (verified)"
		case memory == "":
			memory = "unavailable"
		}
		rows = append(rows, []string{
			strconv.Itoa(report.PID),
			report.Name,
			strconv.FormatUint(report.Snapshot.Goroutines, 10),
			strconv.FormatUint(report.Snapshot.HeapBytes, 10),
			strconv.Itoa(len(report.Units)),
			memory,
		})
	}
	for _, failure := range collector.Failures() {
		rows = append(rows, []string{
			strconv.Itoa(failure.Target.PID),
			failure.Target.DisplayName,
			"-", "-", "-",
			"attach failed: " + failure.Cause,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return writeTable(stdout, []string{"PID", "NAME", "GOROUTINES", "HEAP", "UNITS", "MEMORY"}, rows)
}

func logTransitions(logger *slog.Logger) inject.ObserverFunc {
	return func(ctx context.Context, transition inject.Transition) {
		attributes := []any{
			"pid", transition.Descriptor.PID,
			"from", transition.From.String(),
			"to", transition.To.String(),
		}
		if transition.Err != nil {
			attributes = append(attributes, "error", transition.Err)
		}
		logger.DebugContext(ctx, "target transition", attributes...)
	}
}
