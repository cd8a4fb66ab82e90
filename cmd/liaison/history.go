// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/ledger"
)

func historyCommand(stdout io.Writer) *cli.Command {
	var (
		common     commonOptions
		ledgerPath string
	)
	return &cli.Command{
		Name:    "history",
		Summary: "Show recorded campaigns",
		Usage:   "liaison history [flags] [campaign]",
		Description: `Without arguments, list campaigns from newest to oldest. With a
campaign id, list that campaign's state transitions in order.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("history", pflag.ContinueOnError)
			common.bind(flagSet)
			flagSet.StringVar(&ledgerPath, "ledger", "", "ledger database (overrides config)")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 1 {
				return fmt.Errorf("history takes at most one campaign id, got %d arguments", len(args))
			}
			cfg, logger, err := common.load("history")
			if err != nil {
				return err
			}
			if ledgerPath != "" {
				cfg.Paths.Ledger = ledgerPath
			}
			if cfg.Paths.Ledger == "" {
				return fmt.Errorf("no ledger configured (set paths.ledger or pass --ledger)")
			}

			history, err := ledger.Open(ledger.Config{Path: cfg.Paths.Ledger, Logger: logger})
			if err != nil {
				return err
			}
			defer history.Close()

			if len(args) == 1 {
				return writeEvents(ctx, stdout, history, args[0])
			}
			return writeCampaigns(ctx, stdout, history)
		},
	}
}

func writeCampaigns(ctx context.Context, stdout io.Writer, history *ledger.Ledger) error {
	summaries, err := history.Campaigns(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(summaries))
	for _, summary := range summaries {
		rows = append(rows, []string{
			summary.Campaign,
			summary.First.Local().Format(time.DateTime),
			summary.Last.Sub(summary.First).Round(time.Millisecond).String(),
			strconv.Itoa(summary.Targets),
			strconv.Itoa(summary.Succeeded),
			strconv.Itoa(summary.Failed),
		})
	}
	return writeTable(stdout, []string{"CAMPAIGN", "STARTED", "DURATION", "TARGETS", "SUCCEEDED", "FAILED"}, rows)
}

func writeEvents(ctx context.Context, stdout io.Writer, history *ledger.Ledger, campaign string) error {
	events, err := history.Events(ctx, campaign)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return fmt.Errorf("campaign %q not found in %s", campaign, history.Path())
	}
	rows := make([][]string, 0, len(events))
	for _, event := range events {
		rows = append(rows, []string{
			event.At.Local().Format(time.TimeOnly),
			strconv.Itoa(event.PID),
			event.Name,
			event.From.String(),
			event.To.String(),
			event.Error,
		})
	}
	return writeTable(stdout, []string{"TIME", "PID", "NAME", "FROM", "TO", "ERROR"}, rows)
}
