// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liaison/lib/attach"
	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/config"
)

func listCommand(stdout io.Writer) *cli.Command {
	var (
		common   commonOptions
		describe bool
	)
	return &cli.Command{
		Name:    "list",
		Summary: "List processes that accept attach requests",
		Description: `List processes with a live attach socket in the runtime directory.

With --describe, each process is asked for its loaded units and
registered entry points.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("list", pflag.ContinueOnError)
			common.bind(flagSet)
			flagSet.BoolVar(&describe, "describe", false, "query each process for units and entry points")
			return flagSet
		},
		Run: func(ctx context.Context, args []string) error {
			if len(args) > 0 {
				return fmt.Errorf("list takes no arguments, got %q", args)
			}
			cfg, logger, err := common.load("list")
			if err != nil {
				return err
			}
			return runList(ctx, stdout, cfg, describe, logger)
		},
	}
}

func runList(ctx context.Context, stdout io.Writer, cfg *config.Config, describe bool, logger *slog.Logger) error {
	directory := attach.NewSocketDirectory(cfg.Paths.RuntimeDir, cfg.Attach.Controller, logger)
	descriptors, err := directory.List(ctx)
	if err != nil {
		return err
	}

	header := []string{"PID", "NAME", "SOCKET"}
	if describe {
		header = append(header, "UNITS", "ENTRY POINTS")
	}
	rows := make([][]string, 0, len(descriptors))
	for _, descriptor := range descriptors {
		row := []string{strconv.Itoa(descriptor.PID), descriptor.DisplayName, descriptor.Socket}
		if describe {
			description, err := attach.Describe(ctx, descriptor.Socket)
			if err != nil {
				logger.Warn("describe failed", "pid", descriptor.PID, "error", err)
				row = append(row, "?", "?")
			} else {
				row = append(row, strconv.Itoa(len(description.Units)), strings.Join(description.EntryPoints, ","))
			}
		}
		rows = append(rows, row)
	}
	logger.Debug("listed attachable processes", "runtime_dir", cfg.Paths.RuntimeDir, "count", len(rows))
	return writeTable(stdout, header, rows)
}
