// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/config"
	"github.com/bureau-foundation/liaison/lib/version"
)

func newRoot(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "liaison",
		Summary: "Inject callback agents into cooperating processes",
		Subcommands: []*cli.Command{
			listCommand(stdout),
			injectCommand(stdout),
			historyCommand(stdout),
			decodeCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string) error {
					fmt.Fprintln(stdout, version.Full())
					return nil
				},
			},
		},
	}
}

// commonOptions are the flags every subcommand that touches the
// runtime directory accepts.
type commonOptions struct {
	configPath string
	runtimeDir string
	verbose    bool
}

func (o *commonOptions) bind(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&o.configPath, "config", "", "config file (.yaml, .toml, .jsonc); defaults to $"+config.EnvironmentVariable)
	flagSet.StringVar(&o.runtimeDir, "runtime-dir", "", "directory holding attach sockets (overrides config)")
	flagSet.BoolVarP(&o.verbose, "verbose", "v", false, "log at debug level")
}

// load resolves configuration and the command logger.
func (o *commonOptions) load(command string) (*config.Config, *slog.Logger, error) {
	var cfg *config.Config
	var err error
	switch {
	case o.configPath != "":
		cfg, err = config.LoadFile(o.configPath)
	case os.Getenv(config.EnvironmentVariable) != "":
		cfg, err = config.Load()
	default:
		cfg = config.Default()
	}
	if err != nil {
		return nil, nil, err
	}
	if o.runtimeDir != "" {
		cfg.Paths.RuntimeDir = o.runtimeDir
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := cli.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	if o.verbose {
		level = slog.LevelDebug
	}
	return cfg, cli.NewCommandLogger(level).With("command", command), nil
}

// terminal reports whether w is an interactive terminal, which
// selects aligned tables over tab-separated lines.
func terminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	return ok && cli.IsTerminal(file)
}

// writeTable prints rows as an aligned table with a header on a
// terminal and as headerless tab-separated lines otherwise.
func writeTable(w io.Writer, header []string, rows [][]string) error {
	if !terminal(w) {
		for _, row := range rows {
			if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
				return err
			}
		}
		return nil
	}
	table := tabwriter.NewWriter(w, 2, 0, 2, ' ', 0)
	fmt.Fprintln(table, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(table, strings.Join(row, "\t"))
	}
	return table.Flush()
}
