// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/liaison/lib/agent"
	"github.com/bureau-foundation/liaison/lib/cli"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/scope"
)

func decodeCommand(stdout io.Writer) *cli.Command {
	var stdin bool
	return &cli.Command{
		Name:    "decode",
		Summary: "Show the contents of a transport-encoded payload",
		Usage:   "liaison decode [--stdin | <payload>]",
		Description: `Decode a payload as sent in a load_agent request and print its
compression, dependency units, and the callback and strategy values
in CBOR diagnostic notation.`,
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("decode", pflag.ContinueOnError)
			flagSet.BoolVar(&stdin, "stdin", false, "read the payload from standard input")
			return flagSet
		},
		Run: func(_ context.Context, args []string) error {
			var text string
			switch {
			case stdin && len(args) == 0:
				data, err := io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("reading payload: %w", err)
				}
				text = string(data)
			case !stdin && len(args) == 1:
				text = args[0]
			default:
				return fmt.Errorf("decode takes exactly one payload argument or --stdin")
			}
			return runDecode(stdout, strings.TrimSpace(text))
		},
	}
}

func runDecode(stdout io.Writer, text string) error {
	data, err := codec.DecodeForTransport(text)
	if err != nil {
		return err
	}
	tag, err := codec.FrameTag(data)
	if err != nil {
		return err
	}
	payload, err := agent.Decode(text, scope.New(scope.Default()))
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "size:         %d characters\n", len(text))
	fmt.Fprintf(stdout, "compression:  %s\n", tag)
	fmt.Fprintf(stdout, "dependencies: %d\n", len(payload.Dependencies()))
	for _, path := range payload.Dependencies() {
		fmt.Fprintf(stdout, "  %s\n", path)
	}

	for _, field := range []struct {
		name string
		data []byte
	}{
		{"callback", payload.CallbackBytes},
		{"strategy", payload.StrategyBytes},
	} {
		typeName, err := codec.PeekType(field.data, false)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		diagnostic, err := codec.Diagnose(field.data)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		fmt.Fprintf(stdout, "%-13s %s\n  %s\n", field.name+":", typeName, diagnostic)
	}
	return nil
}
