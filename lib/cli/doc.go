// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli is the command framework shared by the liaison binaries.
//
// A [Command] has a name, an optional [pflag.FlagSet] factory, and
// either a Run function or nested [Command.Subcommands]. The root
// command is dispatched with [Command.Execute], which routes
// subcommands, parses flags, and renders help. Unknown commands and
// flags get a did-you-mean suggestion when one is within edit
// distance 3.
//
// [NewCommandLogger] builds the slog logger commands use: text on a
// terminal, JSON when stderr is redirected.
package cli
