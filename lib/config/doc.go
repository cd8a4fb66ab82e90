// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads liaison configuration.
//
// Configuration comes from a single file named by the LIAISON_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). Without either, binaries run on [Default]. The file
// format follows the extension: .yaml/.yml, .toml, or .json/.jsonc
// (JSON with comments and trailing commas).
//
// Environment sections (development, production) override base values
// when [Config].Environment matches. Production defaults are quieter:
// logging drops to warn unless the file says otherwise.
//
// Path fields expand ${HOME}, ${XDG_RUNTIME_DIR}, ${LIAISON_RUNTIME}
// and ${VAR:-default} after loading.
package config
