// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Liaison is the injection controller. It lists processes that run an
// attach listener, injects the probe agent into them, and keeps a
// ledger of every campaign.
//
//	liaison list
//	liaison inject --all --label nightly
//	liaison inject 4242 4343
//	liaison history [campaign]
//	liaison decode <payload>
//
// Configuration comes from --config, then LIAISON_CONFIG, then the
// built-in defaults.
package main
