// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent builds, ships, and runs the injected agent payload.
//
// On the controller side, [Build] turns a live callback object and a
// [Strategy] into a [Payload]: the callback is exported and replaced
// by its remote stub, the code locations of the callback's remote
// interfaces are resolved into units, and everything is serialized
// under a transport size budget. The controller's own code location is
// converted into a unit declaring the [EntryPointName] entry point so
// that targets can load it.
//
// On the target side, the attach listener calls the registered entry
// point, which runs [Bootstrapper.Bootstrap]: decode the payload,
// append its dependency units to the process scope, reconstruct the
// callback proxy and the strategy, acquire a raw-memory accessor, and
// start the strategy on a [Runner]. Bootstrap returns as soon as the
// strategy has been started; its outcome is only visible through the
// callback.
//
// Strategies are never shipped as code. A strategy is a registered
// type plus its serialized fields, and a target can only run
// strategies linked into it.
package agent
