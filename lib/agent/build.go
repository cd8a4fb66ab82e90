// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/bureau-foundation/liaison/lib/archive"
	"github.com/bureau-foundation/liaison/lib/codec"
	"github.com/bureau-foundation/liaison/lib/remote"
	"github.com/bureau-foundation/liaison/lib/scope"
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Exporter serves the callback to targets. Required.
	Exporter *remote.Exporter

	// Materializer converts the host location and dependency
	// locations into units. Required.
	Materializer *archive.Materializer

	// Registry names the strategy and callback types. Defaults to
	// scope.Default().
	Registry *scope.Registry

	// HostLocation is the controller's own code location. Defaults
	// to the running executable.
	HostLocation string

	// Budget limits the transport encoding, in characters. Defaults
	// to DefaultBudget.
	Budget int

	// Compression names the codec compression tag ("none", "zstd",
	// "lz4"). Defaults to zstd.
	Compression string

	Logger *slog.Logger
}

// Build packages callback and strategy into a payload ready for
// transport. Every failure is a *PackagingError.
func Build(callback any, strategy Strategy, options BuildOptions) (*Payload, error) {
	if options.Exporter == nil || options.Materializer == nil {
		return nil, &PackagingError{Stage: StageOptions, Err: errors.New("an exporter and a materializer are required")}
	}
	if callback == nil || strategy == nil {
		return nil, &PackagingError{Stage: StageOptions, Err: errors.New("a callback and a strategy are required")}
	}
	if options.Registry == nil {
		options.Registry = scope.Default()
	}
	if options.Budget <= 0 {
		options.Budget = DefaultBudget
	}
	compression := codec.DefaultCompression
	if options.Compression != "" {
		tag, err := codec.ParseCompressionTag(options.Compression)
		if err != nil {
			return nil, &PackagingError{Stage: StageOptions, Err: err}
		}
		compression = tag
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	hostLocation := options.HostLocation
	if hostLocation == "" {
		executable, err := os.Executable()
		if err != nil {
			return nil, &PackagingError{Stage: StageHostUnit, Err: fmt.Errorf("locating the running executable: %w", err)}
		}
		hostLocation = executable
	}
	hostUnit, err := options.Materializer.EnsureLoadable(hostLocation, &archive.Manifest{
		EntryPoint: EntryPointName,
		Provides:   options.Registry.NamesAt(hostLocation),
	})
	if err != nil {
		return nil, &PackagingError{Stage: StageHostUnit, Err: err}
	}

	stub, err := options.Exporter.Export(callback)
	if err != nil {
		return nil, &PackagingError{Stage: StageExport, Err: err}
	}

	dependencies, err := resolveDependencies(remote.InterfacesOf(callback), options.Materializer)
	if err != nil {
		return nil, &PackagingError{Stage: StageDependencies, Err: err}
	}

	callbackBytes, err := codec.Serialize(options.Registry, stub, false)
	if err != nil {
		return nil, &PackagingError{Stage: StageSerialize, Err: fmt.Errorf("callback: %w", err)}
	}
	strategyBytes, err := codec.Serialize(options.Registry, strategy, false)
	if err != nil {
		return nil, &PackagingError{Stage: StageSerialize, Err: fmt.Errorf("strategy %T: %w", strategy, err)}
	}

	payload := &Payload{
		CallbackBytes:   callbackBytes,
		StrategyBytes:   strategyBytes,
		DependencyPaths: strings.Join(dependencies, dependencySeparator),
		callback:        callback,
		strategy:        strategy,
		hostUnit:        hostUnit,
		namer:           options.Registry,
		budget:          options.Budget,
		compression:     compression,
	}
	encoded, err := payload.TransportEncode()
	if err != nil {
		return nil, err
	}

	logger.Info("built agent payload",
		"host_unit", hostUnit,
		"callback", stub.String(),
		"strategy", fmt.Sprintf("%T", strategy),
		"dependencies", len(dependencies),
		"encoded_size", len(encoded),
		"budget", options.Budget,
	)
	return payload, nil
}

// resolveDependencies turns the interfaces' locations into unit paths,
// deduplicated in first-seen order. Built-in interfaces need nothing.
func resolveDependencies(interfaces []remote.Interface, materializer *archive.Materializer) ([]string, error) {
	var seen []string
	var units []string
	for _, iface := range interfaces {
		if iface.Location == "" || slices.Contains(seen, iface.Location) {
			continue
		}
		seen = append(seen, iface.Location)

		unit, err := materializer.EnsureLoadable(iface.Location, nil)
		if err != nil {
			return nil, fmt.Errorf("interface %s at %s: %w", iface.Name, iface.Location, err)
		}
		if strings.Contains(unit, dependencySeparator) {
			return nil, fmt.Errorf("unit path %q contains %q", unit, dependencySeparator)
		}
		if !slices.Contains(units, unit) {
			units = append(units, unit)
		}
	}
	return units, nil
}
