// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/bureau-foundation/liaison/lib/version"
)

// MaterializerConfig configures a [Materializer].
type MaterializerConfig struct {
	// Directory receives synthesized units. Created if missing.
	// Defaults to a "liaison-units" directory under os.TempDir().
	Directory string

	// Logger receives materialization events. Nil discards them.
	Logger *slog.Logger

	// DisableCache makes every EnsureLoadable call that needs a new
	// unit write a fresh file, even for unchanged input.
	DisableCache bool
}

// Materializer converts code locations into loadable units. Safe for
// concurrent use.
type Materializer struct {
	directory    string
	logger       *slog.Logger
	disableCache bool

	mu      sync.Mutex
	cache   map[Digest]string
	created []string
	closed  bool
}

// NewMaterializer creates the unit directory and returns a
// materializer writing into it.
func NewMaterializer(config MaterializerConfig) (*Materializer, error) {
	directory := config.Directory
	if directory == "" {
		directory = filepath.Join(os.TempDir(), "liaison-units")
	}
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return nil, fmt.Errorf("creating unit directory %s: %w", directory, err)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Materializer{
		directory:    directory,
		logger:       logger,
		disableCache: config.DisableCache,
		cache:        make(map[Digest]string),
	}, nil
}

// Directory returns the directory synthesized units are written to.
func (m *Materializer) Directory() string { return m.directory }

// EnsureLoadable returns a path to a loadable unit equivalent to
// location whose manifest satisfies the required one (nil requires
// nothing).
//
// A location that already is such a unit is returned unchanged.
// Otherwise a unit is synthesized from the location's content, with a
// manifest merging the location's own (if it is a unit), the required
// one, and Source set to location. Callers must not rely on the
// returned path being stable across calls.
//
// Fails with [ErrNotConvertible] when location does not exist or
// cannot be read.
func (m *Materializer) EnsureLoadable(location string, required *Manifest) (string, error) {
	if location == "" {
		return "", fmt.Errorf("%w: empty location", ErrNotConvertible)
	}

	var existing *Manifest
	if unit, err := Open(location); err == nil {
		if unit.Manifest.Satisfies(required) {
			return location, nil
		}
		if unit.HasManifest {
			existing = unit.Manifest
		}
	}

	absolute, err := filepath.Abs(location)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotConvertible, location, err)
	}

	manifest := Merge(existing, required)
	manifest.Source = absolute
	manifest.CreatedBy = version.CreatedBy()
	encodedManifest, err := manifest.marshal()
	if err != nil {
		return "", err
	}

	content, err := ContentDigest(location)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrNotConvertible, location, err)
	}
	key := cacheKey(absolute, encodedManifest, content)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return "", errors.New("materializer is closed")
	}
	if !m.disableCache {
		if cached, ok := m.cache[key]; ok {
			if _, err := os.Stat(cached); err == nil {
				return cached, nil
			}
			delete(m.cache, key)
		}
	}

	path, err := m.synthesize(location, manifest, key)
	if err != nil {
		return "", err
	}
	m.cache[key] = path
	m.created = append(m.created, path)

	m.logger.Debug("synthesized unit",
		"source", absolute,
		"unit", path,
		"entry_point", manifest.EntryPoint,
		"provides", len(manifest.Provides),
	)
	return path, nil
}

// synthesize writes a new unit for location. Must be called with m.mu
// held.
func (m *Materializer) synthesize(location string, manifest *Manifest, key Digest) (string, error) {
	file, err := os.CreateTemp(m.directory, "unit-"+key.String()[:12]+"-*.zip")
	if err != nil {
		return "", fmt.Errorf("creating unit file: %w", err)
	}
	path := file.Name()

	writeErr := Write(file, location, manifest)
	closeErr := file.Close()
	if err := errors.Join(writeErr, closeErr); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("materializing %s: %w", location, err)
	}
	return path, nil
}

// Created returns the paths of every unit this materializer has
// written and not yet removed, in creation order.
func (m *Materializer) Created() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.created...)
}

// Close removes every unit the materializer created. Further calls to
// EnsureLoadable fail. Close is idempotent.
func (m *Materializer) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for _, path := range m.created {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	m.logger.Debug("removed synthesized units", "count", len(m.created))
	m.created = nil
	m.cache = nil
	return errors.Join(errs...)
}
