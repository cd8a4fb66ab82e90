// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

var (
	// ErrNotLoadable is returned by [Open] for paths that are not
	// readable unit archives.
	ErrNotLoadable = errors.New("not a loadable unit")

	// ErrNotConvertible is returned by [Materializer.EnsureLoadable]
	// and [Write] for locations that are neither a unit nor something
	// a unit can be built from: missing paths, unreadable directories,
	// sockets and devices.
	ErrNotConvertible = errors.New("location cannot be converted to a loadable unit")
)

// entryTime is stamped on every entry Write produces so that the same
// input always yields byte-identical archives.
var entryTime = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)

// Unit is an opened, validated unit.
type Unit struct {
	// Path is the filesystem path the unit was opened from.
	Path string

	// Manifest is the unit's manifest. Units without one get a zero
	// Manifest, never nil.
	Manifest *Manifest

	// Entries lists the archive's entry names in archive order,
	// excluding the manifest.
	Entries []string

	// HasManifest distinguishes an empty manifest from a missing one.
	HasManifest bool
}

// Open validates the unit at path and reads its manifest.
func Open(path string) (*Unit, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotLoadable, path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", ErrNotLoadable, path)
	}

	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotLoadable, path, err)
	}
	defer reader.Close()

	unit := &Unit{Path: path, Manifest: &Manifest{}}
	for _, file := range reader.File {
		if file.Name != ManifestPath {
			unit.Entries = append(unit.Entries, file.Name)
			continue
		}
		data, err := readEntry(file)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotLoadable, path, err)
		}
		manifest, err := parseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrNotLoadable, path, err)
		}
		unit.Manifest = manifest
		unit.HasManifest = true
	}
	return unit, nil
}

// IsLoadable reports whether path is a readable unit.
func IsLoadable(path string) bool {
	_, err := Open(path)
	return err == nil
}

// Write writes a unit built from source to w. Source may be:
//   - a unit: its entries are copied and its manifest is merged
//     with the supplied one;
//   - a directory: every regular file beneath it, sorted by relative
//     path (an existing META-INF/unit.yaml is merged, not copied);
//   - any other regular file: a single entry named after the file.
//
// A nil manifest on a source with no manifest of its own produces a
// unit without one.
func Write(w io.Writer, source string, manifest *Manifest) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConvertible, err)
	}

	var entries []sourceEntry
	var existing *Manifest

	switch {
	case info.IsDir():
		entries, existing, err = directoryEntries(source)
	case info.Mode().IsRegular():
		if unit, openErr := Open(source); openErr == nil {
			entries = unitEntries(source, unit)
			if unit.HasManifest {
				existing = unit.Manifest
			}
		} else {
			entries = []sourceEntry{{name: filepath.Base(source), open: fileOpener(source)}}
		}
	default:
		return fmt.Errorf("%w: %s is neither a directory nor a regular file", ErrNotConvertible, source)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConvertible, err)
	}

	if existing != nil || manifest != nil {
		manifest = Merge(existing, manifest)
	}
	return writeArchive(w, entries, manifest)
}

// sourceEntry is one file destined for a unit, opened lazily so that
// large directories are never held in memory.
type sourceEntry struct {
	name string
	open func() (io.ReadCloser, error)
}

func fileOpener(path string) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) { return os.Open(path) }
}

func directoryEntries(root string) ([]sourceEntry, *Manifest, error) {
	var entries []sourceEntry
	var manifest *Manifest

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		relative, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(relative)
		if name == ManifestPath {
			data, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			manifest, err = parseManifest(data)
			return err
		}
		entries = append(entries, sourceEntry{name: name, open: fileOpener(path)})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].name < entries[j].name })
	return entries, manifest, nil
}

func unitEntries(path string, unit *Unit) []sourceEntry {
	entries := make([]sourceEntry, 0, len(unit.Entries))
	for _, name := range unit.Entries {
		entries = append(entries, sourceEntry{
			name: name,
			open: func() (io.ReadCloser, error) { return openUnitEntry(path, name) },
		})
	}
	return entries
}

// openUnitEntry opens one entry of the unit at path. The returned
// reader closes the archive when closed.
func openUnitEntry(path, name string) (io.ReadCloser, error) {
	reader, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		entry, err := file.Open()
		if err != nil {
			reader.Close()
			return nil, err
		}
		return &entryReader{ReadCloser: entry, archive: reader}, nil
	}
	reader.Close()
	return nil, fmt.Errorf("entry %s not found in %s", name, path)
}

type entryReader struct {
	io.ReadCloser
	archive *zip.ReadCloser
}

func (r *entryReader) Close() error {
	entryErr := r.ReadCloser.Close()
	archiveErr := r.archive.Close()
	return errors.Join(entryErr, archiveErr)
}

func writeArchive(w io.Writer, entries []sourceEntry, manifest *Manifest) error {
	writer := zip.NewWriter(w)
	writer.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})

	if manifest != nil {
		data, err := manifest.marshal()
		if err != nil {
			return err
		}
		if err := writeEntry(writer, ManifestPath, bytesOpener(data)); err != nil {
			return err
		}
	}
	for _, entry := range entries {
		if err := writeEntry(writer, entry.name, entry.open); err != nil {
			return err
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finishing archive: %w", err)
	}
	return nil
}

func writeEntry(writer *zip.Writer, name string, open func() (io.ReadCloser, error)) error {
	destination, err := writer.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	})
	if err != nil {
		return fmt.Errorf("creating entry %s: %w", name, err)
	}
	source, err := open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}
	defer source.Close()
	if _, err := io.Copy(destination, source); err != nil {
		return fmt.Errorf("writing entry %s: %w", name, err)
	}
	return nil
}

func bytesOpener(data []byte) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

// ReadEntry returns the contents of one entry of the unit at path.
func ReadEntry(path, name string) ([]byte, error) {
	entry, err := openUnitEntry(path, name)
	if err != nil {
		return nil, err
	}
	defer entry.Close()
	return io.ReadAll(entry)
}

func readEntry(file *zip.File) ([]byte, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}
