// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 digest.
type Digest [32]byte

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// Domain keys keep content digests and cache keys from ever colliding
// with each other. ASCII, zero-padded to 32 bytes.
var (
	contentDomainKey = [32]byte{
		'l', 'i', 'a', 'i', 's', 'o', 'n', '.', 'u', 'n', 'i', 't', '.',
		'c', 'o', 'n', 't', 'e', 'n', 't',
	}
	cacheDomainKey = [32]byte{
		'l', 'i', 'a', 'i', 's', 'o', 'n', '.', 'u', 'n', 'i', 't', '.',
		'c', 'a', 'c', 'h', 'e',
	}
)

func newHasher(key [32]byte) *blake3.Hasher {
	hasher, err := blake3.NewKeyed(key[:])
	if err != nil {
		panic("archive: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	return hasher
}

// ContentDigest hashes the content at location: the bytes of a
// regular file, or the relative paths and bytes of every regular file
// beneath a directory in sorted order.
func ContentDigest(location string) (Digest, error) {
	hasher := newHasher(contentDomainKey)

	info, err := os.Stat(location)
	if err != nil {
		return Digest{}, err
	}
	if !info.IsDir() {
		if err := hashFile(hasher, location); err != nil {
			return Digest{}, err
		}
		return sum(hasher), nil
	}

	var files []string
	err = filepath.WalkDir(location, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return Digest{}, err
	}
	sort.Strings(files)

	for _, path := range files {
		relative, err := filepath.Rel(location, path)
		if err != nil {
			return Digest{}, err
		}
		hasher.Write([]byte(filepath.ToSlash(relative)))
		hasher.Write([]byte{0})
		if err := hashFile(hasher, path); err != nil {
			return Digest{}, err
		}
		hasher.Write([]byte{0})
	}
	return sum(hasher), nil
}

// cacheKey identifies one materialization request.
func cacheKey(absolute string, manifest []byte, content Digest) Digest {
	hasher := newHasher(cacheDomainKey)
	hasher.Write([]byte(absolute))
	hasher.Write([]byte{0})
	hasher.Write(manifest)
	hasher.Write([]byte{0})
	hasher.Write(content[:])
	return sum(hasher)
}

func hashFile(hasher *blake3.Hasher, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(hasher, file)
	return err
}

func sum(hasher *blake3.Hasher) Digest {
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest
}
