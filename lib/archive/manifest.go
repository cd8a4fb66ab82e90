// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// ManifestPath is the entry name of the manifest inside a unit.
const ManifestPath = "META-INF/unit.yaml"

// Manifest is the metadata a unit declares about itself.
type Manifest struct {
	// EntryPoint names a registered attach entry point. Units without
	// one can extend a scope but cannot be loaded as an agent.
	EntryPoint string `yaml:"entry_point,omitempty"`

	// Provides lists the registered type names this unit makes
	// visible when appended to a scope.
	Provides []string `yaml:"provides,omitempty"`

	// Source is the code location a synthesized unit was built from.
	Source string `yaml:"source,omitempty"`

	// CreatedBy identifies the tool that wrote the unit.
	CreatedBy string `yaml:"created_by,omitempty"`
}

// Satisfies reports whether m meets every requirement in required: the
// same entry point (when required names one) and a superset of the
// required Provides. A nil requirement is always satisfied.
func (m *Manifest) Satisfies(required *Manifest) bool {
	if required == nil {
		return true
	}
	if m == nil {
		return required.EntryPoint == "" && len(required.Provides) == 0
	}
	if required.EntryPoint != "" && m.EntryPoint != required.EntryPoint {
		return false
	}
	for _, name := range required.Provides {
		if !slices.Contains(m.Provides, name) {
			return false
		}
	}
	return true
}

// Merge returns a new manifest with overlay's non-empty fields applied
// on top of base. Provides lists are unioned, base order first.
// Either argument may be nil.
func Merge(base, overlay *Manifest) *Manifest {
	merged := &Manifest{}
	for _, m := range []*Manifest{base, overlay} {
		if m == nil {
			continue
		}
		if m.EntryPoint != "" {
			merged.EntryPoint = m.EntryPoint
		}
		if m.Source != "" {
			merged.Source = m.Source
		}
		if m.CreatedBy != "" {
			merged.CreatedBy = m.CreatedBy
		}
		for _, name := range m.Provides {
			if !slices.Contains(merged.Provides, name) {
				merged.Provides = append(merged.Provides, name)
			}
		}
	}
	return merged
}

func parseManifest(data []byte) (*Manifest, error) {
	var manifest Manifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestPath, err)
	}
	return &manifest, nil
}

func (m *Manifest) marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", ManifestPath, err)
	}
	return data, nil
}
