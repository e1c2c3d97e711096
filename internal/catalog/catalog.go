// Copyright 2025 Emiliano Spinella (eminwux)
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0

// Package catalog loads the tool catalog seeded into the registry.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"gopkg.in/yaml.v3"
)

//go:embed tools.yaml
var defaultCatalog []byte

type document struct {
	Tools []modelhub.Tool `yaml:"tools"`
}

// Default returns the catalog shipped with the binary.
func Default() ([]modelhub.Tool, error) {
	return Parse(defaultCatalog)
}

// Load reads the catalog at path, or the embedded one when path is empty.
func Load(path string) ([]modelhub.Tool, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrLoadCatalog, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog. Unknown fields, duplicate names and unknown
// stages are refused.
func Parse(raw []byte) ([]modelhub.Tool, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrLoadCatalog, err)
	}
	if len(doc.Tools) == 0 {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrLoadCatalog, errors.New("catalog has no tools"))
	}

	seen := make(map[string]struct{}, len(doc.Tools))
	for i, t := range doc.Tools {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: tool #%d has no name", errdefs.ErrLoadCatalog, i)
		}
		if _, dup := seen[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tool %q", errdefs.ErrLoadCatalog, t.Name)
		}
		seen[t.Name] = struct{}{}
		if t.Stage != "" && !slices.Contains(modelhub.ToolStages, t.Stage) {
			return nil, fmt.Errorf("%w: tool %q has unknown stage %q", errdefs.ErrLoadCatalog, t.Name, t.Stage)
		}
	}
	return doc.Tools, nil
}
