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

package catalog_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eminwux/kraken/internal/catalog"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/google/go-cmp/cmp"
)

func TestDefaultCatalog(t *testing.T) {
	tools, err := catalog.Default()
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if len(tools) == 0 {
		t.Fatal("embedded catalog is empty")
	}
	var nmap *modelhub.Tool
	for i := range tools {
		if tools[i].Name == "nmap" {
			nmap = &tools[i]
		}
	}
	if nmap == nil {
		t.Fatal("nmap missing from embedded catalog")
	}
	if nmap.PropertyEnabled != "NMAP_ENABLED" || !nmap.Scope.PT {
		t.Fatalf("unexpected nmap entry %+v", *nmap)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tools.yaml")
	content := `tools:
  - name: hydra
    description: Login cracker.
    url: https://github.com/vanhauser-thc/thc-hydra
    stage: exploitation
    scope: {PT: true, RT: false}
    propertyEnabled: HYDRA_ENABLED
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	tools, err := catalog.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := []modelhub.Tool{{
		Name:            "hydra",
		Description:     "Login cracker.",
		URL:             "https://github.com/vanhauser-thc/thc-hydra",
		Stage:           "exploitation",
		Scope:           modelhub.ToolScope{PT: true},
		PropertyEnabled: "HYDRA_ENABLED",
	}}
	if diff := cmp.Diff(want, tools); diff != "" {
		t.Fatalf("tools mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", "tools: []\n"},
		{"unknown field", "tools:\n  - name: a\n    colour: red\n"},
		{"missing name", "tools:\n  - description: x\n"},
		{"duplicate", "tools:\n  - name: a\n  - name: a\n"},
		{"bad stage", "tools:\n  - name: a\n    stage: lunch\n"},
		{"not yaml", "tools: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.Parse([]byte(tt.content))
			if !errors.Is(err, errdefs.ErrLoadCatalog) {
				t.Fatalf("expected ErrLoadCatalog, got %v", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := catalog.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if !errors.Is(err, errdefs.ErrLoadCatalog) {
		t.Fatalf("expected ErrLoadCatalog, got %v", err)
	}
}
