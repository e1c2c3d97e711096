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

package shared

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/eminwux/kraken/internal/errdefs"
	"gopkg.in/yaml.v3"
)

// DecodeRequestFile reads a YAML or JSON request document into out. Unknown
// fields are rejected, as the HTTP API does.
func DecodeRequestFile(path string, out any) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrInvalidRequest, err)
	}

	var doc any
	if err = yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrInvalidRequest, path, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrInvalidRequest, path, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err = dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %w", errdefs.ErrInvalidRequest, path, err)
	}
	return nil
}
