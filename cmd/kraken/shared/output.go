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
	"encoding/json"
	"fmt"
	"strings"

	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OutputFormat represents the output format type.
type OutputFormat string

const (
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates the value of an --output flag. Empty means YAML.
func ParseOutputFormat(output string) (OutputFormat, error) {
	output = strings.ToLower(strings.TrimSpace(output))
	switch OutputFormat(output) {
	case "", OutputFormatYAML:
		return OutputFormatYAML, nil
	case OutputFormatJSON:
		return OutputFormatJSON, nil
	default:
		return OutputFormatYAML, fmt.Errorf("invalid output format: %s (supported: yaml, json)", output)
	}
}

// PrintJSONOrYAML prints data in JSON or YAML format to the command output.
func PrintJSONOrYAML(cmd *cobra.Command, data any, format OutputFormat) error {
	var (
		b   []byte
		err error
	)
	if format == OutputFormatJSON {
		b, err = json.MarshalIndent(data, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		b = append(b, '\n')
	} else {
		b, err = yaml.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal YAML: %w", err)
		}
	}

	_, err = cmd.OutOrStdout().Write(b)
	return err
}

// DescribeAction renders a stop or delete result for the terminal.
func DescribeAction(result v1beta1.ContainerActionResult) string {
	var where []string
	if result.RuntimeFound {
		where = append(where, "engine")
	}
	if result.StoreFound {
		where = append(where, "registry")
	}
	return fmt.Sprintf("%s (%s: %s)", result.Message, result.ContainerName, strings.Join(where, ", "))
}
