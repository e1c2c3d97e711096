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

package version

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/eminwux/kraken/cmd/config"
	"github.com/eminwux/kraken/cmd/kraken/shared"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

// Info identifies the binary and the API it speaks.
type Info struct {
	Version    string          `json:"version" yaml:"version"`
	APIVersion v1beta1.Version `json:"apiVersion" yaml:"apiVersion"`
	GoVersion  string          `json:"goVersion" yaml:"goVersion"`
	Platform   string          `json:"platform" yaml:"platform"`
}

// String renders the one-line form, e.g. "kraken dev (api v1beta1, go1.24.5 linux/amd64)".
func (i Info) String() string {
	return fmt.Sprintf("kraken %s (api %s, %s %s)", i.Version, i.APIVersion, i.GoVersion, i.Platform)
}

type InfoProvider interface {
	Info() Info
}

// MockInfoProviderKey is used to inject mock info providers in tests via context.
type MockInfoProviderKey struct{}

type buildInfoProvider struct{}

func (buildInfoProvider) Info() Info {
	return Info{
		Version:    config.Version,
		APIVersion: v1beta1.APIVersionV1Beta1,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the kraken and API versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var provider InfoProvider = buildInfoProvider{}
			if mockProvider, ok := cmd.Context().Value(MockInfoProviderKey{}).(InfoProvider); ok {
				provider = mockProvider
			}
			info := provider.Info()

			output, _ := cmd.Flags().GetString("output")
			if strings.TrimSpace(output) == "" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), info)
				return err
			}
			format, err := shared.ParseOutputFormat(output)
			if err != nil {
				return err
			}
			return shared.PrintJSONOrYAML(cmd, info, format)
		},
	}
	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json); plain text when unset")
	return cmd
}
