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

package build

import (
	"context"
	"strings"

	"github.com/eminwux/kraken/cmd/config"
	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type buildController interface {
	ListBuilds(ctx context.Context) ([]v1beta1.BuildSummary, error)
	GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error)
	BuildHistory(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "build [name]",
		Aliases:       []string{"builds", "b"},
		Short:         "Get or list builds",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			output, _ := cmd.Flags().GetString("output")
			format, err := shared.ParseOutputFormat(output)
			if err != nil {
				return err
			}

			ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
				func(c controller.Controller) buildController { return c })
			if err != nil {
				return err
			}
			defer release()

			var name string
			if len(args) > 0 {
				name = strings.TrimSpace(args[0])
			}
			if name == "" {
				builds, lerr := ctrl.ListBuilds(cmd.Context())
				if lerr != nil {
					return lerr
				}
				return shared.PrintJSONOrYAML(cmd, builds, format)
			}

			if viper.GetBool(config.KRAKEN_GET_BUILD_HISTORY.ViperKey) {
				history, herr := ctrl.BuildHistory(cmd.Context(), name)
				if herr != nil {
					return herr
				}
				return shared.PrintJSONOrYAML(cmd, history, format)
			}

			build, err := ctrl.GetBuild(cmd.Context(), name)
			if err != nil {
				return err
			}
			return shared.PrintJSONOrYAML(cmd, build, format)
		},
	}

	cmd.Flags().Bool("history", false, "Show the build history of the named build")
	_ = viper.BindPFlag(config.KRAKEN_GET_BUILD_HISTORY.ViperKey, cmd.Flags().Lookup("history"))

	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json)")

	cmd.ValidArgsFunction = shared.CompleteNames(shared.BuildNames)

	return cmd
}
