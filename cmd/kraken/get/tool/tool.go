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

package tool

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

type toolController interface {
	ListTools(ctx context.Context) ([]v1beta1.ToolInfo, error)
	FilterTools(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error)
	GetTool(ctx context.Context, name string) (v1beta1.ToolInfo, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewToolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "tool [name]",
		Aliases:       []string{"tools", "t"},
		Short:         "Get, list or search catalog tools",
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
				func(c controller.Controller) toolController { return c })
			if err != nil {
				return err
			}
			defer release()

			if len(args) > 0 {
				tool, gerr := ctrl.GetTool(cmd.Context(), strings.TrimSpace(args[0]))
				if gerr != nil {
					return gerr
				}
				return shared.PrintJSONOrYAML(cmd, tool, format)
			}

			var tools []v1beta1.ToolInfo
			if pattern := viper.GetString(config.KRAKEN_GET_TOOL_FILTER.ViperKey); pattern != "" {
				tools, err = ctrl.FilterTools(cmd.Context(), pattern)
			} else {
				tools, err = ctrl.ListTools(cmd.Context())
			}
			if err != nil {
				return err
			}
			return shared.PrintJSONOrYAML(cmd, tools, format)
		},
	}

	cmd.Flags().String("filter", "", "Case-insensitive regular expression matched against tool names")
	_ = viper.BindPFlag(config.KRAKEN_GET_TOOL_FILTER.ViperKey, cmd.Flags().Lookup("filter"))

	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json)")

	cmd.ValidArgsFunction = shared.CompleteNames(shared.ToolNames)

	return cmd
}
