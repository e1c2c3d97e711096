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

package stage

import (
	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

type stageController interface {
	ToolStages() v1beta1.ToolStages
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewStageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "stage",
		Aliases:       []string{"stages"},
		Short:         "List the tool stages",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, _ := cmd.Flags().GetString("output")
			format, err := shared.ParseOutputFormat(output)
			if err != nil {
				return err
			}

			ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
				func(c controller.Controller) stageController { return c })
			if err != nil {
				return err
			}
			defer release()

			return shared.PrintJSONOrYAML(cmd, ctrl.ToolStages(), format)
		},
	}

	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json)")

	return cmd
}
