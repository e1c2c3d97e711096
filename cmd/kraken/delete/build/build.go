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
	"fmt"
	"strings"

	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

type buildController interface {
	DeleteBuild(ctx context.Context, name string) (v1beta1.DeleteBuildResult, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "build [name]",
		Aliases:       []string{"b"},
		Short:         "Delete a build image, its containers and its record",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
				func(c controller.Controller) buildController { return c })
			if err != nil {
				return err
			}
			defer release()

			result, err := ctrl.DeleteBuild(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Message)
			fmt.Fprintf(out, "Build %q: image removed %t, record removed %t, containers removed %d\n",
				result.BuildFullName, result.ImageRemoved, result.RecordRemoved, result.ContainersRemoved)
			return nil
		},
	}

	cmd.ValidArgsFunction = shared.CompleteNames(shared.BuildNames)

	return cmd
}
