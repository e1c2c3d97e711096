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

package container

import (
	"context"
	"fmt"
	"strings"

	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

type containerController interface {
	DeleteContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewContainerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "container [name]",
		Aliases:       []string{"co"},
		Short:         "Remove a container from the engine and the registry",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
				func(c controller.Controller) containerController { return c })
			if err != nil {
				return err
			}
			defer release()

			result, err := ctrl.DeleteContainer(cmd.Context(), strings.TrimSpace(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), shared.DescribeAction(result))
			return nil
		},
	}

	cmd.ValidArgsFunction = shared.CompleteNames(shared.ContainerNames)

	return cmd
}
