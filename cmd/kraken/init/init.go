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

package init

import (
	"context"
	"fmt"

	"github.com/eminwux/kraken/cmd/config"
	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type initController interface {
	SeedTools(ctx context.Context, clean bool) (controller.SeedReport, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "init",
		Short:        "Seed the registry with the tool catalog",
		Args:         cobra.NoArgs,
		RunE:         runInit,
		SilenceUsage: true,
	}

	cmd.Flags().Bool("clean", false, "Drop every registry collection before seeding")
	_ = viper.BindPFlag(config.KRAKEN_INIT_CLEAN.ViperKey, cmd.Flags().Lookup("clean"))

	return cmd
}

func runInit(cmd *cobra.Command, _ []string) error {
	ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
		func(c controller.Controller) initController { return c })
	if err != nil {
		return err
	}
	defer release()

	clean := viper.GetBool(config.KRAKEN_INIT_CLEAN.ViperKey)
	report, err := ctrl.SeedTools(cmd.Context(), clean)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if report.Cleaned {
		fmt.Fprintln(out, "Registry cleaned")
	}
	if report.ToolsInserted > 0 {
		fmt.Fprintf(out, "Initialized tool catalog: %d tools inserted\n", report.ToolsInserted)
	} else {
		fmt.Fprintf(out, "Tool catalog already initialized: %d tools present\n", report.ToolsExisting)
	}
	return nil
}
