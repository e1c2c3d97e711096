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

package get

import (
	"strings"

	buildcmd "github.com/eminwux/kraken/cmd/kraken/get/build"
	containercmd "github.com/eminwux/kraken/cmd/kraken/get/container"
	stagecmd "github.com/eminwux/kraken/cmd/kraken/get/stage"
	toolcmd "github.com/eminwux/kraken/cmd/kraken/get/tool"
	"github.com/spf13/cobra"
)

// NewGetCmd builds the `kraken get` parent command and registers all
// retrieval subcommands.
func NewGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get",
		Aliases: []string{"g"},
		Short:   "Get or list builds, containers, tools and stages",
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	cmd.ValidArgsFunction = completeGetSubcommands

	cmd.AddCommand(
		buildcmd.NewBuildCmd(),
		containercmd.NewContainerCmd(),
		toolcmd.NewToolCmd(),
		stagecmd.NewStageCmd(),
	)

	return cmd
}

// completeGetSubcommands provides shell completion for get subcommand names.
func completeGetSubcommands(_ *cobra.Command, _ []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	subcommands := []string{"build", "container", "tool", "stage"}

	matches := make([]string, 0, len(subcommands))
	for _, subcmd := range subcommands {
		if strings.HasPrefix(subcmd, toComplete) {
			matches = append(matches, subcmd)
		}
	}

	return matches, cobra.ShellCompDirectiveNoFileComp
}
