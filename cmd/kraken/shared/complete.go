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
	"context"
	"strings"

	"github.com/eminwux/kraken/internal/controller"
	"github.com/spf13/cobra"
)

// NameLister returns the names offered for completion.
type NameLister func(ctx context.Context, ctrl controller.Controller) ([]string, error)

// MockCompletionKey is used to inject a controller into completion in tests.
type MockCompletionKey struct{}

// CompleteNames adapts lister to a cobra completion function. Any failure
// yields no suggestions.
func CompleteNames(lister NameLister) cobra.CompletionFunc {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		// Stop suggesting once the positional argument is filled.
		if len(args) >= 1 && toComplete == "" && cmd.Args != nil {
			if err := cmd.Args(cmd, append(append([]string{}, args...), "next")); err != nil {
				return []string{}, cobra.ShellCompDirectiveNoFileComp
			}
		}

		ctrl, release, err := GetControllerWithMock(cmd, MockCompletionKey{},
			func(c controller.Controller) controller.Controller { return c })
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveNoFileComp
		}
		defer release()

		names, err := lister(cmd.Context(), ctrl)
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveNoFileComp
		}

		seen := make(map[string]bool, len(names))
		out := make([]string, 0, len(names))
		for _, name := range names {
			if seen[name] || !strings.HasPrefix(name, toComplete) {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
		return out, cobra.ShellCompDirectiveNoFileComp
	}
}

// BuildNames lists the short names of every build.
func BuildNames(ctx context.Context, ctrl controller.Controller) ([]string, error) {
	builds, err := ctrl.ListBuilds(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(builds))
	for _, b := range builds {
		names = append(names, b.BuildName)
	}
	return names, nil
}

// ContainerNames lists every container the registry knows about.
func ContainerNames(ctx context.Context, ctrl controller.Controller) ([]string, error) {
	ctns, err := ctrl.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ctns))
	for _, c := range ctns {
		names = append(names, c.ContainerName)
	}
	return names, nil
}

// ToolNames lists every catalog tool.
func ToolNames(ctx context.Context, ctrl controller.Controller) ([]string, error) {
	tools, err := ctrl.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.ToolName)
	}
	return names, nil
}
