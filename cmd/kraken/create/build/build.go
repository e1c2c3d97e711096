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
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

type buildController interface {
	SubmitBuild(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error)
	GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "build [name]",
		Aliases:       []string{"b"},
		Short:         "Build a tool-set image",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runBuild,
	}

	cmd.Flags().StringP("file", "f", "", "Read the build request from a YAML or JSON file")
	cmd.Flags().StringSlice("tool", nil, "Tool to install (repeatable or comma separated)")
	cmd.Flags().String("scope", v1beta1.DefaultBuildScope, "Build scope (PT, RT)")
	cmd.Flags().Bool("ssh", false, "Start the SSH service in containers of this build")
	cmd.Flags().Bool("postgres", false, "Start the PostgreSQL service in containers of this build")
	cmd.Flags().String("memory", "", "Memory limit recorded with the build, e.g. 2g")
	cmd.Flags().StringArray("property", nil, "Container property KEY=VALUE; repeating a key makes a list")
	cmd.Flags().Bool("overwrite", false, "Replace an existing build with the same name")
	cmd.Flags().StringP("output", "o", "", "Output format (yaml, json)")

	_ = cmd.RegisterFlagCompletionFunc("tool", shared.CompleteNames(shared.ToolNames))

	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	format, err := shared.ParseOutputFormat(output)
	if err != nil {
		return err
	}

	req, err := requestFromFlags(cmd, args)
	if err != nil {
		return err
	}

	ctrl, release, err := shared.GetControllerWithMock(cmd, MockControllerKey{},
		func(c controller.Controller) buildController { return c })
	if err != nil {
		return err
	}
	defer release()

	summary, err := ctrl.SubmitBuild(cmd.Context(), req)
	if err != nil {
		return err
	}

	// Without a worker pool the build already ran; report where it ended.
	final, err := ctrl.GetBuild(cmd.Context(), summary.BuildName)
	if err == nil {
		summary = final
	}
	if perr := shared.PrintJSONOrYAML(cmd, summary, format); perr != nil {
		return perr
	}
	if summary.TaskState.Status == string(modelhub.BuildStatusError) {
		return fmt.Errorf("%w: %s", errdefs.ErrBuildImage, summary.TaskState.Message)
	}
	return nil
}

func requestFromFlags(cmd *cobra.Command, args []string) (v1beta1.CreateBuildRequest, error) {
	var req v1beta1.CreateBuildRequest
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		if err := shared.DecodeRequestFile(file, &req); err != nil {
			return req, err
		}
	}

	if len(args) > 0 {
		req.BuildName = strings.TrimSpace(args[0])
	}
	if strings.TrimSpace(req.BuildName) == "" {
		return req, fmt.Errorf("%w (argument or buildName in --file)", errdefs.ErrBuildNameRequired)
	}

	flags := cmd.Flags()
	if flags.Changed("tool") {
		req.Tools, _ = flags.GetStringSlice("tool")
	}
	if flags.Changed("scope") || req.BuildScope == "" {
		req.BuildScope, _ = flags.GetString("scope")
	}
	if flags.Changed("ssh") {
		req.StartSSH, _ = flags.GetBool("ssh")
	}
	if flags.Changed("postgres") {
		req.StartPostgres, _ = flags.GetBool("postgres")
	}
	if flags.Changed("memory") {
		req.MemoryLimit, _ = flags.GetString("memory")
	}
	if flags.Changed("overwrite") {
		req.Overwrite, _ = flags.GetBool("overwrite")
	}
	if flags.Changed("property") {
		raw, _ := flags.GetStringArray("property")
		props, err := ParseProperties(raw)
		if err != nil {
			return req, err
		}
		req.ContainerProperties = props
	}
	return req, nil
}

// ParseProperties turns KEY=VALUE pairs into container properties. A key
// given more than once becomes a list in order of appearance.
func ParseProperties(pairs []string) (map[string]v1beta1.PropertyValue, error) {
	values := make(map[string][]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: property %q must be KEY=VALUE", errdefs.ErrInvalidRequest, pair)
		}
		values[key] = append(values[key], strings.TrimSpace(value))
	}

	props := make(map[string]v1beta1.PropertyValue, len(values))
	for k, v := range values {
		if len(v) > 1 {
			props[k] = v1beta1.List(v...)
		} else {
			props[k] = v1beta1.Scalar(v[0])
		}
	}
	return props, nil
}
