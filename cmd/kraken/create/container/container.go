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
	"strconv"
	"strings"

	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/errdefs"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/cobra"
)

type containerController interface {
	CreateContainer(ctx context.Context, req v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error)
}

// MockControllerKey is used to inject mock controllers in tests via context.
type MockControllerKey struct{}

func NewContainerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "container [name]",
		Aliases:       []string{"co"},
		Short:         "Run a container from a finished build",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runContainer,
	}

	flags := cmd.Flags()
	flags.StringP("file", "f", "", "Read the container request from a YAML or JSON file")
	flags.String("build", "", "Build to run the container from")
	flags.Bool("remove-if-exists", false, "Remove a container with the same name first")
	flags.StringArray("volume", nil, "Bind mount HOST:CONTAINER[:MODE] (repeatable)")
	flags.StringArrayP("publish", "p", nil, "Publish a port [HOST:]CONTAINER[/PROTO] (repeatable)")
	flags.StringArrayP("env", "e", nil, "Environment variable KEY=VALUE (repeatable)")
	flags.Bool("x11", false, "Forward the host X11 display")
	flags.String("memory", "", "Memory limit, e.g. 512m or 2g")
	flags.Bool("rm", false, "Remove the container when it exits")
	flags.StringSlice("cap-add", nil, "Linux capabilities to add")
	flags.StringSlice("cap-drop", nil, "Linux capabilities to drop")
	flags.String("hostname", "", "Container host name")
	flags.String("network", "", "Network mode (default bridge)")
	flags.Bool("privileged", false, "Run the container privileged")
	flags.Bool("no-network", false, "Disable networking")
	flags.Bool("read-only", false, "Mount the root filesystem read-only")
	flags.StringP("output", "o", "", "Output format (yaml, json)")

	_ = cmd.RegisterFlagCompletionFunc("build", shared.CompleteNames(shared.BuildNames))

	return cmd
}

func runContainer(cmd *cobra.Command, args []string) error {
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
		func(c controller.Controller) containerController { return c })
	if err != nil {
		return err
	}
	defer release()

	summary, err := ctrl.CreateContainer(cmd.Context(), req)
	if err != nil {
		return err
	}
	return shared.PrintJSONOrYAML(cmd, summary, format)
}

//nolint:gocognit // one branch per flag
func requestFromFlags(cmd *cobra.Command, args []string) (v1beta1.CreateContainerRequest, error) {
	var req v1beta1.CreateContainerRequest
	flags := cmd.Flags()
	if file, _ := flags.GetString("file"); file != "" {
		if err := shared.DecodeRequestFile(file, &req); err != nil {
			return req, err
		}
	}

	if len(args) > 0 {
		req.ContainerName = strings.TrimSpace(args[0])
	}
	if flags.Changed("build") {
		req.BuildName, _ = flags.GetString("build")
	}
	req.BuildName = strings.TrimSpace(req.BuildName)
	if req.BuildName == "" {
		return req, fmt.Errorf("%w (--build)", errdefs.ErrBuildNameRequired)
	}

	if flags.Changed("volume") {
		raw, _ := flags.GetStringArray("volume")
		volumes, err := ParseVolumes(raw)
		if err != nil {
			return req, err
		}
		req.Volumes = volumes
	}
	if flags.Changed("publish") {
		raw, _ := flags.GetStringArray("publish")
		ports, err := ParsePorts(raw)
		if err != nil {
			return req, err
		}
		req.Ports = ports
	}
	if flags.Changed("env") {
		req.Environment, _ = flags.GetStringArray("env")
	}
	if flags.Changed("remove-if-exists") {
		req.RemoveIfExists, _ = flags.GetBool("remove-if-exists")
	}
	if flags.Changed("x11") {
		req.EnableX11, _ = flags.GetBool("x11")
	}
	if flags.Changed("memory") {
		req.MemoryLimit, _ = flags.GetString("memory")
	}
	if flags.Changed("rm") {
		req.AutoRemove, _ = flags.GetBool("rm")
	}
	if flags.Changed("cap-add") {
		req.CapAdd, _ = flags.GetStringSlice("cap-add")
	}
	if flags.Changed("cap-drop") {
		req.CapDrop, _ = flags.GetStringSlice("cap-drop")
	}
	if flags.Changed("hostname") {
		req.Hostname, _ = flags.GetString("hostname")
	}
	if flags.Changed("network") {
		req.NetworkMode, _ = flags.GetString("network")
	}
	if flags.Changed("privileged") {
		req.Privileged, _ = flags.GetBool("privileged")
	}
	if flags.Changed("no-network") {
		req.NetworkDisabled, _ = flags.GetBool("no-network")
	}
	if flags.Changed("read-only") {
		req.ReadOnly, _ = flags.GetBool("read-only")
	}
	return req, nil
}

// ParseVolumes parses HOST:CONTAINER[:MODE] mounts. An omitted mode is left
// for the validator to default.
func ParseVolumes(raw []string) ([]v1beta1.VolumeRequest, error) {
	volumes := make([]v1beta1.VolumeRequest, 0, len(raw))
	for _, spec := range raw {
		parts := strings.Split(spec, ":")
		if len(parts) < 2 || len(parts) > 3 || parts[0] == "" || parts[1] == "" {
			return nil, fmt.Errorf("%w: %q must be HOST:CONTAINER[:MODE]", errdefs.ErrInvalidVolume, spec)
		}
		v := v1beta1.VolumeRequest{HostVolume: parts[0], ContainerVolume: parts[1]}
		if len(parts) == 3 {
			v.ModeVolume = parts[2]
		}
		volumes = append(volumes, v)
	}
	return volumes, nil
}

// ParsePorts parses [HOST:]CONTAINER[/PROTO] publications. Without HOST the
// engine picks a free host port.
func ParsePorts(raw []string) ([]v1beta1.PortRequest, error) {
	ports := make([]v1beta1.PortRequest, 0, len(raw))
	for _, spec := range raw {
		rest, proto, _ := strings.Cut(spec, "/")
		hostPart, ctrPart, hasHost := strings.Cut(rest, ":")
		if !hasHost {
			ctrPart, hostPart = hostPart, ""
		}

		ctrPort, err := strconv.Atoi(ctrPart)
		if err != nil {
			return nil, fmt.Errorf("%w: %q must be [HOST:]CONTAINER[/PROTO]", errdefs.ErrInvalidPort, spec)
		}
		p := v1beta1.PortRequest{PortContainer: ctrPort, ProtocolContainer: proto}
		if hasHost {
			hostPort, herr := strconv.Atoi(hostPart)
			if herr != nil {
				return nil, fmt.Errorf("%w: %q must be [HOST:]CONTAINER[/PROTO]", errdefs.ErrInvalidPort, spec)
			}
			p.PortHost = &hostPort
			p.ProtocolHost = proto
		}
		ports = append(ports, p)
	}
	return ports, nil
}
