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

package ctr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	units "github.com/docker/go-units"
	"github.com/eminwux/kraken/internal/modelhub"
	docker "github.com/fsouza/go-dockerclient"
)

// RunContainer creates and starts a container from image.
func (c *client) RunContainer(
	ctx context.Context,
	image string,
	spec modelhub.ContainerSpec,
) (ContainerInfo, error) {
	if err := requireImage(image); err != nil {
		return ContainerInfo{}, err
	}

	config, hostConfig, err := containerConfig(image, spec)
	if err != nil {
		return ContainerInfo{}, err
	}

	c.logger.DebugContext(ctx, "creating container", "image", image, "name", spec.ContainerName)
	created, err := c.api.CreateContainer(docker.CreateContainerOptions{
		Name:       spec.ContainerName,
		Config:     config,
		HostConfig: hostConfig,
		Context:    ctx,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to create container", "image", image, "error", err)
		return ContainerInfo{}, classify("create container", err)
	}

	if err = c.api.StartContainerWithContext(created.ID, nil, ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to start container", "id", created.ID, "error", err)
		return ContainerInfo{}, classify("start container", err)
	}

	info := ContainerInfo{
		ID:     created.ID,
		Name:   strings.TrimPrefix(created.Name, "/"),
		Image:  image,
		Status: "running",
	}
	if inspected, inspectErr := c.api.InspectContainerWithOptions(docker.InspectContainerOptions{
		ID:      created.ID,
		Context: ctx,
	}); inspectErr == nil {
		info.Name = strings.TrimPrefix(inspected.Name, "/")
		info.Status = inspected.State.Status
	}
	if info.Name == "" {
		info.Name = spec.ContainerName
	}

	c.logger.InfoContext(ctx, "container started", "id", info.ID, "name", info.Name, "image", image)
	return info, nil
}

// ContainerExists reports whether a container named name (or with that id) exists.
func (c *client) ContainerExists(ctx context.Context, name string) (bool, error) {
	_, err := c.ContainerStatus(ctx, name)
	if err == nil {
		return true, nil
	}
	if cerrdefs.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// ContainerStatus returns the runtime state string, e.g. "running" or "exited".
func (c *client) ContainerStatus(ctx context.Context, name string) (string, error) {
	if err := requireName(name); err != nil {
		return "", err
	}
	ctn, err := c.api.InspectContainerWithOptions(docker.InspectContainerOptions{ID: name, Context: ctx})
	if err != nil {
		return "", classify("inspect container", err)
	}
	return ctn.State.Status, nil
}

// StopContainer stops a running container. Stopping a stopped container succeeds.
func (c *client) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	if err := requireName(name); err != nil {
		return err
	}
	err := c.api.StopContainerWithContext(name, stopSeconds(timeout), ctx)
	var notRunning *docker.ContainerNotRunning
	if errors.As(err, &notRunning) {
		c.logger.DebugContext(ctx, "container already stopped", "name", name)
		return nil
	}
	if err != nil {
		return classify("stop container", err)
	}
	c.logger.InfoContext(ctx, "container stopped", "name", name)
	return nil
}

// RemoveContainer force removes a container and its anonymous volumes.
func (c *client) RemoveContainer(ctx context.Context, name string) error {
	if err := requireName(name); err != nil {
		return err
	}
	if err := c.api.RemoveContainer(docker.RemoveContainerOptions{
		ID:            name,
		RemoveVolumes: true,
		Force:         true,
		Context:       ctx,
	}); err != nil {
		return classify("remove container", err)
	}
	c.logger.InfoContext(ctx, "container removed", "name", name)
	return nil
}

func containerConfig(image string, spec modelhub.ContainerSpec) (*docker.Config, *docker.HostConfig, error) {
	config := &docker.Config{
		Image:           image,
		Hostname:        spec.Hostname,
		Env:             spec.Environment,
		Tty:             spec.TTY,
		OpenStdin:       spec.TTY,
		NetworkDisabled: spec.NetworkDisabled,
	}
	hostConfig := &docker.HostConfig{
		CapAdd:         spec.CapAdd,
		CapDrop:        spec.CapDrop,
		NetworkMode:    spec.NetworkMode,
		AutoRemove:     spec.AutoRemove,
		Privileged:     spec.Privileged,
		ReadonlyRootfs: spec.ReadOnly,
		Binds:          binds(spec.Volumes),
	}

	if spec.MemoryLimit != "" {
		memory, err := units.RAMInBytes(spec.MemoryLimit)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %q: %w", ErrInvalidMemory, spec.MemoryLimit, err)
		}
		hostConfig.Memory = memory
	}

	if len(spec.Ports) > 0 {
		config.ExposedPorts = make(map[docker.Port]struct{}, len(spec.Ports))
		hostConfig.PortBindings = make(map[docker.Port][]docker.PortBinding, len(spec.Ports))
		for containerPort, hostPort := range spec.Ports {
			if !strings.Contains(containerPort, "/") {
				return nil, nil, fmt.Errorf("%w: %q", ErrInvalidPortKey, containerPort)
			}
			port := docker.Port(containerPort)
			config.ExposedPorts[port] = struct{}{}
			binding := docker.PortBinding{}
			if hostPort != nil {
				binding.HostPort, _, _ = strings.Cut(*hostPort, "/")
			}
			hostConfig.PortBindings[port] = []docker.PortBinding{binding}
		}
	}

	return config, hostConfig, nil
}

func binds(volumes map[string]modelhub.VolumeBind) []string {
	if len(volumes) == 0 {
		return nil
	}
	out := make([]string, 0, len(volumes))
	for host, vol := range volumes {
		mode := vol.Mode
		if mode == "" {
			mode = "rw"
		}
		out = append(out, fmt.Sprintf("%s:%s:%s", host, vol.Bind, mode))
	}
	sort.Strings(out)
	return out
}
