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
	"log/slog"
	"time"

	"github.com/eminwux/kraken/internal/modelhub"
	docker "github.com/fsouza/go-dockerclient"
)

const (
	defaultStopTimeout  = 30 * time.Second
	defaultExecInterval = 200 * time.Millisecond
	defaultDockerfile   = "Dockerfile"
)

// Client is the container runtime contract. Every error carries a
// github.com/containerd/errdefs class.
type Client interface {
	Ping(ctx context.Context) error

	BuildImage(ctx context.Context, spec BuildSpec) (BuildResult, error)
	ImageExists(ctx context.Context, image string) (bool, error)
	RemoveImage(ctx context.Context, image string) (RemoveImageResult, error)

	RunContainer(ctx context.Context, image string, spec modelhub.ContainerSpec) (ContainerInfo, error)
	ContainerExists(ctx context.Context, name string) (bool, error)
	ContainerStatus(ctx context.Context, name string) (string, error)
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	RemoveContainer(ctx context.Context, name string) error

	Exec(ctx context.Context, name string, spec ExecSpec) (int, error)
}

// dockerAPI is the subset of *docker.Client the runtime uses.
type dockerAPI interface {
	PingWithContext(ctx context.Context) error
	BuildImage(opts docker.BuildImageOptions) error
	InspectImage(name string) (*docker.Image, error)
	RemoveImageExtended(name string, opts docker.RemoveImageOptions) error
	PruneImages(opts docker.PruneImagesOptions) (*docker.PruneImagesResults, error)
	ListContainers(opts docker.ListContainersOptions) ([]docker.APIContainers, error)
	CreateContainer(opts docker.CreateContainerOptions) (*docker.Container, error)
	StartContainerWithContext(id string, hostConfig *docker.HostConfig, ctx context.Context) error
	InspectContainerWithOptions(opts docker.InspectContainerOptions) (*docker.Container, error)
	StopContainerWithContext(id string, timeout uint, ctx context.Context) error
	RemoveContainer(opts docker.RemoveContainerOptions) error
	CreateExec(opts docker.CreateExecOptions) (*docker.Exec, error)
	StartExec(id string, opts docker.StartExecOptions) error
	InspectExec(id string) (*docker.ExecInspect, error)
}

// Options configures the docker runtime.
type Options struct {
	// Endpoint is the docker daemon address, e.g. unix:///var/run/docker.sock.
	// Empty means use DOCKER_HOST and friends.
	Endpoint string
	// ContextDir is the directory sent as build context.
	ContextDir string
	// Dockerfile is relative to ContextDir.
	Dockerfile string
	// ShmSize is a human size such as "2g"; empty leaves the engine default.
	ShmSize string
	// ExecPollInterval controls how often a running exec is inspected.
	ExecPollInterval time.Duration
}

type client struct {
	logger *slog.Logger
	api    dockerAPI
	opts   Options
}

// NewClient connects to the docker daemon named by opts.Endpoint.
func NewClient(logger *slog.Logger, opts Options) (Client, error) {
	var (
		dc  *docker.Client
		err error
	)
	if opts.Endpoint == "" {
		dc, err = docker.NewClientFromEnv()
	} else {
		dc, err = docker.NewClient(opts.Endpoint)
	}
	if err != nil {
		return nil, classify("connect", err)
	}
	return newClient(logger, dc, opts), nil
}

// NewClientWithAPI builds a runtime over an already configured docker client.
func NewClientWithAPI(logger *slog.Logger, dc *docker.Client, opts Options) Client {
	return newClient(logger, dc, opts)
}

func newClient(logger *slog.Logger, api dockerAPI, opts Options) *client {
	if opts.Dockerfile == "" {
		opts.Dockerfile = defaultDockerfile
	}
	if opts.ExecPollInterval <= 0 {
		opts.ExecPollInterval = defaultExecInterval
	}
	return &client{logger: logger, api: api, opts: opts}
}

func (c *client) Ping(ctx context.Context) error {
	if err := c.api.PingWithContext(ctx); err != nil {
		c.logger.ErrorContext(ctx, "docker daemon unreachable", "endpoint", c.opts.Endpoint, "error", err)
		return classify("ping", err)
	}
	c.logger.DebugContext(ctx, "docker daemon reachable", "endpoint", c.opts.Endpoint)
	return nil
}

func stopSeconds(timeout time.Duration) uint {
	if timeout <= 0 {
		timeout = defaultStopTimeout
	}
	return uint(timeout / time.Second)
}

func requireName(name string) error {
	if name == "" {
		return ErrEmptyContainerName
	}
	return nil
}

func requireImage(image string) error {
	if image == "" {
		return ErrEmptyImage
	}
	return nil
}
