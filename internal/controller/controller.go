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

// Package controller holds the use cases behind the API and the CLI: build
// submission, container provisioning, the tool catalog and startup recovery.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/metrics"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/eminwux/kraken/internal/registry"
	"github.com/eminwux/kraken/internal/validation"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

// Controller is what the API layer and the CLI drive.
type Controller interface {
	SubmitBuild(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error)
	ListBuilds(ctx context.Context) ([]v1beta1.BuildSummary, error)
	GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error)
	DeleteBuild(ctx context.Context, name string) (v1beta1.DeleteBuildResult, error)
	BuildHistory(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error)

	CreateContainer(ctx context.Context, req v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error)
	StopContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error)
	DeleteContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error)
	ListContainers(ctx context.Context) ([]v1beta1.ContainerInfo, error)
	GetContainer(ctx context.Context, name string) (v1beta1.ContainerInfo, error)

	ListTools(ctx context.Context) ([]v1beta1.ToolInfo, error)
	FilterTools(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error)
	GetTool(ctx context.Context, name string) (v1beta1.ToolInfo, error)
	ToolStages() v1beta1.ToolStages
	SeedTools(ctx context.Context, clean bool) (SeedReport, error)

	Recover(ctx context.Context) (RecoverReport, error)
	Health(ctx context.Context) error
}

// TaskQueue is the slice of the task queue the controller submits to.
type TaskQueue interface {
	Enqueue(ctx context.Context, job queue.Job) error
	Workers() int
}

type Options struct {
	// ImageBase prefixes every build name: <ImageBase>:<name>.
	ImageBase string
	// StopTimeout bounds how long a container is given to stop.
	StopTimeout time.Duration
	// CatalogFile overrides the embedded tool catalog when set.
	CatalogFile string
	// Display resolves DISPLAY for X11 forwarding; defaults to the environment.
	Display validation.DisplayLookup
}

type Exec struct {
	logger    *slog.Logger
	opts      Options
	store     registry.Store
	runtime   ctr.Client
	queue     TaskQueue
	validator *validation.Engine
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewControllerExec(
	logger *slog.Logger,
	store registry.Store,
	runtime ctr.Client,
	q TaskQueue,
	m *metrics.Metrics,
	opts Options,
) *Exec {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = validation.DefaultStopTimeout
	}
	return &Exec{
		logger:  logger,
		opts:    opts,
		store:   store,
		runtime: runtime,
		queue:   q,
		validator: validation.NewEngine(logger, runtime, validation.Options{
			ImageBase:   opts.ImageBase,
			StopTimeout: opts.StopTimeout,
			Display:     opts.Display,
		}),
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Health reports whether both the registry store and the runtime answer.
func (b *Exec) Health(ctx context.Context) error {
	var errs []error
	if err := b.store.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", errdefs.ErrStoreUnavailable, err))
	}
	if err := b.runtime.Ping(ctx); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", errdefs.ErrConnectRuntime, err))
	}
	return errors.Join(errs...)
}
