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

package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/apischeme"
	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

const (
	MessageContainerStopped = "Container stopped successfully."
	MessageContainerRemoved = "Container removed from database and Docker engine."

	ServiceSSH      = "ssh"
	ServicePostgres = "postgresql"

	containerStatusRemoved = "removed"
)

// service is an auxiliary daemon started inside a fresh container.
type service struct {
	name    string
	enabled func(modelhub.Build) bool
}

var services = []service{
	{name: ServiceSSH, enabled: func(b modelhub.Build) bool { return b.StartSSH }},
	{name: ServicePostgres, enabled: func(b modelhub.Build) bool { return b.StartPostgres }},
}

// CreateContainer runs a container from a build that reached a ready state.
// The build must exist and be READY, SAVED or FINISHED before the request is
// validated; only then is the runtime asked to create anything.
func (b *Exec) CreateContainer(
	ctx context.Context,
	req v1beta1.CreateContainerRequest,
) (v1beta1.ContainerSummary, error) {
	summary, err := b.createContainer(ctx, req)
	b.containerOp("create", err)
	return summary, err
}

func (b *Exec) createContainer(
	ctx context.Context,
	req v1beta1.CreateContainerRequest,
) (v1beta1.ContainerSummary, error) {
	image, err := b.qualify(req.BuildName)
	if err != nil {
		return v1beta1.ContainerSummary{}, err
	}

	_, err = b.store.GetBuild(ctx, image)
	if errors.Is(err, errdefs.ErrBuildNotFound) {
		return v1beta1.ContainerSummary{}, errdefs.Reject(errdefs.ErrBuildNotFound,
			"The specified image %s doesn't exist", req.BuildName)
	}
	if err != nil {
		return v1beta1.ContainerSummary{}, err
	}
	build, err := b.store.FindBuild(ctx, image, modelhub.ReadyStatuses...)
	if errors.Is(err, errdefs.ErrBuildNotFound) {
		return v1beta1.ContainerSummary{}, errdefs.Reject(errdefs.ErrBuildNotReady,
			"The image %s is not ready yet. The image is still in the creation process.", req.BuildName)
	}
	if err != nil {
		return v1beta1.ContainerSummary{}, err
	}

	result, err := b.validator.ValidateContainerRequest(ctx, req)
	if err != nil {
		return v1beta1.ContainerSummary{}, err
	}
	if !result.Valid {
		return v1beta1.ContainerSummary{}, errdefs.Reject(result.Reason, "%s", result.Message)
	}
	spec := result.Spec

	info, err := b.runtime.RunContainer(ctx, image, spec)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to run container", "image", image, "error", err)
		return v1beta1.ContainerSummary{}, fmt.Errorf("%w: %w", errdefs.ErrCreateContainer, err)
	}
	if spec.ContainerName == "" {
		spec.ContainerName = info.Name
	}
	b.logger.InfoContext(ctx, "container started", "name", spec.ContainerName, "id", info.ID, "image", image)

	ctn := modelhub.Container{
		ContainerSpec: spec,
		ContainerID:   info.ID,
		Status:        info.Status,
		Services:      b.startServices(ctx, build, spec.ContainerName),
		CreatedAt:     b.now(),
	}
	if err = b.store.ReplaceContainer(ctx, ctn); err != nil {
		b.logger.ErrorContext(ctx, "container running but not recorded", "name", ctn.ContainerName, "error", err)
		return v1beta1.ContainerSummary{}, err
	}
	return apischeme.ContainerSummaryExternalFromInternal(ctn), nil
}

// startServices starts the daemons the build asked for and records each
// outcome. A failed service does not fail the container.
func (b *Exec) startServices(ctx context.Context, build modelhub.Build, name string) []modelhub.ServiceResult {
	var results []modelhub.ServiceResult
	for _, svc := range services {
		if !svc.enabled(build) {
			continue
		}
		res := modelhub.ServiceResult{Name: svc.name}
		_, err := b.runtime.Exec(ctx, name, ctr.ExecSpec{
			Cmd:  []string{"/etc/init.d/" + svc.name, "start"},
			User: "root",
		})
		if err != nil {
			b.logger.WarnContext(ctx, "failed to start service", "container", name, "service", svc.name, "error", err)
			res.Error = err.Error()
		} else {
			res.Started = true
		}
		results = append(results, res)
	}
	return results
}

// StopContainer stops the container in the runtime and marks its record
// stopped. A container missing from one layer is reported, not refused.
func (b *Exec) StopContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error) {
	res, err := b.containerAction(ctx, name, func(name string) error {
		return b.runtime.StopContainer(ctx, name, b.opts.StopTimeout)
	}, func(name string) (bool, error) {
		return b.store.UpdateContainerStatus(ctx, name, modelhub.ContainerStatusStopped)
	})
	b.containerOp("stop", err)
	if err != nil {
		return res, err
	}
	res.Status = modelhub.ContainerStatusStopped
	res.Message = MessageContainerStopped
	return res, nil
}

// DeleteContainer removes the container from the runtime and its record.
func (b *Exec) DeleteContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error) {
	res, err := b.containerAction(ctx, name, func(name string) error {
		return b.runtime.RemoveContainer(ctx, name)
	}, func(name string) (bool, error) {
		return b.store.DeleteContainer(ctx, name)
	})
	b.containerOp("delete", err)
	if err != nil {
		return res, err
	}
	res.Status = containerStatusRemoved
	res.Message = MessageContainerRemoved
	return res, nil
}

// containerAction applies a runtime action first and mirrors it in the store.
// Runtime not-found counts as done.
func (b *Exec) containerAction(
	ctx context.Context,
	name string,
	runtimeAction func(string) error,
	storeAction func(string) (bool, error),
) (v1beta1.ContainerActionResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return v1beta1.ContainerActionResult{}, errdefs.Reject(errdefs.ErrContainerNameNeeded,
			"Container name is required.")
	}
	res := v1beta1.ContainerActionResult{ContainerName: name}

	err := runtimeAction(name)
	switch {
	case err == nil:
		res.RuntimeFound = true
	case cerrdefs.IsNotFound(err):
		b.logger.DebugContext(ctx, "container not found in runtime", "name", name)
	default:
		return res, err
	}

	if res.StoreFound, err = storeAction(name); err != nil {
		return res, err
	}
	if !res.RuntimeFound && !res.StoreFound {
		return res, errdefs.Reject(errdefs.ErrContainerNotFound, "Container %s not found.", name)
	}
	return res, nil
}

func (b *Exec) containerOp(op string, err error) {
	switch {
	case err == nil:
		b.metrics.ContainerOp(op, "ok")
	case errdefs.IsRejected(err):
		b.metrics.ContainerOp(op, "rejected")
	default:
		b.metrics.ContainerOp(op, "error")
	}
}

// ListContainers returns every recorded container with its live status.
func (b *Exec) ListContainers(ctx context.Context) ([]v1beta1.ContainerInfo, error) {
	ctns, err := b.store.ListContainers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]v1beta1.ContainerInfo, 0, len(ctns))
	for _, ctn := range ctns {
		info, convErr := apischeme.ContainerInfoExternalFromInternal(
			ctn, b.opts.ImageBase, b.liveStatus(ctx, ctn.ContainerName), apischeme.VersionV1Beta1)
		if convErr != nil {
			return nil, convErr
		}
		out = append(out, info)
	}
	return out, nil
}

// GetContainer returns one recorded container with its live status.
func (b *Exec) GetContainer(ctx context.Context, name string) (v1beta1.ContainerInfo, error) {
	ctn, err := b.store.GetContainer(ctx, strings.TrimSpace(name))
	if errors.Is(err, errdefs.ErrContainerNotFound) {
		return v1beta1.ContainerInfo{}, errdefs.Reject(errdefs.ErrContainerNotFound,
			"Container not found in database.")
	}
	if err != nil {
		return v1beta1.ContainerInfo{}, err
	}
	return apischeme.ContainerInfoExternalFromInternal(
		ctn, b.opts.ImageBase, b.liveStatus(ctx, ctn.ContainerName), apischeme.VersionV1Beta1)
}

// liveStatus asks the runtime, which is authoritative over the stored status.
func (b *Exec) liveStatus(ctx context.Context, name string) string {
	status, err := b.runtime.ContainerStatus(ctx, name)
	switch {
	case err == nil:
		return status
	case cerrdefs.IsNotFound(err):
		return modelhub.ContainerStatusNotFound
	default:
		b.logger.WarnContext(ctx, "failed to read container status", "name", name, "error", err)
		return modelhub.ContainerStatusError
	}
}
