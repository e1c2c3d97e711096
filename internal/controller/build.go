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
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/eminwux/kraken/internal/apischeme"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/lifecycle"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/eminwux/kraken/internal/util/naming"
	"github.com/eminwux/kraken/internal/validation"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

const (
	MessageBuildNameUsed = "The name of the image is already used. " +
		"Choose another one or send 'overwrite' to replace it."
	MessageImageDeleted  = "Image deleted from database and docker service."
	MessageImageNotFound = "Image not found in Docker service."

	// exposePortsKey marks properties whose list values are joined with spaces.
	exposePortsKey = "EXPOSE_PORTS"
)

// SubmitBuild records a new build in CREATED and hands it to the task queue.
// A taken name is refused unless req.Overwrite is set, in which case the prior
// record is replaced in a single store write. Prior runtime images are left alone.
func (b *Exec) SubmitBuild(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error) {
	summary, err := b.submitBuild(ctx, req)
	switch {
	case err == nil:
		b.metrics.Submission("accepted")
	case errdefs.IsRejected(err):
		b.metrics.Submission("rejected")
	default:
		b.metrics.Submission("error")
	}
	return summary, err
}

func (b *Exec) submitBuild(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error) {
	name, err := b.qualify(req.BuildName)
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}
	if err = validation.CheckMemoryLimit(req.MemoryLimit); err != nil {
		return v1beta1.BuildSummary{}, err
	}
	if b.queue.Workers() == 0 {
		return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrWorkerUnavailable,
			"No build worker is running. Start the worker pool and try again.")
	}

	_, err = b.store.GetBuild(ctx, name)
	exists := err == nil
	if err != nil && !errors.Is(err, errdefs.ErrBuildNotFound) {
		return v1beta1.BuildSummary{}, err
	}
	if exists && !req.Overwrite {
		return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrBuildNameUsed, MessageBuildNameUsed)
	}

	catalog, err := b.store.ListTools(ctx)
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}
	props := renderProperties(req.ContainerProperties)

	scope := req.BuildScope
	if scope == "" {
		scope = v1beta1.DefaultBuildScope
	}
	now := b.now()
	build := modelhub.Build{
		BuildName:           name,
		BuildScope:          scope,
		BuildArgs:           buildArgs(catalog, req.Tools, props),
		Tools:               slices.Clone(req.Tools),
		StartSSH:            req.StartSSH,
		StartPostgres:       req.StartPostgres,
		MemoryLimit:         req.MemoryLimit,
		TaskID:              naming.NewTaskID(name),
		ContainerProperties: props,
		TaskState: modelhub.TaskState{
			Status:    modelhub.BuildStatusCreated,
			Message:   lifecycle.MessageCreated,
			UpdatedAt: now,
		},
		CreatedAt: now,
	}
	job, err := jobFor(build)
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}

	if exists {
		b.logger.InfoContext(ctx, "overwriting build", "build", name, "taskId", build.TaskID)
		err = b.store.ReplaceBuild(ctx, build)
	} else {
		err = b.store.InsertBuild(ctx, build)
	}
	if errors.Is(err, errdefs.ErrBuildNameUsed) {
		return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrBuildNameUsed, MessageBuildNameUsed)
	}
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}

	if err = b.queue.Enqueue(ctx, job); err != nil {
		// the record stays CREATED and is re-enqueued by Recover on next start
		b.logger.ErrorContext(ctx, "failed to enqueue build", "build", name, "taskId", build.TaskID, "error", err)
		return v1beta1.BuildSummary{}, fmt.Errorf("enqueue build %s: %w", name, err)
	}
	b.logger.InfoContext(ctx, "build submitted", "build", name, "taskId", build.TaskID)

	return apischeme.BuildSummaryExternalFromInternal(build, b.opts.ImageBase, apischeme.VersionV1Beta1)
}

// buildArgs sets every catalog tool flag to "True" or "False" by selection,
// then lays the container properties on top.
func buildArgs(catalog []modelhub.Tool, selected []string, props map[string]string) map[string]string {
	args := make(map[string]string, len(catalog)+len(props))
	for _, tool := range catalog {
		if tool.PropertyEnabled == "" {
			continue
		}
		if slices.Contains(selected, tool.Name) {
			args[tool.PropertyEnabled] = "True"
		} else {
			args[tool.PropertyEnabled] = "False"
		}
	}
	maps.Copy(args, props)
	return args
}

// renderProperties turns container properties into build argument values.
// Port lists are space separated; other lists are comma separated.
func renderProperties(in map[string]v1beta1.PropertyValue) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for key, value := range in {
		if value.IsList && !strings.Contains(key, exposePortsKey) {
			out[key] = strings.Join(value.List, ",")
			continue
		}
		out[key] = value.String()
	}
	return out
}

func jobFor(build modelhub.Build) (queue.Job, error) {
	payload, err := json.Marshal(modelhub.BuildJob{
		BuildName:   build.BuildName,
		BuildArgs:   build.BuildArgs,
		MemoryLimit: build.MemoryLimit,
	})
	if err != nil {
		return queue.Job{}, fmt.Errorf("encode build job %s: %w", build.TaskID, err)
	}
	return queue.Job{TaskID: build.TaskID, Payload: payload}, nil
}

func (b *Exec) qualify(name string) (string, error) {
	qualified, err := naming.QualifiedBuildName(b.opts.ImageBase, name)
	if err != nil {
		return "", errdefs.Reject(err, "Invalid build name: %s", name)
	}
	return qualified, nil
}

// ListBuilds returns every build record.
func (b *Exec) ListBuilds(ctx context.Context) ([]v1beta1.BuildSummary, error) {
	builds, err := b.store.ListBuilds(ctx)
	if err != nil {
		return nil, err
	}
	return apischeme.BuildSummariesExternalFromInternal(builds, b.opts.ImageBase, apischeme.VersionV1Beta1)
}

// GetBuild returns the build the caller named, without the image base.
func (b *Exec) GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error) {
	qualified, err := b.qualify(name)
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}
	build, err := b.store.GetBuild(ctx, qualified)
	if errors.Is(err, errdefs.ErrBuildNotFound) {
		return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrBuildNotFound, "Build %s not found.", name)
	}
	if err != nil {
		return v1beta1.BuildSummary{}, err
	}
	return apischeme.BuildSummaryExternalFromInternal(build, b.opts.ImageBase, apischeme.VersionV1Beta1)
}

// DeleteBuild removes the image and every container derived from it in the
// runtime, then the build record and the derived container records. Each layer
// is reported on its own; a build missing from both is a rejection.
func (b *Exec) DeleteBuild(ctx context.Context, name string) (v1beta1.DeleteBuildResult, error) {
	qualified, err := b.qualify(name)
	if err != nil {
		return v1beta1.DeleteBuildResult{}, err
	}
	res := v1beta1.DeleteBuildResult{BuildFullName: qualified}

	removed, err := b.runtime.RemoveImage(ctx, qualified)
	if err != nil {
		b.logger.ErrorContext(ctx, "failed to remove image", "build", qualified, "error", err)
		return res, err
	}
	res.ImageRemoved = removed.ImageFound
	res.ContainersRemoved = removed.ContainersRemoved

	if res.RecordRemoved, err = b.store.DeleteBuild(ctx, qualified); err != nil {
		return res, err
	}
	if res.ContainerRecordsRemoved, err = b.store.DeleteContainersByBuild(ctx, qualified); err != nil {
		return res, err
	}

	if !res.ImageRemoved && !res.RecordRemoved {
		return res, errdefs.Reject(errdefs.ErrBuildNotFound, "Build %s not found.", name)
	}
	if res.ImageRemoved {
		res.Message = MessageImageDeleted
	} else {
		res.Message = MessageImageNotFound + " Its database record was deleted."
	}
	b.logger.InfoContext(ctx, "build deleted", "build", qualified,
		"imageRemoved", res.ImageRemoved, "recordRemoved", res.RecordRemoved,
		"containersRemoved", res.ContainersRemoved)
	return res, nil
}

// BuildHistory returns the images produced under name, oldest first. History
// outlives the build record.
func (b *Exec) BuildHistory(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error) {
	qualified, err := b.qualify(name)
	if err != nil {
		return nil, err
	}
	entries, err := b.store.ListHistory(ctx, qualified)
	if err != nil {
		return nil, err
	}
	return apischeme.HistoryExternalFromInternal(entries), nil
}
