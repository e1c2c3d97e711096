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

// Package lifecycle executes build jobs and owns the task state of build records.
package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/metrics"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/eminwux/kraken/internal/registry"
	digest "github.com/opencontainers/go-digest"
)

const (
	MessageCreated    = "Task created. Waiting for a build worker."
	MessageProcessing = "Calling container runtime to create image."
	MessageRestarted  = "Restarting interrupted build. Calling container runtime to create image."
	MessageReady      = "Image created successfully and ready to create containers."
	MessageSaved      = "Image logs saved successfully in database."
	MessageFinished   = "Task finished."

	PrefixValidation = "Validation error: "
	PrefixDecode     = "JSON decode error: "
	PrefixRuntime    = "Error during image creation: "
	PrefixUnexpected = "Unexpected error: "

	// LabelTaskID is stamped on every image so it can be traced to its attempt.
	LabelTaskID = "io.kraken.taskId"
)

// ImageBuilder is the slice of the runtime the lifecycle drives.
type ImageBuilder interface {
	BuildImage(ctx context.Context, spec ctr.BuildSpec) (ctr.BuildResult, error)
}

type Lifecycle struct {
	logger  *slog.Logger
	store   registry.BuildStore
	runtime ImageBuilder
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(logger *slog.Logger, store registry.BuildStore, runtime ImageBuilder, m *metrics.Metrics) *Lifecycle {
	return &Lifecycle{
		logger:  logger,
		store:   store,
		runtime: runtime,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// attempt tracks the persisted state of the record being driven.
type attempt struct {
	taskID string
	build  modelhub.Build
	status modelhub.BuildStatus
}

// jobError carries the prefixed message recorded in the ERROR state.
type jobError struct {
	message string
	err     error
}

func (e *jobError) Error() string { return e.message }
func (e *jobError) Unwrap() error { return e.err }

func failf(prefix string, err error) error {
	return &jobError{message: prefix + err.Error(), err: err}
}

// failAs records the same message as failf but classes the error as kind.
func failAs(prefix string, kind, err error) error {
	return &jobError{message: prefix + err.Error(), err: fmt.Errorf("%w: %w", kind, err)}
}

// Run executes one delivery of a build job. It never panics; every failure after
// the record is found is captured as the ERROR state of that record.
func (l *Lifecycle) Run(ctx context.Context, job queue.Job) (err error) {
	build, err := l.store.GetBuildByTaskID(ctx, job.TaskID)
	if err != nil {
		l.logger.ErrorContext(ctx, "no build record for task", "taskId", job.TaskID, "error", err)
		l.metrics.BuildDone("orphan", 0)
		return err
	}

	if build.TaskState.Status.Terminal() {
		l.logger.InfoContext(ctx, "build already terminal, skipping redelivery",
			"taskId", job.TaskID, "status", build.TaskState.Status)
		return nil
	}

	a := &attempt{taskID: job.TaskID, build: build, status: build.TaskState.Status}
	started := l.now()

	defer func() {
		if r := recover(); r != nil {
			err = failf(PrefixUnexpected, fmt.Errorf("%v", r))
		}
		if err == nil {
			l.metrics.BuildDone("finished", l.now().Sub(started))
			return
		}
		var jerr *jobError
		if !errors.As(err, &jerr) {
			// state writes failed; nothing more can be recorded
			l.metrics.BuildDone("aborted", l.now().Sub(started))
			return
		}
		l.fail(ctx, a, jerr.message)
		l.metrics.BuildDone("error", l.now().Sub(started))
	}()

	return l.execute(ctx, a, job)
}

func (l *Lifecycle) execute(ctx context.Context, a *attempt, job queue.Job) error {
	if err := l.start(ctx, a); err != nil {
		return err
	}

	var spec modelhub.BuildJob
	if err := json.Unmarshal(job.Payload, &spec); err != nil {
		return failAs(PrefixDecode, errdefs.ErrDecodeJob, err)
	}
	if err := validateJob(a.build, spec); err != nil {
		return failf(PrefixValidation, err)
	}

	result, err := l.runtime.BuildImage(ctx, ctr.BuildSpec{
		Tag:         a.build.BuildName,
		BuildArgs:   spec.BuildArgs,
		MemoryLimit: spec.MemoryLimit,
		Labels:      map[string]string{LabelTaskID: a.taskID},
	})
	if err != nil {
		if cerrdefs.IsInvalidArgument(err) {
			return failf(PrefixValidation, err)
		}
		return failf(PrefixRuntime, err)
	}
	if _, err = digest.Parse(result.ImageID); err != nil {
		return failf(PrefixRuntime, fmt.Errorf("image id %q: %w", result.ImageID, err))
	}
	if err = l.advance(ctx, a, modelhub.BuildStatusReady, MessageReady); err != nil {
		return err
	}

	err = l.store.AppendHistory(ctx, modelhub.HistoryEntry{
		TaskID:      a.taskID,
		BuildName:   a.build.BuildName,
		ImageID:     result.ImageID,
		ImageLabels: result.Labels,
		ImageTags:   result.Tags,
		ImageLogs:   result.Logs,
		CreatedAt:   l.now(),
	})
	switch {
	case errors.Is(err, errdefs.ErrHistoryExists):
		l.logger.InfoContext(ctx, "history already recorded for task", "taskId", a.taskID)
	case err != nil:
		return failf(PrefixRuntime, err)
	}
	if err = l.advance(ctx, a, modelhub.BuildStatusSaved, MessageSaved); err != nil {
		return err
	}

	return l.advance(ctx, a, modelhub.BuildStatusFinished, MessageFinished)
}

// start moves a fresh record to PROCESSING, or resets an interrupted one.
func (l *Lifecycle) start(ctx context.Context, a *attempt) error {
	if a.status == modelhub.BuildStatusCreated {
		return l.advance(ctx, a, modelhub.BuildStatusProcessing, MessageProcessing)
	}
	if !CanRestart(a.status) {
		return fmt.Errorf("%w: cannot start from %s", errdefs.ErrInvalidTransition, a.status)
	}
	l.logger.WarnContext(ctx, "restarting interrupted build", "taskId", a.taskID, "from", a.status)
	return l.write(ctx, a, modelhub.BuildStatusProcessing, MessageRestarted)
}

func (l *Lifecycle) advance(ctx context.Context, a *attempt, to modelhub.BuildStatus, message string) error {
	if !CanTransition(a.status, to) {
		return fmt.Errorf("%w: %s -> %s", errdefs.ErrInvalidTransition, a.status, to)
	}
	return l.write(ctx, a, to, message)
}

func (l *Lifecycle) write(ctx context.Context, a *attempt, to modelhub.BuildStatus, message string) error {
	state := modelhub.TaskState{Status: to, Message: message, UpdatedAt: l.now()}
	if err := l.store.UpdateBuildState(ctx, a.taskID, state); err != nil {
		l.logger.ErrorContext(ctx, "failed to persist task state",
			"taskId", a.taskID, "status", to, "error", err)
		return err
	}
	l.logger.InfoContext(ctx, "updated task state", "taskId", a.taskID, "status", to, "message", message)
	l.metrics.Transition(string(to))
	a.status = to
	return nil
}

func (l *Lifecycle) fail(ctx context.Context, a *attempt, message string) {
	if a.status.Terminal() {
		return
	}
	if err := l.write(ctx, a, modelhub.BuildStatusError, message); err != nil {
		return
	}
	l.logger.ErrorContext(ctx, "build failed", "taskId", a.taskID, "message", message)
}

func validateJob(build modelhub.Build, job modelhub.BuildJob) error {
	if job.BuildName == "" {
		return errors.New("job has no build name")
	}
	if job.BuildName != build.BuildName {
		return fmt.Errorf("job build %q does not match record %q", job.BuildName, build.BuildName)
	}
	return nil
}
