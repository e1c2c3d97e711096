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

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
)

// RecoverReport describes what Recover re-enqueued.
type RecoverReport struct {
	Pending    int
	Enqueued   int
	Duplicates int
	Failed     []string
}

// pendingStatuses are the states a build can be left in by a stopped process.
var pendingStatuses = []modelhub.BuildStatus{
	modelhub.BuildStatusCreated,
	modelhub.BuildStatusProcessing,
	modelhub.BuildStatusReady,
	modelhub.BuildStatusSaved,
}

// Recover re-enqueues every build that has not reached a terminal state. It is
// run once at startup, after the worker pool is up.
func (b *Exec) Recover(ctx context.Context) (RecoverReport, error) {
	var report RecoverReport
	builds, err := b.store.ListBuilds(ctx, pendingStatuses...)
	if err != nil {
		return report, err
	}
	report.Pending = len(builds)

	var errs []error
	for _, build := range builds {
		job, jobErr := jobFor(build)
		if jobErr == nil {
			jobErr = b.queue.Enqueue(ctx, job)
		}
		switch {
		case jobErr == nil:
			report.Enqueued++
			b.logger.InfoContext(ctx, "re-enqueued pending build",
				"build", build.BuildName, "taskId", build.TaskID, "status", build.TaskState.Status)
		case errors.Is(jobErr, errdefs.ErrDuplicateTask):
			report.Duplicates++
		default:
			report.Failed = append(report.Failed, build.TaskID)
			errs = append(errs, jobErr)
			b.logger.ErrorContext(ctx, "failed to re-enqueue build", "taskId", build.TaskID, "error", jobErr)
		}
	}
	return report, errors.Join(errs...)
}
