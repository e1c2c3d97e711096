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

package controller_test

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/lifecycle"
	"github.com/eminwux/kraken/internal/logging"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/queue"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/google/go-cmp/cmp"
)

var taskIDPattern = regexp.MustCompile(`^kraken:web-[0-9a-f]{16}$`)

func webRequest() v1beta1.CreateBuildRequest {
	return v1beta1.CreateBuildRequest{
		BuildName:     "web",
		Tools:         []string{"nmap"},
		StartSSH:      true,
		StartPostgres: false,
		MemoryLimit:   "2g",
		ContainerProperties: map[string]v1beta1.PropertyValue{
			"EXPOSE_PORTS": v1beta1.List("22", "80", "443"),
			"SSH_USER":     v1beta1.Scalar("kraken"),
			"DNS_SERVERS":  v1beta1.List("1.1.1.1", "8.8.8.8"),
		},
	}
}

func TestSubmitBuild(t *testing.T) {
	env := setupTestController(t, nil)
	ctx := context.Background()

	summary, err := env.ctrl.SubmitBuild(ctx, webRequest())
	if err != nil {
		t.Fatalf("SubmitBuild() error = %v", err)
	}
	if summary.BuildName != "web" || summary.BuildFullName != "kraken:web" {
		t.Fatalf("unexpected names %q %q", summary.BuildName, summary.BuildFullName)
	}
	if summary.TaskState.Status != string(modelhub.BuildStatusCreated) {
		t.Fatalf("expected CREATED, got %s", summary.TaskState.Status)
	}
	if summary.BuildScope != v1beta1.DefaultBuildScope {
		t.Fatalf("expected default scope, got %q", summary.BuildScope)
	}
	if !taskIDPattern.MatchString(summary.TaskID) {
		t.Fatalf("task id %q does not match %s", summary.TaskID, taskIDPattern)
	}

	build, err := env.store.GetBuild(ctx, "kraken:web")
	if err != nil {
		t.Fatal(err)
	}
	wantArgs := map[string]string{
		"NMAP_ENABLED":   "True",
		"SQLMAP_ENABLED": "False",
		"EXPOSE_PORTS":   "22 80 443",
		"SSH_USER":       "kraken",
		"DNS_SERVERS":    "1.1.1.1,8.8.8.8",
	}
	if diff := cmp.Diff(wantArgs, build.BuildArgs); diff != "" {
		t.Fatalf("build args mismatch (-want +got):\n%s", diff)
	}

	if len(env.queue.jobs) != 1 || env.queue.jobs[0].TaskID != summary.TaskID {
		t.Fatalf("expected one job for %s, got %+v", summary.TaskID, env.queue.jobs)
	}
	var job modelhub.BuildJob
	if err = json.Unmarshal(env.queue.jobs[0].Payload, &job); err != nil {
		t.Fatalf("payload is not a build job: %v", err)
	}
	if job.BuildName != "kraken:web" || job.MemoryLimit != "2g" || job.BuildArgs["NMAP_ENABLED"] != "True" {
		t.Fatalf("unexpected job %+v", job)
	}
}

func TestSubmitBuildTwiceWithoutOverwrite(t *testing.T) {
	env := setupTestController(t, nil)
	ctx := context.Background()

	first, err := env.ctrl.SubmitBuild(ctx, webRequest())
	if err != nil {
		t.Fatal(err)
	}
	_, err = env.ctrl.SubmitBuild(ctx, webRequest())
	if !errors.Is(err, errdefs.ErrBuildNameUsed) || !cerrdefs.IsAlreadyExists(err) {
		t.Fatalf("expected ErrBuildNameUsed, got %v", err)
	}
	if msg := errdefs.RejectionMessage(err); msg != controller.MessageBuildNameUsed {
		t.Fatalf("unexpected message %q", msg)
	}

	build, err := env.store.GetBuild(ctx, "kraken:web")
	if err != nil {
		t.Fatal(err)
	}
	if build.TaskID != first.TaskID {
		t.Fatal("rejected submission mutated the record")
	}
	if len(env.queue.jobs) != 1 {
		t.Fatalf("rejected submission enqueued a job: %d jobs", len(env.queue.jobs))
	}
}

func TestSubmitBuildOverwrite(t *testing.T) {
	env := setupTestController(t, nil)
	ctx := context.Background()
	old := env.putBuild(t, "web", modelhub.BuildStatusFinished)

	req := webRequest()
	req.Overwrite = true
	summary, err := env.ctrl.SubmitBuild(ctx, req)
	if err != nil {
		t.Fatalf("SubmitBuild() error = %v", err)
	}
	if summary.TaskID == old.TaskID {
		t.Fatal("overwrite must start a new attempt")
	}

	builds, err := env.store.ListBuilds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(builds) != 1 {
		t.Fatalf("expected exactly one record, got %d", len(builds))
	}
	if builds[0].TaskID != summary.TaskID || builds[0].TaskState.Status != modelhub.BuildStatusCreated {
		t.Fatalf("unexpected record %+v", builds[0])
	}
}

func TestSubmitBuildRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*v1beta1.CreateBuildRequest)
		workers int
		reason  error
	}{
		{
			name:    "no workers",
			workers: 0,
			reason:  errdefs.ErrWorkerUnavailable,
		},
		{
			name:    "bad memory limit",
			mutate:  func(r *v1beta1.CreateBuildRequest) { r.MemoryLimit = "2gb" },
			workers: 1,
			reason:  errdefs.ErrInvalidMemoryLimit,
		},
		{
			name:    "empty name",
			mutate:  func(r *v1beta1.CreateBuildRequest) { r.BuildName = " " },
			workers: 1,
			reason:  errdefs.ErrBuildNameRequired,
		},
		{
			name:    "name with a colon",
			mutate:  func(r *v1beta1.CreateBuildRequest) { r.BuildName = "a:b" },
			workers: 1,
			reason:  errdefs.ErrInvalidBuildName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestController(t, nil)
			env.queue.workers = tt.workers
			req := webRequest()
			if tt.mutate != nil {
				tt.mutate(&req)
			}

			_, err := env.ctrl.SubmitBuild(context.Background(), req)
			if !errdefs.IsRejected(err) || !errors.Is(err, tt.reason) {
				t.Fatalf("expected rejection %v, got %v", tt.reason, err)
			}
			builds, _ := env.store.ListBuilds(context.Background())
			if len(builds) != 0 || len(env.queue.jobs) != 0 {
				t.Fatal("rejected submission left state behind")
			}
		})
	}
}

func TestSubmitBuildQueueFull(t *testing.T) {
	env := setupTestController(t, nil)
	env.queue.EnqueueFn = func(context.Context, queue.Job) error { return errdefs.ErrQueueFull }

	_, err := env.ctrl.SubmitBuild(context.Background(), webRequest())
	if !errors.Is(err, errdefs.ErrQueueFull) || !cerrdefs.IsUnavailable(err) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	build, err := env.store.GetBuild(context.Background(), "kraken:web")
	if err != nil {
		t.Fatalf("record must stay for recovery: %v", err)
	}
	if build.TaskState.Status != modelhub.BuildStatusCreated {
		t.Fatalf("expected CREATED, got %s", build.TaskState.Status)
	}
}

func TestGetAndListBuilds(t *testing.T) {
	env := setupTestController(t, nil)
	ctx := context.Background()
	env.putBuild(t, "web", modelhub.BuildStatusReady)
	env.putBuild(t, "api", modelhub.BuildStatusError)

	summary, err := env.ctrl.GetBuild(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if summary.BuildName != "web" || summary.TaskState.Status != "READY" {
		t.Fatalf("unexpected summary %+v", summary)
	}

	if _, err = env.ctrl.GetBuild(ctx, "missing"); !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatalf("expected ErrBuildNotFound, got %v", err)
	}

	all, err := env.ctrl.ListBuilds(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 builds, got %d", len(all))
	}
}

func TestDeleteBuild(t *testing.T) {
	removed := false
	rt := &fakeRuntime{
		RemoveImageFn: func(_ context.Context, image string) (ctr.RemoveImageResult, error) {
			if image != "kraken:web" || removed {
				return ctr.RemoveImageResult{}, nil
			}
			removed = true
			return ctr.RemoveImageResult{ImageFound: true, ContainersRemoved: 2}, nil
		},
	}
	env := setupTestController(t, rt)
	ctx := context.Background()
	env.putBuild(t, "web", modelhub.BuildStatusFinished)
	for _, name := range []string{"web1", "web2"} {
		err := env.store.ReplaceContainer(ctx, modelhub.Container{
			ContainerSpec: modelhub.ContainerSpec{BuildName: "kraken:web", ContainerName: name},
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	res, err := env.ctrl.DeleteBuild(ctx, "web")
	if err != nil {
		t.Fatalf("DeleteBuild() error = %v", err)
	}
	want := v1beta1.DeleteBuildResult{
		BuildFullName:           "kraken:web",
		ImageRemoved:            true,
		RecordRemoved:           true,
		ContainersRemoved:       2,
		ContainerRecordsRemoved: 2,
		Message:                 controller.MessageImageDeleted,
	}
	if diff := cmp.Diff(want, res); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if _, err = env.store.GetBuild(ctx, "kraken:web"); !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatal("build record survived delete")
	}

	_, err = env.ctrl.DeleteBuild(ctx, "web")
	if !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteBuildRecordOnly(t *testing.T) {
	rt := &fakeRuntime{RemoveImageFn: func(context.Context, string) (ctr.RemoveImageResult, error) {
		return ctr.RemoveImageResult{}, nil
	}}
	env := setupTestController(t, rt)
	env.putBuild(t, "web", modelhub.BuildStatusError)

	res, err := env.ctrl.DeleteBuild(context.Background(), "web")
	if err != nil {
		t.Fatal(err)
	}
	if res.ImageRemoved || !res.RecordRemoved {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestDeleteBuildRuntimeFailureKeepsRecord(t *testing.T) {
	rt := &fakeRuntime{RemoveImageFn: func(context.Context, string) (ctr.RemoveImageResult, error) {
		return ctr.RemoveImageResult{}, cerrdefs.ErrUnavailable
	}}
	env := setupTestController(t, rt)
	env.putBuild(t, "web", modelhub.BuildStatusFinished)

	if _, err := env.ctrl.DeleteBuild(context.Background(), "web"); !cerrdefs.IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
	if _, err := env.store.GetBuild(context.Background(), "kraken:web"); err != nil {
		t.Fatalf("record must survive a runtime failure: %v", err)
	}
}

// TestBuildEndToEnd drives a submitted job through the lifecycle and provisions
// a container from the result.
func TestBuildEndToEnd(t *testing.T) {
	env := setupTestController(t, nil)
	ctx := context.Background()

	summary, err := env.ctrl.SubmitBuild(ctx, webRequest())
	if err != nil {
		t.Fatal(err)
	}

	req := v1beta1.CreateContainerRequest{BuildName: "web", ContainerName: "web1"}
	if _, err = env.ctrl.CreateContainer(ctx, req); !errors.Is(err, errdefs.ErrBuildNotReady) {
		t.Fatalf("expected not ready before the job ran, got %v", err)
	}

	lc := lifecycle.New(logging.NewNoopLogger(), env.store, env.runtime, nil)
	if err = lc.Run(ctx, env.queue.jobs[0]); err != nil {
		t.Fatalf("lifecycle run: %v", err)
	}

	got, err := env.ctrl.GetBuild(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if got.TaskState.Status != string(modelhub.BuildStatusFinished) {
		t.Fatalf("expected FINISHED, got %+v", got.TaskState)
	}
	history, err := env.ctrl.BuildHistory(ctx, "web")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 || history[0].TaskID != summary.TaskID || history[0].ImageID != testImageID {
		t.Fatalf("unexpected history %+v", history)
	}

	ctn, err := env.ctrl.CreateContainer(ctx, req)
	if err != nil {
		t.Fatalf("CreateContainer() error = %v", err)
	}
	if ctn.ContainerName != "web1" || ctn.ContainerImage != "kraken:web" {
		t.Fatalf("unexpected container %+v", ctn)
	}
	if len(ctn.Services) != 1 || ctn.Services[0].Name != controller.ServiceSSH || !ctn.Services[0].Started {
		t.Fatalf("expected ssh started, got %+v", ctn.Services)
	}
}
