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
	"fmt"
	"sync"
	"testing"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/logging"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/eminwux/kraken/internal/registry/memory"
)

const testImageID = "sha256:4c3b2a1f0e9d8c7b6a5f4e3d2c1b0a9f8e7d6c5b4a3f2e1d0c9b8a7f6e5d4c3b"

// fakeRuntime implements ctr.Client. Unset functions report success, and
// unknown containers are not found.
type fakeRuntime struct {
	mu sync.Mutex

	PingFn            func(ctx context.Context) error
	BuildImageFn      func(ctx context.Context, spec ctr.BuildSpec) (ctr.BuildResult, error)
	ImageExistsFn     func(ctx context.Context, image string) (bool, error)
	RemoveImageFn     func(ctx context.Context, image string) (ctr.RemoveImageResult, error)
	RunContainerFn    func(ctx context.Context, image string, spec modelhub.ContainerSpec) (ctr.ContainerInfo, error)
	ContainerExistsFn func(ctx context.Context, name string) (bool, error)
	ContainerStatusFn func(ctx context.Context, name string) (string, error)
	StopContainerFn   func(ctx context.Context, name string, timeout time.Duration) error
	RemoveContainerFn func(ctx context.Context, name string) error
	ExecFn            func(ctx context.Context, name string, spec ctr.ExecSpec) (int, error)

	runs  []modelhub.ContainerSpec
	execs [][]string
}

var _ ctr.Client = (*fakeRuntime)(nil)

func notFound(what string) error {
	return fmt.Errorf("ctr: %s: %w", what, cerrdefs.ErrNotFound)
}

func (f *fakeRuntime) Ping(ctx context.Context) error {
	if f.PingFn != nil {
		return f.PingFn(ctx)
	}
	return nil
}

func (f *fakeRuntime) BuildImage(ctx context.Context, spec ctr.BuildSpec) (ctr.BuildResult, error) {
	if f.BuildImageFn != nil {
		return f.BuildImageFn(ctx, spec)
	}
	return ctr.BuildResult{
		ImageID: testImageID,
		Labels:  spec.Labels,
		Tags:    []string{spec.Tag},
		Logs:    []string{"Step 1/1 : FROM kalilinux/kali-rolling"},
	}, nil
}

func (f *fakeRuntime) ImageExists(ctx context.Context, image string) (bool, error) {
	if f.ImageExistsFn != nil {
		return f.ImageExistsFn(ctx, image)
	}
	return true, nil
}

func (f *fakeRuntime) RemoveImage(ctx context.Context, image string) (ctr.RemoveImageResult, error) {
	if f.RemoveImageFn != nil {
		return f.RemoveImageFn(ctx, image)
	}
	return ctr.RemoveImageResult{ImageFound: true}, nil
}

func (f *fakeRuntime) RunContainer(
	ctx context.Context,
	image string,
	spec modelhub.ContainerSpec,
) (ctr.ContainerInfo, error) {
	f.mu.Lock()
	f.runs = append(f.runs, spec)
	f.mu.Unlock()
	if f.RunContainerFn != nil {
		return f.RunContainerFn(ctx, image, spec)
	}
	name := spec.ContainerName
	if name == "" {
		name = "eager_turing"
	}
	return ctr.ContainerInfo{ID: "id-" + name, Name: name, Image: image, Status: "running"}, nil
}

func (f *fakeRuntime) ContainerExists(ctx context.Context, name string) (bool, error) {
	if f.ContainerExistsFn != nil {
		return f.ContainerExistsFn(ctx, name)
	}
	return false, nil
}

func (f *fakeRuntime) ContainerStatus(ctx context.Context, name string) (string, error) {
	if f.ContainerStatusFn != nil {
		return f.ContainerStatusFn(ctx, name)
	}
	return "", notFound("inspect container")
}

func (f *fakeRuntime) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	if f.StopContainerFn != nil {
		return f.StopContainerFn(ctx, name, timeout)
	}
	return notFound("stop container")
}

func (f *fakeRuntime) RemoveContainer(ctx context.Context, name string) error {
	if f.RemoveContainerFn != nil {
		return f.RemoveContainerFn(ctx, name)
	}
	return notFound("remove container")
}

func (f *fakeRuntime) Exec(ctx context.Context, name string, spec ctr.ExecSpec) (int, error) {
	f.mu.Lock()
	f.execs = append(f.execs, spec.Cmd)
	f.mu.Unlock()
	if f.ExecFn != nil {
		return f.ExecFn(ctx, name, spec)
	}
	return 0, nil
}

// fakeQueue records jobs instead of running them.
type fakeQueue struct {
	EnqueueFn func(ctx context.Context, job queue.Job) error
	workers   int
	jobs      []queue.Job
}

func (q *fakeQueue) Enqueue(ctx context.Context, job queue.Job) error {
	if q.EnqueueFn != nil {
		if err := q.EnqueueFn(ctx, job); err != nil {
			return err
		}
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *fakeQueue) Workers() int {
	return q.workers
}

type testEnv struct {
	ctrl    *controller.Exec
	store   *memory.Store
	runtime *fakeRuntime
	queue   *fakeQueue
}

var testTools = []modelhub.Tool{
	{Name: "nmap", Scope: modelhub.ToolScope{PT: true, RT: true}, PropertyEnabled: "NMAP_ENABLED"},
	{Name: "sqlmap", Scope: modelhub.ToolScope{PT: true}, PropertyEnabled: "SQLMAP_ENABLED"},
	{Name: "msfvenom", Scope: modelhub.ToolScope{PT: true, RT: true}},
}

func setupTestController(t *testing.T, rt *fakeRuntime) *testEnv {
	t.Helper()
	if rt == nil {
		rt = &fakeRuntime{}
	}
	store := memory.New()
	if err := store.InsertTools(context.Background(), testTools); err != nil {
		t.Fatalf("seed tools: %v", err)
	}
	q := &fakeQueue{workers: 2}
	ctrl := controller.NewControllerExec(logging.NewNoopLogger(), store, rt, q, nil, controller.Options{
		ImageBase:   "kraken",
		StopTimeout: 5 * time.Second,
		Display:     func() (string, bool) { return ":0", true },
	})
	return &testEnv{ctrl: ctrl, store: store, runtime: rt, queue: q}
}

// putBuild stores a build record directly in the given state.
func (e *testEnv) putBuild(t *testing.T, name string, status modelhub.BuildStatus, mutate ...func(*modelhub.Build)) modelhub.Build {
	t.Helper()
	b := modelhub.Build{
		BuildName:  "kraken:" + name,
		BuildScope: "PT",
		TaskID:     "kraken:" + name + "-00112233aabbccdd",
		TaskState:  modelhub.TaskState{Status: status, Message: "test", UpdatedAt: time.Now().UTC()},
		CreatedAt:  time.Now().UTC(),
	}
	for _, fn := range mutate {
		fn(&b)
	}
	if err := e.store.ReplaceBuild(context.Background(), b); err != nil {
		t.Fatalf("put build: %v", err)
	}
	return b
}
