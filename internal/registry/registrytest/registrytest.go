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

// Package registrytest holds the behavior every registry.Store must share.
package registrytest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/registry"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Factory returns an empty store; it is called once per subtest.
type Factory func(t *testing.T) registry.Store

// Run exercises store against the registry contract.
func Run(t *testing.T, factory Factory) {
	t.Helper()
	t.Run("builds", func(t *testing.T) { testBuilds(t, factory(t)) })
	t.Run("build states", func(t *testing.T) { testBuildStates(t, factory(t)) })
	t.Run("history", func(t *testing.T) { testHistory(t, factory(t)) })
	t.Run("containers", func(t *testing.T) { testContainers(t, factory(t)) })
	t.Run("tools", func(t *testing.T) { testTools(t, factory(t)) })
	t.Run("clean", func(t *testing.T) { testClean(t, factory(t)) })
}

// NewBuild returns a build record in CREATED.
func NewBuild(name, taskID string) modelhub.Build {
	return modelhub.Build{
		BuildName:  name,
		BuildScope: "PT",
		BuildArgs:  map[string]string{"NMAP": "True"},
		Tools:      []string{"nmap"},
		TaskID:     taskID,
		TaskState: modelhub.TaskState{
			Status:    modelhub.BuildStatusCreated,
			Message:   "Task created",
			UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		CreatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

var timeEqual = cmpopts.EquateApproxTime(time.Millisecond)

func testBuilds(t *testing.T, s registry.Store) {
	ctx := context.Background()
	b := NewBuild("kraken:web", "kraken:web-1")

	if _, err := s.GetBuild(ctx, b.BuildName); !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatalf("expected ErrBuildNotFound, got %v", err)
	}
	if err := s.InsertBuild(ctx, b); err != nil {
		t.Fatalf("InsertBuild() error = %v", err)
	}
	if err := s.InsertBuild(ctx, b); !errors.Is(err, errdefs.ErrBuildNameUsed) {
		t.Fatalf("expected ErrBuildNameUsed, got %v", err)
	}

	got, err := s.GetBuild(ctx, b.BuildName)
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if diff := cmp.Diff(b, got, timeEqual); diff != "" {
		t.Fatalf("build mismatch (-want +got):\n%s", diff)
	}

	replacement := NewBuild("kraken:web", "kraken:web-2")
	replacement.Tools = []string{"sqlmap"}
	if err = s.ReplaceBuild(ctx, replacement); err != nil {
		t.Fatalf("ReplaceBuild() error = %v", err)
	}
	all, err := s.ListBuilds(ctx)
	if err != nil {
		t.Fatalf("ListBuilds() error = %v", err)
	}
	if len(all) != 1 || all[0].TaskID != "kraken:web-2" {
		t.Fatalf("expected exactly the replacement record, got %+v", all)
	}
	if _, err = s.GetBuildByTaskID(ctx, "kraken:web-1"); !errors.Is(err, errdefs.ErrTaskNotFound) {
		t.Fatalf("superseded task should be gone, got %v", err)
	}

	removed, err := s.DeleteBuild(ctx, b.BuildName)
	if err != nil || !removed {
		t.Fatalf("DeleteBuild() = %v, %v", removed, err)
	}
	removed, err = s.DeleteBuild(ctx, b.BuildName)
	if err != nil || removed {
		t.Fatalf("second DeleteBuild() = %v, %v", removed, err)
	}
}

func testBuildStates(t *testing.T, s registry.Store) {
	ctx := context.Background()
	for _, b := range []modelhub.Build{
		NewBuild("kraken:a", "kraken:a-1"),
		NewBuild("kraken:b", "kraken:b-1"),
	} {
		if err := s.InsertBuild(ctx, b); err != nil {
			t.Fatalf("InsertBuild() error = %v", err)
		}
	}

	state := modelhub.TaskState{Status: modelhub.BuildStatusReady, Message: "built", UpdatedAt: time.Now().UTC()}
	if err := s.UpdateBuildState(ctx, "kraken:a-1", state); err != nil {
		t.Fatalf("UpdateBuildState() error = %v", err)
	}
	if err := s.UpdateBuildState(ctx, "kraken:zzz", state); !errors.Is(err, errdefs.ErrTaskNotFound) {
		t.Fatalf("expected ErrTaskNotFound, got %v", err)
	}

	got, err := s.GetBuildByTaskID(ctx, "kraken:a-1")
	if err != nil {
		t.Fatalf("GetBuildByTaskID() error = %v", err)
	}
	if got.TaskState.Status != modelhub.BuildStatusReady || got.TaskState.Message != "built" {
		t.Fatalf("unexpected state %+v", got.TaskState)
	}

	if _, err = s.FindBuild(ctx, "kraken:a", modelhub.ReadyStatuses...); err != nil {
		t.Fatalf("expected ready build, got %v", err)
	}
	if _, err = s.FindBuild(ctx, "kraken:b", modelhub.ReadyStatuses...); !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatalf("expected CREATED build to miss the ready filter, got %v", err)
	}

	created, err := s.ListBuilds(ctx, modelhub.BuildStatusCreated, modelhub.BuildStatusProcessing)
	if err != nil {
		t.Fatalf("ListBuilds() error = %v", err)
	}
	if len(created) != 1 || created[0].BuildName != "kraken:b" {
		t.Fatalf("unexpected filtered builds %+v", created)
	}
}

func testHistory(t *testing.T, s registry.Store) {
	ctx := context.Background()
	entry := modelhub.HistoryEntry{
		TaskID:      "kraken:web-1",
		BuildName:   "kraken:web",
		ImageID:     "sha256:4fa6e0f0c6786287e131c3852c58a2e01cc697a68231826813597e4994f1d6e2",
		ImageLabels: map[string]string{"k": "v"},
		ImageTags:   []string{"kraken:web"},
		ImageLogs:   []string{"Step 1/1"},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := s.AppendHistory(ctx, entry); err != nil {
		t.Fatalf("AppendHistory() error = %v", err)
	}
	dup := entry
	dup.ImageID = "sha256:0000000000000000000000000000000000000000000000000000000000000000"
	if err := s.AppendHistory(ctx, dup); !errors.Is(err, errdefs.ErrHistoryExists) {
		t.Fatalf("expected ErrHistoryExists, got %v", err)
	}
	second := entry
	second.TaskID = "kraken:web-2"
	if err := s.AppendHistory(ctx, second); err != nil {
		t.Fatalf("AppendHistory() error = %v", err)
	}

	got, err := s.ListHistory(ctx, "kraken:web")
	if err != nil {
		t.Fatalf("ListHistory() error = %v", err)
	}
	if diff := cmp.Diff([]modelhub.HistoryEntry{entry, second}, got, timeEqual); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	other, err := s.ListHistory(ctx, "kraken:other")
	if err != nil || len(other) != 0 {
		t.Fatalf("expected empty history, got %v %v", other, err)
	}
}

func testContainers(t *testing.T, s registry.Store) {
	ctx := context.Background()
	host := "8080/tcp"
	ctn := modelhub.Container{
		ContainerSpec: modelhub.ContainerSpec{
			BuildName:     "kraken:web",
			ContainerName: "web1",
			Ports:         map[string]*string{"80/tcp": &host},
			Volumes:       map[string]modelhub.VolumeBind{"/srv": {Bind: "/data", Mode: "rw"}},
			Environment:   []string{"A=B"},
			NetworkMode:   "bridge",
		},
		ContainerID: "c1",
		Status:      "running",
		Services:    []modelhub.ServiceResult{{Name: "ssh", Started: true}},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	if _, err := s.GetContainer(ctx, "web1"); !errors.Is(err, errdefs.ErrContainerNotFound) {
		t.Fatalf("expected ErrContainerNotFound, got %v", err)
	}
	if err := s.ReplaceContainer(ctx, ctn); err != nil {
		t.Fatalf("ReplaceContainer() error = %v", err)
	}
	ctn.ContainerID = "c2"
	if err := s.ReplaceContainer(ctx, ctn); err != nil {
		t.Fatalf("ReplaceContainer() error = %v", err)
	}
	got, err := s.GetContainer(ctx, "web1")
	if err != nil {
		t.Fatalf("GetContainer() error = %v", err)
	}
	if diff := cmp.Diff(ctn, got, timeEqual); diff != "" {
		t.Fatalf("container mismatch (-want +got):\n%s", diff)
	}

	found, err := s.UpdateContainerStatus(ctx, "web1", modelhub.ContainerStatusStopped)
	if err != nil || !found {
		t.Fatalf("UpdateContainerStatus() = %v, %v", found, err)
	}
	found, err = s.UpdateContainerStatus(ctx, "ghost", modelhub.ContainerStatusStopped)
	if err != nil || found {
		t.Fatalf("UpdateContainerStatus(ghost) = %v, %v", found, err)
	}

	other := ctn
	other.ContainerName = "web2"
	if err = s.ReplaceContainer(ctx, other); err != nil {
		t.Fatalf("ReplaceContainer() error = %v", err)
	}
	list, err := s.ListContainers(ctx)
	if err != nil || len(list) != 2 {
		t.Fatalf("ListContainers() = %d, %v", len(list), err)
	}
	if list[0].Status != modelhub.ContainerStatusStopped {
		t.Fatalf("expected stopped status, got %q", list[0].Status)
	}

	removed, err := s.DeleteContainer(ctx, "web1")
	if err != nil || !removed {
		t.Fatalf("DeleteContainer() = %v, %v", removed, err)
	}
	n, err := s.DeleteContainersByBuild(ctx, "kraken:web")
	if err != nil || n != 1 {
		t.Fatalf("DeleteContainersByBuild() = %d, %v", n, err)
	}
}

func testTools(t *testing.T, s registry.Store) {
	ctx := context.Background()
	tools := []modelhub.Tool{
		{Name: "nmap", Description: "scanner", Stage: "recon", Scope: modelhub.ToolScope{PT: true}, PropertyEnabled: "NMAP"},
		{Name: "Nikto", Description: "web scanner", Stage: "recon", Scope: modelhub.ToolScope{PT: true, RT: true}},
		{Name: "sqlmap", Description: "sqli", Stage: "exploitation"},
	}
	if n, err := s.CountTools(ctx); err != nil || n != 0 {
		t.Fatalf("CountTools() = %d, %v", n, err)
	}
	if err := s.InsertTools(ctx, tools); err != nil {
		t.Fatalf("InsertTools() error = %v", err)
	}
	if n, err := s.CountTools(ctx); err != nil || n != 3 {
		t.Fatalf("CountTools() = %d, %v", n, err)
	}

	got, err := s.FindTools(ctx, "^n")
	if err != nil {
		t.Fatalf("FindTools() error = %v", err)
	}
	names := make([]string, 0, len(got))
	for _, tool := range got {
		names = append(names, tool.Name)
	}
	if diff := cmp.Diff([]string{"Nikto", "nmap"}, names, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}
	if _, err = s.FindTools(ctx, "(["); !errors.Is(err, errdefs.ErrInvalidToolFilter) {
		t.Fatalf("expected ErrInvalidToolFilter, got %v", err)
	}

	tool, err := s.GetTool(ctx, "nmap")
	if err != nil || tool.PropertyEnabled != "NMAP" {
		t.Fatalf("GetTool() = %+v, %v", tool, err)
	}
	if _, err = s.GetTool(ctx, "metasploit"); !errors.Is(err, errdefs.ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	all, err := s.ListTools(ctx)
	if err != nil || len(all) != 3 {
		t.Fatalf("ListTools() = %d, %v", len(all), err)
	}
}

func testClean(t *testing.T, s registry.Store) {
	ctx := context.Background()
	if err := s.InsertBuild(ctx, NewBuild("kraken:web", "kraken:web-1")); err != nil {
		t.Fatal(err)
	}
	if err := s.InsertTools(ctx, []modelhub.Tool{{Name: "nmap"}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clean(ctx); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}
	builds, err := s.ListBuilds(ctx)
	if err != nil || len(builds) != 0 {
		t.Fatalf("expected no builds after clean, got %d %v", len(builds), err)
	}
	if n, countErr := s.CountTools(ctx); countErr != nil || n != 0 {
		t.Fatalf("expected no tools after clean, got %d %v", n, countErr)
	}
}
