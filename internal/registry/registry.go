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

// Package registry defines the persistent store for build, history, container and
// tool records. Implementations guarantee single-record atomicity only.
package registry

import (
	"context"

	"github.com/eminwux/kraken/internal/modelhub"
)

// BuildStore persists build records and their history.
type BuildStore interface {
	// GetBuild returns the record named name or errdefs.ErrBuildNotFound.
	GetBuild(ctx context.Context, name string) (modelhub.Build, error)
	// FindBuild returns the record named name whose status is one of statuses.
	// With no statuses it behaves like GetBuild.
	FindBuild(ctx context.Context, name string, statuses ...modelhub.BuildStatus) (modelhub.Build, error)
	// GetBuildByTaskID returns the record owned by taskID or errdefs.ErrTaskNotFound.
	GetBuildByTaskID(ctx context.Context, taskID string) (modelhub.Build, error)
	// ListBuilds returns every record, or only those in statuses when given.
	ListBuilds(ctx context.Context, statuses ...modelhub.BuildStatus) ([]modelhub.Build, error)
	// InsertBuild fails with errdefs.ErrBuildNameUsed when the name is taken.
	InsertBuild(ctx context.Context, build modelhub.Build) error
	// ReplaceBuild writes build over any record with the same name in one operation.
	ReplaceBuild(ctx context.Context, build modelhub.Build) error
	// UpdateBuildState sets the task state of the record owned by taskID.
	UpdateBuildState(ctx context.Context, taskID string, state modelhub.TaskState) error
	// DeleteBuild removes the record and reports whether it existed.
	DeleteBuild(ctx context.Context, name string) (bool, error)

	// AppendHistory records entry once per task id; a repeat returns
	// errdefs.ErrHistoryExists and leaves the first entry untouched.
	AppendHistory(ctx context.Context, entry modelhub.HistoryEntry) error
	// ListHistory returns the history of a build in insertion order.
	ListHistory(ctx context.Context, buildName string) ([]modelhub.HistoryEntry, error)
}

// ContainerStore persists container records.
type ContainerStore interface {
	GetContainer(ctx context.Context, name string) (modelhub.Container, error)
	ListContainers(ctx context.Context) ([]modelhub.Container, error)
	// ReplaceContainer deletes any record with the same name and inserts ctn.
	ReplaceContainer(ctx context.Context, ctn modelhub.Container) error
	UpdateContainerStatus(ctx context.Context, name, status string) (bool, error)
	DeleteContainer(ctx context.Context, name string) (bool, error)
	// DeleteContainersByBuild removes every container derived from buildName.
	DeleteContainersByBuild(ctx context.Context, buildName string) (int, error)
}

// ToolStore persists the tool catalog.
type ToolStore interface {
	ListTools(ctx context.Context) ([]modelhub.Tool, error)
	// FindTools matches name against pattern, case-insensitively.
	FindTools(ctx context.Context, pattern string) ([]modelhub.Tool, error)
	GetTool(ctx context.Context, name string) (modelhub.Tool, error)
	CountTools(ctx context.Context) (int, error)
	InsertTools(ctx context.Context, tools []modelhub.Tool) error
}

// Store is the full registry.
type Store interface {
	BuildStore
	ContainerStore
	ToolStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error
	// Clean drops every record of every kind.
	Clean(ctx context.Context) error
	Close(ctx context.Context) error
}

// Snapshot is a full copy of the registry contents.
type Snapshot struct {
	Builds     []modelhub.Build        `json:"builds"`
	History    []modelhub.HistoryEntry `json:"history"`
	Containers []modelhub.Container    `json:"containers"`
	Tools      []modelhub.Tool         `json:"tools"`
}
