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

// Package memory is an in-process registry. It backs tests, the file store and
// single-shot CLI runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/registry"
)

type Store struct {
	mu         sync.RWMutex
	builds     map[string]modelhub.Build
	history    []modelhub.HistoryEntry
	containers map[string]modelhub.Container
	tools      map[string]modelhub.Tool
}

var _ registry.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		builds:     make(map[string]modelhub.Build),
		containers: make(map[string]modelhub.Container),
		tools:      make(map[string]modelhub.Tool),
	}
}

// NewFromSnapshot loads a previously exported snapshot.
func NewFromSnapshot(snap registry.Snapshot) *Store {
	s := New()
	s.restore(snap)
	return s
}

func (s *Store) restore(snap registry.Snapshot) {
	for _, b := range snap.Builds {
		s.builds[b.BuildName] = cloneBuild(b)
	}
	for _, h := range snap.History {
		s.history = append(s.history, cloneHistory(h))
	}
	for _, c := range snap.Containers {
		s.containers[c.ContainerName] = cloneContainer(c)
	}
	for _, t := range snap.Tools {
		s.tools[t.Name] = t
	}
}

// Snapshot exports the full contents in a stable order.
func (s *Store) Snapshot() registry.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := registry.Snapshot{
		Builds:     make([]modelhub.Build, 0, len(s.builds)),
		History:    make([]modelhub.HistoryEntry, 0, len(s.history)),
		Containers: make([]modelhub.Container, 0, len(s.containers)),
		Tools:      s.sortedTools(),
	}
	for _, name := range sortedKeys(s.builds) {
		snap.Builds = append(snap.Builds, cloneBuild(s.builds[name]))
	}
	for _, h := range s.history {
		snap.History = append(snap.History, cloneHistory(h))
	}
	for _, name := range sortedKeys(s.containers) {
		snap.Containers = append(snap.Containers, cloneContainer(s.containers[name]))
	}
	return snap
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Clean(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds = make(map[string]modelhub.Build)
	s.history = nil
	s.containers = make(map[string]modelhub.Container)
	s.tools = make(map[string]modelhub.Tool)
	return nil
}

// ---- builds ----

func (s *Store) GetBuild(ctx context.Context, name string) (modelhub.Build, error) {
	return s.FindBuild(ctx, name)
}

func (s *Store) FindBuild(
	_ context.Context,
	name string,
	statuses ...modelhub.BuildStatus,
) (modelhub.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.builds[name]
	if !ok || !registry.StatusIn(b.TaskState.Status, statuses) {
		return modelhub.Build{}, fmt.Errorf("%w: %s", errdefs.ErrBuildNotFound, name)
	}
	return cloneBuild(b), nil
}

func (s *Store) GetBuildByTaskID(_ context.Context, taskID string) (modelhub.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, b := range s.builds {
		if b.TaskID == taskID {
			return cloneBuild(b), nil
		}
	}
	return modelhub.Build{}, fmt.Errorf("%w: %s", errdefs.ErrTaskNotFound, taskID)
}

func (s *Store) ListBuilds(_ context.Context, statuses ...modelhub.BuildStatus) ([]modelhub.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]modelhub.Build, 0, len(s.builds))
	for _, name := range sortedKeys(s.builds) {
		b := s.builds[name]
		if registry.StatusIn(b.TaskState.Status, statuses) {
			out = append(out, cloneBuild(b))
		}
	}
	return out, nil
}

func (s *Store) InsertBuild(_ context.Context, build modelhub.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.builds[build.BuildName]; ok {
		return fmt.Errorf("%w: %s", errdefs.ErrBuildNameUsed, build.BuildName)
	}
	s.builds[build.BuildName] = cloneBuild(build)
	return nil
}

func (s *Store) ReplaceBuild(_ context.Context, build modelhub.Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.builds[build.BuildName] = cloneBuild(build)
	return nil
}

func (s *Store) UpdateBuildState(_ context.Context, taskID string, state modelhub.TaskState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, b := range s.builds {
		if b.TaskID == taskID {
			b.TaskState = state
			s.builds[name] = b
			return nil
		}
	}
	return fmt.Errorf("%w: %s", errdefs.ErrTaskNotFound, taskID)
}

func (s *Store) DeleteBuild(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.builds[name]
	delete(s.builds, name)
	return ok, nil
}

func (s *Store) AppendHistory(_ context.Context, entry modelhub.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, h := range s.history {
		if h.TaskID == entry.TaskID {
			return fmt.Errorf("%w: %s", errdefs.ErrHistoryExists, entry.TaskID)
		}
	}
	s.history = append(s.history, cloneHistory(entry))
	return nil
}

func (s *Store) ListHistory(_ context.Context, buildName string) ([]modelhub.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []modelhub.HistoryEntry
	for _, h := range s.history {
		if h.BuildName == buildName {
			out = append(out, cloneHistory(h))
		}
	}
	return out, nil
}

// ---- containers ----

func (s *Store) GetContainer(_ context.Context, name string) (modelhub.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.containers[name]
	if !ok {
		return modelhub.Container{}, fmt.Errorf("%w: %s", errdefs.ErrContainerNotFound, name)
	}
	return cloneContainer(c), nil
}

func (s *Store) ListContainers(context.Context) ([]modelhub.Container, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]modelhub.Container, 0, len(s.containers))
	for _, name := range sortedKeys(s.containers) {
		out = append(out, cloneContainer(s.containers[name]))
	}
	return out, nil
}

func (s *Store) ReplaceContainer(_ context.Context, ctn modelhub.Container) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.containers[ctn.ContainerName] = cloneContainer(ctn)
	return nil
}

func (s *Store) UpdateContainerStatus(_ context.Context, name, status string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[name]
	if !ok {
		return false, nil
	}
	c.Status = status
	s.containers[name] = c
	return true, nil
}

func (s *Store) DeleteContainer(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.containers[name]
	delete(s.containers, name)
	return ok, nil
}

func (s *Store) DeleteContainersByBuild(_ context.Context, buildName string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for name, c := range s.containers {
		if c.BuildName == buildName {
			delete(s.containers, name)
			n++
		}
	}
	return n, nil
}

// ---- tools ----

func (s *Store) ListTools(context.Context) ([]modelhub.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedTools(), nil
}

func (s *Store) FindTools(_ context.Context, pattern string) ([]modelhub.Tool, error) {
	re, err := registry.CompileToolFilter(pattern)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []modelhub.Tool
	for _, t := range s.sortedTools() {
		if re.MatchString(t.Name) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Store) GetTool(_ context.Context, name string) (modelhub.Tool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tools[name]
	if !ok {
		return modelhub.Tool{}, fmt.Errorf("%w: %s", errdefs.ErrToolNotFound, name)
	}
	return t, nil
}

func (s *Store) CountTools(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tools), nil
}

func (s *Store) InsertTools(_ context.Context, tools []modelhub.Tool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tools {
		s.tools[t.Name] = t
	}
	return nil
}

func (s *Store) sortedTools() []modelhub.Tool {
	out := make([]modelhub.Tool, 0, len(s.tools))
	for _, name := range sortedKeys(s.tools) {
		out = append(out, s.tools[name])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneBuild(b modelhub.Build) modelhub.Build {
	b.BuildArgs = maps.Clone(b.BuildArgs)
	b.ContainerProperties = maps.Clone(b.ContainerProperties)
	b.Tools = slices.Clone(b.Tools)
	return b
}

func cloneHistory(h modelhub.HistoryEntry) modelhub.HistoryEntry {
	h.ImageLabels = maps.Clone(h.ImageLabels)
	h.ImageTags = slices.Clone(h.ImageTags)
	h.ImageLogs = slices.Clone(h.ImageLogs)
	return h
}

func cloneContainer(c modelhub.Container) modelhub.Container {
	c.Ports = maps.Clone(c.Ports)
	c.Volumes = maps.Clone(c.Volumes)
	c.Environment = slices.Clone(c.Environment)
	c.CapAdd = slices.Clone(c.CapAdd)
	c.CapDrop = slices.Clone(c.CapDrop)
	c.Services = slices.Clone(c.Services)
	return c
}
