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

// Package file is a registry persisted as a single JSON snapshot on local disk.
// It suits single-host installs that run without MongoDB. Several processes
// may share one snapshot: every mutation re-reads the file under an exclusive
// lock and writes it back before the lock is released.
package file

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/metadata"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/registry"
	"github.com/eminwux/kraken/internal/registry/memory"
)

const lockSuffix = ".lock"

type snapshotWriter func(ctx context.Context, snap registry.Snapshot) error

// Store keeps no state between calls; the snapshot on disk is the only copy.
type Store struct {
	logger *slog.Logger
	path   string
	write  snapshotWriter
	// mu serializes mutations of this process; the file lock serializes processes.
	mu sync.Mutex
}

var _ registry.Store = (*Store)(nil)

// Open checks that path is readable. A missing snapshot is an empty registry.
func Open(ctx context.Context, logger *slog.Logger, path string) (*Store, error) {
	s := &Store{logger: logger, path: path}
	s.write = s.writeSnapshot

	snap, err := s.load(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errdefs.ErrConnectStore, err)
	}
	logger.InfoContext(ctx, "registry snapshot opened",
		"file", path, "builds", len(snap.Builds), "containers", len(snap.Containers))
	return s, nil
}

func (s *Store) load(ctx context.Context) (registry.Snapshot, error) {
	snap, err := metadata.Read[registry.Snapshot](ctx, s.logger, s.path)
	if errors.Is(err, errdefs.ErrMissingSnapshot) {
		return registry.Snapshot{}, nil
	}
	return snap, err
}

func (s *Store) writeSnapshot(ctx context.Context, snap registry.Snapshot) error {
	return metadata.Write(ctx, s.logger, snap, s.path)
}

// view runs fn against the snapshot currently on disk.
func (s *Store) view(ctx context.Context, fn func(*memory.Store) error) error {
	snap, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrStoreUnavailable, err)
	}
	return fn(memory.NewFromSnapshot(snap))
}

// update applies fn to a fresh copy of the snapshot and writes the result.
// When fn or the write fails the file is left as it was.
func (s *Store) update(ctx context.Context, fn func(*memory.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockFile(s.path + lockSuffix)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrStoreUnavailable, err)
	}
	defer unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrStoreUnavailable, err)
	}
	working := memory.NewFromSnapshot(snap)
	if err = fn(working); err != nil {
		return err
	}
	if err = s.write(ctx, working.Snapshot()); err != nil {
		return fmt.Errorf("%w: %w", errdefs.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.view(ctx, func(*memory.Store) error { return nil })
}

// Close writes nothing; every mutation is already on disk.
func (s *Store) Close(context.Context) error { return nil }

func (s *Store) Clean(ctx context.Context) error {
	return s.update(ctx, func(m *memory.Store) error { return m.Clean(ctx) })
}

// ---- builds ----

func (s *Store) GetBuild(ctx context.Context, name string) (modelhub.Build, error) {
	return s.FindBuild(ctx, name)
}

func (s *Store) FindBuild(
	ctx context.Context,
	name string,
	statuses ...modelhub.BuildStatus,
) (modelhub.Build, error) {
	var b modelhub.Build
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		b, err = m.FindBuild(ctx, name, statuses...)
		return err
	})
	return b, err
}

func (s *Store) GetBuildByTaskID(ctx context.Context, taskID string) (modelhub.Build, error) {
	var b modelhub.Build
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		b, err = m.GetBuildByTaskID(ctx, taskID)
		return err
	})
	return b, err
}

func (s *Store) ListBuilds(ctx context.Context, statuses ...modelhub.BuildStatus) ([]modelhub.Build, error) {
	var out []modelhub.Build
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		out, err = m.ListBuilds(ctx, statuses...)
		return err
	})
	return out, err
}

func (s *Store) InsertBuild(ctx context.Context, build modelhub.Build) error {
	return s.update(ctx, func(m *memory.Store) error { return m.InsertBuild(ctx, build) })
}

func (s *Store) ReplaceBuild(ctx context.Context, build modelhub.Build) error {
	return s.update(ctx, func(m *memory.Store) error { return m.ReplaceBuild(ctx, build) })
}

func (s *Store) UpdateBuildState(ctx context.Context, taskID string, state modelhub.TaskState) error {
	return s.update(ctx, func(m *memory.Store) error { return m.UpdateBuildState(ctx, taskID, state) })
}

func (s *Store) DeleteBuild(ctx context.Context, name string) (bool, error) {
	var removed bool
	err := s.update(ctx, func(m *memory.Store) error {
		var err error
		removed, err = m.DeleteBuild(ctx, name)
		return err
	})
	return removed, err
}

func (s *Store) AppendHistory(ctx context.Context, entry modelhub.HistoryEntry) error {
	return s.update(ctx, func(m *memory.Store) error { return m.AppendHistory(ctx, entry) })
}

func (s *Store) ListHistory(ctx context.Context, buildName string) ([]modelhub.HistoryEntry, error) {
	var out []modelhub.HistoryEntry
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		out, err = m.ListHistory(ctx, buildName)
		return err
	})
	return out, err
}

// ---- containers ----

func (s *Store) GetContainer(ctx context.Context, name string) (modelhub.Container, error) {
	var c modelhub.Container
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		c, err = m.GetContainer(ctx, name)
		return err
	})
	return c, err
}

func (s *Store) ListContainers(ctx context.Context) ([]modelhub.Container, error) {
	var out []modelhub.Container
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		out, err = m.ListContainers(ctx)
		return err
	})
	return out, err
}

func (s *Store) ReplaceContainer(ctx context.Context, ctn modelhub.Container) error {
	return s.update(ctx, func(m *memory.Store) error { return m.ReplaceContainer(ctx, ctn) })
}

func (s *Store) UpdateContainerStatus(ctx context.Context, name, status string) (bool, error) {
	var found bool
	err := s.update(ctx, func(m *memory.Store) error {
		var err error
		found, err = m.UpdateContainerStatus(ctx, name, status)
		return err
	})
	return found, err
}

func (s *Store) DeleteContainer(ctx context.Context, name string) (bool, error) {
	var removed bool
	err := s.update(ctx, func(m *memory.Store) error {
		var err error
		removed, err = m.DeleteContainer(ctx, name)
		return err
	})
	return removed, err
}

func (s *Store) DeleteContainersByBuild(ctx context.Context, buildName string) (int, error) {
	var n int
	err := s.update(ctx, func(m *memory.Store) error {
		var err error
		n, err = m.DeleteContainersByBuild(ctx, buildName)
		return err
	})
	return n, err
}

// ---- tools ----

func (s *Store) ListTools(ctx context.Context) ([]modelhub.Tool, error) {
	var out []modelhub.Tool
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		out, err = m.ListTools(ctx)
		return err
	})
	return out, err
}

func (s *Store) FindTools(ctx context.Context, pattern string) ([]modelhub.Tool, error) {
	var out []modelhub.Tool
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		out, err = m.FindTools(ctx, pattern)
		return err
	})
	return out, err
}

func (s *Store) GetTool(ctx context.Context, name string) (modelhub.Tool, error) {
	var t modelhub.Tool
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		t, err = m.GetTool(ctx, name)
		return err
	})
	return t, err
}

func (s *Store) CountTools(ctx context.Context) (int, error) {
	var n int
	err := s.view(ctx, func(m *memory.Store) error {
		var err error
		n, err = m.CountTools(ctx)
		return err
	})
	return n, err
}

func (s *Store) InsertTools(ctx context.Context, tools []modelhub.Tool) error {
	return s.update(ctx, func(m *memory.Store) error { return m.InsertTools(ctx, tools) })
}
