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

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/eminwux/kraken/internal/errdefs"
)

const (
	dirPerm  = 0o700
	filePerm = 0o600
)

// Exists reports whether file is present on disk.
func Exists(file string) bool {
	_, err := os.Stat(file)
	return err == nil
}

// Write stores v as indented JSON at file, replacing any previous content atomically.
func Write(ctx context.Context, logger *slog.Logger, v any, file string) error {
	if err := os.MkdirAll(filepath.Dir(file), dirPerm); err != nil {
		logger.ErrorContext(ctx, "failed to create snapshot dir", "file", file, "error", err)
		return fmt.Errorf("mkdir snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", file, err)
	}
	data = append(data, '\n')

	if err = atomicWriteFile(file, data, filePerm); err != nil {
		logger.ErrorContext(ctx, "failed to write snapshot", "file", file, "error", err)
		return fmt.Errorf("write %s: %w", file, err)
	}
	logger.DebugContext(ctx, "snapshot written", "file", file, "bytes", len(data))
	return nil
}

// atomicWriteFile writes to a temp file in the same dir, fsyncs, then renames.
func atomicWriteFile(file string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(file)

	f, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		_ = f.Close()
		_ = os.Remove(tmp)
	}()

	if err = f.Chmod(mode); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	if _, err = f.Write(data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("fsync: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	if err = os.Rename(tmp, file); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	if d, openErr := os.Open(dir); openErr == nil {
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}

// Read decodes the JSON document at file into a T.
func Read[T any](ctx context.Context, logger *slog.Logger, file string) (T, error) {
	var out T
	logger.DebugContext(ctx, "reading snapshot", "file", file)

	data, err := os.ReadFile(file)
	if os.IsNotExist(err) {
		return out, fmt.Errorf("%w: %s", errdefs.ErrMissingSnapshot, file)
	}
	if err != nil {
		return out, fmt.Errorf("read %s: %w", file, err)
	}
	if err = json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("unmarshal %s: %w", file, err)
	}
	return out, nil
}
