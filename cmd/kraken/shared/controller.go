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

package shared

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/eminwux/kraken/cmd/config"
	"github.com/eminwux/kraken/cmd/types"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/ctr"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/lifecycle"
	"github.com/eminwux/kraken/internal/logging"
	"github.com/eminwux/kraken/internal/metrics"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/eminwux/kraken/internal/registry"
	"github.com/eminwux/kraken/internal/registry/file"
	"github.com/eminwux/kraken/internal/registry/memory"
	"github.com/eminwux/kraken/internal/registry/mongo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	BackendFile   = "file"
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// LoggerFromCmd extracts the slog logger from the Cobra command context.
func LoggerFromCmd(cmd *cobra.Command) (*slog.Logger, error) {
	logger, ok := cmd.Context().Value(types.CtxLogger).(*slog.Logger)
	if !ok || logger == nil {
		return nil, errdefs.ErrLoggerNotFound
	}
	return logger, nil
}

// NewLogger builds the process logger from the root logging flags. When
// verbose is false only warnings and errors are shown.
func NewLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	if verbose {
		levelVar.Set(logging.ParseLevel(viper.GetString(config.KRAKEN_ROOT_LOG_LEVEL.ViperKey)))
	}
	format := logging.ParseFormat(viper.GetString(config.KRAKEN_ROOT_LOG_FORMAT.ViperKey))
	return logging.New(format, os.Stderr, levelVar), levelVar
}

// WithLogger stores logger and levelVar in the command context.
func WithLogger(cmd *cobra.Command, logger *slog.Logger, levelVar *slog.LevelVar) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, types.CtxLogger, logger)
	ctx = context.WithValue(ctx, types.CtxLevelVar, levelVar)
	cmd.SetContext(ctx)
}

// OpenStore opens the registry backend selected by configuration.
func OpenStore(ctx context.Context, logger *slog.Logger) (registry.Store, error) {
	backend := strings.ToLower(strings.TrimSpace(viper.GetString(config.KRAKEN_ROOT_STORE_BACKEND.ViperKey)))
	switch backend {
	case BackendMongo:
		return mongo.Open(ctx, logger, mongo.Options{
			URI:      viper.GetString(config.KRAKEN_ROOT_MONGO_URI.ViperKey),
			Database: viper.GetString(config.KRAKEN_ROOT_MONGO_DATABASE.ViperKey),
		})
	case BackendMemory:
		return memory.New(), nil
	case BackendFile, "":
		path := strings.TrimSpace(viper.GetString(config.KRAKEN_ROOT_STORE_PATH.ViperKey))
		if path == "" {
			path = config.DefaultStorePath(viper.GetString(config.KRAKEN_ROOT_RUN_PATH.ViperKey))
		}
		return file.Open(ctx, logger, path)
	default:
		return nil, fmt.Errorf("%w: unknown store backend %q (supported: file, mongo, memory)", errdefs.ErrConfig, backend)
	}
}

// NewRuntime connects to the docker daemon named by configuration.
func NewRuntime(logger *slog.Logger) (ctr.Client, error) {
	return ctr.NewClient(logger, ctr.Options{
		Endpoint:   viper.GetString(config.KRAKEN_ROOT_DOCKER_ENDPOINT.ViperKey),
		ContextDir: viper.GetString(config.KRAKEN_ROOT_BUILD_CONTEXT.ViperKey),
		Dockerfile: viper.GetString(config.KRAKEN_ROOT_DOCKERFILE.ViperKey),
		ShmSize:    viper.GetString(config.KRAKEN_ROOT_SHM_SIZE.ViperKey),
	})
}

// ControllerOptions reads controller.Options from configuration.
func ControllerOptions() controller.Options {
	return controller.Options{
		ImageBase:   viper.GetString(config.KRAKEN_ROOT_IMAGE_BASE.ViperKey),
		StopTimeout: viper.GetDuration(config.KRAKEN_ROOT_STOP_TIMEOUT.ViperKey),
		CatalogFile: viper.GetString(config.KRAKEN_ROOT_CATALOG_FILE.ViperKey),
	}
}

// inlineQueue runs every job on the submitting goroutine. CLI invocations
// have no worker pool, so a submitted build completes before the command
// returns. A failed job is recorded on the build, like a pool worker does.
type inlineQueue struct {
	logger *slog.Logger
	run    queue.Handler
}

func (q *inlineQueue) Enqueue(ctx context.Context, job queue.Job) error {
	if err := q.run(ctx, job); err != nil {
		q.logger.ErrorContext(ctx, "job failed", "taskId", job.TaskID, "error", err)
	}
	return nil
}

func (q *inlineQueue) Workers() int { return 1 }

// Session bundles a controller with the resources it holds open.
type Session struct {
	Controller controller.Controller
	Store      registry.Store
	Runtime    ctr.Client
	Metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Close releases the registry connection.
func (s *Session) Close(ctx context.Context) {
	if s == nil || s.Store == nil {
		return
	}
	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Store.Close(closeCtx); err != nil {
		s.logger.WarnContext(ctx, "failed to close registry", "error", err)
	}
}

// MockRuntimeKey is used to inject a fake container runtime in tests via context.
type MockRuntimeKey struct{}

// OpenSession builds a controller from configuration. When q is nil builds
// run inline. The caller owns the returned session and must Close it.
func OpenSession(ctx context.Context, logger *slog.Logger, q controller.TaskQueue, m *metrics.Metrics) (*Session, error) {
	store, err := OpenStore(ctx, logger)
	if err != nil {
		return nil, err
	}
	runtime, ok := ctx.Value(MockRuntimeKey{}).(ctr.Client)
	if !ok {
		runtime, err = NewRuntime(logger)
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
	}
	if q == nil {
		q = &inlineQueue{logger: logger, run: lifecycle.New(logger, store, runtime, m).Run}
	}
	ctrl := controller.NewControllerExec(logger, store, runtime, q, m, ControllerOptions())
	return &Session{Controller: ctrl, Store: store, Runtime: runtime, Metrics: m, logger: logger}, nil
}

// ControllerFromCmd opens a session for a CLI command.
func ControllerFromCmd(cmd *cobra.Command) (*Session, error) {
	logger, err := LoggerFromCmd(cmd)
	if err != nil {
		return nil, err
	}
	return OpenSession(cmd.Context(), logger, nil, nil)
}

// GetControllerWithMock returns the mock stored under mockKey when present.
// Otherwise it opens a real session and adapts its controller with wrap. The
// returned release func is never nil.
func GetControllerWithMock[T any](
	cmd *cobra.Command,
	mockKey any,
	wrap func(controller.Controller) T,
) (T, func(), error) {
	var zero T
	if mockCtrl, ok := cmd.Context().Value(mockKey).(T); ok {
		return mockCtrl, func() {}, nil
	}

	session, err := ControllerFromCmd(cmd)
	if err != nil {
		return zero, func() {}, err
	}
	return wrap(session.Controller), func() { session.Close(cmd.Context()) }, nil
}
