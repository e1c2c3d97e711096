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

package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/eminwux/kraken/cmd/config"
	"github.com/eminwux/kraken/cmd/kraken/shared"
	"github.com/eminwux/kraken/internal/api"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/lifecycle"
	"github.com/eminwux/kraken/internal/metrics"
	"github.com/eminwux/kraken/internal/queue"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
)

// Options is the resolved serve configuration.
type Options struct {
	Listen    string
	Workers   int
	QueueSize int
	Recover   bool
}

// Runner runs the server until ctx is done.
type Runner func(ctx context.Context, logger *slog.Logger, opts Options) error

// MockRunnerKey is used to inject a fake runner in tests via context.
type MockRunnerKey struct{}

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "serve",
		Short:         "Serve the HTTP API and run the build worker pool",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := resolveOptions()
			if err != nil {
				return err
			}

			// The server always logs at the configured level.
			logger, levelVar := shared.NewLogger(true)
			shared.WithLogger(cmd, logger, levelVar)

			run := Runner(Run)
			if mockRun, ok := cmd.Context().Value(MockRunnerKey{}).(Runner); ok {
				run = mockRun
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, logger, opts)
		},
	}

	cmd.Flags().String("listen", ":5000", "Address the HTTP API listens on")
	_ = viper.BindPFlag(config.KRAKEN_SERVE_LISTEN.ViperKey, cmd.Flags().Lookup("listen"))

	cmd.Flags().Int("workers", 2, "Number of concurrent build workers")
	_ = viper.BindPFlag(config.KRAKEN_SERVE_WORKERS.ViperKey, cmd.Flags().Lookup("workers"))

	cmd.Flags().Int("queue-size", queue.DefaultSize, "Builds that may wait for a worker")
	_ = viper.BindPFlag(config.KRAKEN_SERVE_QUEUE_SIZE.ViperKey, cmd.Flags().Lookup("queue-size"))

	cmd.Flags().Bool("no-recover", false, "Do not re-enqueue unfinished builds at startup")
	_ = viper.BindPFlag(config.KRAKEN_SERVE_NO_RECOVER.ViperKey, cmd.Flags().Lookup("no-recover"))

	return cmd
}

func resolveOptions() (Options, error) {
	opts := Options{
		Listen:    strings.TrimSpace(viper.GetString(config.KRAKEN_SERVE_LISTEN.ViperKey)),
		Workers:   viper.GetInt(config.KRAKEN_SERVE_WORKERS.ViperKey),
		QueueSize: viper.GetInt(config.KRAKEN_SERVE_QUEUE_SIZE.ViperKey),
		Recover:   !viper.GetBool(config.KRAKEN_SERVE_NO_RECOVER.ViperKey),
	}
	if opts.Listen == "" {
		return opts, fmt.Errorf("%w: listen address is required (--listen)", errdefs.ErrConfig)
	}
	if opts.Workers < 1 {
		return opts, fmt.Errorf("%w: workers must be at least 1, got %d", errdefs.ErrConfig, opts.Workers)
	}
	if opts.QueueSize < 1 {
		return opts, fmt.Errorf("%w: queue size must be at least 1, got %d", errdefs.ErrConfig, opts.QueueSize)
	}
	return opts, nil
}

// Run wires the registry, runtime, queue and API together and blocks until
// ctx is cancelled or a component fails.
func Run(ctx context.Context, logger *slog.Logger, opts Options) error {
	m := metrics.New()
	q := queue.New(logger, opts.QueueSize, m)

	session, err := shared.OpenSession(ctx, logger, q, m)
	if err != nil {
		return err
	}
	defer session.Close(ctx)

	handler, err := api.New(logger, session.Controller, m)
	if err != nil {
		return err
	}
	builds := lifecycle.New(logger, session.Store, session.Runtime, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return q.Run(gctx, opts.Workers, builds.Run)
	})

	if opts.Recover {
		report, rerr := session.Controller.Recover(gctx)
		if rerr != nil {
			logger.ErrorContext(gctx, "build recovery incomplete", "error", rerr)
		}
		logger.InfoContext(gctx, "build recovery finished",
			"pending", report.Pending,
			"enqueued", report.Enqueued,
			"duplicates", report.Duplicates,
			"failed", len(report.Failed))
	}

	g.Go(func() error {
		defer q.Close()
		return api.Serve(gctx, logger, opts.Listen, handler)
	})

	logger.InfoContext(ctx, "kraken serving",
		"listen", opts.Listen, "workers", opts.Workers, "queueSize", opts.QueueSize)
	return g.Wait()
}
