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

// Package queue is the in-process task queue: a bounded channel drained by a
// fixed pool of workers. Delivery is at-least-once when paired with recovery
// of non-terminal builds at startup.
package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/metrics"
	"golang.org/x/sync/errgroup"
)

const DefaultSize = 64

// Job is one unit of delivery.
type Job struct {
	TaskID  string
	Payload []byte
}

// Handler executes a job. Its returned error is logged; it never stops the pool.
type Handler func(ctx context.Context, job Job) error

type Queue struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	jobs    chan Job

	mu       sync.Mutex
	closed   bool
	inflight map[string]struct{}

	workers atomic.Int32
}

func New(logger *slog.Logger, size int, m *metrics.Metrics) *Queue {
	if size <= 0 {
		size = DefaultSize
	}
	return &Queue{
		logger:   logger,
		metrics:  m,
		jobs:     make(chan Job, size),
		inflight: make(map[string]struct{}),
	}
}

// Enqueue hands job to the pool without blocking. A task id already pending or
// running is rejected with ErrDuplicateTask.
func (q *Queue) Enqueue(ctx context.Context, job Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return errdefs.ErrQueueClosed
	}
	if _, ok := q.inflight[job.TaskID]; ok {
		return fmt.Errorf("%w: %s", errdefs.ErrDuplicateTask, job.TaskID)
	}
	select {
	case q.jobs <- job:
	default:
		q.logger.WarnContext(ctx, "task queue full", "taskId", job.TaskID, "capacity", cap(q.jobs))
		return fmt.Errorf("%w: capacity %d", errdefs.ErrQueueFull, cap(q.jobs))
	}
	q.inflight[job.TaskID] = struct{}{}
	q.metrics.QueueDepth(len(q.jobs))
	q.logger.DebugContext(ctx, "job enqueued", "taskId", job.TaskID)
	return nil
}

// Run starts workers goroutines and blocks until ctx is done or the queue is
// closed and drained. Jobs already picked up run to completion.
func (q *Queue) Run(ctx context.Context, workers int, handler Handler) error {
	if workers <= 0 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	for i := range workers {
		g.Go(func() error {
			q.workers.Add(1)
			q.metrics.WorkerStarted()
			defer func() {
				q.workers.Add(-1)
				q.metrics.WorkerStopped()
			}()
			q.logger.DebugContext(gctx, "worker started", "worker", i)
			for {
				select {
				case <-gctx.Done():
					return nil
				case job, ok := <-q.jobs:
					if !ok {
						q.logger.DebugContext(gctx, "worker stopped", "worker", i)
						return nil
					}
					q.metrics.QueueDepth(len(q.jobs))
					q.handle(gctx, i, job, handler)
				}
			}
		})
	}
	return g.Wait()
}

func (q *Queue) handle(ctx context.Context, worker int, job Job, handler Handler) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.ErrorContext(ctx, "worker recovered from panic", "worker", worker, "taskId", job.TaskID, "panic", r)
		}
		q.mu.Lock()
		delete(q.inflight, job.TaskID)
		q.mu.Unlock()
	}()

	q.logger.InfoContext(ctx, "job started", "worker", worker, "taskId", job.TaskID)
	if err := handler(context.WithoutCancel(ctx), job); err != nil {
		q.logger.ErrorContext(ctx, "job failed", "worker", worker, "taskId", job.TaskID, "error", err)
		return
	}
	q.logger.InfoContext(ctx, "job done", "worker", worker, "taskId", job.TaskID)
}

// Close stops accepting jobs. Workers drain what is already queued and exit.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.jobs)
}

// Workers returns the number of running workers.
func (q *Queue) Workers() int {
	return int(q.workers.Load())
}

// Len returns the number of jobs waiting for a worker.
func (q *Queue) Len() int {
	return len(q.jobs)
}
