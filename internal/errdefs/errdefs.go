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

package errdefs

import (
	"errors"
	"fmt"

	cerrdefs "github.com/containerd/errdefs"
)

var (
	ErrConfig              = errors.New("config error")
	ErrLoggerNotFound      = errors.New("logger not found in context")
	ErrConnectRuntime      = fmt.Errorf("failed to connect to container runtime: %w", cerrdefs.ErrUnavailable)
	ErrConnectStore        = fmt.Errorf("failed to connect to registry store: %w", cerrdefs.ErrUnavailable)
	ErrStoreUnavailable    = fmt.Errorf("registry store unavailable: %w", cerrdefs.ErrUnavailable)
	ErrQueueClosed         = fmt.Errorf("task queue is not accepting jobs: %w", cerrdefs.ErrUnavailable)
	ErrQueueFull           = fmt.Errorf("task queue is full: %w", cerrdefs.ErrUnavailable)
	ErrWorkerUnavailable   = fmt.Errorf("no build worker is running: %w", cerrdefs.ErrUnavailable)
	ErrDuplicateTask       = fmt.Errorf("task already queued: %w", cerrdefs.ErrAlreadyExists)
	ErrBuildNotFound       = fmt.Errorf("build not found: %w", cerrdefs.ErrNotFound)
	ErrBuildNameUsed       = fmt.Errorf("build name already used: %w", cerrdefs.ErrAlreadyExists)
	ErrBuildNotReady       = fmt.Errorf("build not ready: %w", cerrdefs.ErrFailedPrecondition)
	ErrBuildNameRequired   = fmt.Errorf("build name is required: %w", cerrdefs.ErrInvalidArgument)
	ErrInvalidBuildName    = fmt.Errorf("invalid build name: %w", cerrdefs.ErrInvalidArgument)
	ErrTaskNotFound        = fmt.Errorf("no build found for task: %w", cerrdefs.ErrNotFound)
	ErrInvalidTransition   = fmt.Errorf("invalid task state transition: %w", cerrdefs.ErrFailedPrecondition)
	ErrDecodeJob           = fmt.Errorf("failed to decode build job: %w", cerrdefs.ErrInvalidArgument)
	ErrImageNotFound       = fmt.Errorf("image not found: %w", cerrdefs.ErrNotFound)
	ErrBuildImage          = errors.New("failed to build image")
	ErrContainerNotFound   = fmt.Errorf("container not found: %w", cerrdefs.ErrNotFound)
	ErrContainerExists     = fmt.Errorf("container already exists: %w", cerrdefs.ErrAlreadyExists)
	ErrContainerNameNeeded = fmt.Errorf("container name is required: %w", cerrdefs.ErrInvalidArgument)
	ErrCreateContainer     = errors.New("failed to create container")
	ErrInvalidMemoryLimit  = fmt.Errorf("invalid memory limit: %w", cerrdefs.ErrInvalidArgument)
	ErrInvalidPort         = fmt.Errorf("invalid port mapping: %w", cerrdefs.ErrInvalidArgument)
	ErrInvalidVolume       = fmt.Errorf("invalid volume mount: %w", cerrdefs.ErrInvalidArgument)
	ErrDisplayUnavailable  = fmt.Errorf("display environment unavailable: %w", cerrdefs.ErrFailedPrecondition)
	ErrToolNotFound        = fmt.Errorf("tool not found: %w", cerrdefs.ErrNotFound)
	ErrInvalidToolFilter   = fmt.Errorf("invalid tool filter: %w", cerrdefs.ErrInvalidArgument)
	ErrLoadCatalog         = errors.New("failed to load tool catalog")
	ErrInvalidRequest      = fmt.Errorf("invalid request: %w", cerrdefs.ErrInvalidArgument)
	ErrMissingSnapshot     = fmt.Errorf("registry snapshot file does not exist: %w", cerrdefs.ErrNotFound)
	ErrHistoryExists       = fmt.Errorf("history entry already recorded: %w", cerrdefs.ErrAlreadyExists)
)

// RejectedError is a business-rule refusal reported synchronously to the caller.
// Message is meant for humans; Reason is one of the sentinels above.
type RejectedError struct {
	Reason  error
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

// Reject builds a RejectedError with a formatted message.
func Reject(reason error, format string, args ...any) error {
	return &RejectedError{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

// IsRejected reports whether err carries a RejectedError anywhere in its chain.
func IsRejected(err error) bool {
	var rejected *RejectedError
	return errors.As(err, &rejected)
}

// RejectionMessage returns the human message of a rejection, or err.Error().
func RejectionMessage(err error) string {
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return rejected.Message
	}
	return err.Error()
}
