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

package ctr

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	cerrdefs "github.com/containerd/errdefs"
	docker "github.com/fsouza/go-dockerclient"
)

var (
	// ErrEmptyImage indicates that an image reference is required.
	ErrEmptyImage = fmt.Errorf("ctr: image reference is required: %w", cerrdefs.ErrInvalidArgument)
	// ErrEmptyContainerName indicates that a container name or id is required.
	ErrEmptyContainerName = fmt.Errorf("ctr: container name is required: %w", cerrdefs.ErrInvalidArgument)
	// ErrEmptyCommand indicates that an exec needs a command.
	ErrEmptyCommand = fmt.Errorf("ctr: exec command is required: %w", cerrdefs.ErrInvalidArgument)
	// ErrInvalidPortKey indicates a port key not of the form <port>/<proto>.
	ErrInvalidPortKey = fmt.Errorf("ctr: port must be <port>/<protocol>: %w", cerrdefs.ErrInvalidArgument)
	// ErrInvalidMemory indicates a memory limit the runtime cannot parse.
	ErrInvalidMemory = fmt.Errorf("ctr: invalid memory limit: %w", cerrdefs.ErrInvalidArgument)
	// ErrInvalidImageID indicates the runtime reported an image id that is not a digest.
	ErrInvalidImageID = fmt.Errorf("ctr: runtime returned an invalid image id: %w", cerrdefs.ErrUnknown)
	// ErrExecFailed indicates an exec finished with a non-zero exit code.
	ErrExecFailed = fmt.Errorf("ctr: exec exited with non-zero status: %w", cerrdefs.ErrUnknown)
)

// classify attaches a containerd errdefs class to a docker client error so callers
// can branch on cerrdefs.IsNotFound and friends without knowing the engine.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var (
		noSuchContainer *docker.NoSuchContainer
		noSuchExec      *docker.NoSuchExec
		notRunning      *docker.ContainerNotRunning
		apiErr          *docker.Error
		urlErr          *url.Error
		netErr          net.Error
	)

	var class error
	switch {
	case errors.As(err, &noSuchContainer), errors.As(err, &noSuchExec), errors.Is(err, docker.ErrNoSuchImage):
		class = cerrdefs.ErrNotFound
	case errors.Is(err, docker.ErrContainerAlreadyExists):
		class = cerrdefs.ErrAlreadyExists
	case errors.As(err, &notRunning):
		class = cerrdefs.ErrFailedPrecondition
	case errors.Is(err, docker.ErrConnectionRefused),
		errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr),
		errors.As(err, &netErr):
		class = cerrdefs.ErrUnavailable
	case errors.As(err, &apiErr):
		class = statusClass(apiErr.Status)
	default:
		class = cerrdefs.ErrUnknown
	}
	return fmt.Errorf("ctr: %s: %w: %w", op, class, err)
}

func statusClass(status int) error {
	switch status {
	case http.StatusNotFound:
		return cerrdefs.ErrNotFound
	case http.StatusConflict:
		return cerrdefs.ErrAlreadyExists
	case http.StatusBadRequest:
		return cerrdefs.ErrInvalidArgument
	case http.StatusServiceUnavailable:
		return cerrdefs.ErrUnavailable
	default:
		return cerrdefs.ErrUnknown
	}
}
