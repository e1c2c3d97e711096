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

// Package validation turns a raw container provisioning request into a
// normalized container spec or a rejection.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/util/naming"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

const DefaultStopTimeout = 30 * time.Second

var memoryLimitPattern = regexp.MustCompile(`(?i)^\d+[bkmgt]$`)

// Runtime is the read-mostly view of the container runtime the engine needs.
type Runtime interface {
	ImageExists(ctx context.Context, image string) (bool, error)
	ContainerExists(ctx context.Context, name string) (bool, error)
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	RemoveContainer(ctx context.Context, name string) error
}

// DisplayLookup resolves the display of the orchestrator host for X11 forwarding.
type DisplayLookup func() (string, bool)

// EnvDisplay reads DISPLAY from the process environment.
func EnvDisplay() (string, bool) {
	v, ok := os.LookupEnv("DISPLAY")
	return v, ok && v != ""
}

type Options struct {
	ImageBase   string
	StopTimeout time.Duration
	Display     DisplayLookup
}

type Engine struct {
	logger  *slog.Logger
	runtime Runtime
	opts    Options
}

// Result is the outcome of a validation. When Valid is false, Reason is the
// errdefs sentinel and Message is meant for the caller.
type Result struct {
	Valid   bool
	Message string
	Reason  error
	Spec    modelhub.ContainerSpec
}

// CheckMemoryLimit returns a rejection when limit is set and is not a byte
// count with a b, k, m, g or t suffix.
func CheckMemoryLimit(limit string) error {
	if limit == "" || memoryLimitPattern.MatchString(limit) {
		return nil
	}
	return errdefs.Reject(errdefs.ErrInvalidMemoryLimit,
		"Invalid memory limit: %s. Valid examples are: 100000b, 1000k, 128m, 1g.", limit)
}

func reject(reason error, format string, args ...any) Result {
	return Result{Reason: reason, Message: fmt.Sprintf(format, args...)}
}

func NewEngine(logger *slog.Logger, runtime Runtime, opts Options) *Engine {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = DefaultStopTimeout
	}
	if opts.Display == nil {
		opts.Display = EnvDisplay
	}
	return &Engine{logger: logger, runtime: runtime, opts: opts}
}

// ValidateContainerRequest checks req and builds its container spec. Checks that
// need no runtime run first, so a request that will be rejected never triggers
// the removal of an existing container. A non-nil error means the runtime could
// not be consulted.
func (e *Engine) ValidateContainerRequest(
	ctx context.Context,
	req v1beta1.CreateContainerRequest,
) (Result, error) {
	image, err := naming.QualifiedBuildName(e.opts.ImageBase, req.BuildName)
	if err != nil {
		return reject(err, "Invalid build name: %s", req.BuildName), nil
	}

	spec := modelhub.ContainerSpec{
		BuildName:       image,
		ContainerName:   strings.TrimSpace(req.ContainerName),
		Hostname:        req.Hostname,
		CapAdd:          req.CapAdd,
		CapDrop:         req.CapDrop,
		NetworkMode:     req.NetworkMode,
		AutoRemove:      req.AutoRemove,
		Privileged:      req.Privileged,
		ReadOnly:        req.ReadOnly,
		NetworkDisabled: req.NetworkDisabled,
		TTY:             true,
	}
	if spec.NetworkMode == "" {
		spec.NetworkMode = v1beta1.DefaultNetworkMode
	}

	if err = CheckMemoryLimit(req.MemoryLimit); err != nil {
		return reject(errdefs.ErrInvalidMemoryLimit, "%s", errdefs.RejectionMessage(err)), nil
	}
	spec.MemoryLimit = strings.ToLower(req.MemoryLimit)

	var result Result
	if spec.Environment, result = e.environment(req); result.Reason != nil {
		return result, nil
	}
	if spec.Volumes, result = volumes(req.Volumes); result.Reason != nil {
		return result, nil
	}
	if spec.Ports, result = ports(req.Ports); result.Reason != nil {
		return result, nil
	}

	exists, err := e.runtime.ImageExists(ctx, image)
	if err != nil {
		return Result{}, fmt.Errorf("lookup image %s: %w", image, err)
	}
	if !exists {
		return reject(errdefs.ErrImageNotFound, "Image not found"), nil
	}

	if spec.ContainerName != "" {
		if result, err = e.resolveNameCollision(ctx, spec.ContainerName, req.RemoveIfExists); err != nil || result.Reason != nil {
			return result, err
		}
	}

	return Result{Valid: true, Spec: spec}, nil
}

func (e *Engine) resolveNameCollision(ctx context.Context, name string, remove bool) (Result, error) {
	exists, err := e.runtime.ContainerExists(ctx, name)
	if err != nil {
		return Result{}, fmt.Errorf("lookup container %s: %w", name, err)
	}
	if !exists {
		return Result{}, nil
	}
	if !remove {
		return reject(errdefs.ErrContainerExists,
			"Container %s already exists. Choose another name or set 'removeIfExists' to true.", name), nil
	}

	// The container may vanish between the lookup and the removal. Either way
	// the name is free afterwards.
	e.logger.InfoContext(ctx, "removing existing container before create", "name", name)
	if err = e.runtime.StopContainer(ctx, name, e.opts.StopTimeout); err != nil && !cerrdefs.IsNotFound(err) {
		return Result{}, fmt.Errorf("stop existing container %s: %w", name, err)
	}
	if err = e.runtime.RemoveContainer(ctx, name); err != nil && !cerrdefs.IsNotFound(err) {
		return Result{}, fmt.Errorf("remove existing container %s: %w", name, err)
	}
	return Result{}, nil
}

func (e *Engine) environment(req v1beta1.CreateContainerRequest) ([]string, Result) {
	env := append([]string(nil), req.Environment...)
	if !req.EnableX11 {
		return env, Result{}
	}
	display, ok := e.opts.Display()
	if !ok {
		return nil, reject(errdefs.ErrDisplayUnavailable,
			"X11 forwarding requested but the DISPLAY variable is not set on the server.")
	}
	return append(env, "DISPLAY="+display), Result{}
}

func volumes(reqs []v1beta1.VolumeRequest) (map[string]modelhub.VolumeBind, Result) {
	if len(reqs) == 0 {
		return nil, Result{}
	}
	out := make(map[string]modelhub.VolumeBind, len(reqs))
	for _, v := range reqs {
		if v.HostVolume == "" || v.ContainerVolume == "" {
			return nil, reject(errdefs.ErrInvalidVolume,
				"Invalid volume: hostVolume and containerVolume are required.")
		}
		mode := strings.ToLower(v.ModeVolume)
		if mode == "" {
			mode = v1beta1.DefaultVolumeMode
		}
		if mode != "rw" && mode != "ro" {
			return nil, reject(errdefs.ErrInvalidVolume,
				"Invalid volume mode: %s. Valid modes are: rw, ro.", v.ModeVolume)
		}
		out[v.HostVolume] = modelhub.VolumeBind{Bind: v.ContainerVolume, Mode: mode}
	}
	return out, Result{}
}

func ports(reqs []v1beta1.PortRequest) (map[string]*string, Result) {
	if len(reqs) == 0 {
		return nil, Result{}
	}
	out := make(map[string]*string, len(reqs))
	for _, p := range reqs {
		containerProto, ok := protocol(p.ProtocolContainer)
		if !ok || !validPort(p.PortContainer) {
			return nil, reject(errdefs.ErrInvalidPort,
				"Invalid port: %d/%s.", p.PortContainer, p.ProtocolContainer)
		}
		key := fmt.Sprintf("%d/%s", p.PortContainer, containerProto)
		if p.PortHost == nil {
			out[key] = nil
			continue
		}
		hostProto, ok := protocol(p.ProtocolHost)
		if !ok || !validPort(*p.PortHost) {
			return nil, reject(errdefs.ErrInvalidPort,
				"Invalid host port: %d/%s.", *p.PortHost, p.ProtocolHost)
		}
		host := fmt.Sprintf("%d/%s", *p.PortHost, hostProto)
		out[key] = &host
	}
	return out, Result{}
}

func protocol(p string) (string, bool) {
	p = strings.ToLower(strings.TrimSpace(p))
	switch p {
	case "":
		return v1beta1.DefaultProtocol, true
	case "tcp", "udp", "sctp":
		return p, true
	default:
		return "", false
	}
}

func validPort(p int) bool {
	return p > 0 && p <= 65535
}
