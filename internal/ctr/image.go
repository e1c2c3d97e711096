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
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	units "github.com/docker/go-units"
	docker "github.com/fsouza/go-dockerclient"
	digest "github.com/opencontainers/go-digest"
)

// BuildImage builds spec.Tag from the configured context directory and returns the
// inspected result. Build output is captured line by line into BuildResult.Logs.
func (c *client) BuildImage(ctx context.Context, spec BuildSpec) (BuildResult, error) {
	if err := requireImage(spec.Tag); err != nil {
		return BuildResult{}, err
	}

	opts := docker.BuildImageOptions{
		Context:        ctx,
		Name:           spec.Tag,
		Dockerfile:     c.opts.Dockerfile,
		ContextDir:     filepath.Clean(c.opts.ContextDir),
		BuildArgs:      buildArgs(spec.BuildArgs),
		Labels:         spec.Labels,
		RmTmpContainer: true,
		RawJSONStream:  false,
	}
	if spec.MemoryLimit != "" {
		memory, err := units.RAMInBytes(spec.MemoryLimit)
		if err != nil {
			return BuildResult{}, fmt.Errorf("%w: %q: %w", ErrInvalidMemory, spec.MemoryLimit, err)
		}
		opts.Memory = memory
	}
	if c.opts.ShmSize != "" {
		shm, err := units.RAMInBytes(c.opts.ShmSize)
		if err != nil {
			return BuildResult{}, fmt.Errorf("%w: shm %q: %w", ErrInvalidMemory, c.opts.ShmSize, err)
		}
		opts.ShmSize = shm
	}

	var output bytes.Buffer
	opts.OutputStream = &output

	c.logger.InfoContext(ctx, "building image", "tag", spec.Tag, "context", opts.ContextDir, "args", len(opts.BuildArgs))
	if err := c.api.BuildImage(opts); err != nil {
		c.logger.ErrorContext(ctx, "image build failed", "tag", spec.Tag, "error", err)
		return BuildResult{Logs: splitLines(output.String())}, classify("build image", err)
	}

	image, err := c.api.InspectImage(spec.Tag)
	if err != nil {
		return BuildResult{}, classify("inspect built image", err)
	}
	if _, err = digest.Parse(image.ID); err != nil {
		return BuildResult{}, fmt.Errorf("%w: %q: %w", ErrInvalidImageID, image.ID, err)
	}

	result := BuildResult{
		ImageID: image.ID,
		Tags:    image.RepoTags,
		Logs:    splitLines(output.String()),
	}
	if image.Config != nil {
		result.Labels = image.Config.Labels
	}
	c.logger.InfoContext(ctx, "image built", "tag", spec.Tag, "id", image.ID)
	return result, nil
}

// ImageExists reports whether the runtime has image locally.
func (c *client) ImageExists(ctx context.Context, image string) (bool, error) {
	if err := requireImage(image); err != nil {
		return false, err
	}
	_, err := c.api.InspectImage(image)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, docker.ErrNoSuchImage) {
		c.logger.DebugContext(ctx, "image not present", "image", image)
		return false, nil
	}
	return false, classify("inspect image", err)
}

// RemoveImage stops and removes every container created from image, force removes
// the image and prunes dangling layers. A missing image is not an error.
func (c *client) RemoveImage(ctx context.Context, image string) (RemoveImageResult, error) {
	var result RemoveImageResult
	if err := requireImage(image); err != nil {
		return result, err
	}

	containers, err := c.api.ListContainers(docker.ListContainersOptions{
		All:     true,
		Filters: map[string][]string{"ancestor": {image}},
		Context: ctx,
	})
	if err != nil {
		return result, classify("list image containers", err)
	}
	for _, ctn := range containers {
		if stopErr := c.StopContainer(ctx, ctn.ID, 0); stopErr != nil && !cerrdefs.IsNotFound(stopErr) {
			return result, stopErr
		}
		if rmErr := c.RemoveContainer(ctx, ctn.ID); rmErr != nil && !cerrdefs.IsNotFound(rmErr) {
			return result, rmErr
		}
		result.ContainersRemoved++
	}

	err = c.api.RemoveImageExtended(image, docker.RemoveImageOptions{Force: true, Context: ctx})
	switch {
	case err == nil:
		result.ImageFound = true
	case errors.Is(err, docker.ErrNoSuchImage):
		c.logger.DebugContext(ctx, "image already removed", "image", image)
	default:
		return result, classify("remove image", err)
	}

	if _, err = c.api.PruneImages(docker.PruneImagesOptions{
		Filters: map[string][]string{"dangling": {"true"}},
		Context: ctx,
	}); err != nil {
		c.logger.WarnContext(ctx, "failed to prune dangling images", "error", err)
	}

	c.logger.InfoContext(ctx, "image removed",
		"image", image, "found", result.ImageFound, "containers", result.ContainersRemoved)
	return result, nil
}

func buildArgs(args map[string]string) []docker.BuildArg {
	if len(args) == 0 {
		return nil
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]docker.BuildArg, 0, len(keys))
	for _, k := range keys {
		out = append(out, docker.BuildArg{Name: k, Value: args[k]})
	}
	return out
}

// splitLines returns the non-blank lines of build output, whatever their length.
func splitLines(s string) []string {
	var lines []string
	for line := range strings.Lines(s) {
		if line = strings.TrimRight(line, " \r\n"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
