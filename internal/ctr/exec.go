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
	"fmt"
	"strings"
	"time"

	docker "github.com/fsouza/go-dockerclient"
)

// Exec runs spec.Cmd detached inside a running container and waits for it to
// finish. It returns the exit code; a non-zero code is reported as ErrExecFailed.
func (c *client) Exec(ctx context.Context, name string, spec ExecSpec) (int, error) {
	if err := requireName(name); err != nil {
		return -1, err
	}
	if len(spec.Cmd) == 0 {
		return -1, ErrEmptyCommand
	}

	exec, err := c.api.CreateExec(docker.CreateExecOptions{
		Container:    name,
		Cmd:          spec.Cmd,
		User:         spec.User,
		AttachStdout: false,
		AttachStderr: false,
		Context:      ctx,
	})
	if err != nil {
		return -1, classify("create exec", err)
	}
	if err = c.api.StartExec(exec.ID, docker.StartExecOptions{Detach: true, Context: ctx}); err != nil {
		return -1, classify("start exec", err)
	}

	ticker := time.NewTicker(c.opts.ExecPollInterval)
	defer ticker.Stop()
	for {
		inspect, inspectErr := c.api.InspectExec(exec.ID)
		if inspectErr != nil {
			return -1, classify("inspect exec", inspectErr)
		}
		if !inspect.Running {
			command := strings.Join(spec.Cmd, " ")
			if inspect.ExitCode != 0 {
				c.logger.WarnContext(ctx, "exec failed", "container", name, "cmd", command, "exit", inspect.ExitCode)
				return inspect.ExitCode, fmt.Errorf("%w: %q exited %d", ErrExecFailed, command, inspect.ExitCode)
			}
			c.logger.DebugContext(ctx, "exec finished", "container", name, "cmd", command)
			return 0, nil
		}
		select {
		case <-ctx.Done():
			return -1, classify("wait exec", ctx.Err())
		case <-ticker.C:
		}
	}
}
