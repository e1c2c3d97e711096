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

package e2e_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

const kraken = "kraken"

// runReturningBinary runs the provided binary with args, fails the test on non-zero exit or empty output.
// If the binary file does not exist, the test is skipped.
func runReturningBinary(t *testing.T, env []string, command string, args ...string) []byte {
	t.Helper()

	exitCode, stdout, stderr := runBinary(t, env, command, args...)
	if exitCode != 0 {
		t.Fatalf("running %s %v exited %d\nstdout:\n%s\nstderr:\n%s", command, args, exitCode, stdout, stderr)
	}
	if len(stdout) == 0 {
		t.Fatalf("no output from %s %v", command, args)
	}
	return stdout
}

// runBinary executes binary and returns exit code, stdout, stderr separately.
func runBinary(t *testing.T, env []string, command string, args ...string) (int, []byte, []byte) {
	t.Helper()

	dir := os.Getenv("E2E_BIN_DIR")
	if dir == "" {
		dir = ".."
	}
	bin := filepath.Join(dir, command)

	if _, err := os.Stat(bin); os.IsNotExist(err) {
		t.Skipf("binary %s not found, skipping", bin)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin, args...)
	if env != nil {
		cmd.Env = env
	}

	var stdoutBuf, stderrBuf strings.Builder
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			exitCode = exitError.ExitCode()
		} else {
			t.Fatalf("failed to run %s %v: %v", bin, args, err)
		}
	}

	return exitCode, []byte(stdoutBuf.String()), []byte(stderrBuf.String())
}

// isolatedArgs points the binary at a private file registry and an absent
// config file so tests never touch /etc/kraken or /opt/kraken.
func isolatedArgs(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	return []string{
		"--config", filepath.Join(dir, "config.yaml"),
		"--run-path", dir,
		"--store", "file",
	}
}

func withArgs(base []string, args ...string) []string {
	out := make([]string, 0, len(base)+len(args))
	out = append(out, base...)
	return append(out, args...)
}

func parseToolListJSON(t *testing.T, output []byte) []v1beta1.ToolInfo {
	t.Helper()

	var tools []v1beta1.ToolInfo
	if err := json.Unmarshal(output, &tools); err != nil {
		t.Fatalf("failed to parse tool list JSON: %v\n%s", err, output)
	}
	return tools
}

func parseToolJSON(t *testing.T, output []byte) v1beta1.ToolInfo {
	t.Helper()

	var tool v1beta1.ToolInfo
	if err := json.Unmarshal(output, &tool); err != nil {
		t.Fatalf("failed to parse tool JSON: %v\n%s", err, output)
	}
	return tool
}

func toolNames(tools []v1beta1.ToolInfo) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.ToolName)
	}
	return names
}
