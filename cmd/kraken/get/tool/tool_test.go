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

package tool_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	toolcmd "github.com/eminwux/kraken/cmd/kraken/get/tool"
	"github.com/eminwux/kraken/internal/errdefs"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/viper"
)

type fakeController struct {
	FilterToolsFn func(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error)

	patterns []string
	listed   bool
	got      string
}

func (f *fakeController) ListTools(context.Context) ([]v1beta1.ToolInfo, error) {
	f.listed = true
	return []v1beta1.ToolInfo{{ToolName: "nmap"}, {ToolName: "sqlmap"}}, nil
}

func (f *fakeController) FilterTools(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error) {
	f.patterns = append(f.patterns, pattern)
	if f.FilterToolsFn != nil {
		return f.FilterToolsFn(ctx, pattern)
	}
	return []v1beta1.ToolInfo{{ToolName: "sqlmap"}}, nil
}

func (f *fakeController) GetTool(_ context.Context, name string) (v1beta1.ToolInfo, error) {
	f.got = name
	return v1beta1.ToolInfo{ToolName: name, ToolURL: "https://example.org/" + name}, nil
}

func execute(t *testing.T, ctrl *fakeController, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(viper.Reset)
	viper.Reset()
	cmd := toolcmd.NewToolCmd()
	cmd.SetContext(context.WithValue(context.Background(), toolcmd.MockControllerKey{}, ctrl))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGetToolList(t *testing.T) {
	ctrl := &fakeController{}
	out, err := execute(t, ctrl)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !ctrl.listed || len(ctrl.patterns) != 0 {
		t.Errorf("listed = %t, filters = %v; want plain list", ctrl.listed, ctrl.patterns)
	}
	if !strings.Contains(out, "toolName: nmap") || !strings.Contains(out, "toolName: sqlmap") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestGetToolFilter(t *testing.T) {
	ctrl := &fakeController{}
	if _, err := execute(t, ctrl, "--filter", "^SQL"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ctrl.listed || len(ctrl.patterns) != 1 || ctrl.patterns[0] != "^SQL" {
		t.Errorf("listed = %t, filters = %v; want one filter ^SQL", ctrl.listed, ctrl.patterns)
	}
}

func TestGetToolFilterRejected(t *testing.T) {
	ctrl := &fakeController{
		FilterToolsFn: func(_ context.Context, pattern string) ([]v1beta1.ToolInfo, error) {
			return nil, errdefs.Reject(errdefs.ErrInvalidToolFilter, "Invalid tool filter: %s", pattern)
		},
	}
	_, err := execute(t, ctrl, "--filter", "(")
	if !errors.Is(err, errdefs.ErrInvalidToolFilter) {
		t.Fatalf("error = %v, want ErrInvalidToolFilter", err)
	}
}

func TestGetToolByName(t *testing.T) {
	ctrl := &fakeController{}
	out, err := execute(t, ctrl, " nmap ", "-o", "json")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if ctrl.got != "nmap" {
		t.Errorf("GetTool name = %q, want nmap", ctrl.got)
	}
	if !strings.Contains(out, `"toolURL": "https://example.org/nmap"`) {
		t.Errorf("unexpected output:\n%s", out)
	}
}
