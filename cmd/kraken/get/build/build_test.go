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

package build_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/eminwux/kraken/cmd/config"
	buildcmd "github.com/eminwux/kraken/cmd/kraken/get/build"
	"github.com/eminwux/kraken/internal/errdefs"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/spf13/viper"
)

type fakeController struct {
	ListBuildsFn   func(ctx context.Context) ([]v1beta1.BuildSummary, error)
	GetBuildFn     func(ctx context.Context, name string) (v1beta1.BuildSummary, error)
	BuildHistoryFn func(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error)

	calls []string
}

func (f *fakeController) ListBuilds(ctx context.Context) ([]v1beta1.BuildSummary, error) {
	f.calls = append(f.calls, "list")
	if f.ListBuildsFn != nil {
		return f.ListBuildsFn(ctx)
	}
	return []v1beta1.BuildSummary{{BuildName: "a"}, {BuildName: "b"}}, nil
}

func (f *fakeController) GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error) {
	f.calls = append(f.calls, "get:"+name)
	if f.GetBuildFn != nil {
		return f.GetBuildFn(ctx, name)
	}
	return v1beta1.BuildSummary{BuildName: name, BuildFullName: "kraken:" + name}, nil
}

func (f *fakeController) BuildHistory(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error) {
	f.calls = append(f.calls, "history:"+name)
	if f.BuildHistoryFn != nil {
		return f.BuildHistoryFn(ctx, name)
	}
	return []v1beta1.HistoryEntry{{TaskID: "kraken:" + name + "-00112233aabbccdd"}}, nil
}

func execute(t *testing.T, ctrl *fakeController, args ...string) (string, error) {
	t.Helper()
	cmd := buildcmd.NewBuildCmd()
	cmd.SetContext(context.WithValue(context.Background(), buildcmd.MockControllerKey{}, ctrl))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGetBuild(t *testing.T) {
	t.Cleanup(viper.Reset)

	tests := []struct {
		name      string
		args      []string
		setup     func()
		wantCalls []string
		wantLen   int
	}{
		{name: "list without name", args: []string{"-o", "json"}, wantCalls: []string{"list"}, wantLen: 2},
		{name: "single build", args: []string{"web", "-o", "json"}, wantCalls: []string{"get:web"}},
		{name: "history flag", args: []string{"web", "--history", "-o", "json"}, wantCalls: []string{"history:web"}, wantLen: 1},
		{
			name:      "history from config",
			args:      []string{"web", "-o", "json"},
			setup:     func() { viper.Set(config.KRAKEN_GET_BUILD_HISTORY.ViperKey, true) },
			wantCalls: []string{"history:web"},
			wantLen:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			if tt.setup != nil {
				tt.setup()
			}
			ctrl := &fakeController{}
			out, err := execute(t, ctrl, tt.args...)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if len(ctrl.calls) != len(tt.wantCalls) || ctrl.calls[0] != tt.wantCalls[0] {
				t.Fatalf("calls = %v, want %v", ctrl.calls, tt.wantCalls)
			}
			if tt.wantLen > 0 {
				var items []json.RawMessage
				if err = json.Unmarshal([]byte(out), &items); err != nil {
					t.Fatalf("output is not a JSON list: %v\n%s", err, out)
				}
				if len(items) != tt.wantLen {
					t.Errorf("items = %d, want %d", len(items), tt.wantLen)
				}
			}
		})
	}
}

func TestGetBuildNotFound(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Reset()

	ctrl := &fakeController{
		GetBuildFn: func(_ context.Context, name string) (v1beta1.BuildSummary, error) {
			return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrBuildNotFound, "Build %s not found.", name)
		},
	}
	out, err := execute(t, ctrl, "ghost")
	if !errors.Is(err, errdefs.ErrBuildNotFound) {
		t.Fatalf("error = %v, want ErrBuildNotFound", err)
	}
	if out != "" {
		t.Errorf("unexpected output %q", out)
	}
}
