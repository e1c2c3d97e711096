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

package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/api"
	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/logging"
	"github.com/eminwux/kraken/internal/metrics"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeController struct {
	SubmitBuildFn     func(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error)
	ListBuildsFn      func(ctx context.Context) ([]v1beta1.BuildSummary, error)
	GetBuildFn        func(ctx context.Context, name string) (v1beta1.BuildSummary, error)
	DeleteBuildFn     func(ctx context.Context, name string) (v1beta1.DeleteBuildResult, error)
	BuildHistoryFn    func(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error)
	CreateContainerFn func(ctx context.Context, req v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error)
	StopContainerFn   func(ctx context.Context, name string) (v1beta1.ContainerActionResult, error)
	DeleteContainerFn func(ctx context.Context, name string) (v1beta1.ContainerActionResult, error)
	ListContainersFn  func(ctx context.Context) ([]v1beta1.ContainerInfo, error)
	GetContainerFn    func(ctx context.Context, name string) (v1beta1.ContainerInfo, error)
	ListToolsFn       func(ctx context.Context) ([]v1beta1.ToolInfo, error)
	FilterToolsFn     func(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error)
	GetToolFn         func(ctx context.Context, name string) (v1beta1.ToolInfo, error)
	HealthFn          func(ctx context.Context) error
}

var _ controller.Controller = (*fakeController)(nil)

var errNotImplemented = fmt.Errorf("not implemented: %w", cerrdefs.ErrNotImplemented)

func (f *fakeController) SubmitBuild(ctx context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error) {
	if f.SubmitBuildFn != nil {
		return f.SubmitBuildFn(ctx, req)
	}
	return v1beta1.BuildSummary{}, errNotImplemented
}

func (f *fakeController) ListBuilds(ctx context.Context) ([]v1beta1.BuildSummary, error) {
	if f.ListBuildsFn != nil {
		return f.ListBuildsFn(ctx)
	}
	return nil, errNotImplemented
}

func (f *fakeController) GetBuild(ctx context.Context, name string) (v1beta1.BuildSummary, error) {
	if f.GetBuildFn != nil {
		return f.GetBuildFn(ctx, name)
	}
	return v1beta1.BuildSummary{}, errNotImplemented
}

func (f *fakeController) DeleteBuild(ctx context.Context, name string) (v1beta1.DeleteBuildResult, error) {
	if f.DeleteBuildFn != nil {
		return f.DeleteBuildFn(ctx, name)
	}
	return v1beta1.DeleteBuildResult{}, errNotImplemented
}

func (f *fakeController) BuildHistory(ctx context.Context, name string) ([]v1beta1.HistoryEntry, error) {
	if f.BuildHistoryFn != nil {
		return f.BuildHistoryFn(ctx, name)
	}
	return nil, errNotImplemented
}

func (f *fakeController) CreateContainer(
	ctx context.Context,
	req v1beta1.CreateContainerRequest,
) (v1beta1.ContainerSummary, error) {
	if f.CreateContainerFn != nil {
		return f.CreateContainerFn(ctx, req)
	}
	return v1beta1.ContainerSummary{}, errNotImplemented
}

func (f *fakeController) StopContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error) {
	if f.StopContainerFn != nil {
		return f.StopContainerFn(ctx, name)
	}
	return v1beta1.ContainerActionResult{}, errNotImplemented
}

func (f *fakeController) DeleteContainer(ctx context.Context, name string) (v1beta1.ContainerActionResult, error) {
	if f.DeleteContainerFn != nil {
		return f.DeleteContainerFn(ctx, name)
	}
	return v1beta1.ContainerActionResult{}, errNotImplemented
}

func (f *fakeController) ListContainers(ctx context.Context) ([]v1beta1.ContainerInfo, error) {
	if f.ListContainersFn != nil {
		return f.ListContainersFn(ctx)
	}
	return nil, errNotImplemented
}

func (f *fakeController) GetContainer(ctx context.Context, name string) (v1beta1.ContainerInfo, error) {
	if f.GetContainerFn != nil {
		return f.GetContainerFn(ctx, name)
	}
	return v1beta1.ContainerInfo{}, errNotImplemented
}

func (f *fakeController) ListTools(ctx context.Context) ([]v1beta1.ToolInfo, error) {
	if f.ListToolsFn != nil {
		return f.ListToolsFn(ctx)
	}
	return nil, errNotImplemented
}

func (f *fakeController) FilterTools(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error) {
	if f.FilterToolsFn != nil {
		return f.FilterToolsFn(ctx, pattern)
	}
	return nil, errNotImplemented
}

func (f *fakeController) GetTool(ctx context.Context, name string) (v1beta1.ToolInfo, error) {
	if f.GetToolFn != nil {
		return f.GetToolFn(ctx, name)
	}
	return v1beta1.ToolInfo{}, errNotImplemented
}

func (f *fakeController) ToolStages() v1beta1.ToolStages {
	return v1beta1.ToolStages{ToolStages: []string{"recon", "all"}}
}

func (f *fakeController) SeedTools(context.Context, bool) (controller.SeedReport, error) {
	return controller.SeedReport{}, errNotImplemented
}

func (f *fakeController) Recover(context.Context) (controller.RecoverReport, error) {
	return controller.RecoverReport{}, errNotImplemented
}

func (f *fakeController) Health(ctx context.Context) error {
	if f.HealthFn != nil {
		return f.HealthFn(ctx)
	}
	return nil
}

func newServer(t *testing.T, ctrl controller.Controller, m *metrics.Metrics) *httptest.Server {
	t.Helper()
	handler, err := api.New(logging.NewNoopLogger(), ctrl, m)
	require.NoError(t, err)
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&raw))
	return resp, raw
}

func message(t *testing.T, raw []byte) string {
	t.Helper()
	var msg v1beta1.Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg.Message
}

func TestCreateBuild(t *testing.T) {
	var got v1beta1.CreateBuildRequest
	ctrl := &fakeController{SubmitBuildFn: func(_ context.Context, req v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error) {
		got = req
		return v1beta1.BuildSummary{BuildName: req.BuildName, TaskID: "kraken:web-1"}, nil
	}}
	srv := newServer(t, ctrl, nil)

	body := `{"buildName":"web","tools":["nmap"],"startSSH":true,
		"containerProperties":{"EXPOSE_PORTS":[22,80],"USER":"kraken"}}`
	for _, method := range []string{http.MethodPut, http.MethodPost} {
		resp, raw := do(t, srv, method, "/build/create", body)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var summary v1beta1.BuildSummary
		require.NoError(t, json.Unmarshal(raw, &summary))
		assert.Equal(t, "kraken:web-1", summary.TaskID)
	}

	assert.Equal(t, "web", got.BuildName)
	assert.True(t, got.StartSSH)
	assert.Equal(t, "22 80", got.ContainerProperties["EXPOSE_PORTS"].String())
	assert.Equal(t, "kraken", got.ContainerProperties["USER"].String())
}

func TestCreateBuildRejectsUnknownFields(t *testing.T) {
	srv := newServer(t, &fakeController{}, nil)
	resp, raw := do(t, srv, http.MethodPost, "/build/create", `{"buildName":"web","colour":"red"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, message(t, raw), "colour")
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{
			name:   "invalid argument",
			err:    errdefs.Reject(errdefs.ErrInvalidMemoryLimit, "Invalid memory limit: 2gb."),
			status: http.StatusBadRequest,
			msg:    "Invalid memory limit: 2gb.",
		},
		{
			name:   "not found",
			err:    errdefs.Reject(errdefs.ErrBuildNotFound, "The specified image web doesn't exist"),
			status: http.StatusNotFound,
			msg:    "The specified image web doesn't exist",
		},
		{
			name:   "already exists",
			err:    errdefs.Reject(errdefs.ErrContainerExists, "Container web1 already exists."),
			status: http.StatusConflict,
			msg:    "Container web1 already exists.",
		},
		{
			name:   "not ready",
			err:    errdefs.Reject(errdefs.ErrBuildNotReady, "The image web is not ready yet."),
			status: http.StatusConflict,
			msg:    "The image web is not ready yet.",
		},
		{
			name:   "runtime down",
			err:    fmt.Errorf("ctr: create container: %w", cerrdefs.ErrUnavailable),
			status: http.StatusServiceUnavailable,
		},
		{
			name:   "unexpected",
			err:    errors.New("boom"),
			status: http.StatusInternalServerError,
			msg:    "boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &fakeController{CreateContainerFn: func(context.Context, v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error) {
				return v1beta1.ContainerSummary{}, tt.err
			}}
			srv := newServer(t, ctrl, nil)
			resp, raw := do(t, srv, http.MethodPost, "/container/create", `{"buildName":"web"}`)
			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, message(t, raw))
			}
		})
	}
}

func TestCreateBuildWithoutWorkers(t *testing.T) {
	ctrl := &fakeController{SubmitBuildFn: func(context.Context, v1beta1.CreateBuildRequest) (v1beta1.BuildSummary, error) {
		return v1beta1.BuildSummary{}, errdefs.Reject(errdefs.ErrWorkerUnavailable, "No build worker is running.")
	}}
	srv := newServer(t, ctrl, nil)
	resp, _ := do(t, srv, http.MethodPost, "/build/create", `{"buildName":"web"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestNameAddressedRoutes(t *testing.T) {
	var calls []string
	record := func(op, name string) { calls = append(calls, op+":"+name) }
	ctrl := &fakeController{
		GetBuildFn: func(_ context.Context, name string) (v1beta1.BuildSummary, error) {
			record("get", name)
			return v1beta1.BuildSummary{BuildName: name}, nil
		},
		DeleteBuildFn: func(_ context.Context, name string) (v1beta1.DeleteBuildResult, error) {
			record("delete", name)
			return v1beta1.DeleteBuildResult{}, nil
		},
		BuildHistoryFn: func(_ context.Context, name string) ([]v1beta1.HistoryEntry, error) {
			record("history", name)
			return []v1beta1.HistoryEntry{}, nil
		},
		GetContainerFn: func(_ context.Context, name string) (v1beta1.ContainerInfo, error) {
			record("getc", name)
			return v1beta1.ContainerInfo{}, nil
		},
		StopContainerFn: func(_ context.Context, name string) (v1beta1.ContainerActionResult, error) {
			record("stop", name)
			return v1beta1.ContainerActionResult{}, nil
		},
		DeleteContainerFn: func(_ context.Context, name string) (v1beta1.ContainerActionResult, error) {
			record("deletec", name)
			return v1beta1.ContainerActionResult{}, nil
		},
		GetToolFn: func(_ context.Context, name string) (v1beta1.ToolInfo, error) {
			record("tool", name)
			return v1beta1.ToolInfo{}, nil
		},
		FilterToolsFn: func(_ context.Context, pattern string) ([]v1beta1.ToolInfo, error) {
			record("filter", pattern)
			return []v1beta1.ToolInfo{}, nil
		},
	}
	srv := newServer(t, ctrl, nil)

	requests := []struct {
		method, path, body string
	}{
		{http.MethodPost, "/build/detail", `{"buildName":"web"}`},
		{http.MethodDelete, "/build/delete", `{"buildName":"web"}`},
		{http.MethodPost, "/build/history", `{"buildName":"web"}`},
		{http.MethodPost, "/container/get", `{"containerName":"web1"}`},
		{http.MethodPost, "/container/stop", `{"containerName":"web1"}`},
		{http.MethodDelete, "/container/delete", `{"containerName":"web1"}`},
		{http.MethodPost, "/tools/info", `{"toolName":"nmap"}`},
		{http.MethodPost, "/tools/filter", `{"toolName":"^n"}`},
	}
	for _, r := range requests {
		resp, _ := do(t, srv, r.method, r.path, r.body)
		assert.Equal(t, http.StatusOK, resp.StatusCode, r.path)
	}
	assert.Equal(t, []string{
		"get:web", "delete:web", "history:web",
		"getc:web1", "stop:web1", "deletec:web1",
		"tool:nmap", "filter:^n",
	}, calls)
}

func TestListRoutesAcceptEmptyBody(t *testing.T) {
	ctrl := &fakeController{
		ListBuildsFn:     func(context.Context) ([]v1beta1.BuildSummary, error) { return []v1beta1.BuildSummary{}, nil },
		ListContainersFn: func(context.Context) ([]v1beta1.ContainerInfo, error) { return []v1beta1.ContainerInfo{}, nil },
		ListToolsFn:      func(context.Context) ([]v1beta1.ToolInfo, error) { return []v1beta1.ToolInfo{}, nil },
	}
	srv := newServer(t, ctrl, nil)
	for _, path := range []string{"/build/list", "/container/list", "/tools/list"} {
		resp, raw := do(t, srv, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.JSONEq(t, "[]", string(raw), path)
	}

	resp, raw := do(t, srv, http.MethodGet, "/tools/stages", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"toolStages":["recon","all"]}`, string(raw))
}

func TestMethodAndRouteNotFound(t *testing.T) {
	srv := newServer(t, &fakeController{}, nil)

	resp, _ := do(t, srv, http.MethodGet, "/build/detail", "")
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = do(t, srv, http.MethodGet, "/nowhere", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	healthy := true
	ctrl := &fakeController{HealthFn: func(context.Context) error {
		if healthy {
			return nil
		}
		return fmt.Errorf("store: %w", cerrdefs.ErrUnavailable)
	}}
	srv := newServer(t, ctrl, nil)

	resp, raw := do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", message(t, raw))

	healthy = false
	resp, _ = do(t, srv, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestRequestMetrics(t *testing.T) {
	m := metrics.New()
	ctrl := &fakeController{ListToolsFn: func(context.Context) ([]v1beta1.ToolInfo, error) {
		return []v1beta1.ToolInfo{}, nil
	}}
	srv := newServer(t, ctrl, m)

	do(t, srv, http.MethodGet, "/tools/list", "")
	do(t, srv, http.MethodGet, "/tools/list", "")

	expected := `
# HELP kraken_http_requests_total API requests by route and status code.
# TYPE kraken_http_requests_total counter
kraken_http_requests_total{code="200",route="ListTools"} 2
`
	require.NoError(t, testutil.GatherAndCompare(m.Gatherer(), strings.NewReader(expected), "kraken_http_requests_total"))

	resp, err := srv.Client().Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
