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

package container_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	containercmd "github.com/eminwux/kraken/cmd/kraken/create/container"
	"github.com/eminwux/kraken/internal/errdefs"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/google/go-cmp/cmp"
)

type fakeController struct {
	CreateContainerFn func(ctx context.Context, req v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error)

	requests []v1beta1.CreateContainerRequest
}

func (f *fakeController) CreateContainer(
	ctx context.Context,
	req v1beta1.CreateContainerRequest,
) (v1beta1.ContainerSummary, error) {
	f.requests = append(f.requests, req)
	if f.CreateContainerFn != nil {
		return f.CreateContainerFn(ctx, req)
	}
	return v1beta1.ContainerSummary{
		ContainerID:     "0123456789ab",
		ContainerName:   req.ContainerName,
		ContainerImage:  req.BuildName,
		ContainerStatus: "running",
	}, nil
}

func execute(t *testing.T, ctrl *fakeController, args ...string) (string, error) {
	t.Helper()
	cmd := containercmd.NewContainerCmd()
	cmd.SetContext(context.WithValue(context.Background(), containercmd.MockControllerKey{}, ctrl))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func intPtr(i int) *int { return &i }

func TestCreateContainerFromFlags(t *testing.T) {
	ctrl := &fakeController{}
	out, err := execute(t, ctrl,
		"web-1",
		"--build", "web",
		"--remove-if-exists",
		"--volume", "/srv/data:/data",
		"--volume", "/srv/conf:/etc/app:ro",
		"-p", "8080:80",
		"-p", "53/udp",
		"-e", "FOO=bar",
		"--x11",
		"--memory", "512m",
		"--rm",
		"--cap-add", "NET_ADMIN,NET_RAW",
		"--hostname", "box",
		"--network", "host",
		"--read-only",
	)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	want := v1beta1.CreateContainerRequest{
		BuildName:      "web",
		ContainerName:  "web-1",
		RemoveIfExists: true,
		Volumes: []v1beta1.VolumeRequest{
			{HostVolume: "/srv/data", ContainerVolume: "/data"},
			{HostVolume: "/srv/conf", ContainerVolume: "/etc/app", ModeVolume: "ro"},
		},
		Ports: []v1beta1.PortRequest{
			{PortContainer: 80, PortHost: intPtr(8080)},
			{PortContainer: 53, ProtocolContainer: "udp"},
		},
		Environment: []string{"FOO=bar"},
		EnableX11:   true,
		MemoryLimit: "512m",
		AutoRemove:  true,
		CapAdd:      []string{"NET_ADMIN", "NET_RAW"},
		Hostname:    "box",
		NetworkMode: "host",
		ReadOnly:    true,
	}
	if diff := cmp.Diff(want, ctrl.requests[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	if !strings.Contains(out, "containerStatus: running") {
		t.Errorf("output missing status:\n%s", out)
	}
}

func TestCreateContainerErrors(t *testing.T) {
	notReady := errdefs.Reject(errdefs.ErrBuildNotReady, "The image %s is not ready yet.", "web")

	tests := []struct {
		name     string
		args     []string
		ctrl     *fakeController
		wantErr  error
		wantCall bool
	}{
		{name: "build required", args: []string{"web-1"}, ctrl: &fakeController{}, wantErr: errdefs.ErrBuildNameRequired},
		{
			name:    "bad volume",
			args:    []string{"--build", "web", "--volume", "/only-host"},
			ctrl:    &fakeController{},
			wantErr: errdefs.ErrInvalidVolume,
		},
		{
			name:    "bad port",
			args:    []string{"--build", "web", "-p", "http:80"},
			ctrl:    &fakeController{},
			wantErr: errdefs.ErrInvalidPort,
		},
		{
			name:    "bad output format",
			args:    []string{"--build", "web", "-o", "table"},
			ctrl:    &fakeController{},
			wantErr: nil,
		},
		{
			name: "controller rejection",
			args: []string{"--build", "web"},
			ctrl: &fakeController{
				CreateContainerFn: func(context.Context, v1beta1.CreateContainerRequest) (v1beta1.ContainerSummary, error) {
					return v1beta1.ContainerSummary{}, notReady
				},
			},
			wantErr:  errdefs.ErrBuildNotReady,
			wantCall: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.ctrl, tt.args...)
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			if got := len(tt.ctrl.requests) > 0; got != tt.wantCall {
				t.Errorf("controller called = %t, want %t", got, tt.wantCall)
			}
		})
	}
}

func TestParsePorts(t *testing.T) {
	ports, err := containercmd.ParsePorts([]string{"2222:22/tcp", "80"})
	if err != nil {
		t.Fatalf("ParsePorts() error = %v", err)
	}
	want := []v1beta1.PortRequest{
		{PortContainer: 22, ProtocolContainer: "tcp", PortHost: intPtr(2222), ProtocolHost: "tcp"},
		{PortContainer: 80},
	}
	if diff := cmp.Diff(want, ports); diff != "" {
		t.Errorf("ports mismatch (-want +got):\n%s", diff)
	}
}

func TestParseVolumes(t *testing.T) {
	for _, bad := range []string{"", "/a", ":/b", "/a:", "/a:/b:rw:extra"} {
		if _, err := containercmd.ParseVolumes([]string{bad}); !errors.Is(err, errdefs.ErrInvalidVolume) {
			t.Errorf("ParseVolumes(%q) error = %v, want ErrInvalidVolume", bad, err)
		}
	}
}
