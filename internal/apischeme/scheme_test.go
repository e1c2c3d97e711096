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

package apischeme_test

import (
	"testing"
	"time"

	"github.com/eminwux/kraken/internal/apischeme"
	intmodel "github.com/eminwux/kraken/internal/modelhub"
	ext "github.com/eminwux/kraken/pkg/api/model/v1beta1"
	"github.com/google/go-cmp/cmp"
)

func TestBuildSummaryV1Beta1(t *testing.T) {
	in := intmodel.Build{
		BuildName:           "kraken:web",
		BuildScope:          "PT",
		BuildArgs:           map[string]string{"NMAP": "True", "EXPOSE_PORTS": "22 80"},
		Tools:               []string{"nmap"},
		StartSSH:            true,
		MemoryLimit:         "2g",
		TaskID:              "kraken:web-0011223344556677",
		ContainerProperties: map[string]string{"EXPOSE_PORTS": "22 80"},
		TaskState: intmodel.TaskState{
			Status:    intmodel.BuildStatusReady,
			Message:   "Image created successfully and ready to create containers.",
			UpdatedAt: time.Now(),
		},
	}

	out, err := apischeme.BuildSummaryExternalFromInternal(in, "kraken", ext.APIVersionV1Beta1)
	if err != nil {
		t.Fatalf("BuildSummaryExternalFromInternal failed: %v", err)
	}

	want := ext.BuildSummary{
		BuildFullName:       "kraken:web",
		BuildName:           "web",
		BuildScope:          "PT",
		Tools:               []string{"nmap"},
		ContainerProperties: map[string]string{"EXPOSE_PORTS": "22 80"},
		StartSSH:            true,
		MemoryLimit:         "2g",
		TaskID:              "kraken:web-0011223344556677",
		TaskState: ext.TaskState{
			Status:  "READY",
			Message: "Image created successfully and ready to create containers.",
		},
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("summary mismatch (-want +got):\n%s", diff)
	}

	// the projection must not alias the record
	out.Tools[0] = "changed"
	if in.Tools[0] != "nmap" {
		t.Fatal("summary aliases record tools")
	}
}

func TestBuildSummaryUnsupportedVersion(t *testing.T) {
	if _, err := apischeme.BuildSummaryExternalFromInternal(intmodel.Build{}, "", "v2"); err == nil {
		t.Fatal("expected error for unsupported version")
	}
}

func TestContainerInfoV1Beta1(t *testing.T) {
	host := "8080/tcp"
	in := intmodel.Container{
		ContainerSpec: intmodel.ContainerSpec{
			BuildName:     "kraken:web",
			ContainerName: "web1",
			Ports:         map[string]*string{"80/tcp": &host, "53/udp": nil},
			Volumes:       map[string]intmodel.VolumeBind{"/srv": {Bind: "/data", Mode: "ro"}},
			Environment:   []string{"A=B"},
			NetworkMode:   "bridge",
		},
		ContainerID: "abc",
		Status:      "running",
		Services:    []intmodel.ServiceResult{{Name: "ssh", Started: false, Error: "exit 1"}},
	}

	out, err := apischeme.ContainerInfoExternalFromInternal(in, "kraken", intmodel.ContainerStatusNotFound, "")
	if err != nil {
		t.Fatal(err)
	}
	want := ext.ContainerInfo{
		BuildName:        "web",
		ContainerName:    "web1",
		ContainerID:      "abc",
		ContainerPorts:   map[string]*string{"80/tcp": &host, "53/udp": nil},
		ContainerVolumes: map[string]ext.VolumeBind{"/srv": {Bind: "/data", Mode: "ro"}},
		Environment:      []string{"A=B"},
		NetworkMode:      "bridge",
		Services:         []ext.ServiceResult{{Name: "ssh", Error: "exit 1"}},
		ContainerStatus:  "NOT_FOUND",
		StoredStatus:     "running",
	}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Fatalf("info mismatch (-want +got):\n%s", diff)
	}
}

func TestToolAndHistoryConversion(t *testing.T) {
	tools := apischeme.ToolInfosExternalFromInternal([]intmodel.Tool{{
		Name:        "nmap",
		Description: "Network scanner",
		URL:         "https://nmap.org",
		Scope:       intmodel.ToolScope{PT: true},
	}})
	wantTools := []ext.ToolInfo{{
		ToolName:        "nmap",
		ToolDescription: "Network scanner",
		ToolURL:         "https://nmap.org",
		ToolScope:       ext.ToolScope{PT: true},
	}}
	if diff := cmp.Diff(wantTools, tools); diff != "" {
		t.Fatalf("tools mismatch:\n%s", diff)
	}

	history := apischeme.HistoryExternalFromInternal([]intmodel.HistoryEntry{{
		TaskID:    "t1",
		BuildName: "kraken:web",
		ImageID:   "sha256:aa",
		ImageTags: []string{"kraken:web"},
	}})
	if len(history) != 1 || history[0].TaskID != "t1" || history[0].ImageTags[0] != "kraken:web" {
		t.Fatalf("unexpected history: %+v", history)
	}
}
