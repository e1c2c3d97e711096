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

package modelhub

import "time"

// VolumeBind is the container side of a host volume mount.
type VolumeBind struct {
	Bind string `json:"bind" bson:"bind"`
	Mode string `json:"mode" bson:"mode"`
}

// ContainerSpec is a validated, normalized provisioning request.
type ContainerSpec struct {
	BuildName       string                `json:"buildName"       bson:"buildName"`
	ContainerName   string                `json:"containerName"   bson:"containerName"`
	Hostname        string                `json:"hostname"        bson:"hostname"`
	Ports           map[string]*string    `json:"ports"           bson:"ports"`
	Volumes         map[string]VolumeBind `json:"volumes"         bson:"volumes"`
	Environment     []string              `json:"environment"     bson:"environment"`
	CapAdd          []string              `json:"capAdd"          bson:"capAdd"`
	CapDrop         []string              `json:"capDrop"         bson:"capDrop"`
	MemoryLimit     string                `json:"memoryLimit"     bson:"memoryLimit"`
	NetworkMode     string                `json:"networkMode"     bson:"networkMode"`
	AutoRemove      bool                  `json:"autoRemove"      bson:"autoRemove"`
	Privileged      bool                  `json:"privileged"      bson:"privileged"`
	ReadOnly        bool                  `json:"readOnly"        bson:"readOnly"`
	NetworkDisabled bool                  `json:"networkDisabled" bson:"networkDisabled"`
	TTY             bool                  `json:"tty"             bson:"tty"`
}

// ServiceResult records the outcome of starting an auxiliary in-container service.
type ServiceResult struct {
	Name    string `json:"name"            bson:"name"`
	Started bool   `json:"started"         bson:"started"`
	Error   string `json:"error,omitempty" bson:"error,omitempty"`
}

const (
	ContainerStatusStopped  = "stopped"
	ContainerStatusNotFound = "NOT_FOUND"
	ContainerStatusError    = "ERROR"
)

// Container is the registry record of a provisioned container. Status is advisory;
// live status always comes from the runtime.
type Container struct {
	ContainerSpec `bson:",inline"`

	ContainerID string          `json:"containerId" bson:"containerId"`
	Status      string          `json:"status"      bson:"status"`
	Services    []ServiceResult `json:"services"    bson:"services"`
	CreatedAt   time.Time       `json:"createdAt"   bson:"createdAt"`
}
