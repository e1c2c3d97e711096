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

package v1beta1

type VolumeRequest struct {
	HostVolume      string `json:"hostVolume"           yaml:"hostVolume"`
	ContainerVolume string `json:"containerVolume"      yaml:"containerVolume"`
	ModeVolume      string `json:"modeVolume,omitempty" yaml:"modeVolume,omitempty"`
}

type PortRequest struct {
	PortContainer     int    `json:"portContainer"               yaml:"portContainer"`
	ProtocolContainer string `json:"protocolContainer,omitempty" yaml:"protocolContainer,omitempty"`
	PortHost          *int   `json:"portHost,omitempty"          yaml:"portHost,omitempty"`
	ProtocolHost      string `json:"protocolHost,omitempty"      yaml:"protocolHost,omitempty"`
}

// CreateContainerRequest asks for a runtime container from a finished build.
type CreateContainerRequest struct {
	BuildName       string          `json:"buildName"                 yaml:"buildName"`
	ContainerName   string          `json:"containerName,omitempty"   yaml:"containerName,omitempty"`
	RemoveIfExists  bool            `json:"removeIfExists"            yaml:"removeIfExists"`
	Volumes         []VolumeRequest `json:"volumes,omitempty"         yaml:"volumes,omitempty"`
	Ports           []PortRequest   `json:"ports,omitempty"           yaml:"ports,omitempty"`
	Environment     []string        `json:"environment,omitempty"     yaml:"environment,omitempty"`
	EnableX11       bool            `json:"enableX11"                 yaml:"enableX11"`
	MemoryLimit     string          `json:"memoryLimit,omitempty"     yaml:"memoryLimit,omitempty"`
	AutoRemove      bool            `json:"autoRemove"                yaml:"autoRemove"`
	CapAdd          []string        `json:"capAdd,omitempty"          yaml:"capAdd,omitempty"`
	CapDrop         []string        `json:"capDrop,omitempty"         yaml:"capDrop,omitempty"`
	Hostname        string          `json:"hostname,omitempty"        yaml:"hostname,omitempty"`
	NetworkMode     string          `json:"networkMode,omitempty"     yaml:"networkMode,omitempty"`
	Privileged      bool            `json:"privileged"                yaml:"privileged"`
	NetworkDisabled bool            `json:"networkDisabled"           yaml:"networkDisabled"`
	ReadOnly        bool            `json:"readOnly"                  yaml:"readOnly"`
}

// ContainerNameRequest addresses a container by name.
type ContainerNameRequest struct {
	ContainerName string `json:"containerName" yaml:"containerName"`
}

type ServiceResult struct {
	Name    string `json:"name"            yaml:"name"`
	Started bool   `json:"started"         yaml:"started"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ContainerSummary is returned after a successful create.
type ContainerSummary struct {
	ContainerID     string          `json:"containerId"     yaml:"containerId"`
	ContainerName   string          `json:"containerName"   yaml:"containerName"`
	ContainerImage  string          `json:"containerImage"  yaml:"containerImage"`
	ContainerStatus string          `json:"containerStatus" yaml:"containerStatus"`
	Services        []ServiceResult `json:"services"        yaml:"services"`
}

type VolumeBind struct {
	Bind string `json:"bind" yaml:"bind"`
	Mode string `json:"mode" yaml:"mode"`
}

// ContainerInfo is a container record with its live runtime status.
type ContainerInfo struct {
	BuildName        string                `json:"buildName"        yaml:"buildName"`
	ContainerName    string                `json:"containerName"    yaml:"containerName"`
	ContainerID      string                `json:"containerId"      yaml:"containerId"`
	ContainerPorts   map[string]*string    `json:"containerPorts"   yaml:"containerPorts"`
	ContainerVolumes map[string]VolumeBind `json:"containerVolumes" yaml:"containerVolumes"`
	Environment      []string              `json:"environment"      yaml:"environment"`
	MemoryLimit      string                `json:"memoryLimit"      yaml:"memoryLimit"`
	NetworkMode      string                `json:"networkMode"      yaml:"networkMode"`
	Services         []ServiceResult       `json:"services"         yaml:"services"`
	ContainerStatus  string                `json:"containerStatus"  yaml:"containerStatus"`
	StoredStatus     string                `json:"storedStatus"     yaml:"storedStatus"`
}

// ContainerActionResult reports the outcome of stop and delete per layer.
type ContainerActionResult struct {
	ContainerName string `json:"containerName" yaml:"containerName"`
	RuntimeFound  bool   `json:"runtimeFound"  yaml:"runtimeFound"`
	StoreFound    bool   `json:"storeFound"    yaml:"storeFound"`
	Status        string `json:"status"        yaml:"status"`
	Message       string `json:"message"       yaml:"message"`
}
