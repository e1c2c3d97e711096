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

// BuildSpec describes one image build.
type BuildSpec struct {
	Tag         string
	BuildArgs   map[string]string
	MemoryLimit string
	Labels      map[string]string
}

// BuildResult is what the runtime reports about a produced image.
type BuildResult struct {
	ImageID string
	Labels  map[string]string
	Tags    []string
	Logs    []string
}

// RemoveImageResult reports what an image removal touched.
type RemoveImageResult struct {
	ImageFound        bool
	ContainersRemoved int
}

// ContainerInfo is the runtime view of a started container.
type ContainerInfo struct {
	ID     string
	Name   string
	Image  string
	Status string
}

// ExecSpec is a command to run inside a running container.
type ExecSpec struct {
	Cmd  []string
	User string
}
