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

const (
	// APIVersionV1Beta1 is the canonical API version for this package.
	APIVersionV1Beta1 Version = "v1beta1"

	// DefaultBuildScope is applied when a build request omits its scope.
	DefaultBuildScope = "PT"
	// DefaultVolumeMode is applied when a volume request omits its mode.
	DefaultVolumeMode = "rw"
	// DefaultProtocol is applied when a port request omits its protocol.
	DefaultProtocol = "tcp"
	// DefaultNetworkMode is applied when a container request omits its network mode.
	DefaultNetworkMode = "bridge"
)

type Version string

// Message is the body of every non-data response.
type Message struct {
	Message string `json:"message" yaml:"message"`
}
