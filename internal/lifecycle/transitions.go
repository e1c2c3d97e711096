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

package lifecycle

import "github.com/eminwux/kraken/internal/modelhub"

// ValidTransitions lists the forward moves of a build attempt. ERROR is reachable
// from every non-terminal state; FINISHED and ERROR are absorbing.
var ValidTransitions = map[modelhub.BuildStatus][]modelhub.BuildStatus{
	modelhub.BuildStatusCreated:    {modelhub.BuildStatusProcessing, modelhub.BuildStatusError},
	modelhub.BuildStatusProcessing: {modelhub.BuildStatusReady, modelhub.BuildStatusError},
	modelhub.BuildStatusReady:      {modelhub.BuildStatusSaved, modelhub.BuildStatusError},
	modelhub.BuildStatusSaved:      {modelhub.BuildStatusFinished, modelhub.BuildStatusError},
	modelhub.BuildStatusFinished:   {},
	modelhub.BuildStatusError:      {},
}

// CanTransition reports whether from may move directly to to.
func CanTransition(from, to modelhub.BuildStatus) bool {
	for _, next := range ValidTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanRestart reports whether a redelivered job may reset a record back to
// PROCESSING. Only runs interrupted after pickup qualify.
func CanRestart(from modelhub.BuildStatus) bool {
	switch from {
	case modelhub.BuildStatusProcessing, modelhub.BuildStatusReady, modelhub.BuildStatusSaved:
		return true
	default:
		return false
	}
}
