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

// BuildStatus is the lifecycle state of a build attempt.
type BuildStatus string

const (
	BuildStatusCreated    BuildStatus = "CREATED"
	BuildStatusProcessing BuildStatus = "PROCESSING"
	BuildStatusReady      BuildStatus = "READY"
	BuildStatusSaved      BuildStatus = "SAVED"
	BuildStatusFinished   BuildStatus = "FINISHED"
	BuildStatusError      BuildStatus = "ERROR"
)

// ReadyStatuses are the states under which containers may be provisioned.
var ReadyStatuses = []BuildStatus{BuildStatusReady, BuildStatusSaved, BuildStatusFinished}

// Ready reports whether a container may be created from a build in this state.
func (s BuildStatus) Ready() bool {
	for _, r := range ReadyStatuses {
		if s == r {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition is possible.
func (s BuildStatus) Terminal() bool {
	return s == BuildStatusFinished || s == BuildStatusError
}

type TaskState struct {
	Status    BuildStatus `json:"status"    bson:"status"`
	Message   string      `json:"message"   bson:"message"`
	UpdatedAt time.Time   `json:"updatedAt" bson:"updatedAt"`
}

// Build is the registry record of one build attempt.
type Build struct {
	BuildName     string            `json:"buildName"     bson:"buildName"`
	BuildScope    string            `json:"buildScope"    bson:"buildScope"`
	BuildArgs     map[string]string `json:"buildArgs"     bson:"buildArgs"`
	Tools         []string          `json:"tools"         bson:"tools"`
	StartSSH      bool              `json:"startSSH"      bson:"startSSH"`
	StartPostgres bool              `json:"startPostgres" bson:"startPostgres"`
	MemoryLimit   string            `json:"memoryLimit"   bson:"memoryLimit"`
	TaskID        string            `json:"taskId"        bson:"taskId"`
	TaskState     TaskState         `json:"taskState"     bson:"taskState"`
	CreatedAt     time.Time         `json:"createdAt"     bson:"createdAt"`

	// ContainerProperties are the user supplied build arguments, already
	// rendered, kept apart from the tool flags for display.
	ContainerProperties map[string]string `json:"containerProperties,omitempty" bson:"containerProperties,omitempty"`
}

// BuildJob is the payload carried by the task queue from submission to a worker.
type BuildJob struct {
	BuildName   string            `json:"buildName"`
	BuildArgs   map[string]string `json:"buildArgs"`
	MemoryLimit string            `json:"memoryLimit,omitempty"`
}

// HistoryEntry is the append-only audit copy written once an image is produced.
type HistoryEntry struct {
	TaskID      string            `json:"taskId"      bson:"taskId"`
	BuildName   string            `json:"buildName"   bson:"buildName"`
	ImageID     string            `json:"imageId"     bson:"imageId"`
	ImageLabels map[string]string `json:"imageLabels" bson:"imageLabels"`
	ImageTags   []string          `json:"imageTags"   bson:"imageTags"`
	ImageLogs   []string          `json:"imageLogs"   bson:"imageLogs"`
	CreatedAt   time.Time         `json:"createdAt"   bson:"createdAt"`
}
