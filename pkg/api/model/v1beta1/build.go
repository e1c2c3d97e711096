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

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CreateBuildRequest asks for a new image composed of the selected tools.
type CreateBuildRequest struct {
	BuildName           string                   `json:"buildName"                     yaml:"buildName"`
	BuildScope          string                   `json:"buildScope,omitempty"          yaml:"buildScope,omitempty"`
	Tools               []string                 `json:"tools"                         yaml:"tools"`
	StartSSH            bool                     `json:"startSSH"                      yaml:"startSSH"`
	StartPostgres       bool                     `json:"startPostgres"                 yaml:"startPostgres"`
	MemoryLimit         string                   `json:"memoryLimit,omitempty"         yaml:"memoryLimit,omitempty"`
	ContainerProperties map[string]PropertyValue `json:"containerProperties,omitempty" yaml:"containerProperties,omitempty"`
	Overwrite           bool                     `json:"overwrite"                     yaml:"overwrite"`
}

// BuildNameRequest addresses a build by its short name.
type BuildNameRequest struct {
	BuildName string `json:"buildName" yaml:"buildName"`
}

// PropertyValue is a free-form container property: a scalar or a list of scalars.
type PropertyValue struct {
	Scalar string
	List   []string
	IsList bool
}

// String renders the value the way it is passed as a build argument.
func (p PropertyValue) String() string {
	if p.IsList {
		return strings.Join(p.List, " ")
	}
	return p.Scalar
}

func (p PropertyValue) MarshalJSON() ([]byte, error) {
	if p.IsList {
		return json.Marshal(p.List)
	}
	return json.Marshal(p.Scalar)
}

func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case []any:
		p.IsList = true
		p.List = make([]string, 0, len(v))
		for _, item := range v {
			s, err := scalarString(item)
			if err != nil {
				return err
			}
			p.List = append(p.List, s)
		}
	default:
		s, err := scalarString(v)
		if err != nil {
			return err
		}
		p.Scalar = s
	}
	return nil
}

func scalarString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(t), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported property value %v", v)
	}
}

// Scalar builds a scalar PropertyValue.
func Scalar(s string) PropertyValue {
	return PropertyValue{Scalar: s}
}

// List builds a list PropertyValue.
func List(items ...string) PropertyValue {
	return PropertyValue{List: items, IsList: true}
}

type TaskState struct {
	Status  string `json:"status"  yaml:"status"`
	Message string `json:"message" yaml:"message"`
}

// BuildSummary is the public projection of a build record.
type BuildSummary struct {
	BuildFullName       string            `json:"buildFullName"       yaml:"buildFullName"`
	BuildName           string            `json:"buildName"           yaml:"buildName"`
	BuildScope          string            `json:"buildScope"          yaml:"buildScope"`
	Tools               []string          `json:"tools"               yaml:"tools"`
	ContainerProperties map[string]string `json:"containerProperties" yaml:"containerProperties"`
	StartSSH            bool              `json:"startSSH"            yaml:"startSSH"`
	StartPostgres       bool              `json:"startPostgres"       yaml:"startPostgres"`
	MemoryLimit         string            `json:"memoryLimit"         yaml:"memoryLimit"`
	TaskID              string            `json:"taskId"              yaml:"taskId"`
	TaskState           TaskState         `json:"taskState"           yaml:"taskState"`
}

// DeleteBuildResult reports each layer separately.
type DeleteBuildResult struct {
	BuildFullName     string `json:"buildFullName"     yaml:"buildFullName"`
	ImageRemoved      bool   `json:"imageRemoved"      yaml:"imageRemoved"`
	RecordRemoved     bool   `json:"recordRemoved"     yaml:"recordRemoved"`
	ContainersRemoved int    `json:"containersRemoved" yaml:"containersRemoved"`
	// ContainerRecordsRemoved counts registry records, which may outlive
	// their runtime containers.
	ContainerRecordsRemoved int    `json:"containerRecordsRemoved" yaml:"containerRecordsRemoved"`
	Message                 string `json:"message"                 yaml:"message"`
}

type HistoryEntry struct {
	TaskID      string            `json:"taskId"      yaml:"taskId"`
	ImageID     string            `json:"imageId"     yaml:"imageId"`
	ImageLabels map[string]string `json:"imageLabels" yaml:"imageLabels"`
	ImageTags   []string          `json:"imageTags"   yaml:"imageTags"`
	ImageLogs   []string          `json:"imageLogs"   yaml:"imageLogs"`
}
