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

// Package apischeme converts between the internal records and the v1beta1
// documents returned to callers.
package apischeme

import (
	"fmt"
	"maps"
	"slices"

	intmodel "github.com/eminwux/kraken/internal/modelhub"
	"github.com/eminwux/kraken/internal/util/naming"
	ext "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

// Supported versions.
const (
	VersionV1Beta1 = ext.APIVersionV1Beta1
)

// BuildSummaryExternalFromInternal emits the public projection of a build record.
// imageBase is stripped from the record name to recover the name the caller used.
func BuildSummaryExternalFromInternal(
	in intmodel.Build,
	imageBase string,
	apiVersion ext.Version,
) (ext.BuildSummary, error) {
	switch apiVersion {
	case VersionV1Beta1, "":
		props := maps.Clone(in.ContainerProperties)
		if props == nil {
			props = map[string]string{}
		}
		return ext.BuildSummary{
			BuildFullName:       in.BuildName,
			BuildName:           naming.ShortBuildName(imageBase, in.BuildName),
			BuildScope:          in.BuildScope,
			Tools:               slices.Clone(in.Tools),
			ContainerProperties: props,
			StartSSH:            in.StartSSH,
			StartPostgres:       in.StartPostgres,
			MemoryLimit:         in.MemoryLimit,
			TaskID:              in.TaskID,
			TaskState: ext.TaskState{
				Status:  string(in.TaskState.Status),
				Message: in.TaskState.Message,
			},
		}, nil
	default:
		return ext.BuildSummary{}, fmt.Errorf("unsupported output apiVersion for Build: %s", apiVersion)
	}
}

// BuildSummariesExternalFromInternal converts a list of build records.
func BuildSummariesExternalFromInternal(
	in []intmodel.Build,
	imageBase string,
	apiVersion ext.Version,
) ([]ext.BuildSummary, error) {
	out := make([]ext.BuildSummary, 0, len(in))
	for _, b := range in {
		summary, err := BuildSummaryExternalFromInternal(b, imageBase, apiVersion)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, nil
}

func HistoryExternalFromInternal(in []intmodel.HistoryEntry) []ext.HistoryEntry {
	out := make([]ext.HistoryEntry, 0, len(in))
	for _, h := range in {
		out = append(out, ext.HistoryEntry{
			TaskID:      h.TaskID,
			ImageID:     h.ImageID,
			ImageLabels: maps.Clone(h.ImageLabels),
			ImageTags:   slices.Clone(h.ImageTags),
			ImageLogs:   slices.Clone(h.ImageLogs),
		})
	}
	return out
}

func ServicesExternalFromInternal(in []intmodel.ServiceResult) []ext.ServiceResult {
	out := make([]ext.ServiceResult, 0, len(in))
	for _, s := range in {
		out = append(out, ext.ServiceResult{Name: s.Name, Started: s.Started, Error: s.Error})
	}
	return out
}

// ContainerSummaryExternalFromInternal is the answer to a successful create.
func ContainerSummaryExternalFromInternal(in intmodel.Container) ext.ContainerSummary {
	return ext.ContainerSummary{
		ContainerID:     in.ContainerID,
		ContainerName:   in.ContainerName,
		ContainerImage:  in.BuildName,
		ContainerStatus: in.Status,
		Services:        ServicesExternalFromInternal(in.Services),
	}
}

// ContainerInfoExternalFromInternal merges a container record with the live
// status reported by the runtime.
func ContainerInfoExternalFromInternal(
	in intmodel.Container,
	imageBase string,
	liveStatus string,
	apiVersion ext.Version,
) (ext.ContainerInfo, error) {
	switch apiVersion {
	case VersionV1Beta1, "":
		var volumes map[string]ext.VolumeBind
		if len(in.Volumes) > 0 {
			volumes = make(map[string]ext.VolumeBind, len(in.Volumes))
			for host, v := range in.Volumes {
				volumes[host] = ext.VolumeBind{Bind: v.Bind, Mode: v.Mode}
			}
		}
		return ext.ContainerInfo{
			BuildName:        naming.ShortBuildName(imageBase, in.BuildName),
			ContainerName:    in.ContainerName,
			ContainerID:      in.ContainerID,
			ContainerPorts:   maps.Clone(in.Ports),
			ContainerVolumes: volumes,
			Environment:      slices.Clone(in.Environment),
			MemoryLimit:      in.MemoryLimit,
			NetworkMode:      in.NetworkMode,
			Services:         ServicesExternalFromInternal(in.Services),
			ContainerStatus:  liveStatus,
			StoredStatus:     in.Status,
		}, nil
	default:
		return ext.ContainerInfo{}, fmt.Errorf("unsupported output apiVersion for Container: %s", apiVersion)
	}
}

func ToolInfoExternalFromInternal(in intmodel.Tool) ext.ToolInfo {
	return ext.ToolInfo{
		ToolName:        in.Name,
		ToolDescription: in.Description,
		ToolURL:         in.URL,
		ToolScope:       ext.ToolScope{RT: in.Scope.RT, PT: in.Scope.PT},
	}
}

func ToolInfosExternalFromInternal(in []intmodel.Tool) []ext.ToolInfo {
	out := make([]ext.ToolInfo, 0, len(in))
	for _, t := range in {
		out = append(out, ToolInfoExternalFromInternal(t))
	}
	return out
}
