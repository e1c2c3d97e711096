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

package api

import "net/http"

const (
	ListBuilds      = "ListBuilds"
	CreateBuild     = "CreateBuild"
	GetBuild        = "GetBuild"
	DeleteBuild     = "DeleteBuild"
	BuildHistory    = "BuildHistory"
	ListContainers  = "ListContainers"
	CreateContainer = "CreateContainer"
	GetContainer    = "GetContainer"
	StopContainer   = "StopContainer"
	DeleteContainer = "DeleteContainer"
	ListTools       = "ListTools"
	ToolStages      = "ToolStages"
	GetTool         = "GetTool"
	FilterTools     = "FilterTools"
	Health          = "Health"
	Metrics         = "Metrics"
)

type Route struct {
	Name    string
	Path    string
	Methods []string
}

var Routes = []Route{
	{Name: ListBuilds, Path: "/build/list", Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: CreateBuild, Path: "/build/create", Methods: []string{http.MethodPut, http.MethodPost}},
	{Name: GetBuild, Path: "/build/detail", Methods: []string{http.MethodPost}},
	{Name: DeleteBuild, Path: "/build/delete", Methods: []string{http.MethodPost, http.MethodDelete}},
	{Name: BuildHistory, Path: "/build/history", Methods: []string{http.MethodPost}},

	{Name: ListContainers, Path: "/container/list", Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: CreateContainer, Path: "/container/create", Methods: []string{http.MethodPut, http.MethodPost}},
	{Name: GetContainer, Path: "/container/get", Methods: []string{http.MethodPost}},
	{Name: StopContainer, Path: "/container/stop", Methods: []string{http.MethodPost}},
	{Name: DeleteContainer, Path: "/container/delete", Methods: []string{http.MethodPost, http.MethodDelete}},

	{Name: ListTools, Path: "/tools/list", Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: ToolStages, Path: "/tools/stages", Methods: []string{http.MethodGet, http.MethodPost}},
	{Name: GetTool, Path: "/tools/info", Methods: []string{http.MethodPost}},
	{Name: FilterTools, Path: "/tools/filter", Methods: []string{http.MethodPost}},

	{Name: Health, Path: "/healthz", Methods: []string{http.MethodGet}},
	{Name: Metrics, Path: "/metrics", Methods: []string{http.MethodGet}},
}
