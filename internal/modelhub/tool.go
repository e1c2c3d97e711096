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

type ToolScope struct {
	PT bool `json:"PT" yaml:"PT" bson:"PT"`
	RT bool `json:"RT" yaml:"RT" bson:"RT"`
}

// Tool is read-only reference data describing a selectable tool.
type Tool struct {
	Name            string    `json:"name"                      yaml:"name"                      bson:"name"`
	Description     string    `json:"description"               yaml:"description"               bson:"description"`
	URL             string    `json:"url"                       yaml:"url"                       bson:"url"`
	Stage           string    `json:"stage,omitempty"           yaml:"stage,omitempty"           bson:"stage,omitempty"`
	Scope           ToolScope `json:"scope"                     yaml:"scope"                     bson:"scope"`
	PropertyEnabled string    `json:"propertyEnabled,omitempty" yaml:"propertyEnabled,omitempty" bson:"propertyEnabled,omitempty"`
}

// ToolStages is the fixed list of stages a tool can belong to.
var ToolStages = []string{
	"common", "framework", "candc", "delivery",
	"escalation", "exfiltration", "exploitation",
	"internalrecon", "movelateral", "recon", "weapon", "all",
}
