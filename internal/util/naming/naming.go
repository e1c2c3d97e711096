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

package naming

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"

	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/google/uuid"
)

// tagPattern is the docker image tag grammar.
var tagPattern = regexp.MustCompile(`^[A-Za-z0-9_][A-Za-z0-9_.-]{0,127}$`)

// QualifiedBuildName constructs the image reference of a build.
// Format: {imageBase}:{name}
func QualifiedBuildName(imageBase, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errdefs.ErrBuildNameRequired
	}
	if !tagPattern.MatchString(name) {
		return "", fmt.Errorf("%w: %q", errdefs.ErrInvalidBuildName, name)
	}
	imageBase = strings.TrimSpace(imageBase)
	if imageBase == "" {
		return name, nil
	}
	return fmt.Sprintf("%s:%s", imageBase, name), nil
}

// ShortBuildName strips the image base from a qualified build name.
func ShortBuildName(imageBase, qualified string) string {
	if imageBase == "" {
		return qualified
	}
	return strings.TrimPrefix(qualified, imageBase+":")
}

// NewTaskID returns a task identifier unique per build attempt.
// Format: {buildName}-{16 hex chars}
func NewTaskID(buildName string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%s", buildName, hex.EncodeToString(id[:8]))
}
