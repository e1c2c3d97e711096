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

package file

import (
	"context"

	"github.com/eminwux/kraken/internal/registry"
)

// SetSnapshotWriter replaces how s writes its snapshot.
func SetSnapshotWriter(s *Store, fn func(ctx context.Context, snap registry.Snapshot) error) {
	s.write = fn
}

// ResetSnapshotWriter restores the default snapshot writer.
func ResetSnapshotWriter(s *Store) {
	s.write = s.writeSnapshot
}
