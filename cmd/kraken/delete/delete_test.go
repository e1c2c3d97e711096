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

package delete_test

import (
	"testing"

	deletecmd "github.com/eminwux/kraken/cmd/kraken/delete"
)

func TestNewDeleteCmd(t *testing.T) {
	cmd := deletecmd.NewDeleteCmd()

	if cmd.Use != "delete" {
		t.Errorf("Use = %q, want delete", cmd.Use)
	}
	for _, alias := range []string{"d", "rm"} {
		found := false
		for _, a := range cmd.Aliases {
			if a == alias {
				found = true
			}
		}
		if !found {
			t.Errorf("alias %q missing", alias)
		}
	}
	for _, name := range []string{"build", "container"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered (err %v)", name, err)
		}
	}
}
