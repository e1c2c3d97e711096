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

package controller

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/eminwux/kraken/internal/apischeme"
	"github.com/eminwux/kraken/internal/catalog"
	"github.com/eminwux/kraken/internal/errdefs"
	"github.com/eminwux/kraken/internal/modelhub"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

// SeedReport describes what SeedTools did.
type SeedReport struct {
	Cleaned       bool `json:"cleaned"       yaml:"cleaned"`
	ToolsExisting int  `json:"toolsExisting" yaml:"toolsExisting"`
	ToolsInserted int  `json:"toolsInserted" yaml:"toolsInserted"`
}

func (b *Exec) ListTools(ctx context.Context) ([]v1beta1.ToolInfo, error) {
	tools, err := b.store.ListTools(ctx)
	if err != nil {
		return nil, err
	}
	return apischeme.ToolInfosExternalFromInternal(tools), nil
}

// FilterTools returns the tools whose name matches pattern, ignoring case.
func (b *Exec) FilterTools(ctx context.Context, pattern string) ([]v1beta1.ToolInfo, error) {
	tools, err := b.store.FindTools(ctx, pattern)
	if errors.Is(err, errdefs.ErrInvalidToolFilter) {
		return nil, errdefs.Reject(errdefs.ErrInvalidToolFilter, "Invalid tool filter: %s", pattern)
	}
	if err != nil {
		return nil, err
	}
	return apischeme.ToolInfosExternalFromInternal(tools), nil
}

func (b *Exec) GetTool(ctx context.Context, name string) (v1beta1.ToolInfo, error) {
	name = strings.TrimSpace(name)
	tool, err := b.store.GetTool(ctx, name)
	if errors.Is(err, errdefs.ErrToolNotFound) {
		return v1beta1.ToolInfo{}, errdefs.Reject(errdefs.ErrToolNotFound, "Tool %s not found.", name)
	}
	if err != nil {
		return v1beta1.ToolInfo{}, err
	}
	return apischeme.ToolInfoExternalFromInternal(tool), nil
}

func (b *Exec) ToolStages() v1beta1.ToolStages {
	return v1beta1.ToolStages{ToolStages: slices.Clone(modelhub.ToolStages)}
}

// SeedTools loads the tool catalog into an empty registry. With clean, every
// registry record is dropped first.
func (b *Exec) SeedTools(ctx context.Context, clean bool) (SeedReport, error) {
	var report SeedReport
	if clean {
		b.logger.WarnContext(ctx, "dropping every registry record")
		if err := b.store.Clean(ctx); err != nil {
			return report, err
		}
		report.Cleaned = true
	}

	count, err := b.store.CountTools(ctx)
	if err != nil {
		return report, err
	}
	report.ToolsExisting = count
	if count > 0 {
		b.logger.InfoContext(ctx, "tool catalog already seeded", "tools", count)
		return report, nil
	}

	tools, err := catalog.Load(b.opts.CatalogFile)
	if err != nil {
		return report, err
	}
	if err = b.store.InsertTools(ctx, tools); err != nil {
		return report, err
	}
	report.ToolsInserted = len(tools)
	b.logger.InfoContext(ctx, "tool catalog seeded", "tools", len(tools), "file", b.opts.CatalogFile)
	return report, nil
}
