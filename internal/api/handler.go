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

import (
	"log/slog"
	"net/http"

	"github.com/eminwux/kraken/internal/controller"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

type Handler struct {
	logger *slog.Logger
	ctrl   controller.Controller
}

func NewHandler(logger *slog.Logger, ctrl controller.Controller) *Handler {
	return &Handler{logger: logger, ctrl: ctrl}
}

func (h *Handler) ListBuilds(w http.ResponseWriter, r *http.Request) {
	builds, err := h.ctrl.ListBuilds(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, builds)
}

func (h *Handler) CreateBuild(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.CreateBuildRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.ctrl.SubmitBuild(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (h *Handler) GetBuild(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.BuildNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	summary, err := h.ctrl.GetBuild(r.Context(), req.BuildName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) DeleteBuild(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.BuildNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.ctrl.DeleteBuild(r.Context(), req.BuildName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) BuildHistory(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.BuildNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	entries, err := h.ctrl.BuildHistory(r.Context(), req.BuildName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) ListContainers(w http.ResponseWriter, r *http.Request) {
	ctns, err := h.ctrl.ListContainers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctns)
}

func (h *Handler) CreateContainer(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.CreateContainerRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctn, err := h.ctrl.CreateContainer(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ctn)
}

func (h *Handler) GetContainer(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.ContainerNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	ctn, err := h.ctrl.GetContainer(r.Context(), req.ContainerName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ctn)
}

func (h *Handler) StopContainer(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.ContainerNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.ctrl.StopContainer(r.Context(), req.ContainerName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteContainer(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.ContainerNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	res, err := h.ctrl.DeleteContainer(r.Context(), req.ContainerName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := h.ctrl.ListTools(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (h *Handler) ToolStages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.ctrl.ToolStages())
}

func (h *Handler) GetTool(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.ToolNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	tool, err := h.ctrl.GetTool(r.Context(), req.ToolName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (h *Handler) FilterTools(w http.ResponseWriter, r *http.Request) {
	var req v1beta1.ToolNameRequest
	if !h.decode(w, r, &req) {
		return
	}
	tools, err := h.ctrl.FilterTools(r.Context(), req.ToolName)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.ctrl.Health(r.Context()); err != nil {
		h.logger.WarnContext(r.Context(), "health check failed", "error", err)
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "ok")
}
