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

// Package api serves the controller over HTTP with JSON bodies.
package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/eminwux/kraken/internal/controller"
	"github.com/eminwux/kraken/internal/metrics"
	"github.com/gorilla/mux"
)

// New returns the router for every route in Routes.
func New(logger *slog.Logger, ctrl controller.Controller, m *metrics.Metrics) (http.Handler, error) {
	h := NewHandler(logger, ctrl)

	handlers := map[string]http.Handler{
		ListBuilds:   http.HandlerFunc(h.ListBuilds),
		CreateBuild:  http.HandlerFunc(h.CreateBuild),
		GetBuild:     http.HandlerFunc(h.GetBuild),
		DeleteBuild:  http.HandlerFunc(h.DeleteBuild),
		BuildHistory: http.HandlerFunc(h.BuildHistory),

		ListContainers:  http.HandlerFunc(h.ListContainers),
		CreateContainer: http.HandlerFunc(h.CreateContainer),
		GetContainer:    http.HandlerFunc(h.GetContainer),
		StopContainer:   http.HandlerFunc(h.StopContainer),
		DeleteContainer: http.HandlerFunc(h.DeleteContainer),

		ListTools:   http.HandlerFunc(h.ListTools),
		ToolStages:  http.HandlerFunc(h.ToolStages),
		GetTool:     http.HandlerFunc(h.GetTool),
		FilterTools: http.HandlerFunc(h.FilterTools),

		Health: http.HandlerFunc(h.Health),
	}
	if m != nil {
		handlers[Metrics] = m.Handler()
	}

	router := mux.NewRouter()
	for _, route := range Routes {
		handler, ok := handlers[route.Name]
		if !ok {
			if route.Name == Metrics {
				continue
			}
			return nil, fmt.Errorf("no handler for route %s", route.Name)
		}
		router.Handle(route.Path, handler).Methods(route.Methods...).Name(route.Name)
	}
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found.")
	})
	router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, "Method not allowed.")
	})
	router.Use(instrument(logger, m))
	return router, nil
}
