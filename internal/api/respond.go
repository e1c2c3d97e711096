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
	"encoding/json"
	"errors"
	"io"
	"net/http"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/eminwux/kraken/internal/errdefs"
	v1beta1 "github.com/eminwux/kraken/pkg/api/model/v1beta1"
)

const maxBodyBytes = 1 << 20

// decode reads a JSON request body into v. Unknown fields are refused; an
// empty body leaves v zero. It writes the error response itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	h.logger.DebugContext(r.Context(), "invalid request body", "path", r.URL.Path, "error", err)
	writeMessage(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
	return false
}

// StatusFor maps an error class to an HTTP status.
func StatusFor(err error) int {
	switch {
	case cerrdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case cerrdefs.IsNotFound(err):
		return http.StatusNotFound
	case cerrdefs.IsAlreadyExists(err), cerrdefs.IsFailedPrecondition(err), cerrdefs.IsConflict(err):
		return http.StatusConflict
	case cerrdefs.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if errdefs.IsRejected(err) {
		h.logger.InfoContext(r.Context(), "request rejected", "path", r.URL.Path, "reason", err)
	} else {
		h.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	writeMessage(w, status, errdefs.RejectionMessage(err))
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, v1beta1.Message{Message: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
