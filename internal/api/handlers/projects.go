// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wingedpig/gemini-desktop/internal/project"
)

// ProjectHandler exposes the project registry (C4) over HTTP.
type ProjectHandler struct {
	registry *project.Registry
}

// NewProjectHandler creates a new project handler.
func NewProjectHandler(registry *project.Registry) *ProjectHandler {
	return &ProjectHandler{registry: registry}
}

// List returns a paginated summary of every known project directory.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := 50
	if v := query.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v := query.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	projects, err := h.registry.ListProjects(limit, offset)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, projects)
}

// Get returns (creating on first use) the metadata document for a project
// directory identified by its SHA-256 project id.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	pathHint := r.URL.Query().Get("path")

	m, err := h.registry.EnsureMetadata(id, pathHint)
	if err != nil {
		if errors.Is(err, project.ErrNotFound) {
			WriteError(w, http.StatusNotFound, ErrProjectNotFound, err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, ErrInternalError, err.Error())
		return
	}

	WriteJSON(w, http.StatusOK, m)
}
