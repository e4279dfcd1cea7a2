package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
)

// ProjectHandler serves /api/projects
type ProjectHandler struct {
	projects *service.ProjectService
	logger   *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projects *service.ProjectService, logger *slog.Logger) *ProjectHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectHandler{projects: projects, logger: logger}
}

// ProjectRequest is the body of project create and update. Nil fields are
// left unchanged on update.
type ProjectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// List handles GET /api/projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projects.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]ProjectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, projectView(p))
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/projects/{id}
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projectView(project))
}

// Create handles POST /api/projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var req ProjectRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	project, err := h.projects.Create(r.Context(), callerID, deref(req.Title), deref(req.Description))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/projects/%d", project.ID))
	writeJSON(w, http.StatusCreated, projectView(project))
}

// Update handles PUT /api/projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req ProjectRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	patch := service.ProjectPatch{Title: req.Title, Description: req.Description}
	if err := h.projects.Update(r.Context(), callerID, id, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	project, err := h.projects.Delete(r.Context(), callerID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projectView(project))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
