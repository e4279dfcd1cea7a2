package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
)

// IssueHandler serves /api/projects/{projectId}/issues
type IssueHandler struct {
	issues *service.IssueService
	logger *slog.Logger
}

// NewIssueHandler creates a new issue handler
func NewIssueHandler(issues *service.IssueService, logger *slog.Logger) *IssueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueHandler{issues: issues, logger: logger}
}

// IssueRequest is the body of issue create and update. Nil fields are left
// unchanged on update.
type IssueRequest struct {
	Title  *string `json:"title"`
	Body   *string `json:"body"`
	Status *string `json:"status"`
}

// List handles GET /api/projects/{projectId}/issues
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	issues, err := h.issues.List(r.Context(), projectID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]IssueView, 0, len(issues))
	for _, i := range issues {
		views = append(views, issueView(i))
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/projects/{projectId}/issues/{number}
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	number, ok := pathNumber(w, r)
	if !ok {
		return
	}
	issue, err := h.issues.Get(r.Context(), projectID, number)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(issue))
}

// Create handles POST /api/projects/{projectId}/issues
func (h *IssueHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	var req IssueRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	issue, err := h.issues.Create(r.Context(), callerID, projectID, deref(req.Title), deref(req.Body))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/projects/%d/issues/%d", projectID, issue.Number))
	writeJSON(w, http.StatusCreated, issueView(issue))
}

// Update handles PUT /api/projects/{projectId}/issues/{number}
func (h *IssueHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	number, ok := pathNumber(w, r)
	if !ok {
		return
	}
	var req IssueRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	patch := service.IssuePatch{Title: req.Title, Body: req.Body, Status: req.Status}
	if err := h.issues.Update(r.Context(), callerID, projectID, number, patch); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/projects/{projectId}/issues/{number}
func (h *IssueHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return
	}
	number, ok := pathNumber(w, r)
	if !ok {
		return
	}

	issue, err := h.issues.Delete(r.Context(), callerID, projectID, number)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, issueView(issue))
}
