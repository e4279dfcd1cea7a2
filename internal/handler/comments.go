package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
)

// CommentHandler serves /api/projects/{projectId}/issues/{number}/comments
type CommentHandler struct {
	comments *service.CommentService
	logger   *slog.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(comments *service.CommentService, logger *slog.Logger) *CommentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentHandler{comments: comments, logger: logger}
}

// CommentRequest is the body of comment create and update
type CommentRequest struct {
	Body *string `json:"body"`
}

// issuePath reads the project id and issue number every comment route carries
func issuePath(w http.ResponseWriter, r *http.Request) (int64, int, bool) {
	projectID, ok := pathID(w, r, "projectId")
	if !ok {
		return 0, 0, false
	}
	number, ok := pathNumber(w, r)
	if !ok {
		return 0, 0, false
	}
	return projectID, number, true
}

// List handles GET /api/projects/{projectId}/issues/{number}/comments
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	projectID, number, ok := issuePath(w, r)
	if !ok {
		return
	}
	comments, err := h.comments.List(r.Context(), projectID, number)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	views := make([]CommentView, 0, len(comments))
	for _, c := range comments {
		views = append(views, commentView(c))
	}
	writeJSON(w, http.StatusOK, views)
}

// Get handles GET /api/projects/{projectId}/issues/{number}/comments/{id}
func (h *CommentHandler) Get(w http.ResponseWriter, r *http.Request) {
	projectID, number, ok := issuePath(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	comment, err := h.comments.Get(r.Context(), projectID, number, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commentView(comment))
}

// Create handles POST /api/projects/{projectId}/issues/{number}/comments
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, number, ok := issuePath(w, r)
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	comment, err := h.comments.Create(r.Context(), callerID, projectID, number, deref(req.Body))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/api/projects/%d/issues/%d/comments/%d", projectID, number, comment.ID))
	writeJSON(w, http.StatusCreated, commentView(comment))
}

// Update handles PUT /api/projects/{projectId}/issues/{number}/comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, number, ok := issuePath(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !decodeBody(w, r, h.logger, &req) {
		return
	}

	if err := h.comments.Update(r.Context(), callerID, projectID, number, id, req.Body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete handles DELETE /api/projects/{projectId}/issues/{number}/comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	callerID, err := middleware.CurrentUserID(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	projectID, number, ok := issuePath(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	comment, err := h.comments.Delete(r.Context(), callerID, projectID, number, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, commentView(comment))
}
