package handler

import (
	"log/slog"
	"net/http"

	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
)

// Services are the dependencies the API routes call into
type Services struct {
	Auth     *service.AuthService
	Projects *service.ProjectService
	Issues   *service.IssueService
	Comments *service.CommentService
}

// NewRouter registers the API routes. Reads are anonymous; mutations need a
// verified caller, so the returned mux expects JWTMiddleware in front of it.
func NewRouter(svcs Services, health *HealthHandler, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}

	authH := NewAuthHandler(svcs.Auth, logger)
	projectH := NewProjectHandler(svcs.Projects, logger)
	issueH := NewIssueHandler(svcs.Issues, logger)
	commentH := NewCommentHandler(svcs.Comments, logger)

	mux := http.NewServeMux()
	authed := func(fn http.HandlerFunc) http.Handler { return middleware.RequireAuth(fn) }

	mux.HandleFunc("POST /api/auth/register", authH.Register)
	mux.HandleFunc("POST /api/auth/login", authH.Login)

	mux.HandleFunc("GET /api/projects", projectH.List)
	mux.HandleFunc("GET /api/projects/{id}", projectH.Get)
	mux.Handle("POST /api/projects", authed(projectH.Create))
	mux.Handle("PUT /api/projects/{id}", authed(projectH.Update))
	mux.Handle("DELETE /api/projects/{id}", authed(projectH.Delete))

	mux.HandleFunc("GET /api/projects/{projectId}/issues", issueH.List)
	mux.HandleFunc("GET /api/projects/{projectId}/issues/{number}", issueH.Get)
	mux.Handle("POST /api/projects/{projectId}/issues", authed(issueH.Create))
	mux.Handle("PUT /api/projects/{projectId}/issues/{number}", authed(issueH.Update))
	mux.Handle("DELETE /api/projects/{projectId}/issues/{number}", authed(issueH.Delete))

	mux.HandleFunc("GET /api/projects/{projectId}/issues/{number}/comments", commentH.List)
	mux.HandleFunc("GET /api/projects/{projectId}/issues/{number}/comments/{id}", commentH.Get)
	mux.Handle("POST /api/projects/{projectId}/issues/{number}/comments", authed(commentH.Create))
	mux.Handle("PUT /api/projects/{projectId}/issues/{number}/comments/{id}", authed(commentH.Update))
	mux.Handle("DELETE /api/projects/{projectId}/issues/{number}/comments/{id}", authed(commentH.Delete))

	if health != nil {
		mux.HandleFunc("GET /healthz", health.Health)
		mux.HandleFunc("GET /readyz", health.Ready)
	}
	return mux
}
