package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/repository"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
	"github.com/aryan0dhankhar/bugtracker/internal/service"
)

func newTestAPI(t *testing.T) http.Handler {
	t.Helper()
	store := repository.NewMemoryStore()
	tokens := auth.NewTokenManager("test-secret", "bugtracker", time.Hour)
	authz := security.NewAuthorizationService(nil)
	issues := service.NewIssueService(store.Projects(), store.Issues(), authz, nil)
	svcs := Services{
		Auth:     service.NewAuthService(store.Users(), tokens, nil),
		Projects: service.NewProjectService(store.Projects(), authz, nil),
		Issues:   issues,
		Comments: service.NewCommentService(issues, store.Comments(), authz, nil),
	}
	health := NewHealthHandler(map[string]Checker{"database": func(context.Context) error { return nil }}, nil)
	return middleware.JWTMiddleware(tokens, nil)(NewRouter(svcs, health, nil))
}

type apiCall struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c apiCall) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status=%d want %d body=%s", rr.Code, want, rr.Body.String())
	}
}

func login(t *testing.T, h http.Handler, username, password string) apiCall {
	t.Helper()
	anon := apiCall{t: t, h: h}
	expectStatus(t, anon.do(http.MethodPost, "/api/auth/register", CredentialsRequest{Username: username, Password: password}), http.StatusOK)
	rr := anon.do(http.MethodPost, "/api/auth/login", CredentialsRequest{Username: username, Password: password})
	expectStatus(t, rr, http.StatusOK)
	return apiCall{t: t, h: h, token: decode[LoginResponse](t, rr).Token}
}

func TestAliceScenario(t *testing.T) {
	h := newTestAPI(t)
	anon := apiCall{t: t, h: h}

	rr := anon.do(http.MethodPost, "/api/auth/register", CredentialsRequest{Username: "alice", Password: "pw1"})
	expectStatus(t, rr, http.StatusOK)
	if id := decode[RegisterResponse](t, rr).ID; id != 1 {
		t.Fatalf("first user id=%d want 1", id)
	}

	rr = anon.do(http.MethodPost, "/api/auth/register", CredentialsRequest{Username: "ALICE", Password: "pw2"})
	expectStatus(t, rr, http.StatusBadRequest)
	if e := decode[ErrorResponse](t, rr); e.Code != "validation" || e.Message != "Username 'ALICE' already exists." {
		t.Fatalf("unexpected error %+v", e)
	}

	rr = anon.do(http.MethodPost, "/api/auth/login", CredentialsRequest{Username: "alice", Password: "pw1"})
	expectStatus(t, rr, http.StatusOK)
	alice := apiCall{t: t, h: h, token: decode[LoginResponse](t, rr).Token}

	rr = alice.do(http.MethodPost, "/api/projects", map[string]string{"title": "P1"})
	expectStatus(t, rr, http.StatusCreated)
	project := decode[ProjectView](t, rr)
	if project.ID != 1 || project.User.Username != "alice" {
		t.Fatalf("unexpected project %+v", project)
	}
	if loc := rr.Header().Get("Location"); loc != "/api/projects/1" {
		t.Fatalf("location=%q", loc)
	}

	rr = alice.do(http.MethodPost, "/api/projects/1/issues", map[string]string{"title": "bug"})
	expectStatus(t, rr, http.StatusCreated)
	if n := decode[IssueView](t, rr).Number; n != 1 {
		t.Fatalf("first issue number=%d", n)
	}

	rr = alice.do(http.MethodDelete, "/api/projects/1/issues/1", nil)
	expectStatus(t, rr, http.StatusOK)

	rr = anon.do(http.MethodGet, "/api/projects/1/issues", nil)
	expectStatus(t, rr, http.StatusOK)
	if list := decode[[]IssueView](t, rr); len(list) != 0 {
		t.Fatalf("deleted issue still listed: %+v", list)
	}

	rr = alice.do(http.MethodPost, "/api/projects/1/issues", map[string]string{"title": "another"})
	expectStatus(t, rr, http.StatusCreated)
	if n := decode[IssueView](t, rr).Number; n != 2 {
		t.Fatalf("second issue number=%d want 2", n)
	}
}

func TestStatusMapping(t *testing.T) {
	h := newTestAPI(t)
	anon := apiCall{t: t, h: h}
	alice := login(t, h, "alice", "pw")
	bob := login(t, h, "bob", "pw")

	expectStatus(t, alice.do(http.MethodPost, "/api/projects", map[string]string{"title": "P"}), http.StatusCreated)
	expectStatus(t, alice.do(http.MethodPost, "/api/projects/1/issues", map[string]string{"title": "bug"}), http.StatusCreated)

	cases := []struct {
		name   string
		call   apiCall
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"anonymous create", anon, http.MethodPost, "/api/projects", map[string]string{"title": "x"}, http.StatusUnauthorized, "unauthorized"},
		{"missing project", anon, http.MethodGet, "/api/projects/9", nil, http.StatusNotFound, "not_found"},
		{"non-integer id", anon, http.MethodGet, "/api/projects/abc", nil, http.StatusBadRequest, "validation"},
		{"update missing project", alice, http.MethodPut, "/api/projects/9", map[string]string{"title": "x"}, http.StatusBadRequest, "not_found"},
		{"update missing issue", alice, http.MethodPut, "/api/projects/1/issues/7", map[string]string{"title": "x"}, http.StatusBadRequest, "not_found"},
		{"update issue of missing project", alice, http.MethodPut, "/api/projects/9/issues/1", map[string]string{"title": "x"}, http.StatusNotFound, "not_found"},
		{"update missing comment", alice, http.MethodPut, "/api/projects/1/issues/1/comments/99", map[string]string{"body": "x"}, http.StatusBadRequest, "not_found"},
		{"update comment of missing issue", alice, http.MethodPut, "/api/projects/1/issues/7/comments/1", map[string]string{"body": "x"}, http.StatusNotFound, "not_found"},
		{"delete missing project", alice, http.MethodDelete, "/api/projects/9", nil, http.StatusNotFound, "not_found"},
		{"not owner", bob, http.MethodPut, "/api/projects/1", map[string]string{"title": "x"}, http.StatusBadRequest, "forbidden"},
		{"blank title", alice, http.MethodPost, "/api/projects", map[string]string{"title": ""}, http.StatusBadRequest, "validation"},
		{"wrong password", anon, http.MethodPost, "/api/auth/login", CredentialsRequest{Username: "alice", Password: "nope"}, http.StatusBadRequest, "authentication_failed"},
		{"issue of missing project", anon, http.MethodGet, "/api/projects/9/issues", nil, http.StatusNotFound, "not_found"},
		{"missing issue", anon, http.MethodGet, "/api/projects/1/issues/5", nil, http.StatusNotFound, "not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.call.t = t
			rr := tc.call.do(tc.method, tc.path, tc.body)
			expectStatus(t, rr, tc.status)
			if e := decode[ErrorResponse](t, rr); e.Code != tc.code {
				t.Fatalf("code=%q want %q", e.Code, tc.code)
			}
		})
	}
}

func TestPutMissingEntityIsBadRequest(t *testing.T) {
	h := newTestAPI(t)
	alice := login(t, h, "alice", "pw")
	expectStatus(t, alice.do(http.MethodPost, "/api/projects", map[string]string{"title": "P"}), http.StatusCreated)
	expectStatus(t, alice.do(http.MethodPost, "/api/projects/1/issues", map[string]string{"title": "bug"}), http.StatusCreated)

	for _, tc := range []struct {
		path    string
		body    map[string]string
		message string
	}{
		{"/api/projects/9", map[string]string{"title": "x"}, "Project doesn't exist."},
		{"/api/projects/1/issues/7", map[string]string{"title": "x"}, "Issue doesn't exist."},
		{"/api/projects/1/issues/1/comments/3", map[string]string{"body": "x"}, "Comment not found."},
	} {
		rr := alice.do(http.MethodPut, tc.path, tc.body)
		expectStatus(t, rr, http.StatusBadRequest)
		if e := decode[ErrorResponse](t, rr); e.Message != tc.message {
			t.Fatalf("PUT %s message=%q want %q", tc.path, e.Message, tc.message)
		}
	}
}

func TestExpiredTokenIsUnauthorized(t *testing.T) {
	h := newTestAPI(t)
	rr := apiCall{t: t, h: h, token: "not-a-jwt"}.do(http.MethodGet, "/api/projects", nil)
	expectStatus(t, rr, http.StatusUnauthorized)
}

func TestUpdateAndDeleteResponses(t *testing.T) {
	h := newTestAPI(t)
	alice := login(t, h, "alice", "pw")

	expectStatus(t, alice.do(http.MethodPost, "/api/projects", map[string]string{"title": "P", "description": "d"}), http.StatusCreated)
	expectStatus(t, alice.do(http.MethodPut, "/api/projects/1", map[string]string{"title": "Q"}), http.StatusNoContent)

	rr := alice.do(http.MethodGet, "/api/projects/1", nil)
	expectStatus(t, rr, http.StatusOK)
	if p := decode[ProjectView](t, rr); p.Title != "Q" || p.Description != "d" {
		t.Fatalf("unexpected project after update %+v", p)
	}

	expectStatus(t, alice.do(http.MethodPost, "/api/projects/1/issues", map[string]string{"title": "bug", "body": "b"}), http.StatusCreated)
	rr = alice.do(http.MethodPost, "/api/projects/1/issues/1/comments", map[string]string{"body": "first"})
	expectStatus(t, rr, http.StatusCreated)
	comment := decode[CommentView](t, rr)

	expectStatus(t, alice.do(http.MethodPut, "/api/projects/1/issues/1", map[string]string{"status": "closed"}), http.StatusNoContent)
	rr = alice.do(http.MethodGet, "/api/projects/1/issues/1", nil)
	if i := decode[IssueView](t, rr); i.Status != "closed" || i.Comments != 1 {
		t.Fatalf("unexpected issue %+v", i)
	}

	rr = alice.do(http.MethodDelete, "/api/projects/1/issues/1/comments/1", nil)
	expectStatus(t, rr, http.StatusOK)
	if c := decode[CommentView](t, rr); c.ID != comment.ID || c.Body != "first" {
		t.Fatalf("unexpected deleted comment %+v", c)
	}

	rr = alice.do(http.MethodDelete, "/api/projects/1", nil)
	expectStatus(t, rr, http.StatusOK)
	if p := decode[ProjectView](t, rr); p.ID != 1 {
		t.Fatalf("unexpected deleted project %+v", p)
	}
	expectStatus(t, alice.do(http.MethodGet, "/api/projects/1", nil), http.StatusNotFound)
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestAPI(t)
	anon := apiCall{t: t, h: h}
	expectStatus(t, anon.do(http.MethodGet, "/healthz", nil), http.StatusOK)

	rr := anon.do(http.MethodGet, "/readyz", nil)
	expectStatus(t, rr, http.StatusOK)
	if r := decode[ReadinessResponse](t, rr); r.Checks["database"] != "ok" {
		t.Fatalf("unexpected readiness %+v", r)
	}
}

func TestReadyReportsFailingDependency(t *testing.T) {
	health := NewHealthHandler(map[string]Checker{
		"database": func(context.Context) error { return nil },
		"redis":    func(context.Context) error { return errors.New("connection refused") },
	}, nil)
	rr := httptest.NewRecorder()
	health.Ready(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	expectStatus(t, rr, http.StatusServiceUnavailable)
}
