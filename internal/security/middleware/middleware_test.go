package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
	"github.com/aryan0dhankhar/bugtracker/internal/security/ratelimit"
)

func callerEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := CurrentUserID(r.Context())
		if errors.Is(err, ErrNoIdentity) {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(strings.Repeat("u", int(id))))
	})
}

func TestJWTMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("secret", "bugtracker", time.Hour)
	h := JWTMiddleware(tm, slog.Default())(callerEcho())
	token, _, _ := tm.GenerateToken(2, "alice")

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"anonymous", "", http.StatusOK, "anonymous"},
		{"valid", "Bearer " + token, http.StatusOK, "uu"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.status {
				t.Fatalf("status=%d want %d", rr.Code, tc.status)
			}
			if tc.body != "" && rr.Body.String() != tc.body {
				t.Fatalf("body=%q want %q", rr.Body.String(), tc.body)
			}
		})
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(callerEcho())

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/projects", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/projects", nil)
	req = req.WithContext(WithClaims(req.Context(), &auth.Claims{UserID: 1, Username: "alice"}))
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK || rr.Body.String() != "u" {
		t.Fatalf("status=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestCurrentUserIDWithoutToken(t *testing.T) {
	if _, err := CurrentUserID(context.Background()); !errors.Is(err, ErrNoIdentity) {
		t.Fatalf("expected ErrNoIdentity, got %v", err)
	}
}

func TestRateLimitMiddlewareAuthBudget(t *testing.T) {
	limiter := ratelimit.NewLimiter(100, time.Minute)
	defer limiter.Stop()
	h := RateLimitMiddleware(limiter, 1, time.Minute, slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if code := send("/api/auth/login"); code != http.StatusOK {
		t.Fatalf("first login status=%d", code)
	}
	if code := send("/api/auth/login"); code != http.StatusTooManyRequests {
		t.Fatalf("second login status=%d want 429", code)
	}
	if code := send("/api/projects"); code != http.StatusOK {
		t.Fatalf("api budget should be separate, status=%d", code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	h := RequestID(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatalf("expected request id header")
	}
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status not passed through: %d", rr.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(http.NotFoundHandler())
	req := httptest.NewRequest(http.MethodOptions, "/api/projects", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("allow origin=%q", got)
	}
}

func TestAuditTarget(t *testing.T) {
	cases := map[string][2]string{
		"/api/projects":                       {"project", ""},
		"/api/projects/4":                     {"project", "4"},
		"/api/projects/4/issues":              {"issue", ""},
		"/api/projects/4/issues/2/comments/9": {"comment", "9"},
		"/api/auth/login":                     {"", ""},
	}
	for path, want := range cases {
		resource, id := auditTarget(path)
		if resource != want[0] || id != want[1] {
			t.Fatalf("auditTarget(%q)=(%q,%q) want %v", path, resource, id, want)
		}
	}
}

func TestSanitizeInputs(t *testing.T) {
	h := SanitizeInputs(slog.Default())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/projects?q=%3Cscript%3E", nil))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}
