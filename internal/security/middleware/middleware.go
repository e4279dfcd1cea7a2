package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
	"github.com/aryan0dhankhar/bugtracker/internal/security/audit"
	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
	"github.com/aryan0dhankhar/bugtracker/internal/security/ratelimit"
	"github.com/google/uuid"
)

// ErrNoIdentity is returned when a handler asks for the caller on a request
// that carried no verified token
var ErrNoIdentity = errors.New("no authenticated user in context")

type ClaimsContextKey struct{}

type errorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorBody{Message: message, Code: code})
}

// statusRecorder captures the status code written by the wrapped handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func isInfraPath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

// RequestID attaches a request ID to the context and response headers and
// logs each completed request
func RequestID(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get("X-Request-ID")
			if _, err := uuid.Parse(reqID); err != nil {
				reqID = uuid.NewString()
			}
			w.Header().Set("X-Request-ID", reqID)

			ctx := audit.WithRequestID(r.Context(), reqID)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()

			next.ServeHTTP(rec, r.WithContext(ctx))

			log.Info("request completed",
				slog.String("request_id", reqID),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Duration("duration_ms", time.Since(start)),
			)
		})
	}
}

// CORS honours the configured origins
func CORS(allowed []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if originAllowed(allowed, origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
			} else if len(allowed) > 0 {
				w.Header().Set("Access-Control-Allow-Origin", allowed[0])
			}
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Authorization")
			w.Header().Set("Access-Control-Expose-Headers", "Location, X-Request-ID")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

// JWTMiddleware verifies a bearer token when one is sent. Anonymous requests
// pass through untouched; RequireAuth guards the routes that need a caller.
func JWTMiddleware(tm *auth.TokenManager, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || isInfraPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid authorization header.")
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Info("rejected bearer token",
					slog.String("path", r.URL.Path),
					slog.String("error", err.Error()),
				)
				writeError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token.")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects requests that carry no verified token
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetClaimsFromContext(r.Context()) == nil {
			writeError(w, http.StatusUnauthorized, "unauthorized", "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RateLimitMiddleware budgets requests per caller: the user id when a token
// was verified, the client IP otherwise. Login and registration get the
// stricter budget.
func RateLimitMiddleware(limiter ratelimit.RateLimiter, authMaxReqs int, authWindow time.Duration, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isInfraPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			key := "ip:" + clientIP(r)
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				key = "user:" + strconv.FormatInt(claims.UserID, 10)
			}

			scope := "api"
			var allowed bool
			var err error
			if strings.HasPrefix(r.URL.Path, "/api/auth/") {
				scope = "auth"
				allowed, err = limiter.AllowStrict(r.Context(), key, authMaxReqs, authWindow)
			} else {
				allowed, err = limiter.Allow(r.Context(), key)
			}
			if err != nil {
				log.Warn("rate limiter error", slog.String("error", err.Error()))
				allowed = true
			}

			if !allowed {
				metrics.ObserveRateLimited(scope)
				log.Info("rate limit exceeded", slog.String("key", key), slog.String("scope", scope))
				writeError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// AuditMiddleware records every mutation of a project, issue or comment
// together with its outcome
func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			action := mutationAction(r.Method)
			resource, resourceID := auditTarget(r.URL.Path)
			if action == "" || resource == "" {
				next.ServeHTTP(w, r)
				return
			}

			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			var userID int64
			if claims := GetClaimsFromContext(r.Context()); claims != nil {
				userID = claims.UserID
			}
			auditLog.LogAction(r.Context(), audit.Entry{
				UserID:     userID,
				Action:     action,
				Resource:   resource,
				ResourceID: resourceID,
				Status:     rec.status,
			})
			if rec.status == http.StatusUnauthorized {
				auditLog.LogDenied(r.Context(), userID, r.URL.Path, "unauthenticated mutation")
			}
		})
	}
}

func mutationAction(method string) string {
	switch method {
	case http.MethodPost:
		return "create"
	case http.MethodPut:
		return "update"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

// auditTarget maps /api/projects/1/issues/2/comments/3 to ("comment", "3").
// A trailing collection (a create) yields an empty id.
func auditTarget(path string) (resource, id string) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] != "api" || parts[1] != "projects" {
		return "", ""
	}
	singular := map[string]string{"projects": "project", "issues": "issue", "comments": "comment"}
	for i := 1; i < len(parts); i += 2 {
		name, ok := singular[parts[i]]
		if !ok {
			return "", ""
		}
		resource, id = name, ""
		if i+1 < len(parts) {
			id = parts[i+1]
		}
	}
	return resource, id
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

// CurrentUserID returns the id of the verified caller
func CurrentUserID(ctx context.Context) (int64, error) {
	claims := GetClaimsFromContext(ctx)
	if claims == nil {
		return 0, ErrNoIdentity
	}
	return claims.UserID, nil
}

// WithClaims stores verified claims in ctx. Tests use it to act as a caller.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsContextKey{}, claims)
}
