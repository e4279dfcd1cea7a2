package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/security/middleware"
)

// ErrorResponse is the body of every non-2xx API response
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a service error to its HTTP status and error code.
// A caller who is not the owner, or who updates an entity that does not exist,
// gets 400 like any other rejected request.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, domain.ErrAuthentication):
		status, code = http.StatusBadRequest, "authentication_failed"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrMissingTarget):
		status, code = http.StatusBadRequest, "not_found"
	case errors.Is(err, domain.ErrForbidden):
		status, code = http.StatusBadRequest, "forbidden"
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	case errors.Is(err, middleware.ErrNoIdentity):
		status, code = http.StatusUnauthorized, "unauthorized"
	}

	message := domain.Message(err, http.StatusText(status))
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		message = "An unexpected error occurred."
	}
	writeJSON(w, status, ErrorResponse{Message: message, Code: code})
}

func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Message: message, Code: "validation"})
}

func decodeBody(w http.ResponseWriter, r *http.Request, logger *slog.Logger, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("failed to decode request body",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		badRequest(w, "Invalid request body.")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		badRequest(w, "Invalid "+name+".")
		return 0, false
	}
	return id, true
}

func pathNumber(w http.ResponseWriter, r *http.Request) (int, bool) {
	n, err := strconv.Atoi(r.PathValue("number"))
	if err != nil {
		badRequest(w, "Invalid issue number.")
		return 0, false
	}
	return n, true
}
