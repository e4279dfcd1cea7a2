package domain

import "errors"

// Error kinds. Services wrap them in *Error to attach a caller-facing message;
// match with errors.Is.
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrAuthentication = errors.New("authentication failed")
	ErrNotFound       = errors.New("not found")
	ErrMissingTarget  = errors.New("update target missing")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("concurrency conflict")
)

// Error carries a human-readable message for one of the error kinds
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Invalid returns a validation error
func Invalid(message string) error {
	return &Error{Kind: ErrInvalidInput, Message: message}
}

// NotFound returns a not-found error
func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

// MissingTarget reports that the entity an update names does not exist. Unlike
// NotFound it rejects the request itself.
func MissingTarget(message string) error {
	return &Error{Kind: ErrMissingTarget, Message: message}
}

// Forbidden returns an ownership error
func Forbidden(message string) error {
	return &Error{Kind: ErrForbidden, Message: message}
}

// Conflict returns an optimistic concurrency error
func Conflict(message string) error {
	return &Error{Kind: ErrConflict, Message: message}
}

// AuthenticationFailed returns a credential error
func AuthenticationFailed(message string) error {
	return &Error{Kind: ErrAuthentication, Message: message}
}

// Message extracts the caller-facing message from err, falling back to fallback
func Message(err error, fallback string) string {
	var de *Error
	if errors.As(err, &de) && de.Message != "" {
		return de.Message
	}
	return fallback
}
