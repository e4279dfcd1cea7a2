package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request id so audit lines can be correlated with
// the request log
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id stored by WithRequestID, or ""
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Entry is one audited mutation
type Entry struct {
	UserID     int64
	Action     string // create, update, delete
	Resource   string // project, issue, comment
	ResourceID string
	Status     int
}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, e Entry) {
	outcome := "succeeded"
	if e.Status >= 400 {
		outcome = "failed"
	}

	al.logger.Info("audit",
		slog.String("action", e.Action),
		slog.String("resource", e.Resource),
		slog.String("resource_id", e.ResourceID),
		slog.Int64("user_id", e.UserID),
		slog.Int("status", e.Status),
		slog.String("outcome", outcome),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogDenied(ctx context.Context, userID int64, path, reason string) {
	al.logger.Warn("audit",
		slog.String("action", "access_denied"),
		slog.String("path", path),
		slog.Int64("user_id", userID),
		slog.String("reason", reason),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}
