package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("bugtracker/service")

// endSpan closes span, marking it failed only for unexpected errors.
// Caller-facing outcomes such as validation or not-found are not span errors.
func endSpan(span trace.Span, err error) {
	var de *domain.Error
	if err != nil && !errors.As(err, &de) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// lostRace classifies an update that matched no row: the row is still there
// (someone else changed it first) or it is gone.
func lostRace(stillExists bool, resource string, gone error) error {
	if !stillExists {
		return gone
	}
	metrics.ObserveConcurrencyConflict(resource)
	return domain.Conflict(fmt.Sprintf("The %s was modified by another request. Reload and try again.", strings.ToLower(resource)))
}

// updateTarget turns a pre-check miss on an update into a MissingTarget. Rows
// that vanish after the pre-check stay NotFound through lostRace.
func updateTarget(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.MissingTarget(domain.Message(err, ""))
	}
	return err
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
