package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/lib/pq"
)

// PostgreSQL SQLSTATEs the repositories translate
const (
	uniqueViolation     = pq.ErrorCode("23505")
	foreignKeyViolation = pq.ErrorCode("23503")
)

func hasCode(err error, code pq.ErrorCode) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == code
}

func isUniqueViolation(err error) bool {
	return hasCode(err, uniqueViolation)
}

// isMissingParent reports an insert whose referenced parent row is gone
func isMissingParent(err error) bool {
	return hasCode(err, foreignKeyViolation)
}

// classify maps driver errors onto domain kinds; op names the failed operation
func classify(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sql.ErrNoRows), isMissingParent(err):
		return domain.ErrNotFound
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w", op, domain.ErrConflict)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func exists(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	var ok bool
	if err := db.QueryRowContext(ctx, query, args...).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}
