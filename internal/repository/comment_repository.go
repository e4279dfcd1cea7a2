package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

const commentSelect = `
	SELECT c.id, c.issue_id, c.body, c.created_at, c.user_id, c.version, u.username
	FROM comments c
	JOIN users u ON u.id = c.user_id
`

// PostgresCommentRepository implements domain.CommentRepository using PostgreSQL
type PostgresCommentRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresCommentRepository creates a new comment repository
func NewPostgresCommentRepository(db *sql.DB, logger *slog.Logger) *PostgresCommentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCommentRepository{db: db, logger: logger}
}

// List returns the comments of an issue in creation order
func (r *PostgresCommentRepository) List(ctx context.Context, issueID int64) ([]*domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+` WHERE c.issue_id = $1 ORDER BY c.id`, issueID)
	if err != nil {
		r.logger.Error("failed to list comments",
			slog.Int64("issue_id", issueID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []*domain.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetByID retrieves a comment scoped to its issue
func (r *PostgresCommentRepository) GetByID(ctx context.Context, issueID, id int64) (*domain.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.issue_id = $1 AND c.id = $2`, issueID, id))
	if err != nil {
		return nil, classify(err, "get comment")
	}
	return c, nil
}

// Create inserts a comment owned by comment.OwnerID. The parent issue must be
// active when the row is written; a parent hidden or removed meanwhile gives
// ErrNotFound.
func (r *PostgresCommentRepository) Create(ctx context.Context, comment *domain.Comment) error {
	query := `
		WITH inserted AS (
			INSERT INTO comments (issue_id, body, user_id)
			SELECT $1::bigint, $2::text, $3::bigint
			WHERE EXISTS (
				SELECT 1 FROM issues i WHERE i.id = $1 AND ` + activeIssue + ` FOR SHARE
			)
			RETURNING id, created_at, version, user_id
		)
		SELECT inserted.id, inserted.created_at, inserted.version, u.username
		FROM inserted
		JOIN users u ON u.id = inserted.user_id
	`
	err := r.db.QueryRowContext(ctx, query, comment.IssueID, comment.Body, comment.OwnerID).Scan(
		&comment.ID,
		&comment.CreatedAt,
		&comment.Version,
		&comment.Owner.Username,
	)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			r.logger.Error("failed to create comment",
				slog.Int64("issue_id", comment.IssueID),
				slog.String("error", err.Error()),
			)
		}
		return classify(err, "create comment")
	}
	comment.Owner.ID = comment.OwnerID
	return nil
}

// Update applies the body when the stored version still matches
func (r *PostgresCommentRepository) Update(ctx context.Context, comment *domain.Comment) (bool, error) {
	query := `
		UPDATE comments
		SET body = $1, version = version + 1
		WHERE id = $2 AND version = $3
		RETURNING version
	`
	err := r.db.QueryRowContext(ctx, query, comment.Body, comment.ID, comment.Version).Scan(&comment.Version)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update comment: %w", err)
	}
	return true, nil
}

// Delete removes a comment permanently
func (r *PostgresCommentRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Exists reports whether the comment row is still present
func (r *PostgresCommentRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, id)
}

func scanComment(row rowScanner) (*domain.Comment, error) {
	c := &domain.Comment{}
	err := row.Scan(
		&c.ID,
		&c.IssueID,
		&c.Body,
		&c.CreatedAt,
		&c.OwnerID,
		&c.Version,
		&c.Owner.Username,
	)
	if err != nil {
		return nil, err
	}
	c.Owner.ID = c.OwnerID
	return c, nil
}
