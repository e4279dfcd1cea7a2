package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

// activeIssue is the default predicate every issue read path applies. Queries
// alias the issues table as i.
const activeIssue = `NOT i.deleted`

const issueSelect = `
	SELECT i.id, i.project_id, i.number, i.title, i.body, i.status, i.created_at,
		i.user_id, i.deleted, i.version, u.username,
		(SELECT COUNT(*) FROM comments c WHERE c.issue_id = i.id)
	FROM issues i
	JOIN users u ON u.id = i.user_id
`

// PostgresIssueRepository implements domain.IssueRepository using PostgreSQL
type PostgresIssueRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIssueRepository creates a new issue repository
func NewPostgresIssueRepository(db *sql.DB, logger *slog.Logger) *PostgresIssueRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIssueRepository{db: db, logger: logger}
}

// List returns the active issues of a project ordered by number
func (r *PostgresIssueRepository) List(ctx context.Context, projectID int64) ([]*domain.Issue, error) {
	query := issueSelect + ` WHERE i.project_id = $1 AND ` + activeIssue + ` ORDER BY i.number`
	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		r.logger.Error("failed to list issues",
			slog.Int64("project_id", projectID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	defer rows.Close()

	issues := []*domain.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	return issues, rows.Err()
}

// GetByNumber retrieves an active issue by its per-project number
func (r *PostgresIssueRepository) GetByNumber(ctx context.Context, projectID int64, number int) (*domain.Issue, error) {
	query := issueSelect + ` WHERE i.project_id = $1 AND i.number = $2 AND ` + activeIssue
	issue, err := scanIssue(r.db.QueryRowContext(ctx, query, projectID, number))
	if err != nil {
		return nil, classify(err, "get issue")
	}
	return issue, nil
}

// CountAll counts every issue of the project including soft-deleted ones.
// It is the only read path that skips activeIssue.
func (r *PostgresIssueRepository) CountAll(ctx context.Context, projectID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM issues i WHERE i.project_id = $1`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count issues: %w", err)
	}
	return n, nil
}

// Create inserts the issue with the number assigned by the caller
func (r *PostgresIssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	query := `
		WITH inserted AS (
			INSERT INTO issues (project_id, number, title, body, status, user_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at, version, user_id
		)
		SELECT inserted.id, inserted.created_at, inserted.version, u.username
		FROM inserted
		JOIN users u ON u.id = inserted.user_id
	`
	err := r.db.QueryRowContext(ctx, query,
		issue.ProjectID,
		issue.Number,
		issue.Title,
		issue.Body,
		issue.Status,
		issue.OwnerID,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.Version, &issue.Owner.Username)
	if err != nil {
		if !isUniqueViolation(err) && !isMissingParent(err) {
			r.logger.Error("failed to create issue",
				slog.Int64("project_id", issue.ProjectID),
				slog.Int("number", issue.Number),
				slog.String("error", err.Error()),
			)
		}
		return classify(err, "create issue")
	}
	issue.Owner.ID = issue.OwnerID
	issue.Deleted = false
	return nil
}

// Update applies title, body and status to an active issue whose version matches
func (r *PostgresIssueRepository) Update(ctx context.Context, issue *domain.Issue) (bool, error) {
	query := `
		UPDATE issues i
		SET title = $1, body = $2, status = $3, version = i.version + 1
		WHERE i.id = $4 AND i.version = $5 AND ` + activeIssue + `
		RETURNING i.version
	`
	err := r.db.QueryRowContext(ctx, query, issue.Title, issue.Body, issue.Status, issue.ID, issue.Version).
		Scan(&issue.Version)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update issue: %w", err)
	}
	return true, nil
}

// SoftDelete sets the hidden deleted flag instead of removing the row
func (r *PostgresIssueRepository) SoftDelete(ctx context.Context, issue *domain.Issue) (bool, error) {
	query := `
		UPDATE issues i
		SET deleted = true, version = i.version + 1
		WHERE i.id = $1 AND i.version = $2 AND ` + activeIssue + `
		RETURNING i.version
	`
	err := r.db.QueryRowContext(ctx, query, issue.ID, issue.Version).Scan(&issue.Version)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to soft delete issue: %w", err)
	}
	issue.Deleted = true
	return true, nil
}

// Exists reports whether an active issue with this id exists
func (r *PostgresIssueRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM issues i WHERE i.id = $1 AND `+activeIssue+`)`, id)
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	issue := &domain.Issue{}
	err := row.Scan(
		&issue.ID,
		&issue.ProjectID,
		&issue.Number,
		&issue.Title,
		&issue.Body,
		&issue.Status,
		&issue.CreatedAt,
		&issue.OwnerID,
		&issue.Deleted,
		&issue.Version,
		&issue.Owner.Username,
		&issue.CommentCount,
	)
	if err != nil {
		return nil, err
	}
	issue.Owner.ID = issue.OwnerID
	return issue, nil
}
