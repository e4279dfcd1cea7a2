package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

// Projects are always read with their owner and the number of active issues.
const projectSelect = `
	SELECT p.id, p.title, p.description, p.created_at, p.user_id, p.version,
		u.username,
		(SELECT COUNT(*) FROM issues i WHERE i.project_id = p.id AND ` + activeIssue + `)
	FROM projects p
	JOIN users u ON u.id = p.user_id
`

// PostgresProjectRepository implements domain.ProjectRepository using PostgreSQL
type PostgresProjectRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresProjectRepository creates a new project repository
func NewPostgresProjectRepository(db *sql.DB, logger *slog.Logger) *PostgresProjectRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresProjectRepository{db: db, logger: logger}
}

// List returns all projects ordered by id
func (r *PostgresProjectRepository) List(ctx context.Context) ([]*domain.Project, error) {
	rows, err := r.db.QueryContext(ctx, projectSelect+` ORDER BY p.id`)
	if err != nil {
		r.logger.Error("failed to list projects", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := []*domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// GetByID retrieves a project by ID
func (r *PostgresProjectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		return nil, classify(err, "get project")
	}
	return p, nil
}

// Create inserts a new project owned by project.OwnerID
func (r *PostgresProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		WITH inserted AS (
			INSERT INTO projects (title, description, user_id)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, version, user_id
		)
		SELECT inserted.id, inserted.created_at, inserted.version, u.username
		FROM inserted
		JOIN users u ON u.id = inserted.user_id
	`
	err := r.db.QueryRowContext(ctx, query, project.Title, project.Description, project.OwnerID).Scan(
		&project.ID,
		&project.CreatedAt,
		&project.Version,
		&project.Owner.Username,
	)
	if err != nil {
		r.logger.Error("failed to create project",
			slog.Int64("owner_id", project.OwnerID),
			slog.String("error", err.Error()),
		)
		return classify(err, "create project")
	}
	project.Owner.ID = project.OwnerID
	return nil
}

// Update applies title and description when the stored version still matches
func (r *PostgresProjectRepository) Update(ctx context.Context, project *domain.Project) (bool, error) {
	query := `
		UPDATE projects
		SET title = $1, description = $2, version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`
	err := r.db.QueryRowContext(ctx, query, project.Title, project.Description, project.ID, project.Version).
		Scan(&project.Version)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to update project: %w", err)
	}
	return true, nil
}

// Delete hard-deletes a project; the schema cascades to issues and comments
func (r *PostgresProjectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
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

// Exists reports whether the project row is still present
func (r *PostgresProjectRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.db, `SELECT EXISTS (SELECT 1 FROM projects WHERE id = $1)`, id)
}

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.CreatedAt,
		&p.OwnerID,
		&p.Version,
		&p.Owner.Username,
		&p.IssueCount,
	)
	if err != nil {
		return nil, err
	}
	p.Owner.ID = p.OwnerID
	return p, nil
}
