package domain

import (
	"context"
	"time"
)

// DefaultIssueStatus is assigned to every new issue
const DefaultIssueStatus = "open"

// Project groups issues. Only its owner may modify or delete it.
type Project struct {
	ID          int64
	Title       string
	Description string
	CreatedAt   time.Time
	OwnerID     int64
	Owner       UserRef // joined
	IssueCount  int     // computed over active issues
	Version     int64   // optimistic concurrency token
}

// Issue belongs to a project and is addressed by its per-project Number.
type Issue struct {
	ID           int64
	ProjectID    int64
	Number       int // 1-based, never reused within a project
	Title        string
	Body         string
	Status       string
	CreatedAt    time.Time
	OwnerID      int64
	Owner        UserRef // joined
	CommentCount int     // computed
	Deleted      bool    // soft-delete flag; hidden from every read path
	Version      int64
}

// Comment belongs to an issue
type Comment struct {
	ID        int64
	IssueID   int64
	Body      string
	CreatedAt time.Time
	OwnerID   int64
	Owner     UserRef // joined
	Version   int64
}

// ProjectRepository defines data access for projects
type ProjectRepository interface {
	List(ctx context.Context) ([]*Project, error)
	GetByID(ctx context.Context, id int64) (*Project, error)
	Create(ctx context.Context, project *Project) error
	// Update writes title and description if project.Version still matches the
	// stored row. It reports false when another writer got there first; on
	// success project.Version is advanced.
	Update(ctx context.Context, project *Project) (bool, error)
	// Delete removes the project; issues and comments cascade.
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}

// IssueRepository defines data access for issues. Every read applies the
// active predicate except CountAll, which reserves numbers.
type IssueRepository interface {
	List(ctx context.Context, projectID int64) ([]*Issue, error)
	GetByNumber(ctx context.Context, projectID int64, number int) (*Issue, error)
	// CountAll counts every issue ever created in the project, soft-deleted
	// ones included.
	CountAll(ctx context.Context, projectID int64) (int, error)
	// Create inserts the issue with its pre-assigned Number. A duplicate
	// (project, number) pair returns ErrConflict.
	Create(ctx context.Context, issue *Issue) error
	Update(ctx context.Context, issue *Issue) (bool, error)
	// SoftDelete flags the issue as deleted using the same version check as Update.
	SoftDelete(ctx context.Context, issue *Issue) (bool, error)
	// Exists reports whether an active issue with this id exists.
	Exists(ctx context.Context, id int64) (bool, error)
}

// CommentRepository defines data access for comments
type CommentRepository interface {
	List(ctx context.Context, issueID int64) ([]*Comment, error)
	GetByID(ctx context.Context, issueID, id int64) (*Comment, error)
	Create(ctx context.Context, comment *Comment) error
	Update(ctx context.Context, comment *Comment) (bool, error)
	Delete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
}
