package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
	"go.opentelemetry.io/otel/attribute"
)

// IssuePatch carries a partial update; nil fields are left unchanged
type IssuePatch struct {
	Title  *string
	Body   *string
	Status *string
}

// IssueService implements issue operations scoped to a project
type IssueService struct {
	projects domain.ProjectRepository
	issues   domain.IssueRepository
	authz    *security.AuthorizationService
	logger   *slog.Logger
}

// NewIssueService creates a new issue service
func NewIssueService(
	projects domain.ProjectRepository,
	issues domain.IssueRepository,
	authz *security.AuthorizationService,
	logger *slog.Logger,
) *IssueService {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueService{projects: projects, issues: issues, authz: authz, logger: logger}
}

// List returns the active issues of a project ordered by number
func (s *IssueService) List(ctx context.Context, projectID int64) (issues []*domain.Issue, err error) {
	ctx, span := tracer.Start(ctx, "IssueService.List")
	defer func() { endSpan(span, err) }()

	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	issues, err = s.issues.List(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list issues: %w", err)
	}
	return issues, nil
}

// Get returns the active issue with the given number
func (s *IssueService) Get(ctx context.Context, projectID int64, number int) (issue *domain.Issue, err error) {
	ctx, span := tracer.Start(ctx, "IssueService.Get")
	defer func() { endSpan(span, err) }()

	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.load(ctx, projectID, number, "Issue doesn't exist.")
}

// Create opens a new issue. Its number is one more than the count of every
// issue the project has ever had, so numbers of deleted issues are not reused.
func (s *IssueService) Create(ctx context.Context, ownerID, projectID int64, title, body string) (issue *domain.Issue, err error) {
	ctx, span := tracer.Start(ctx, "IssueService.Create")
	defer func() { endSpan(span, err) }()

	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	if blank(title) {
		return nil, domain.Invalid("Title is required.")
	}

	count, err := s.issues.CountAll(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to count issues: %w", err)
	}

	issue = &domain.Issue{
		ProjectID: projectID,
		Number:    count + 1,
		Title:     title,
		Body:      body,
		Status:    domain.DefaultIssueStatus,
		OwnerID:   ownerID,
	}
	if err := s.issues.Create(ctx, issue); err != nil {
		switch {
		case errors.Is(err, domain.ErrConflict):
			metrics.ObserveConcurrencyConflict(string(security.ResourceIssue))
			return nil, domain.Conflict("Another issue was created at the same time. Try again.")
		case errors.Is(err, domain.ErrNotFound):
			return nil, domain.NotFound("Project not found.")
		}
		return nil, fmt.Errorf("failed to create issue: %w", err)
	}

	metrics.ObserveIssueCreated()
	span.SetAttributes(
		attribute.Int64("project.id", projectID),
		attribute.Int("issue.number", issue.Number),
	)
	s.logger.Info("issue created",
		slog.Int64("project_id", projectID),
		slog.Int("number", issue.Number),
		slog.Int64("user_id", ownerID),
	)
	return issue, nil
}

// Update applies patch to the issue if callerID created it
func (s *IssueService) Update(ctx context.Context, callerID, projectID int64, number int, patch IssuePatch) (err error) {
	ctx, span := tracer.Start(ctx, "IssueService.Update")
	defer func() { endSpan(span, err) }()

	if err := s.requireProject(ctx, projectID); err != nil {
		return err
	}
	issue, err := s.load(ctx, projectID, number, "Issue doesn't exist.")
	if err != nil {
		return updateTarget(err)
	}
	if err := s.authorize(callerID, issue, security.ActionModify); err != nil {
		return err
	}

	if patch.Title != nil {
		if blank(*patch.Title) {
			return domain.Invalid("Title is required.")
		}
		issue.Title = *patch.Title
	}
	if patch.Body != nil {
		issue.Body = *patch.Body
	}
	if patch.Status != nil {
		issue.Status = *patch.Status
	}

	ok, err := s.issues.Update(ctx, issue)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}
	if !ok {
		return s.classifyLostRace(ctx, issue.ID, "Issue doesn't exist.")
	}

	s.logger.Info("issue updated",
		slog.Int64("project_id", projectID),
		slog.Int("number", number),
		slog.Int64("user_id", callerID),
	)
	return nil
}

// Delete hides the issue from every read path if callerID created it.
// The number stays reserved. It returns the issue as last seen.
func (s *IssueService) Delete(ctx context.Context, callerID, projectID int64, number int) (issue *domain.Issue, err error) {
	ctx, span := tracer.Start(ctx, "IssueService.Delete")
	defer func() { endSpan(span, err) }()

	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	issue, err = s.load(ctx, projectID, number, "Issue not found.")
	if err != nil {
		return nil, err
	}
	if err := s.authorize(callerID, issue, security.ActionDelete); err != nil {
		return nil, err
	}

	ok, err := s.issues.SoftDelete(ctx, issue)
	if err != nil {
		return nil, fmt.Errorf("failed to delete issue: %w", err)
	}
	if !ok {
		return nil, s.classifyLostRace(ctx, issue.ID, "Issue not found.")
	}

	metrics.ObserveIssueSoftDeleted()
	s.logger.Info("issue deleted",
		slog.Int64("project_id", projectID),
		slog.Int("number", number),
		slog.Int64("user_id", callerID),
	)
	return issue, nil
}

// Resolve returns the active issue for the comment service
func (s *IssueService) Resolve(ctx context.Context, projectID int64, number int) (*domain.Issue, error) {
	if err := s.requireProject(ctx, projectID); err != nil {
		return nil, err
	}
	return s.load(ctx, projectID, number, "Issue not found.")
}

func (s *IssueService) requireProject(ctx context.Context, projectID int64) error {
	ok, err := s.projects.Exists(ctx, projectID)
	if err != nil {
		return fmt.Errorf("failed to check project: %w", err)
	}
	if !ok {
		return domain.NotFound("Project not found.")
	}
	return nil
}

func (s *IssueService) load(ctx context.Context, projectID int64, number int, missing string) (*domain.Issue, error) {
	issue, err := s.issues.GetByNumber(ctx, projectID, number)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(missing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get issue: %w", err)
	}
	return issue, nil
}

func (s *IssueService) authorize(callerID int64, issue *domain.Issue, action security.Action) error {
	return s.authz.AuthorizeOwner(callerID, security.ResourcePermission{
		ResourceType: security.ResourceIssue,
		ResourceID:   issue.ID,
		OwnerID:      issue.OwnerID,
		Action:       action,
	})
}

func (s *IssueService) classifyLostRace(ctx context.Context, id int64, missing string) error {
	exists, err := s.issues.Exists(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check issue: %w", err)
	}
	return lostRace(exists, string(security.ResourceIssue), domain.NotFound(missing))
}
