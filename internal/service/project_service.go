package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
	"go.opentelemetry.io/otel/attribute"
)

// ProjectPatch carries a partial update; nil fields are left unchanged
type ProjectPatch struct {
	Title       *string
	Description *string
}

// ProjectService implements project operations on top of the repository
type ProjectService struct {
	projects domain.ProjectRepository
	authz    *security.AuthorizationService
	logger   *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(projects domain.ProjectRepository, authz *security.AuthorizationService, logger *slog.Logger) *ProjectService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{projects: projects, authz: authz, logger: logger}
}

// List returns every project ordered by id
func (s *ProjectService) List(ctx context.Context) (projects []*domain.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.List")
	defer func() { endSpan(span, err) }()

	projects, err = s.projects.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, nil
}

// Get returns a single project
func (s *ProjectService) Get(ctx context.Context, id int64) (project *domain.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Get")
	defer func() { endSpan(span, err) }()

	return s.load(ctx, id, "Project doesn't exist.")
}

// Create stores a new project owned by ownerID
func (s *ProjectService) Create(ctx context.Context, ownerID int64, title, description string) (project *domain.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Create")
	defer func() { endSpan(span, err) }()

	if blank(title) {
		return nil, domain.Invalid("Title is required.")
	}

	project = &domain.Project{
		Title:       title,
		Description: description,
		OwnerID:     ownerID,
	}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	span.SetAttributes(attribute.Int64("project.id", project.ID))
	s.logger.Info("project created",
		slog.Int64("project_id", project.ID),
		slog.Int64("user_id", ownerID),
	)
	return project, nil
}

// Update applies patch to the project if callerID created it
func (s *ProjectService) Update(ctx context.Context, callerID, id int64, patch ProjectPatch) (err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Update")
	defer func() { endSpan(span, err) }()

	project, err := s.load(ctx, id, "Project doesn't exist.")
	if err != nil {
		return updateTarget(err)
	}
	if err := s.authz.AuthorizeOwner(callerID, security.ResourcePermission{
		ResourceType: security.ResourceProject,
		ResourceID:   project.ID,
		OwnerID:      project.OwnerID,
		Action:       security.ActionModify,
	}); err != nil {
		return err
	}

	if patch.Title != nil {
		if blank(*patch.Title) {
			return domain.Invalid("Title is required.")
		}
		project.Title = *patch.Title
	}
	if patch.Description != nil {
		project.Description = *patch.Description
	}

	ok, err := s.projects.Update(ctx, project)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}
	if !ok {
		exists, err := s.projects.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check project: %w", err)
		}
		return lostRace(exists, string(security.ResourceProject), domain.NotFound("Project doesn't exist."))
	}

	s.logger.Info("project updated", slog.Int64("project_id", id), slog.Int64("user_id", callerID))
	return nil
}

// Delete removes the project and everything under it if callerID created it.
// It returns the project as it was before deletion.
func (s *ProjectService) Delete(ctx context.Context, callerID, id int64) (project *domain.Project, err error) {
	ctx, span := tracer.Start(ctx, "ProjectService.Delete")
	defer func() { endSpan(span, err) }()

	project, err = s.load(ctx, id, "Project not found.")
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeOwner(callerID, security.ResourcePermission{
		ResourceType: security.ResourceProject,
		ResourceID:   project.ID,
		OwnerID:      project.OwnerID,
		Action:       security.ActionDelete,
	}); err != nil {
		return nil, err
	}

	if err := s.projects.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Project not found.")
		}
		return nil, fmt.Errorf("failed to delete project: %w", err)
	}

	s.logger.Info("project deleted", slog.Int64("project_id", id), slog.Int64("user_id", callerID))
	return project, nil
}

func (s *ProjectService) load(ctx context.Context, id int64, missing string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(missing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}
