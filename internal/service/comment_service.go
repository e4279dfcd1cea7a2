package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
)

// CommentService implements comment operations scoped to a project issue
type CommentService struct {
	issues   *IssueService
	comments domain.CommentRepository
	authz    *security.AuthorizationService
	logger   *slog.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(
	issues *IssueService,
	comments domain.CommentRepository,
	authz *security.AuthorizationService,
	logger *slog.Logger,
) *CommentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentService{issues: issues, comments: comments, authz: authz, logger: logger}
}

// List returns the comments of an issue ordered by id
func (s *CommentService) List(ctx context.Context, projectID int64, number int) (comments []*domain.Comment, err error) {
	ctx, span := tracer.Start(ctx, "CommentService.List")
	defer func() { endSpan(span, err) }()

	issue, err := s.issues.Resolve(ctx, projectID, number)
	if err != nil {
		return nil, err
	}
	comments, err = s.comments.List(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Get returns one comment of an issue
func (s *CommentService) Get(ctx context.Context, projectID int64, number int, id int64) (comment *domain.Comment, err error) {
	ctx, span := tracer.Start(ctx, "CommentService.Get")
	defer func() { endSpan(span, err) }()

	issue, err := s.issues.Resolve(ctx, projectID, number)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, issue.ID, id, "Comment doesn't exist.")
}

// Create adds a comment by ownerID to the issue
func (s *CommentService) Create(ctx context.Context, ownerID, projectID int64, number int, body string) (comment *domain.Comment, err error) {
	ctx, span := tracer.Start(ctx, "CommentService.Create")
	defer func() { endSpan(span, err) }()

	issue, err := s.issues.Resolve(ctx, projectID, number)
	if err != nil {
		return nil, err
	}
	if blank(body) {
		return nil, domain.Invalid("Body is required.")
	}

	comment = &domain.Comment{IssueID: issue.ID, Body: body, OwnerID: ownerID}
	if err := s.comments.Create(ctx, comment); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Issue not found.")
		}
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	s.logger.Info("comment created",
		slog.Int64("comment_id", comment.ID),
		slog.Int64("issue_id", issue.ID),
		slog.Int64("user_id", ownerID),
	)
	return comment, nil
}

// Update replaces the body of a comment if callerID wrote it
func (s *CommentService) Update(ctx context.Context, callerID, projectID int64, number int, id int64, body *string) (err error) {
	ctx, span := tracer.Start(ctx, "CommentService.Update")
	defer func() { endSpan(span, err) }()

	issue, err := s.issues.Resolve(ctx, projectID, number)
	if err != nil {
		return err
	}
	comment, err := s.load(ctx, issue.ID, id, "Comment not found.")
	if err != nil {
		return updateTarget(err)
	}
	if err := s.authorize(callerID, comment, security.ActionModify); err != nil {
		return err
	}

	if body != nil {
		if blank(*body) {
			return domain.Invalid("Body is required.")
		}
		comment.Body = *body
	}

	ok, err := s.comments.Update(ctx, comment)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if !ok {
		exists, err := s.comments.Exists(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to check comment: %w", err)
		}
		return lostRace(exists, string(security.ResourceComment), domain.NotFound("Comment not found."))
	}

	s.logger.Info("comment updated", slog.Int64("comment_id", id), slog.Int64("user_id", callerID))
	return nil
}

// Delete removes a comment if callerID wrote it and returns it
func (s *CommentService) Delete(ctx context.Context, callerID, projectID int64, number int, id int64) (comment *domain.Comment, err error) {
	ctx, span := tracer.Start(ctx, "CommentService.Delete")
	defer func() { endSpan(span, err) }()

	issue, err := s.issues.Resolve(ctx, projectID, number)
	if err != nil {
		return nil, err
	}
	comment, err = s.load(ctx, issue.ID, id, "Comment not found.")
	if err != nil {
		return nil, err
	}
	if err := s.authorize(callerID, comment, security.ActionRemove); err != nil {
		return nil, err
	}

	if err := s.comments.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NotFound("Comment not found.")
		}
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.Info("comment deleted", slog.Int64("comment_id", id), slog.Int64("user_id", callerID))
	return comment, nil
}

func (s *CommentService) load(ctx context.Context, issueID, id int64, missing string) (*domain.Comment, error) {
	comment, err := s.comments.GetByID(ctx, issueID, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.NotFound(missing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return comment, nil
}

func (s *CommentService) authorize(callerID int64, comment *domain.Comment, action security.Action) error {
	return s.authz.AuthorizeOwner(callerID, security.ResourcePermission{
		ResourceType: security.ResourceComment,
		ResourceID:   comment.ID,
		OwnerID:      comment.OwnerID,
		Action:       action,
	})
}
