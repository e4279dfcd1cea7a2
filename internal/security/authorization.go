package security

import (
	"fmt"
	"log/slog"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/observability/metrics"
)

// ResourceType identifies the kind of resource being accessed
type ResourceType string

const (
	ResourceProject ResourceType = "Project"
	ResourceIssue   ResourceType = "Issue"
	ResourceComment ResourceType = "Comment"
)

// Action identifies what operation is being performed
type Action string

const (
	ActionModify Action = "modify"
	ActionDelete Action = "delete"
	ActionRemove Action = "remove"
)

// ResourcePermission describes an attempted mutation on a specific resource
type ResourcePermission struct {
	ResourceType ResourceType
	ResourceID   int64
	OwnerID      int64 // User ID that created the resource
	Action       Action
}

// IsOwner is the ownership policy: only the creator may mutate a resource.
func IsOwner(callerID, ownerID int64) bool {
	return callerID > 0 && callerID == ownerID
}

// AuthorizationService applies the ownership policy before mutations
type AuthorizationService struct {
	logger *slog.Logger
}

// NewAuthorizationService creates a new authorization service
func NewAuthorizationService(logger *slog.Logger) *AuthorizationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorizationService{logger: logger}
}

// AuthorizeOwner returns a domain Forbidden error unless callerID owns the resource
func (a *AuthorizationService) AuthorizeOwner(callerID int64, perm ResourcePermission) error {
	if IsOwner(callerID, perm.OwnerID) {
		return nil
	}

	a.logger.Warn("resource access denied",
		slog.Int64("user_id", callerID),
		slog.Int64("resource_id", perm.ResourceID),
		slog.String("resource_type", string(perm.ResourceType)),
		slog.Int64("owner_id", perm.OwnerID),
		slog.String("action", string(perm.Action)),
	)
	metrics.ObserveOwnershipDenial(string(perm.ResourceType))

	article := "a"
	if perm.ResourceType == ResourceIssue {
		article = "an"
	}
	return domain.Forbidden(fmt.Sprintf("Only the creator of %s %s can %s it.", article, perm.ResourceType, perm.Action))
}
