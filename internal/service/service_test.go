package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
	"github.com/aryan0dhankhar/bugtracker/internal/repository"
	"github.com/aryan0dhankhar/bugtracker/internal/security"
	"github.com/aryan0dhankhar/bugtracker/internal/security/auth"
)

type testServices struct {
	store    *repository.MemoryStore
	auth     *AuthService
	projects *ProjectService
	issues   *IssueService
	comments *CommentService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	store := repository.NewMemoryStore()
	return newTestServicesWith(store, store.Projects(), store.Issues(), store.Comments())
}

func newTestServicesWith(store *repository.MemoryStore, projects domain.ProjectRepository, issues domain.IssueRepository, comments domain.CommentRepository) *testServices {
	authz := security.NewAuthorizationService(nil)
	issueSvc := NewIssueService(projects, issues, authz, nil)
	return &testServices{
		store:    store,
		auth:     NewAuthService(store.Users(), auth.NewTokenManager("test-secret", "bugtracker", time.Hour), nil),
		projects: NewProjectService(projects, authz, nil),
		issues:   issueSvc,
		comments: NewCommentService(issueSvc, comments, authz, nil),
	}
}

func (ts *testServices) register(t *testing.T, username string) int64 {
	t.Helper()
	id, err := ts.auth.Register(context.Background(), username, "Password123")
	if err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	return id
}

func strPtr(s string) *string { return &s }

func expectKind(t *testing.T, err, kind error, message string) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
	if message != "" {
		if got := domain.Message(err, ""); got != message {
			t.Fatalf("message=%q want %q", got, message)
		}
	}
}
