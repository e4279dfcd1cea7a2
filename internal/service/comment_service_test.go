package service

import (
	"context"
	"testing"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

func TestCommentLifecycle(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	if _, err := ts.issues.Create(ctx, alice, p.ID, "crash", ""); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	c, err := ts.comments.Create(ctx, bob, p.ID, 1, "me too")
	if err != nil {
		t.Fatalf("create comment: %v", err)
	}
	if c.Owner.Username != "bob" {
		t.Fatalf("unexpected owner %+v", c.Owner)
	}

	issue, _ := ts.issues.Get(ctx, p.ID, 1)
	if issue.CommentCount != 1 {
		t.Fatalf("comment count=%d want 1", issue.CommentCount)
	}

	err = ts.comments.Update(ctx, alice, p.ID, 1, c.ID, strPtr("edited by alice"))
	expectKind(t, err, domain.ErrForbidden, "Only the creator of a Comment can modify it.")

	_, err = ts.comments.Delete(ctx, alice, p.ID, 1, c.ID)
	expectKind(t, err, domain.ErrForbidden, "Only the creator of a Comment can remove it.")

	if err := ts.comments.Update(ctx, bob, p.ID, 1, c.ID, strPtr("me too, on linux")); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := ts.comments.Get(ctx, p.ID, 1, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Body != "me too, on linux" {
		t.Fatalf("body=%q", got.Body)
	}

	if _, err := ts.comments.Delete(ctx, bob, p.ID, 1, c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = ts.comments.Get(ctx, p.ID, 1, c.ID)
	expectKind(t, err, domain.ErrNotFound, "Comment doesn't exist.")
}

func TestCommentValidationAndScope(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	ts.issues.Create(ctx, alice, p.ID, "one", "")
	ts.issues.Create(ctx, alice, p.ID, "two", "")

	_, err := ts.comments.Create(ctx, alice, p.ID, 1, "")
	expectKind(t, err, domain.ErrInvalidInput, "Body is required.")

	_, err = ts.comments.Create(ctx, alice, p.ID, 7, "x")
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")

	c, err := ts.comments.Create(ctx, alice, p.ID, 1, "on issue one")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// addressed through the wrong issue
	_, err = ts.comments.Get(ctx, p.ID, 2, c.ID)
	expectKind(t, err, domain.ErrNotFound, "")

	list, err := ts.comments.List(ctx, p.ID, 2)
	if err != nil || len(list) != 0 {
		t.Fatalf("list=%v err=%v", list, err)
	}

	if _, err := ts.issues.Delete(ctx, alice, p.ID, 2); err != nil {
		t.Fatalf("delete issue: %v", err)
	}
	_, err = ts.comments.Create(ctx, alice, p.ID, 2, "too late")
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")
}

func TestProjectDeleteCascades(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	ts.issues.Create(ctx, alice, p.ID, "one", "")
	c, _ := ts.comments.Create(ctx, alice, p.ID, 1, "hi")

	if _, err := ts.projects.Delete(ctx, alice, p.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	ok, err := ts.store.Comments().Exists(ctx, c.ID)
	if err != nil || ok {
		t.Fatalf("comment survived project delete: ok=%v err=%v", ok, err)
	}
}

func TestCommentUpdateMissingTarget(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	ts.issues.Create(ctx, alice, p.ID, "one", "")

	err := ts.comments.Update(ctx, alice, p.ID, 1, 99, strPtr("x"))
	expectKind(t, err, domain.ErrMissingTarget, "Comment not found.")

	// the parent issue missing is still not found
	err = ts.comments.Update(ctx, alice, p.ID, 2, 99, strPtr("x"))
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")

	_, err = ts.comments.Delete(ctx, alice, p.ID, 1, 99)
	expectKind(t, err, domain.ErrNotFound, "Comment not found.")
}
