package service

import (
	"context"
	"testing"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

// laggingIssues reports one issue fewer than exist, as a creator that read
// the count just before a concurrent insert would.
type laggingIssues struct {
	domain.IssueRepository
}

func (r laggingIssues) CountAll(ctx context.Context, projectID int64) (int, error) {
	n, err := r.IssueRepository.CountAll(ctx, projectID)
	if n > 0 {
		n--
	}
	return n, err
}

func TestIssueNumberingSkipsDeleted(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, err := ts.projects.Create(ctx, alice, "P", "")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}

	for want := 1; want <= 3; want++ {
		issue, err := ts.issues.Create(ctx, alice, p.ID, "issue", "")
		if err != nil {
			t.Fatalf("create issue: %v", err)
		}
		if issue.Number != want {
			t.Fatalf("number=%d want %d", issue.Number, want)
		}
		if issue.Status != "open" {
			t.Fatalf("status=%q want open", issue.Status)
		}
	}

	if _, err := ts.issues.Delete(ctx, alice, p.ID, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}

	next, err := ts.issues.Create(ctx, alice, p.ID, "after delete", "")
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if next.Number != 4 {
		t.Fatalf("number after delete=%d want 4", next.Number)
	}

	list, err := ts.issues.List(ctx, p.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var numbers []int
	for _, i := range list {
		numbers = append(numbers, i.Number)
	}
	if len(numbers) != 3 || numbers[0] != 1 || numbers[1] != 3 || numbers[2] != 4 {
		t.Fatalf("active numbers=%v want [1 3 4]", numbers)
	}
}

func TestIssueSoftDeleteHidesEverywhere(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	if _, err := ts.issues.Create(ctx, alice, p.ID, "doomed", ""); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	deleted, err := ts.issues.Delete(ctx, alice, p.ID, 1)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.Number != 1 || deleted.Title != "doomed" {
		t.Fatalf("delete returned %+v", deleted)
	}

	_, err = ts.issues.Get(ctx, p.ID, 1)
	expectKind(t, err, domain.ErrNotFound, "Issue doesn't exist.")

	_, err = ts.issues.Delete(ctx, alice, p.ID, 1)
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")

	err = ts.issues.Update(ctx, alice, p.ID, 1, IssuePatch{Title: strPtr("back")})
	expectKind(t, err, domain.ErrNotFound, "")

	_, err = ts.comments.Create(ctx, alice, p.ID, 1, "hello?")
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")

	project, err := ts.projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if project.IssueCount != 0 {
		t.Fatalf("issue count=%d want 0", project.IssueCount)
	}
}

func TestIssueRequiresProject(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")

	_, err := ts.issues.List(ctx, 99)
	expectKind(t, err, domain.ErrNotFound, "Project not found.")

	_, err = ts.issues.Create(ctx, alice, 99, "t", "")
	expectKind(t, err, domain.ErrNotFound, "Project not found.")
}

func TestIssueUpdatePatch(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")
	p, _ := ts.projects.Create(ctx, alice, "P", "")
	if _, err := ts.issues.Create(ctx, alice, p.ID, "crash", "on start"); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	if err := ts.issues.Update(ctx, alice, p.ID, 1, IssuePatch{Status: strPtr("closed")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := ts.issues.Get(ctx, p.ID, 1)
	if got.Status != "closed" || got.Title != "crash" || got.Body != "on start" {
		t.Fatalf("unexpected issue %+v", got)
	}

	err := ts.issues.Update(ctx, bob, p.ID, 1, IssuePatch{Status: strPtr("open")})
	expectKind(t, err, domain.ErrForbidden, "Only the creator of an Issue can modify it.")

	_, err = ts.issues.Delete(ctx, bob, p.ID, 1)
	expectKind(t, err, domain.ErrForbidden, "Only the creator of an Issue can delete it.")

	got, _ = ts.issues.Get(ctx, p.ID, 1)
	if got.Status != "closed" {
		t.Fatalf("issue mutated by non-owner: %+v", got)
	}
}

func TestIssueNumberCollisionIsConflict(t *testing.T) {
	store := newTestServices(t).store
	ts := newTestServicesWith(store, store.Projects(), laggingIssues{store.Issues()}, store.Comments())
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")

	if _, err := ts.issues.Create(ctx, alice, p.ID, "first", ""); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := ts.issues.Create(ctx, alice, p.ID, "second", "")
	expectKind(t, err, domain.ErrConflict, "")
}

func TestIssueUpdateMissingTarget(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	p, _ := ts.projects.Create(ctx, alice, "P", "")

	err := ts.issues.Update(ctx, alice, p.ID, 7, IssuePatch{Title: strPtr("x")})
	expectKind(t, err, domain.ErrMissingTarget, "Issue doesn't exist.")

	// a missing project is still not found
	err = ts.issues.Update(ctx, alice, p.ID+1, 1, IssuePatch{Title: strPtr("x")})
	expectKind(t, err, domain.ErrNotFound, "Project not found.")

	_, err = ts.issues.Delete(ctx, alice, p.ID, 7)
	expectKind(t, err, domain.ErrNotFound, "Issue not found.")
}
