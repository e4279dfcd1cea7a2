package service

import (
	"context"
	"errors"
	"testing"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

// staleProjects makes every version check fail, as if another writer always
// committed first. With vanish set the row is removed before reporting.
type staleProjects struct {
	domain.ProjectRepository
	vanish bool
}

func (r *staleProjects) Update(ctx context.Context, p *domain.Project) (bool, error) {
	if r.vanish {
		if err := r.ProjectRepository.Delete(ctx, p.ID); err != nil {
			return false, err
		}
	}
	return false, nil
}

func TestProjectLifecycle(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")

	p, err := ts.projects.Create(ctx, alice, "BugTracker", "tracks bugs")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID <= 0 || p.Owner.Username != "alice" {
		t.Fatalf("unexpected project %+v", p)
	}

	if err := ts.projects.Update(ctx, alice, p.ID, ProjectPatch{Title: strPtr("Renamed")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := ts.projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Renamed" || got.Description != "tracks bugs" {
		t.Fatalf("patch not applied as partial update: %+v", got)
	}

	list, err := ts.projects.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("list=%v err=%v", list, err)
	}

	deleted, err := ts.projects.Delete(ctx, alice, p.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != p.ID {
		t.Fatalf("delete returned %+v", deleted)
	}
	_, err = ts.projects.Get(ctx, p.ID)
	expectKind(t, err, domain.ErrNotFound, "Project doesn't exist.")
}

func TestProjectCreateRequiresTitle(t *testing.T) {
	ts := newTestServices(t)
	alice := ts.register(t, "alice")
	_, err := ts.projects.Create(context.Background(), alice, " ", "")
	expectKind(t, err, domain.ErrInvalidInput, "Title is required.")
}

func TestProjectNonOwnerCannotMutate(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")
	bob := ts.register(t, "bob")

	p, err := ts.projects.Create(ctx, alice, "Mine", "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	err = ts.projects.Update(ctx, bob, p.ID, ProjectPatch{Title: strPtr("Hijacked")})
	expectKind(t, err, domain.ErrForbidden, "Only the creator of a Project can modify it.")

	_, err = ts.projects.Delete(ctx, bob, p.ID)
	expectKind(t, err, domain.ErrForbidden, "Only the creator of a Project can delete it.")

	got, err := ts.projects.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Mine" {
		t.Fatalf("project mutated by non-owner: %+v", got)
	}
}

func TestProjectMissing(t *testing.T) {
	ts := newTestServices(t)
	ctx := context.Background()
	alice := ts.register(t, "alice")

	err := ts.projects.Update(ctx, alice, 42, ProjectPatch{})
	expectKind(t, err, domain.ErrMissingTarget, "Project doesn't exist.")
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("missing update target should not be a plain not-found")
	}

	_, err = ts.projects.Delete(ctx, alice, 42)
	expectKind(t, err, domain.ErrNotFound, "Project not found.")
}

func TestProjectLostRace(t *testing.T) {
	store := newTestServices(t).store
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		vanish bool
		kind   error
	}{
		{"row still exists", false, domain.ErrConflict},
		{"row vanished", true, domain.ErrNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServicesWith(store, &staleProjects{ProjectRepository: store.Projects(), vanish: tc.vanish}, store.Issues(), store.Comments())
			alice := ts.register(t, "alice-"+tc.name)
			p, err := ts.projects.Create(ctx, alice, "Race", "")
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			err = ts.projects.Update(ctx, alice, p.ID, ProjectPatch{Title: strPtr("Mine")})
			expectKind(t, err, tc.kind, "")
		})
	}
}
