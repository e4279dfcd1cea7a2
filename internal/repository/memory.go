package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

// MemoryStore keeps users, projects, issues and comments in process memory.
// It honours the same contracts as the PostgreSQL repositories (case-insensitive
// usernames, cascade on project delete, unique issue numbers, version checks)
// and backs STORAGE=memory and the service and handler tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[int64]*domain.User
	projects map[int64]*domain.Project
	issues   map[int64]*domain.Issue
	comments map[int64]*domain.Comment
	nextID   map[string]int64
	now      func() time.Time
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    map[int64]*domain.User{},
		projects: map[int64]*domain.Project{},
		issues:   map[int64]*domain.Issue{},
		comments: map[int64]*domain.Comment{},
		nextID:   map[string]int64{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view of the store
func (s *MemoryStore) Users() domain.UserRepository { return memoryUsers{s} }

// Projects returns the project repository view of the store
func (s *MemoryStore) Projects() domain.ProjectRepository { return memoryProjects{s} }

// Issues returns the issue repository view of the store
func (s *MemoryStore) Issues() domain.IssueRepository { return memoryIssues{s} }

// Comments returns the comment repository view of the store
func (s *MemoryStore) Comments() domain.CommentRepository { return memoryComments{s} }

func (s *MemoryStore) id(table string) int64 {
	s.nextID[table]++
	return s.nextID[table]
}

func (s *MemoryStore) ref(userID int64) domain.UserRef {
	if u, ok := s.users[userID]; ok {
		return domain.UserRef{ID: u.ID, Username: u.Username}
	}
	return domain.UserRef{ID: userID}
}

func (s *MemoryStore) projectView(p *domain.Project) *domain.Project {
	out := *p
	out.Owner = s.ref(p.OwnerID)
	out.IssueCount = 0
	for _, i := range s.issues {
		if i.ProjectID == p.ID && !i.Deleted {
			out.IssueCount++
		}
	}
	return &out
}

func (s *MemoryStore) issueView(i *domain.Issue) *domain.Issue {
	out := *i
	out.Owner = s.ref(i.OwnerID)
	out.CommentCount = 0
	for _, c := range s.comments {
		if c.IssueID == i.ID {
			out.CommentCount++
		}
	}
	return &out
}

func (s *MemoryStore) commentView(c *domain.Comment) *domain.Comment {
	out := *c
	out.Owner = s.ref(c.OwnerID)
	return &out
}

type memoryUsers struct{ s *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, user.Username) {
			return domain.ErrConflict
		}
	}
	user.ID = r.s.id("users")
	user.CreatedAt = r.s.now()
	stored := *user
	r.s.users[user.ID] = &stored
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, username) {
			out := *u
			return &out, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memoryUsers) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	if err != nil {
		return false, nil
	}
	return true, nil
}

type memoryProjects struct{ s *MemoryStore }

func (r memoryProjects) List(_ context.Context) ([]*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*domain.Project, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		out = append(out, r.s.projectView(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r memoryProjects) GetByID(_ context.Context, id int64) (*domain.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.s.projectView(p), nil
}

func (r memoryProjects) Create(_ context.Context, project *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	project.ID = r.s.id("projects")
	project.CreatedAt = r.s.now()
	project.Version = 1
	project.Owner = r.s.ref(project.OwnerID)
	stored := *project
	r.s.projects[project.ID] = &stored
	return nil
}

func (r memoryProjects) Update(_ context.Context, project *domain.Project) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.projects[project.ID]
	if !ok || stored.Version != project.Version {
		return false, nil
	}
	stored.Title = project.Title
	stored.Description = project.Description
	stored.Version++
	project.Version = stored.Version
	return true, nil
}

func (r memoryProjects) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.projects, id)
	for issueID, i := range r.s.issues {
		if i.ProjectID != id {
			continue
		}
		for commentID, c := range r.s.comments {
			if c.IssueID == issueID {
				delete(r.s.comments, commentID)
			}
		}
		delete(r.s.issues, issueID)
	}
	return nil
}

func (r memoryProjects) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.projects[id]
	return ok, nil
}

type memoryIssues struct{ s *MemoryStore }

func (r memoryIssues) List(_ context.Context, projectID int64) ([]*domain.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Issue{}
	for _, i := range r.s.issues {
		if i.ProjectID == projectID && !i.Deleted {
			out = append(out, r.s.issueView(i))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Number < out[b].Number })
	return out, nil
}

func (r memoryIssues) GetByNumber(_ context.Context, projectID int64, number int) (*domain.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, i := range r.s.issues {
		if i.ProjectID == projectID && i.Number == number && !i.Deleted {
			return r.s.issueView(i), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r memoryIssues) CountAll(_ context.Context, projectID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, i := range r.s.issues {
		if i.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}

func (r memoryIssues) Create(_ context.Context, issue *domain.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[issue.ProjectID]; !ok {
		return domain.ErrNotFound
	}
	for _, i := range r.s.issues {
		if i.ProjectID == issue.ProjectID && i.Number == issue.Number {
			return domain.ErrConflict
		}
	}
	issue.ID = r.s.id("issues")
	issue.CreatedAt = r.s.now()
	issue.Version = 1
	issue.Deleted = false
	issue.Owner = r.s.ref(issue.OwnerID)
	stored := *issue
	r.s.issues[issue.ID] = &stored
	return nil
}

func (r memoryIssues) Update(_ context.Context, issue *domain.Issue) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.issues[issue.ID]
	if !ok || stored.Deleted || stored.Version != issue.Version {
		return false, nil
	}
	stored.Title = issue.Title
	stored.Body = issue.Body
	stored.Status = issue.Status
	stored.Version++
	issue.Version = stored.Version
	return true, nil
}

func (r memoryIssues) SoftDelete(_ context.Context, issue *domain.Issue) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.issues[issue.ID]
	if !ok || stored.Deleted || stored.Version != issue.Version {
		return false, nil
	}
	stored.Deleted = true
	stored.Version++
	issue.Deleted = true
	issue.Version = stored.Version
	return true, nil
}

func (r memoryIssues) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	i, ok := r.s.issues[id]
	return ok && !i.Deleted, nil
}

type memoryComments struct{ s *MemoryStore }

func (r memoryComments) List(_ context.Context, issueID int64) ([]*domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []*domain.Comment{}
	for _, c := range r.s.comments {
		if c.IssueID == issueID {
			out = append(out, r.s.commentView(c))
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r memoryComments) GetByID(_ context.Context, issueID, id int64) (*domain.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.comments[id]
	if !ok || c.IssueID != issueID {
		return nil, domain.ErrNotFound
	}
	return r.s.commentView(c), nil
}

func (r memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if i, ok := r.s.issues[comment.IssueID]; !ok || i.Deleted {
		return domain.ErrNotFound
	}
	comment.ID = r.s.id("comments")
	comment.CreatedAt = r.s.now()
	comment.Version = 1
	comment.Owner = r.s.ref(comment.OwnerID)
	stored := *comment
	r.s.comments[comment.ID] = &stored
	return nil
}

func (r memoryComments) Update(_ context.Context, comment *domain.Comment) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.comments[comment.ID]
	if !ok || stored.Version != comment.Version {
		return false, nil
	}
	stored.Body = comment.Body
	stored.Version++
	comment.Version = stored.Version
	return true, nil
}

func (r memoryComments) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.comments[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.comments, id)
	return nil
}

func (r memoryComments) Exists(_ context.Context, id int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.comments[id]
	return ok, nil
}
