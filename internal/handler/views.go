package handler

import (
	"time"

	"github.com/aryan0dhankhar/bugtracker/internal/domain"
)

type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type ProjectView struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Issues      int       `json:"issues"`
	User        UserView  `json:"user"`
}

type IssueView struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Comments  int       `json:"comments"`
	User      UserView  `json:"user"`
}

type CommentView struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	User      UserView  `json:"user"`
}

func userView(u domain.UserRef) UserView {
	return UserView{ID: u.ID, Username: u.Username}
}

func projectView(p *domain.Project) ProjectView {
	return ProjectView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		Issues:      p.IssueCount,
		User:        userView(p.Owner),
	}
}

func issueView(i *domain.Issue) IssueView {
	return IssueView{
		ID:        i.ID,
		Number:    i.Number,
		Title:     i.Title,
		Body:      i.Body,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
		Comments:  i.CommentCount,
		User:      userView(i.Owner),
	}
}

func commentView(c *domain.Comment) CommentView {
	return CommentView{
		ID:        c.ID,
		Body:      c.Body,
		CreatedAt: c.CreatedAt,
		User:      userView(c.Owner),
	}
}
