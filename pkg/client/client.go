// Package client is a typed HTTP client for the BugTracker API.
//
// Construct one Client at start-up and pass it to whatever needs it:
//
//	c := client.New("http://localhost:8080")
//	if _, err := c.Login(ctx, "alice", "pw"); err != nil { ... }
//	projects, err := c.ListProjects(ctx)
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// APIError is a non-2xx response decoded from the API's error body
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("bugtracker: %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("bugtracker: %d: %s", e.StatusCode, e.Message)
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type Project struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Issues      int       `json:"issues"`
	User        User      `json:"user"`
}

type Issue struct {
	ID        int64     `json:"id"`
	Number    int       `json:"number"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	Comments  int       `json:"comments"`
	User      User      `json:"user"`
}

type Comment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	User      User      `json:"user"`
}

// ProjectUpdate and IssueUpdate send only the non-nil fields
type ProjectUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

type IssueUpdate struct {
	Title  *string `json:"title,omitempty"`
	Body   *string `json:"body,omitempty"`
	Status *string `json:"status,omitempty"`
}

// Client talks to one API server. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithToken starts the client with a previously issued bearer token
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the server at baseURL, e.g. http://localhost:8080
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token sent with requests, if any
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

func (c *Client) Register(ctx context.Context, username, password string) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{username, password}, &out)
	return out.ID, err
}

// Login authenticates and keeps the returned token for later calls
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{username, password}, &out); err != nil {
		return "", err
	}
	c.SetToken(out.Token)
	return out.Token, nil
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var out []Project
	err := c.do(ctx, http.MethodGet, "/api/projects", nil, &out)
	return out, err
}

func (c *Client) GetProject(ctx context.Context, id int64) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodGet, projectPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, title, description string) (*Project, error) {
	var out Project
	in := map[string]string{"title": title, "description": description}
	if err := c.do(ctx, http.MethodPost, "/api/projects", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProject(ctx context.Context, id int64, update ProjectUpdate) error {
	return c.do(ctx, http.MethodPut, projectPath(id), update, nil)
}

func (c *Client) DeleteProject(ctx context.Context, id int64) (*Project, error) {
	var out Project
	if err := c.do(ctx, http.MethodDelete, projectPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListIssues(ctx context.Context, projectID int64) ([]Issue, error) {
	var out []Issue
	err := c.do(ctx, http.MethodGet, projectPath(projectID)+"/issues", nil, &out)
	return out, err
}

func (c *Client) GetIssue(ctx context.Context, projectID int64, number int) (*Issue, error) {
	var out Issue
	if err := c.do(ctx, http.MethodGet, issuePath(projectID, number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateIssue(ctx context.Context, projectID int64, title, body string) (*Issue, error) {
	var out Issue
	in := map[string]string{"title": title, "body": body}
	if err := c.do(ctx, http.MethodPost, projectPath(projectID)+"/issues", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateIssue(ctx context.Context, projectID int64, number int, update IssueUpdate) error {
	return c.do(ctx, http.MethodPut, issuePath(projectID, number), update, nil)
}

func (c *Client) DeleteIssue(ctx context.Context, projectID int64, number int) (*Issue, error) {
	var out Issue
	if err := c.do(ctx, http.MethodDelete, issuePath(projectID, number), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListComments(ctx context.Context, projectID int64, number int) ([]Comment, error) {
	var out []Comment
	err := c.do(ctx, http.MethodGet, issuePath(projectID, number)+"/comments", nil, &out)
	return out, err
}

func (c *Client) GetComment(ctx context.Context, projectID int64, number int, id int64) (*Comment, error) {
	var out Comment
	if err := c.do(ctx, http.MethodGet, commentPath(projectID, number, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateComment(ctx context.Context, projectID int64, number int, body string) (*Comment, error) {
	var out Comment
	in := map[string]string{"body": body}
	if err := c.do(ctx, http.MethodPost, issuePath(projectID, number)+"/comments", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateComment(ctx context.Context, projectID int64, number int, id int64, body string) error {
	return c.do(ctx, http.MethodPut, commentPath(projectID, number, id), map[string]string{"body": body}, nil)
}

func (c *Client) DeleteComment(ctx context.Context, projectID int64, number int, id int64) (*Comment, error) {
	var out Comment
	if err := c.do(ctx, http.MethodDelete, commentPath(projectID, number, id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func projectPath(id int64) string {
	return fmt.Sprintf("/api/projects/%d", id)
}

func issuePath(projectID int64, number int) string {
	return fmt.Sprintf("/api/projects/%d/issues/%d", projectID, number)
}

func commentPath(projectID int64, number int, id int64) string {
	return fmt.Sprintf("/api/projects/%d/issues/%d/comments/%d", projectID, number, id)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
