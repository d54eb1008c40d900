package inflowsdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is a minimal inflow HTTP API client.
type Client struct {
	BaseURL    string
	BasePath   string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:  baseURL,
		BasePath: "/v0",
		Timeout:  10 * time.Second,
	}
}

// User represents a workflow participant.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Department string `json:"department,omitempty"`
	Role       string `json:"role,omitempty"`
}

// Task represents the API task model (partial).
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  string     `json:"assigneeId"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   string     `json:"createdAt"`
	UpdatedAt   string     `json:"updatedAt"`
	DueDate     *string    `json:"dueDate,omitempty"`
	Documents   []Document `json:"documents"`
	Comments    []Comment  `json:"comments"`
}

// Comment on a task.
type Comment struct {
	ID        string   `json:"id"`
	TaskID    string   `json:"taskId"`
	AuthorID  string   `json:"authorId"`
	Content   string   `json:"content"`
	Mentions  []string `json:"mentions"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// Document attached to a task.
type Document struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Type       string `json:"type"`
	Size       int64  `json:"size"`
	Category   string `json:"category,omitempty"`
	TaskID     string `json:"taskId,omitempty"`
	UploadedBy string `json:"uploadedBy"`
	URL        string `json:"url"`
	Version    int    `json:"version"`
}

// Analytics summarizes task progress.
type Analytics struct {
	TotalTasks        int `json:"totalTasks"`
	CompletedTasks    int `json:"completedTasks"`
	PendingTasks      int `json:"pendingTasks"`
	OverdueTasksCount int `json:"overdueTasksCount"`
	CompletionRate    int `json:"completionRate"`
}

// Event represents a change log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	Namespace  string         `json:"namespace"`
	EntityKind string         `json:"entityKind"`
	EntityID   string         `json:"entityId"`
	ActorID    string         `json:"actorId"`
	Payload    map[string]any `json:"payload"`
}

// NewTask lists the fields accepted when creating a task. Empty fields take
// server defaults.
type NewTask struct {
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Type        string  `json:"type,omitempty"`
	Priority    string  `json:"priority,omitempty"`
	AssigneeID  string  `json:"assigneeId,omitempty"`
	DueDate     *string `json:"dueDate,omitempty"`
}

// TaskQuery filters ListTasks. Empty fields match everything.
type TaskQuery struct {
	Statuses   []string
	Priorities []string
	AssigneeID string
	CreatedBy  string
	Search     string
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// Users lists every user.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	var resp struct {
		Items []User `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "users", nil, &resp)
	return resp.Items, err
}

// Persona returns the active persona, or nil when none is set.
func (c *Client) Persona(ctx context.Context) (*User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "persona", nil, &resp)
	return resp.User, err
}

// SetPersona switches the active persona.
func (c *Client) SetPersona(ctx context.Context, userID string) (User, error) {
	var resp struct {
		User *User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "persona", map[string]any{"userId": userID}, &resp); err != nil {
		return User{}, err
	}
	if resp.User == nil {
		return User{}, fmt.Errorf("persona %s not applied", userID)
	}
	return *resp.User, nil
}

// Reset restores the seed data.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "reset", nil, nil)
}

// CreateTask creates a task.
func (c *Client) CreateTask(ctx context.Context, in NewTask) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodPost, "tasks", in, &resp)
	return resp, err
}

// Task fetches a task by id.
func (c *Client) Task(ctx context.Context, id string) (Task, error) {
	var resp Task
	err := c.do(ctx, http.MethodGet, "tasks/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// ListTasks returns the tasks matching q.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) ([]Task, error) {
	params := url.Values{}
	if len(q.Statuses) > 0 {
		params.Set("status", strings.Join(q.Statuses, ","))
	}
	if len(q.Priorities) > 0 {
		params.Set("priority", strings.Join(q.Priorities, ","))
	}
	if q.AssigneeID != "" {
		params.Set("assigneeId", q.AssigneeID)
	}
	if q.CreatedBy != "" {
		params.Set("createdBy", q.CreatedBy)
	}
	if q.Search != "" {
		params.Set("q", q.Search)
	}
	endpoint := "tasks"
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	var resp struct {
		Items []Task `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// InTray lists tasks assigned to userID.
func (c *Client) InTray(ctx context.Context, userID string) ([]Task, error) {
	return c.tray(ctx, userID, "in-tray")
}

// OutTray lists tasks created by userID.
func (c *Client) OutTray(ctx context.Context, userID string) ([]Task, error) {
	return c.tray(ctx, userID, "out-tray")
}

func (c *Client) tray(ctx context.Context, userID, name string) ([]Task, error) {
	var resp struct {
		Items []Task `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("users/%s/%s", url.PathEscape(userID), name), nil, &resp)
	return resp.Items, err
}

// SetTaskStatus moves a task to status.
func (c *Client) SetTaskStatus(ctx context.Context, taskID, status string) (Task, error) {
	var resp Task
	endpoint := fmt.Sprintf("tasks/%s/status", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPut, endpoint, map[string]any{"status": status}, &resp)
	return resp, err
}

// DeleteTask removes a task with its comments and documents.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return c.do(ctx, http.MethodDelete, "tasks/"+url.PathEscape(taskID), nil, nil)
}

// AddComment comments on a task as the active persona.
func (c *Client) AddComment(ctx context.Context, taskID, content string, mentions []string) (Comment, error) {
	body := map[string]any{"content": content}
	if len(mentions) > 0 {
		body["mentions"] = mentions
	}
	var resp Comment
	endpoint := fmt.Sprintf("tasks/%s/comments", url.PathEscape(taskID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// AddDocumentVersion uploads a new version of a document.
func (c *Client) AddDocumentVersion(ctx context.Context, documentID, fileURL, changes string) (Document, error) {
	body := map[string]any{"url": fileURL}
	if changes != "" {
		body["changes"] = changes
	}
	var resp Document
	endpoint := fmt.Sprintf("documents/%s/versions", url.PathEscape(documentID))
	err := c.do(ctx, http.MethodPost, endpoint, body, &resp)
	return resp, err
}

// Analytics returns task analytics, scoped to userID when it is not empty.
func (c *Client) Analytics(ctx context.Context, userID string) (Analytics, error) {
	endpoint := "analytics"
	if userID != "" {
		endpoint += "?userId=" + url.QueryEscape(userID)
	}
	var resp Analytics
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp, err
}

// Events returns recent events, newest first.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
