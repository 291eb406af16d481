// Package client is a Go client for the viewer API: typed endpoint calls,
// an invalidation-driven cache, and a WebSocket sync loop that keeps the
// cache consistent with the server.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"

	"github.com/anombyte93/TaskMasterWebViewer/internal/domain"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/issue"
	"github.com/anombyte93/TaskMasterWebViewer/internal/domain/task"
)

// Client is a typed HTTP client for the viewer API.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a client for the given base URL (e.g. http://localhost:5000).
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// BaseURL returns the configured server base URL.
func (c *Client) BaseURL() string { return c.baseURL }

type apiError struct {
	status  int
	Message string   `json:"message"`
	Fields  []string `json:"fields"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.status, e.Message)
}

func (e *apiError) Unwrap() error {
	switch e.status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusBadRequest:
		return domain.ErrValidation
	default:
		return domain.ErrStorage
	}
}

// do performs one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode >= 400 {
		apiErr := &apiError{status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		_ = json.Unmarshal(data, apiErr)
		return apiErr
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

// Tasks fetches the full task list.
func (c *Client) Tasks(ctx context.Context) ([]task.Task, error) {
	var resp struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// QueryTasks fetches tasks narrowed server-side by search query and filters.
func (c *Client) QueryTasks(ctx context.Context, q string, statuses, priorities []string) ([]task.Task, error) {
	params := url.Values{}
	if q != "" {
		params.Set("q", q)
	}
	if len(statuses) > 0 {
		params.Set("status", strings.Join(statuses, ","))
	}
	if len(priorities) > 0 {
		params.Set("priority", strings.Join(priorities, ","))
	}
	path := "/api/tasks"
	if enc := params.Encode(); enc != "" {
		path += "?" + enc
	}

	var resp struct {
		Tasks []task.Task `json:"tasks"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CurrentTask fetches the task to work on next.
func (c *Client) CurrentTask(ctx context.Context) (*task.Task, error) {
	var resp struct {
		Task task.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/current", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// Task fetches a single task by id, including nested subtasks.
func (c *Client) Task(ctx context.Context, id string) (*task.Task, error) {
	var resp struct {
		Task task.Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Task, nil
}

// Issues fetches all issues, optionally narrowed to one related task.
func (c *Client) Issues(ctx context.Context, taskID string) ([]issue.Issue, error) {
	path := "/api/issues"
	if taskID != "" {
		path += "?taskId=" + url.QueryEscape(taskID)
	}
	var resp struct {
		Issues []issue.Issue `json:"issues"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Issues, nil
}

// Issue fetches a single issue by id.
func (c *Client) Issue(ctx context.Context, id string) (*issue.Issue, error) {
	var resp struct {
		Issue issue.Issue `json:"issue"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/issues/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

// CreateIssue creates an issue and returns the stored entity.
func (c *Client) CreateIssue(ctx context.Context, req issue.CreateRequest) (*issue.Issue, error) {
	var resp struct {
		Issue issue.Issue `json:"issue"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/issues", req, &resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

// UpdateIssue applies a partial update and returns the stored entity.
func (c *Client) UpdateIssue(ctx context.Context, id string, req issue.UpdateRequest) (*issue.Issue, error) {
	var resp struct {
		Issue issue.Issue `json:"issue"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/issues/"+url.PathEscape(id), req, &resp); err != nil {
		return nil, err
	}
	return &resp.Issue, nil
}

// DeleteIssue removes an issue.
func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/issues/"+url.PathEscape(id), nil, nil)
}
