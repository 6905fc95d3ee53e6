package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/user/listkeeper/auth"
	"github.com/user/listkeeper/todo"
)

// requestTimeout bounds every API call in addition to the caller's context.
const requestTimeout = 10 * time.Second

// APIError is a request the server rejected: the HTTP status plus the
// message from the standard {"error": ...} body.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Client calls the REST API. The session store supplies the bearer token;
// requests without an active session go out unauthenticated and fail with
// 401 on protected endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	session *SessionStore
}

// New creates an API client for the server at baseURL.
func New(baseURL string, session *SessionStore) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
		session: session,
	}
}

// Register creates an account and activates the returned session.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/auth/register", username, password)
}

// Login verifies credentials and activates the returned session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.authenticate(ctx, "/api/auth/login", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) error {
	var session auth.SessionResponse
	err := c.do(ctx, http.MethodPost, path, map[string]string{
		"username": username,
		"password": password,
	}, &session)
	if err != nil {
		return err
	}
	return c.session.Set(Session{Token: session.Token, Username: session.Username})
}

// Logout tells the server goodbye and drops the local session. The server
// call is a stateless no-op, so a failure there still clears locally.
func (c *Client) Logout(ctx context.Context) error {
	_ = c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	return c.session.Clear()
}

// ListTodos fetches the full list in server order.
func (c *Client) ListTodos(ctx context.Context) ([]todo.Todo, error) {
	var todos []todo.Todo
	if err := c.do(ctx, http.MethodGet, "/api/todos", nil, &todos); err != nil {
		return nil, err
	}
	return todos, nil
}

// CreateTodo creates a todo and returns the server's record.
func (c *Client) CreateTodo(ctx context.Context, req todo.CreateTodoRequest) (*todo.Todo, error) {
	var created todo.Todo
	if err := c.do(ctx, http.MethodPost, "/api/todos", req, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UpdateTodo applies a partial update. The patch carries only the fields to
// change; a nil value clears a nullable field.
func (c *Client) UpdateTodo(ctx context.Context, id int64, patch map[string]interface{}) (*todo.Todo, error) {
	var updated todo.Todo
	path := fmt.Sprintf("/api/todos/%d", id)
	if err := c.do(ctx, http.MethodPut, path, patch, &updated); err != nil {
		return nil, err
	}
	return &updated, nil
}

// ReorderTodos persists a new id order and returns the reordered list.
func (c *Client) ReorderTodos(ctx context.Context, ids []int64) ([]todo.Todo, error) {
	var todos []todo.Todo
	err := c.do(ctx, http.MethodPatch, "/api/todos/reorder", todo.ReorderRequest{IDs: ids}, &todos)
	if err != nil {
		return nil, err
	}
	return todos, nil
}

// DeleteTodo removes a todo.
func (c *Client) DeleteTodo(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/todos/%d", id), nil, nil)
}

// do sends one JSON request and decodes the response. Error statuses are
// returned as *APIError with the server's message.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token, ok := c.session.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: "request failed"}
		var errBody struct {
			Error string `json:"error"`
		}
		if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
		}
		return apiErr
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decoding %s %s response: %w", method, path, err)
		}
	}
	return nil
}
