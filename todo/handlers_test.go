package todo

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/user/listkeeper/auth"
	"github.com/user/listkeeper/config"
	"github.com/user/listkeeper/store"
)

type todoTestServer struct {
	server *httptest.Server
	token  string
}

func newTodoTestServer(t *testing.T) *todoTestServer {
	t.Helper()
	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	authCfg := &config.AuthConfig{JWTSecret: "test-secret", TokenDuration: time.Hour}
	handlers := NewHandlers(NewService(NewRepository(st)))

	r := chi.NewRouter()
	r.Route("/api/todos", func(r chi.Router) {
		r.Use(auth.JWTMiddleware(authCfg))
		handlers.RegisterRoutes(r)
	})
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	token, err := auth.IssueToken(authCfg, "alice")
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}
	return &todoTestServer{server: server, token: token}
}

// do sends an authenticated JSON request and decodes the response body into
// out when it is non-nil.
func (ts *todoTestServer) do(t *testing.T, method, path string, body interface{}, out interface{}) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, ts.server.URL+path, &reqBody)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := ts.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decoding %s %s response: %v", method, path, err)
		}
	}
	return resp
}

func TestTodoLifecycleOverHTTP(t *testing.T) {
	ts := newTodoTestServer(t)

	// Create.
	var created Todo
	resp := ts.do(t, http.MethodPost, "/api/todos", map[string]string{"text": "buy milk"}, &created)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}
	if created.Priority != PriorityMedium || created.Completed {
		t.Errorf("created = %+v, want medium priority and not completed", created)
	}

	// Complete it through the toggle path.
	var completed Todo
	resp = ts.do(t, http.MethodPut, fmt.Sprintf("/api/todos/%d", created.ID), map[string]bool{"completed": true}, &completed)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200", resp.StatusCode)
	}
	if completed.CompletedAt == nil {
		t.Error("completedAt is null after completing")
	}

	// Delete, then confirm the list no longer contains it.
	resp = ts.do(t, http.MethodDelete, fmt.Sprintf("/api/todos/%d", created.ID), nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE status = %d, want 204", resp.StatusCode)
	}
	var list []Todo
	resp = ts.do(t, http.MethodGet, "/api/todos", nil, &list)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", resp.StatusCode)
	}
	if len(list) != 0 {
		t.Errorf("list = %v after delete, want empty", list)
	}
}

func TestTodoEndpointsRequireAuth(t *testing.T) {
	ts := newTodoTestServer(t)

	resp, err := http.Get(ts.server.URL + "/api/todos")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status without token = %d, want 401", resp.StatusCode)
	}
	var errBody struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&errBody); err != nil || errBody.Error == "" {
		t.Errorf("error body = %+v (decode err %v), want {error: ...}", errBody, err)
	}
}

func TestTodoHandlersRejectBadInput(t *testing.T) {
	ts := newTodoTestServer(t)

	var created Todo
	ts.do(t, http.MethodPost, "/api/todos", map[string]string{"text": "task"}, &created)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"create empty text", http.MethodPost, "/api/todos", map[string]string{"text": "  "}, http.StatusBadRequest},
		{"create bad priority", http.MethodPost, "/api/todos", map[string]string{"text": "x", "priority": "urgent"}, http.StatusBadRequest},
		{"create bad due date", http.MethodPost, "/api/todos", map[string]string{"text": "x", "dueDate": "someday"}, http.StatusBadRequest},
		{"update non-integer id", http.MethodPut, "/api/todos/abc", map[string]bool{"completed": true}, http.StatusBadRequest},
		{"update unknown id", http.MethodPut, "/api/todos/999", map[string]bool{"completed": true}, http.StatusNotFound},
		{"delete non-integer id", http.MethodDelete, "/api/todos/abc", nil, http.StatusBadRequest},
		{"delete unknown id", http.MethodDelete, "/api/todos/999", nil, http.StatusNotFound},
		{"reorder foreign id", http.MethodPatch, "/api/todos/reorder", map[string][]int64{"ids": {999}}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := ts.do(t, tt.method, tt.path, tt.body, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
		})
	}

	// None of the rejected requests may have touched the list.
	var list []Todo
	ts.do(t, http.MethodGet, "/api/todos", nil, &list)
	if len(list) != 1 || list[0].ID != created.ID {
		t.Errorf("list = %v after rejected requests, want just the original todo", list)
	}
}

func TestReorderOverHTTP(t *testing.T) {
	ts := newTodoTestServer(t)

	var a, b Todo
	ts.do(t, http.MethodPost, "/api/todos", map[string]string{"text": "a"}, &a)
	ts.do(t, http.MethodPost, "/api/todos", map[string]string{"text": "b"}, &b)

	var reordered []Todo
	resp := ts.do(t, http.MethodPatch, "/api/todos/reorder", map[string][]int64{"ids": {b.ID, a.ID}}, &reordered)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("PATCH status = %d, want 200", resp.StatusCode)
	}
	if len(reordered) != 2 || reordered[0].ID != b.ID || reordered[1].ID != a.ID {
		t.Errorf("reordered = %v, want [b a]", reordered)
	}
}
