package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/listkeeper/background"
	"github.com/user/listkeeper/config"
	"github.com/user/listkeeper/store"
	"github.com/user/listkeeper/todo"
)

type sessionBody struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

type errorBody struct {
	Error string `json:"error"`
}

func newTestApp(t *testing.T) *httptest.Server {
	t.Helper()

	st, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	runner := background.NewRunner(4)
	t.Cleanup(runner.Stop)

	cfg := &config.AppConfig{
		Auth:      &config.AuthConfig{JWTSecret: "app-test-secret", TokenDuration: time.Hour},
		Server:    &config.ServerConfig{Port: "0", AllowedOrigins: []string{"*"}},
		Store:     &config.StoreConfig{Backend: config.BackendFile},
		RateLimit: &config.RateLimitConfig{Attempts: 10, Window: time.Minute},
	}

	srv := httptest.NewServer(newRouter(cfg, st, runner))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, token string, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding request body: %v", err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return v
}

func register(t *testing.T, baseURL, username, password string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/auth/register", "", map[string]string{
		"username": username,
		"password": password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	session := decodeBody[sessionBody](t, resp)
	if session.Token == "" {
		t.Fatal("register returned no token")
	}
	return session.Token
}

func TestLifecycleScenario(t *testing.T) {
	srv := newTestApp(t)
	token := register(t, srv.URL, "alice", "secret1")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/todos", token, map[string]interface{}{"text": "buy milk"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, want %d", resp.StatusCode, http.StatusCreated)
	}
	created := decodeBody[todo.Todo](t, resp)
	if created.Priority != todo.PriorityMedium || created.Completed || created.CompletedAt != nil {
		t.Fatalf("created = %+v, want an incomplete medium-priority todo", created)
	}

	itemURL := fmt.Sprintf("%s/api/todos/%d", srv.URL, created.ID)
	resp = doJSON(t, http.MethodPut, itemURL, token, map[string]interface{}{"completed": true})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	completed := decodeBody[todo.Todo](t, resp)
	if !completed.Completed || completed.CompletedAt == nil {
		t.Fatalf("after completing: %+v, want completed with a timestamp", completed)
	}

	resp = doJSON(t, http.MethodDelete, itemURL, token, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d, want %d", resp.StatusCode, http.StatusNoContent)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/todos", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	todos := decodeBody[[]todo.Todo](t, resp)
	if len(todos) != 0 {
		t.Fatalf("list after delete = %+v, want empty", todos)
	}
}

func TestLoginRateLimit(t *testing.T) {
	srv := newTestApp(t)
	register(t, srv.URL, "alice", "secret1")

	badLogin := map[string]string{"username": "alice", "password": "wrong-password"}
	for attempt := 1; attempt <= 10; attempt++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", badLogin)
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("attempt %d status = %d, want %d", attempt, resp.StatusCode, http.StatusUnauthorized)
		}
	}

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/auth/login", "", badLogin)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("11th attempt status = %d, want %d", resp.StatusCode, http.StatusTooManyRequests)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Error == "" {
		t.Error("429 response carries no error message")
	}
}

func TestReorderWithForeignIDLeavesOrder(t *testing.T) {
	srv := newTestApp(t)
	token := register(t, srv.URL, "alice", "secret1")

	first := decodeBody[todo.Todo](t, doJSON(t, http.MethodPost, srv.URL+"/api/todos", token, map[string]interface{}{"text": "first"}))
	second := decodeBody[todo.Todo](t, doJSON(t, http.MethodPost, srv.URL+"/api/todos", token, map[string]interface{}{"text": "second"}))

	resp := doJSON(t, http.MethodPatch, srv.URL+"/api/todos/reorder", token, map[string]interface{}{
		"ids": []int64{second.ID, 999},
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reorder status = %d, want %d", resp.StatusCode, http.StatusBadRequest)
	}

	todos := decodeBody[[]todo.Todo](t, doJSON(t, http.MethodGet, srv.URL+"/api/todos", token, nil))
	if len(todos) != 2 || todos[0].ID != first.ID || todos[1].ID != second.ID {
		t.Errorf("stored order changed after rejected reorder: %+v", todos)
	}
}

func TestTodosRequireAuth(t *testing.T) {
	srv := newTestApp(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/todos", "", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusUnauthorized)
	}
	body := decodeBody[errorBody](t, resp)
	if body.Error == "" {
		t.Error("401 response carries no error message")
	}
}

func TestCORSPreflight(t *testing.T) {
	srv := newTestApp(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/todos", nil)
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got == "" {
		t.Error("preflight response has no Access-Control-Allow-Origin header")
	}
}

func TestSwaggerSpecServed(t *testing.T) {
	srv := newTestApp(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/swagger/doc.json", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("doc.json status = %d, want %d", resp.StatusCode, http.StatusOK)
	}
	spec := decodeBody[map[string]interface{}](t, resp)
	if spec["basePath"] != "/api" {
		t.Errorf("basePath = %v, want /api", spec["basePath"])
	}
	if _, ok := spec["paths"].(map[string]interface{})["/todos"]; !ok {
		t.Error("spec does not document /todos")
	}
}
