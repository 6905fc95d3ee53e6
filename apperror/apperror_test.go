package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		want int
	}{
		{"auth", NewAuthError("invalid credentials", nil), http.StatusUnauthorized},
		{"not found", NewNotFoundError("no such todo", nil), http.StatusNotFound},
		{"validation", NewValidationError("text must not be empty", nil), http.StatusBadRequest},
		{"bad request", NewBadRequestError("invalid JSON body", nil), http.StatusBadRequest},
		{"rate limited", NewRateLimitedError("too many attempts", nil), http.StatusTooManyRequests},
		{"conflict", NewConflictError("username already taken", nil), http.StatusConflict},
		{"database", NewDatabaseError("read failed", nil), http.StatusInternalServerError},
		{"config", NewConfigError("missing JWT_SECRET", nil), http.StatusInternalServerError},
		{"internal", NewInternalError("unexpected", nil), http.StatusInternalServerError},
		{"migration", NewMigrationError("schema upgrade failed", nil), http.StatusInternalServerError},
		{"unknown", New(UnknownError, "mystery", nil), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.StatusCode(); got != tt.want {
				t.Errorf("StatusCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestErrorMessage(t *testing.T) {
	plain := NewValidationError("priority must be one of low, medium, high", nil)
	if got := plain.Error(); got != "priority must be one of low, medium, high" {
		t.Errorf("Error() = %q", got)
	}

	cause := errors.New("disk full")
	wrapped := NewDatabaseError("failed to persist todos", cause)
	if got := wrapped.Error(); got != "failed to persist todos: disk full" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should match its cause via errors.Is")
	}
}

func TestToResponseHidesCause(t *testing.T) {
	err := NewDatabaseError("failed to persist todos", errors.New("dial tcp: connection refused"))
	resp := err.ToResponse()
	if resp.Error != "failed to persist todos" {
		t.Errorf("ToResponse().Error = %q, want the public message only", resp.Error)
	}
}

func TestFromError(t *testing.T) {
	orig := NewNotFoundError("no such todo", nil)
	wrapped := fmt.Errorf("handling request: %w", orig)

	got, ok := FromError(wrapped)
	if !ok {
		t.Fatal("FromError() did not find the AppError in the chain")
	}
	if got != orig {
		t.Errorf("FromError() = %v, want the original AppError", got)
	}

	if _, ok := FromError(errors.New("plain")); ok {
		t.Error("FromError() reported an AppError for a plain error")
	}
}

func TestTypePredicates(t *testing.T) {
	tests := []struct {
		name string
		pred func(error) bool
		err  error
		want bool
	}{
		{"not found matches", IsNotFound, NewNotFoundError("gone", nil), true},
		{"not found wrapped", IsNotFound, fmt.Errorf("ctx: %w", NewNotFoundError("gone", nil)), true},
		{"not found mismatch", IsNotFound, NewAuthError("nope", nil), false},
		{"auth matches", IsAuthError, NewAuthError("nope", nil), true},
		{"validation matches", IsValidationError, NewValidationError("bad", nil), true},
		{"conflict matches", IsConflictError, NewConflictError("dup", nil), true},
		{"rate limited matches", IsRateLimited, NewRateLimitedError("slow down", nil), true},
		{"plain error", IsNotFound, errors.New("plain"), false},
		{"nil error", IsAuthError, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pred(tt.err); got != tt.want {
				t.Errorf("predicate = %v, want %v", got, tt.want)
			}
		})
	}
}
