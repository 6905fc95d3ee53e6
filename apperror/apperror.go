// Package apperror defines the application's error taxonomy and its mapping
// onto HTTP status codes. Services return *AppError values; the HTTP layer
// turns them into consistent JSON error responses without inspecting
// individual failure modes.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType classifies an application error.
type ErrorType int

const (
	// UnknownError is for unclassified errors.
	UnknownError ErrorType = iota
	// DatabaseError represents a failure in the backing store.
	DatabaseError
	// ConfigError represents invalid or missing configuration.
	ConfigError
	// AuthError represents an authentication failure (bad credentials,
	// missing/invalid/expired token).
	AuthError
	// NotFoundError represents a missing resource.
	NotFoundError
	// ValidationError represents input that fails a semantic rule.
	ValidationError
	// BadRequestError represents a malformed request (e.g. unparseable body).
	BadRequestError
	// RateLimitedError represents a caller exceeding the allowed request rate.
	RateLimitedError
	// ConflictError represents a resource that already exists.
	ConflictError
	// InternalError represents a generic server-side failure.
	InternalError
	// MigrationError represents a failure while running store migrations.
	MigrationError
)

// AppError carries an error classification, a user-facing message, and an
// optional underlying cause. Only Message is ever exposed to API clients.
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode returns the HTTP status code for the error type.
func (e *AppError) StatusCode() int {
	switch e.Type {
	case AuthError:
		return http.StatusUnauthorized
	case NotFoundError:
		return http.StatusNotFound
	case ValidationError, BadRequestError:
		return http.StatusBadRequest
	case RateLimitedError:
		return http.StatusTooManyRequests
	case ConflictError:
		return http.StatusConflict
	case DatabaseError, ConfigError, InternalError, MigrationError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// New creates an AppError with an arbitrary type. The typed constructors
// below are preferred where they apply.
func New(errType ErrorType, message string, underlying error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Err:     underlying,
	}
}

// NewDatabaseError creates a DatabaseError.
func NewDatabaseError(message string, underlying error) *AppError {
	return New(DatabaseError, message, underlying)
}

// NewConfigError creates a ConfigError.
func NewConfigError(message string, underlying error) *AppError {
	return New(ConfigError, message, underlying)
}

// NewAuthError creates an AuthError.
func NewAuthError(message string, underlying error) *AppError {
	return New(AuthError, message, underlying)
}

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(message string, underlying error) *AppError {
	return New(NotFoundError, message, underlying)
}

// NewValidationError creates a ValidationError.
func NewValidationError(message string, underlying error) *AppError {
	return New(ValidationError, message, underlying)
}

// NewBadRequestError creates a BadRequestError.
func NewBadRequestError(message string, underlying error) *AppError {
	return New(BadRequestError, message, underlying)
}

// NewRateLimitedError creates a RateLimitedError.
func NewRateLimitedError(message string, underlying error) *AppError {
	return New(RateLimitedError, message, underlying)
}

// NewConflictError creates a ConflictError.
func NewConflictError(message string, underlying error) *AppError {
	return New(ConflictError, message, underlying)
}

// NewInternalError creates an InternalError.
func NewInternalError(message string, underlying error) *AppError {
	return New(InternalError, message, underlying)
}

// NewMigrationError creates a MigrationError.
func NewMigrationError(message string, underlying error) *AppError {
	return New(MigrationError, message, underlying)
}

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	Error string `json:"error" example:"a description of the error"`
}

// ToResponse converts the error to its API payload. The underlying cause
// never leaves the server; it is for logs only.
func (e *AppError) ToResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message}
}

// FromError extracts an *AppError from err, reporting whether one was found
// anywhere in the chain.
func FromError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func isType(err error, t ErrorType) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == t
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool { return isType(err, NotFoundError) }

// IsAuthError reports whether err is an AuthError.
func IsAuthError(err error) bool { return isType(err, AuthError) }

// IsValidationError reports whether err is a ValidationError.
func IsValidationError(err error) bool { return isType(err, ValidationError) }

// IsConflictError reports whether err is a ConflictError.
func IsConflictError(err error) bool { return isType(err, ConflictError) }

// IsRateLimited reports whether err is a RateLimitedError.
func IsRateLimited(err error) bool { return isType(err, RateLimitedError) }
