// Package auth handles account registration, login, session token issuance
// and verification, and the middleware that guards authenticated routes.
package auth

import (
	"errors"
	"regexp"

	"github.com/go-playground/validator/v10"

	"github.com/user/listkeeper/apperror"
)

// usernamePattern is the account name format: 3 to 32 characters from a
// conservative charset that is also safe to embed in store keys.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,32}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// RegisterValidation only fails for a blank tag name.
	_ = v.RegisterValidation("username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	return v
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,username" example:"alice"`
	Password string `json:"password" validate:"required,min=6" example:"secret1"`
}

// Validate checks the registration payload, returning a ValidationError
// describing the first failing field.
func (r RegisterRequest) Validate() error {
	err := validate.Struct(r)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		switch fieldErrs[0].Field() {
		case "Username":
			return apperror.NewValidationError("username must be 3-32 characters of letters, digits, underscore or hyphen", nil)
		case "Password":
			return apperror.NewValidationError("password must be at least 6 characters", nil)
		}
	}
	return apperror.NewValidationError("invalid registration payload", err)
}

// LoginRequest is the login payload. Format rules are not enforced here; any
// username that was never registered fails authentication anyway.
type LoginRequest struct {
	Username string `json:"username" validate:"required" example:"alice"`
	Password string `json:"password" validate:"required" example:"secret1"`
}

// Validate checks that both credentials are present.
func (r LoginRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return apperror.NewValidationError("username and password are required", nil)
	}
	return nil
}

// SessionResponse is returned on successful registration or login.
type SessionResponse struct {
	Token    string `json:"token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	Username string `json:"username" example:"alice"`
}
