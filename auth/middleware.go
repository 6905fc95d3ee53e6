package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/user/listkeeper/apperror"
	"github.com/user/listkeeper/config"
)

// contextKey is a private type for context keys, so no other package can
// collide with or forge the values this middleware injects.
type contextKey string

const usernameContextKey contextKey = "auth_username"

// JWTMiddleware verifies the Authorization bearer token and injects the
// authenticated username into the request context. Requests without a valid
// token are rejected with 401 before reaching the handler.
func JWTMiddleware(cfg *config.AuthConfig) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteError(w, r, apperror.NewAuthError("Authorization header is missing", nil))
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				WriteError(w, r, apperror.NewAuthError("Authorization header format must be Bearer {token}", nil))
				return
			}

			claims, err := VerifyToken(cfg, parts[1])
			if err != nil {
				WriteError(w, r, apperror.NewAuthError("invalid or expired token", err))
				return
			}

			ctx := context.WithValue(r.Context(), usernameContextKey, claims.Username)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UsernameFromContext returns the username stored by JWTMiddleware. The
// boolean is false on requests that did not pass through the middleware.
func UsernameFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(usernameContextKey).(string)
	return username, ok
}
