package auth

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/user/listkeeper/apperror"
)

// Handlers exposes the auth service over HTTP.
type Handlers struct {
	service *Service
}

// NewHandlers creates the auth HTTP handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the auth endpoints on router. The limiter wraps
// register and login only; logout is not throttled.
func (h *Handlers) RegisterRoutes(router chi.Router, limiter func(http.Handler) http.Handler) {
	router.Group(func(r chi.Router) {
		r.Use(limiter)
		r.Post("/register", h.HandleRegister())
		r.Post("/login", h.HandleLogin())
	})
	router.Post("/logout", h.HandleLogout())
}

// HandleRegister godoc
// @Summary Register a new account
// @Description Creates an account and returns a session token for it.
// @Tags Auth
// @Accept json
// @Produce json
// @Param registerBody body auth.RegisterRequest true "Account credentials"
// @Success 201 {object} auth.SessionResponse "Account created"
// @Failure 400 {object} apperror.ErrorResponse "Invalid username or password"
// @Failure 409 {object} apperror.ErrorResponse "Username already taken"
// @Failure 429 {object} apperror.ErrorResponse "Too many attempts"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /auth/register [post]
func (h *Handlers) HandleRegister() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := req.Validate(); err != nil {
			WriteError(w, r, err)
			return
		}

		session, err := h.service.Register(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, session)
	}
}

// HandleLogin godoc
// @Summary Log in
// @Description Verifies credentials and returns a session token.
// @Tags Auth
// @Accept json
// @Produce json
// @Param loginBody body auth.LoginRequest true "Account credentials"
// @Success 200 {object} auth.SessionResponse "Login successful"
// @Failure 400 {object} apperror.ErrorResponse "Missing credentials"
// @Failure 401 {object} apperror.ErrorResponse "Invalid credentials"
// @Failure 429 {object} apperror.ErrorResponse "Too many attempts"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Router /auth/login [post]
func (h *Handlers) HandleLogin() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
			return
		}
		defer r.Body.Close()

		if err := req.Validate(); err != nil {
			WriteError(w, r, err)
			return
		}

		session, err := h.service.Login(r.Context(), req)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, session)
	}
}

// HandleLogout godoc
// @Summary Log out
// @Description Sessions are stateless, so logout is a no-op on the server;
// @Description the client discards its token.
// @Tags Auth
// @Success 204 "Logged out"
// @Router /auth/logout [post]
func (h *Handlers) HandleLogout() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

// writeJSON serializes data and writes it with the given status.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode response: %v", err)
		}
	}
}

// WriteError converts any error into the standard error response. Errors
// that are not an *apperror.AppError become a generic 500; server-side
// failures are logged with the request that triggered them.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}
	if appErr.StatusCode() >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, appErr)
	}
	writeJSON(w, appErr.StatusCode(), appErr.ToResponse())
}
