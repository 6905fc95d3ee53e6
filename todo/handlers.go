package todo

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/user/listkeeper/apperror"
	"github.com/user/listkeeper/auth"
)

// Handlers exposes the todo service over HTTP. All routes assume the JWT
// middleware already ran; the authenticated username scopes every
// operation to its own list.
type Handlers struct {
	service *Service
}

// NewHandlers creates the todo HTTP handlers.
func NewHandlers(service *Service) *Handlers {
	return &Handlers{service: service}
}

// RegisterRoutes mounts the todo endpoints on router.
func (h *Handlers) RegisterRoutes(router chi.Router) {
	router.Get("/", h.handleList)
	router.Post("/", h.handleCreate)
	router.Put("/{id}", h.handleUpdate)
	router.Patch("/reorder", h.handleReorder)
	router.Delete("/{id}", h.handleDelete)
}

// handleList godoc
// @Summary List todos
// @Description Returns the authenticated user's full list in stored order.
// @Tags Todos
// @Produce json
// @Success 200 {array} todo.Todo
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /todos [get]
func (h *Handlers) handleList(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return
	}
	todos, err := h.service.List(r.Context(), username)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

// handleCreate godoc
// @Summary Create a todo
// @Description Creates a todo at the end of the list. Priority defaults to
// @Description medium when absent.
// @Tags Todos
// @Accept json
// @Produce json
// @Param createBody body todo.CreateTodoRequest true "New todo"
// @Success 201 {object} todo.Todo
// @Failure 400 {object} apperror.ErrorResponse "Invalid field value"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /todos [post]
func (h *Handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return
	}
	var req CreateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
		return
	}
	defer r.Body.Close()

	created, err := h.service.Create(r.Context(), username, req)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdate godoc
// @Summary Update a todo
// @Description Applies a partial update. Only text, completed, completedAt,
// @Description priority and dueDate can change; unknown fields are ignored.
// @Tags Todos
// @Accept json
// @Produce json
// @Param id path int true "Todo id"
// @Param updateBody body object true "Fields to change"
// @Success 200 {object} todo.Todo
// @Failure 400 {object} apperror.ErrorResponse "Invalid id or field value"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "No todo with that id"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /todos/{id} [put]
func (h *Handlers) handleUpdate(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return
	}
	id, err := parseID(r)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	var req UpdateTodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
		return
	}
	defer r.Body.Close()

	updated, err := h.service.Update(r.Context(), username, id, req)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleReorder godoc
// @Summary Reorder the list
// @Description Persists a new list order. The ids must be an exact
// @Description permutation of the user's current ids.
// @Tags Todos
// @Accept json
// @Produce json
// @Param reorderBody body todo.ReorderRequest true "New id order"
// @Success 200 {array} todo.Todo
// @Failure 400 {object} apperror.ErrorResponse "Not a permutation of the stored ids"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /todos/reorder [patch]
func (h *Handlers) handleReorder(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return
	}
	var req ReorderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.WriteError(w, r, apperror.NewBadRequestError("invalid request body: "+err.Error(), nil))
		return
	}
	defer r.Body.Close()

	reordered, err := h.service.Reorder(r.Context(), username, req.IDs)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reordered)
}

// handleDelete godoc
// @Summary Delete a todo
// @Tags Todos
// @Produce json
// @Param id path int true "Todo id"
// @Success 204 "Deleted"
// @Failure 400 {object} apperror.ErrorResponse "Invalid id"
// @Failure 401 {object} apperror.ErrorResponse "Missing or invalid token"
// @Failure 404 {object} apperror.ErrorResponse "No todo with that id"
// @Failure 500 {object} apperror.ErrorResponse "Internal server error"
// @Security BearerAuth
// @Router /todos/{id} [delete]
func (h *Handlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	username, ok := auth.UsernameFromContext(r.Context())
	if !ok {
		auth.WriteError(w, r, apperror.NewAuthError("not authenticated", nil))
		return
	}
	id, err := parseID(r)
	if err != nil {
		auth.WriteError(w, r, err)
		return
	}
	if err := h.service.Delete(r.Context(), username, id); err != nil {
		auth.WriteError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperror.NewBadRequestError("todo id must be an integer", nil)
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
