package todo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/user/listkeeper/apperror"
	"github.com/user/listkeeper/store"
)

// todosKeyPrefix prefixes the store key of each user's list document. The
// document is a JSON array whose order is the persisted list order.
const todosKeyPrefix = "todos/"

// Repository reads and writes one user's whole list at a time. There is no
// partial write: every mutation is a full-list rewrite, and the last writer
// for a user wins.
type Repository struct {
	store store.Store
}

// NewRepository creates a todo repository over st.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// List returns the user's todos in stored order. A user with no document
// yet has an empty list.
func (r *Repository) List(ctx context.Context, username string) ([]Todo, error) {
	data, err := r.store.Get(ctx, todosKeyPrefix+username)
	if errors.Is(err, store.ErrNotExist) {
		return []Todo{}, nil
	}
	if err != nil {
		return nil, apperror.NewDatabaseError("failed to load todos", err)
	}
	var todos []Todo
	if err := json.Unmarshal(data, &todos); err != nil {
		return nil, apperror.NewInternalError("failed to decode todos", err)
	}
	if todos == nil {
		todos = []Todo{}
	}
	return todos, nil
}

// Save replaces the user's list document.
func (r *Repository) Save(ctx context.Context, username string, todos []Todo) error {
	data, err := json.Marshal(todos)
	if err != nil {
		return apperror.NewInternalError("failed to encode todos", err)
	}
	if err := r.store.Put(ctx, todosKeyPrefix+username, data); err != nil {
		return apperror.NewDatabaseError("failed to save todos", err)
	}
	return nil
}
