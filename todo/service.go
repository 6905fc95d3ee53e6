package todo

import (
	"context"
	"fmt"
	"time"

	"github.com/user/listkeeper/apperror"
)

// Service implements the list operations. Each operation is one
// read-modify-write cycle against the user's list document; validation
// always completes before anything is written, so a rejected request leaves
// the store untouched.
type Service struct {
	repo *Repository
	// now is replaceable in tests for deterministic ids and timestamps.
	now func() time.Time
}

// NewService creates a todo service over repo.
func NewService(repo *Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// List returns the user's full list in stored order. Filtering and
// archiving are client concerns.
func (s *Service) List(ctx context.Context, username string) ([]Todo, error) {
	return s.repo.List(ctx, username)
}

// Create validates the request, assigns a fresh id, and appends the new
// todo to the end of the list.
func (s *Service) Create(ctx context.Context, username string, req CreateTodoRequest) (*Todo, error) {
	text, err := validateText(req.Text)
	if err != nil {
		return nil, err
	}
	priority := PriorityMedium
	if req.Priority != nil {
		priority = *req.Priority
		if err := validatePriority(priority); err != nil {
			return nil, err
		}
	}
	if req.DueDate != nil {
		if err := validateDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	todos, err := s.repo.List(ctx, username)
	if err != nil {
		return nil, err
	}

	todo := Todo{
		ID:       s.nextID(todos),
		Text:     text,
		Priority: priority,
		DueDate:  req.DueDate,
	}
	todos = append(todos, todo)
	if err := s.repo.Save(ctx, username, todos); err != nil {
		return nil, err
	}
	return &todo, nil
}

// nextID returns the creation timestamp in epoch milliseconds, bumped past
// any existing id. Ids stay unique and strictly increasing even when two
// creations land within the same millisecond.
func (s *Service) nextID(todos []Todo) int64 {
	id := s.now().UnixMilli()
	for _, t := range todos {
		if t.ID >= id {
			id = t.ID + 1
		}
	}
	return id
}

// Update applies a partial update to one todo. Setting completed without an
// explicit completedAt manages the completion timestamp: completing stamps
// the current time, un-completing clears it. When the request carries its
// own completedAt, that value wins and completed is left to mean whatever
// the caller says.
func (s *Service) Update(ctx context.Context, username string, id int64, req UpdateTodoRequest) (*Todo, error) {
	var text string
	if req.TextSet {
		var err error
		if text, err = validateText(req.Text); err != nil {
			return nil, err
		}
	}
	if req.PrioritySet {
		if err := validatePriority(req.Priority); err != nil {
			return nil, err
		}
	}
	if req.DueDateSet && req.DueDate != nil {
		if err := validateDueDate(*req.DueDate); err != nil {
			return nil, err
		}
	}

	todos, err := s.repo.List(ctx, username)
	if err != nil {
		return nil, err
	}
	idx := indexOf(todos, id)
	if idx < 0 {
		return nil, apperror.NewNotFoundError(fmt.Sprintf("no todo with id %d", id), nil)
	}

	todo := &todos[idx]
	if req.TextSet {
		todo.Text = text
	}
	if req.PrioritySet {
		todo.Priority = req.Priority
	}
	if req.DueDateSet {
		todo.DueDate = req.DueDate
	}
	if req.CompletedAtSet {
		todo.CompletedAt = req.CompletedAt
	}
	if req.CompletedSet {
		todo.Completed = req.Completed
		if !req.CompletedAtSet {
			if req.Completed {
				now := s.now().UnixMilli()
				todo.CompletedAt = &now
			} else {
				todo.CompletedAt = nil
			}
		}
	}

	if err := s.repo.Save(ctx, username, todos); err != nil {
		return nil, err
	}
	result := *todo
	return &result, nil
}

// Delete removes one todo permanently.
func (s *Service) Delete(ctx context.Context, username string, id int64) error {
	todos, err := s.repo.List(ctx, username)
	if err != nil {
		return err
	}
	idx := indexOf(todos, id)
	if idx < 0 {
		return apperror.NewNotFoundError(fmt.Sprintf("no todo with id %d", id), nil)
	}
	todos = append(todos[:idx], todos[idx+1:]...)
	return s.repo.Save(ctx, username, todos)
}

// Reorder replaces the list order with the given id sequence. The sequence
// must be an exact permutation of the stored ids; otherwise the list is
// left untouched.
func (s *Service) Reorder(ctx context.Context, username string, ids []int64) ([]Todo, error) {
	todos, err := s.repo.List(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(ids) != len(todos) {
		return nil, apperror.NewValidationError("ids must be a permutation of the existing todo ids", nil)
	}

	byID := make(map[int64]int, len(todos))
	for i := range todos {
		byID[todos[i].ID] = i
	}
	seen := make(map[int64]bool, len(ids))
	reordered := make([]Todo, 0, len(todos))
	for _, id := range ids {
		idx, ok := byID[id]
		if !ok || seen[id] {
			return nil, apperror.NewValidationError("ids must be a permutation of the existing todo ids", nil)
		}
		seen[id] = true
		reordered = append(reordered, todos[idx])
	}

	if err := s.repo.Save(ctx, username, reordered); err != nil {
		return nil, err
	}
	return reordered, nil
}

func indexOf(todos []Todo, id int64) int {
	for i := range todos {
		if todos[i].ID == id {
			return i
		}
	}
	return -1
}
