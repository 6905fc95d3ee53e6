package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/listkeeper/todo"
)

// State is the client's local copy of the todo list plus the current
// filter selection. Every mutation is applied locally first, then sent
// to the server; on success the local record is reconciled with the
// server's returned one, on failure the change is rolled back and an
// error notification published. Mutations never retry.
//
// Mutations targeting the same todo id are serialized through per-id
// gates, so a second change waits for the first request to settle
// instead of racing it. Whole-list operations (Refresh, Move) take the
// list gate exclusively and therefore wait for every in-flight record
// mutation, which also guarantees no unconfirmed temporary id is ever
// sent in a reorder.
type State struct {
	api      *Client
	notifier *Notifier
	now      func() time.Time

	mu     sync.RWMutex
	todos  []todo.Todo
	filter FilterState

	gate    sync.RWMutex
	gatesMu sync.Mutex
	gates   map[int64]*sync.Mutex

	tempSeq atomic.Int64
}

// NewState creates an empty State backed by the given API client. The
// notifier may be nil when no subscriber needs events.
func NewState(api *Client, notifier *Notifier) *State {
	return &State{
		api:      api,
		notifier: notifier,
		now:      time.Now,
		todos:    []todo.Todo{},
		filter:   NewFilterState(),
		gates:    make(map[int64]*sync.Mutex),
	}
}

// Todos returns a copy of the current list in list order.
func (s *State) Todos() []todo.Todo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]todo.Todo(nil), s.todos...)
}

// Filter returns the current filter selection.
func (s *State) Filter() FilterState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filter
}

// SetFilter replaces the filter selection.
func (s *State) SetFilter(filter FilterState) {
	s.mu.Lock()
	s.filter = filter
	s.mu.Unlock()
	s.notifyChange("filters changed")
}

// Views derives the visible, overdue and archived views from the
// current list and filter.
func (s *State) Views() Views {
	s.mu.RLock()
	todos := append([]todo.Todo(nil), s.todos...)
	filter := s.filter
	s.mu.RUnlock()
	return DeriveViews(todos, filter, s.now())
}

// Refresh replaces the local list with the server's.
func (s *State) Refresh(ctx context.Context) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	todos, err := s.api.ListTodos(ctx)
	if err != nil {
		s.notifyError("could not load todos", err)
		return err
	}

	s.mu.Lock()
	s.todos = todos
	s.mu.Unlock()
	s.pruneGates(todos)
	s.notifyChange("todos refreshed")
	return nil
}

// Add creates a todo. The new record appears in the list immediately
// under a temporary id and is swapped for the server's record once the
// create confirms. Temporary ids are negative so they can never collide
// with server-assigned ones.
func (s *State) Add(ctx context.Context, text string, priority *todo.Priority, dueDate *string) (*todo.Todo, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	tempID := -s.tempSeq.Add(1)
	lock := s.recordGate(tempID)
	lock.Lock()
	defer lock.Unlock()
	// The temporary id is dead once the create settles, either way.
	defer s.dropGate(tempID)

	temp := todo.Todo{ID: tempID, Text: text, Priority: todo.PriorityMedium, DueDate: dueDate}
	if priority != nil {
		temp.Priority = *priority
	}

	s.mu.Lock()
	s.todos = append(s.todos, temp)
	s.mu.Unlock()

	created, err := s.api.CreateTodo(ctx, todo.CreateTodoRequest{Text: text, Priority: priority, DueDate: dueDate})
	if err != nil {
		s.removeByID(tempID)
		s.notifyError("could not add todo", err)
		return nil, err
	}

	s.replaceByID(tempID, *created)
	s.notifyChange("todo added")
	return created, nil
}

// Edit replaces a todo's text.
func (s *State) Edit(ctx context.Context, id int64, text string) (*todo.Todo, error) {
	return s.mutate(ctx, id, "could not update todo", func(t *todo.Todo) map[string]interface{} {
		t.Text = text
		return map[string]interface{}{"text": text}
	})
}

// Toggle flips a todo's completion state. The completion timestamp is
// stamped locally for immediate display and reconciled with the
// server's value once the update confirms.
func (s *State) Toggle(ctx context.Context, id int64) (*todo.Todo, error) {
	return s.mutate(ctx, id, "could not update todo", func(t *todo.Todo) map[string]interface{} {
		t.Completed = !t.Completed
		if t.Completed {
			millis := s.now().UnixMilli()
			t.CompletedAt = &millis
		} else {
			t.CompletedAt = nil
		}
		return map[string]interface{}{"completed": t.Completed}
	})
}

// CyclePriority advances a todo's priority low, medium, high and back
// to low.
func (s *State) CyclePriority(ctx context.Context, id int64) (*todo.Todo, error) {
	return s.mutate(ctx, id, "could not update todo", func(t *todo.Todo) map[string]interface{} {
		t.Priority = t.Priority.Next()
		return map[string]interface{}{"priority": t.Priority}
	})
}

// SetDueDate sets or, with nil, clears a todo's due date.
func (s *State) SetDueDate(ctx context.Context, id int64, dueDate *string) (*todo.Todo, error) {
	return s.mutate(ctx, id, "could not update todo", func(t *todo.Todo) map[string]interface{} {
		t.DueDate = dueDate
		return map[string]interface{}{"dueDate": dueDate}
	})
}

// Remove deletes a todo. The record disappears immediately and is
// restored at its old position if the delete fails.
func (s *State) Remove(ctx context.Context, id int64) error {
	s.gate.RLock()
	defer s.gate.RUnlock()

	lock := s.recordGate(id)
	lock.Lock()
	defer lock.Unlock()

	index, removed, ok := s.removeByID(id)
	if !ok {
		return fmt.Errorf("no todo with id %d", id)
	}

	if err := s.api.DeleteTodo(ctx, id); err != nil {
		s.insertAt(index, removed)
		s.notifyError("could not delete todo", err)
		return err
	}
	s.dropGate(id)
	s.notifyChange("todo removed")
	return nil
}

// Move splices the dragged todo out of the full list and into the drop
// target's position, then persists the complete new order. The splice
// always works on the full list, never the filtered view. A failed
// persist restores the pre-drag order.
func (s *State) Move(ctx context.Context, dragID, targetID int64) error {
	s.gate.Lock()
	defer s.gate.Unlock()

	s.mu.RLock()
	snapshot := append([]todo.Todo(nil), s.todos...)
	s.mu.RUnlock()

	from, to := -1, -1
	for i, t := range snapshot {
		if t.ID == dragID {
			from = i
		}
		if t.ID == targetID {
			to = i
		}
	}
	if from < 0 {
		return fmt.Errorf("no todo with id %d", dragID)
	}
	if to < 0 {
		return fmt.Errorf("no todo with id %d", targetID)
	}
	if from == to {
		return nil
	}

	moved := snapshot[from]
	without := make([]todo.Todo, 0, len(snapshot)-1)
	for _, t := range snapshot {
		if t.ID != dragID {
			without = append(without, t)
		}
	}
	reordered := make([]todo.Todo, 0, len(snapshot))
	reordered = append(reordered, without[:to]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, without[to:]...)

	ids := make([]int64, len(reordered))
	for i, t := range reordered {
		ids[i] = t.ID
	}

	s.mu.Lock()
	s.todos = reordered
	s.mu.Unlock()

	todos, err := s.api.ReorderTodos(ctx, ids)
	if err != nil {
		s.mu.Lock()
		s.todos = snapshot
		s.mu.Unlock()
		s.notifyError("could not move todo", err)
		return err
	}

	s.mu.Lock()
	s.todos = todos
	s.mu.Unlock()
	s.notifyChange("todos reordered")
	return nil
}

// mutate runs one optimistic record mutation: snapshot the record,
// apply change to a working copy, send the patch change returns, then
// reconcile with the server's record or restore the snapshot. Only the
// targeted record is touched, so concurrent mutations of other records
// survive a rollback.
func (s *State) mutate(ctx context.Context, id int64, action string, change func(*todo.Todo) map[string]interface{}) (*todo.Todo, error) {
	s.gate.RLock()
	defer s.gate.RUnlock()

	lock := s.recordGate(id)
	lock.Lock()
	defer lock.Unlock()

	before, ok := s.find(id)
	if !ok {
		return nil, fmt.Errorf("no todo with id %d", id)
	}

	working := before
	patch := change(&working)
	s.replaceByID(id, working)

	updated, err := s.api.UpdateTodo(ctx, id, patch)
	if err != nil {
		s.replaceByID(id, before)
		s.notifyError(action, err)
		return nil, err
	}

	s.replaceByID(id, *updated)
	s.notifyChange("todo updated")
	return updated, nil
}

// recordGate returns the mutex serializing mutations of one todo id.
func (s *State) recordGate(id int64) *sync.Mutex {
	s.gatesMu.Lock()
	defer s.gatesMu.Unlock()

	gate, ok := s.gates[id]
	if !ok {
		gate = &sync.Mutex{}
		s.gates[id] = gate
	}
	return gate
}

// dropGate discards the gate of an id that left the list. Ids are never
// reused, so a lookup racing the removal at worst mints a fresh mutex for
// an id whose mutations all fail with not-found.
func (s *State) dropGate(id int64) {
	s.gatesMu.Lock()
	delete(s.gates, id)
	s.gatesMu.Unlock()
}

// pruneGates drops gate entries for ids absent from the live list. Called
// with the list gate held exclusively, so no record mutation is in flight.
func (s *State) pruneGates(live []todo.Todo) {
	keep := make(map[int64]bool, len(live))
	for _, t := range live {
		keep[t.ID] = true
	}
	s.gatesMu.Lock()
	for id := range s.gates {
		if !keep[id] {
			delete(s.gates, id)
		}
	}
	s.gatesMu.Unlock()
}

func (s *State) find(id int64) (todo.Todo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.todos {
		if t.ID == id {
			return t, true
		}
	}
	return todo.Todo{}, false
}

func (s *State) replaceByID(id int64, updated todo.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id {
			s.todos[i] = updated
			return
		}
	}
}

func (s *State) removeByID(id int64) (int, todo.Todo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, t := range s.todos {
		if t.ID == id {
			s.todos = append(s.todos[:i], s.todos[i+1:]...)
			return i, t, true
		}
	}
	return 0, todo.Todo{}, false
}

func (s *State) insertAt(index int, t todo.Todo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index > len(s.todos) {
		index = len(s.todos)
	}
	s.todos = append(s.todos[:index], append([]todo.Todo{t}, s.todos[index:]...)...)
}

func (s *State) notifyChange(message string) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(Notification{Level: LevelInfo, Message: message})
}

func (s *State) notifyError(action string, err error) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(Notification{Level: LevelError, Message: action + ": " + errorMessage(err)})
}

// errorMessage prefers the server's message over transport noise.
func errorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
