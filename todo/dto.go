package todo

import (
	"encoding/json"
	"fmt"
)

// CreateTodoRequest is the payload for creating a todo. Priority and
// DueDate are optional; pointers distinguish an absent field from an
// explicit value.
type CreateTodoRequest struct {
	Text     string    `json:"text" example:"buy milk"`
	Priority *Priority `json:"priority,omitempty" example:"high"`
	DueDate  *string   `json:"dueDate,omitempty" example:"2026-09-01"`
}

// UpdateTodoRequest is the payload for a partial update. Only the fields in
// the allow-list (text, completed, completedAt, priority, dueDate) can be
// changed; anything else in the body, including id, is silently ignored.
//
// Partial updates need three states per field: absent, null, and value.
// Decoding goes through a raw-message map so each field records whether it
// appeared at all, which plain struct unmarshalling cannot express.
type UpdateTodoRequest struct {
	Text    string
	TextSet bool

	Completed    bool
	CompletedSet bool

	CompletedAt    *int64
	CompletedAtSet bool

	Priority    Priority
	PrioritySet bool

	DueDate    *string
	DueDateSet bool
}

// UnmarshalJSON implements the presence-aware decoding described on the
// type.
func (r *UpdateTodoRequest) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	if raw, ok := fields["text"]; ok {
		if err := json.Unmarshal(raw, &r.Text); err != nil {
			return fmt.Errorf("text: %w", err)
		}
		r.TextSet = true
	}
	if raw, ok := fields["completed"]; ok {
		if err := json.Unmarshal(raw, &r.Completed); err != nil {
			return fmt.Errorf("completed: %w", err)
		}
		r.CompletedSet = true
	}
	if raw, ok := fields["completedAt"]; ok {
		if err := json.Unmarshal(raw, &r.CompletedAt); err != nil {
			return fmt.Errorf("completedAt: %w", err)
		}
		r.CompletedAtSet = true
	}
	if raw, ok := fields["priority"]; ok {
		if err := json.Unmarshal(raw, &r.Priority); err != nil {
			return fmt.Errorf("priority: %w", err)
		}
		r.PrioritySet = true
	}
	if raw, ok := fields["dueDate"]; ok {
		if err := json.Unmarshal(raw, &r.DueDate); err != nil {
			return fmt.Errorf("dueDate: %w", err)
		}
		r.DueDateSet = true
	}
	return nil
}

// Empty reports whether the update names no allow-listed field, making it
// a no-op.
func (r *UpdateTodoRequest) Empty() bool {
	return !r.TextSet && !r.CompletedSet && !r.CompletedAtSet && !r.PrioritySet && !r.DueDateSet
}

// ReorderRequest carries the full new id order for a user's list.
type ReorderRequest struct {
	IDs []int64 `json:"ids"`
}
