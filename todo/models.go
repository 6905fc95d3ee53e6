// Package todo implements the per-user to-do list: the record model, its
// validation rules, and the CRUD and reorder operations exposed over HTTP.
package todo

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/user/listkeeper/apperror"
)

// maxTextLength caps a todo's text after trimming, counted in characters
// rather than bytes.
const maxTextLength = 500

// DueDateLayout is the calendar-date format for due dates. Due dates are
// labels, not instants: they carry no time zone and are compared as
// calendar days.
const DueDateLayout = "2006-01-02"

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Priority ranks a todo. An absent priority defaults to PriorityMedium.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the defined priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Next returns the priority after p in the low, medium, high cycle.
func (p Priority) Next() Priority {
	switch p {
	case PriorityLow:
		return PriorityMedium
	case PriorityMedium:
		return PriorityHigh
	default:
		return PriorityLow
	}
}

// Todo is one record in a user's list. The list's array order is
// significant and preserved by the store.
//
// ID doubles as the creation timestamp in epoch milliseconds and is unique
// within one user's list. CompletedAt is managed by the completion toggle
// but may also be set directly by a partial update; it is never re-derived
// from Completed.
type Todo struct {
	ID          int64    `json:"id" example:"1719847335021"`
	Text        string   `json:"text" example:"buy milk"`
	Completed   bool     `json:"completed" example:"false"`
	Priority    Priority `json:"priority" example:"medium"`
	DueDate     *string  `json:"dueDate" example:"2026-09-01"`
	CompletedAt *int64   `json:"completedAt"`
}

// validateText trims text and checks its length.
func validateText(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", apperror.NewValidationError("text must not be empty", nil)
	}
	if utf8.RuneCountInString(trimmed) > maxTextLength {
		return "", apperror.NewValidationError(fmt.Sprintf("text must be at most %d characters", maxTextLength), nil)
	}
	return trimmed, nil
}

func validatePriority(p Priority) error {
	if !p.Valid() {
		return apperror.NewValidationError("priority must be one of low, medium, high", nil)
	}
	return nil
}

// validateDueDate checks the YYYY-MM-DD shape and that the value is a real
// calendar date.
func validateDueDate(d string) error {
	if !dueDatePattern.MatchString(d) {
		return apperror.NewValidationError("dueDate must be formatted YYYY-MM-DD", nil)
	}
	if _, err := time.Parse(DueDateLayout, d); err != nil {
		return apperror.NewValidationError("dueDate is not a valid calendar date", nil)
	}
	return nil
}
