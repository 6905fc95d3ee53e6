package client

import (
	"sort"
	"time"

	"github.com/user/listkeeper/todo"
)

// ArchiveThreshold is how long a completed todo stays in the main view
// before it moves to the archive.
const ArchiveThreshold = 5 * 24 * time.Hour

// StatusFilter restricts the visible list by completion state.
type StatusFilter string

const (
	StatusAll       StatusFilter = "all"
	StatusActive    StatusFilter = "active"
	StatusCompleted StatusFilter = "completed"
)

// PriorityFilter restricts the visible list to a single priority.
// PriorityAll disables the restriction; any other value must match a
// todo's priority exactly.
type PriorityFilter string

// PriorityAll shows todos of every priority.
const PriorityAll PriorityFilter = "all"

// FilterState is the user's current view selection.
type FilterState struct {
	Status        StatusFilter
	Priority      PriorityFilter
	ShowCompleted bool
}

// NewFilterState returns the default selection: every status and
// priority, completed todos hidden.
func NewFilterState() FilterState {
	return FilterState{Status: StatusAll, Priority: PriorityAll, ShowCompleted: false}
}

// Views holds everything derived from the base list and the filter
// state. Overdue is keyed by todo id.
type Views struct {
	Visible        []todo.Todo
	Overdue        map[int64]bool
	Archived       []todo.Todo
	ActiveCount    int
	CompletedCount int
}

// DeriveViews recomputes all derived views from scratch. It is a pure
// function of its inputs; now supplies both the archive cutoff and
// today's calendar date.
//
// A todo is archived when it completed strictly more than
// ArchiveThreshold before now, measured in milliseconds. Archived todos
// appear only in Archived and are excluded from the visible list and
// both counts. A todo is overdue when it is incomplete and its due date,
// compared as a calendar date rather than an instant, falls strictly
// before today. The visible list drops completed todos unless
// ShowCompleted is set, then applies the status and priority filters,
// and sorts incomplete before completed while otherwise preserving
// list order.
func DeriveViews(todos []todo.Todo, filter FilterState, now time.Time) Views {
	views := Views{
		Visible:  []todo.Todo{},
		Overdue:  map[int64]bool{},
		Archived: []todo.Todo{},
	}

	today := startOfDay(now)
	nowMillis := now.UnixMilli()
	thresholdMillis := ArchiveThreshold.Milliseconds()

	for _, t := range todos {
		if isArchived(t, nowMillis, thresholdMillis) {
			views.Archived = append(views.Archived, t)
			continue
		}
		if t.Completed {
			views.CompletedCount++
		} else {
			views.ActiveCount++
			if isOverdue(t, today) {
				views.Overdue[t.ID] = true
			}
		}
		if matchesFilter(t, filter) {
			views.Visible = append(views.Visible, t)
		}
	}

	sort.SliceStable(views.Visible, func(i, j int) bool {
		return !views.Visible[i].Completed && views.Visible[j].Completed
	})
	return views
}

func isArchived(t todo.Todo, nowMillis, thresholdMillis int64) bool {
	if !t.Completed || t.CompletedAt == nil {
		return false
	}
	return nowMillis-*t.CompletedAt > thresholdMillis
}

func isOverdue(t todo.Todo, today time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	due, err := time.Parse(todo.DueDateLayout, *t.DueDate)
	if err != nil {
		return false
	}
	return due.Before(today)
}

func matchesFilter(t todo.Todo, filter FilterState) bool {
	if t.Completed && !filter.ShowCompleted {
		return false
	}
	switch filter.Status {
	case StatusActive:
		if t.Completed {
			return false
		}
	case StatusCompleted:
		if !t.Completed {
			return false
		}
	}
	if filter.Priority != PriorityAll && string(filter.Priority) != string(t.Priority) {
		return false
	}
	return true
}

// startOfDay truncates now to its calendar date, pinned to UTC so the
// comparison against parsed due dates stays date-only.
func startOfDay(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
