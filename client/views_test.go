package client

import (
	"reflect"
	"testing"
	"time"

	"github.com/user/listkeeper/todo"
)

func ptr[T any](v T) *T { return &v }

func visibleIDs(views Views) []int64 {
	ids := make([]int64, len(views.Visible))
	for i, t := range views.Visible {
		ids[i] = t.ID
	}
	return ids
}

func TestArchiveBoundary(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	threshold := ArchiveThreshold.Milliseconds()

	tests := []struct {
		name        string
		completedAt int64
		archived    bool
	}{
		{"one millisecond past the threshold", now.UnixMilli() - threshold - 1, true},
		{"exactly at the threshold", now.UnixMilli() - threshold, false},
		{"one millisecond inside the threshold", now.UnixMilli() - threshold + 1, false},
		{"completed just now", now.UnixMilli(), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			todos := []todo.Todo{{
				ID:          1,
				Text:        "old chore",
				Completed:   true,
				Priority:    todo.PriorityMedium,
				CompletedAt: ptr(tt.completedAt),
			}}
			views := DeriveViews(todos, NewFilterState(), now)
			if got := len(views.Archived) == 1; got != tt.archived {
				t.Fatalf("archived = %v, want %v", got, tt.archived)
			}
		})
	}
}

func TestArchivedExcludedFromViewAndCounts(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	old := now.UnixMilli() - ArchiveThreshold.Milliseconds() - 1000
	recent := now.UnixMilli() - 1000

	todos := []todo.Todo{
		{ID: 1, Text: "active", Priority: todo.PriorityMedium},
		{ID: 2, Text: "done recently", Completed: true, Priority: todo.PriorityMedium, CompletedAt: ptr(recent)},
		{ID: 3, Text: "done long ago", Completed: true, Priority: todo.PriorityMedium, CompletedAt: ptr(old)},
	}
	filter := NewFilterState()
	filter.ShowCompleted = true

	views := DeriveViews(todos, filter, now)
	if views.ActiveCount != 1 {
		t.Errorf("ActiveCount = %d, want 1", views.ActiveCount)
	}
	if views.CompletedCount != 1 {
		t.Errorf("CompletedCount = %d, want 1", views.CompletedCount)
	}
	if len(views.Archived) != 1 || views.Archived[0].ID != 3 {
		t.Errorf("Archived = %+v, want only id 3", views.Archived)
	}
	if got := visibleIDs(views); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Errorf("visible ids = %v, want [1 2]", got)
	}
}

func TestOverdueComparesCalendarDates(t *testing.T) {
	// Late in the day so an instant comparison would flag today as past.
	now := time.Date(2026, 8, 25, 23, 59, 0, 0, time.UTC)

	tests := []struct {
		name      string
		dueDate   *string
		completed bool
		overdue   bool
	}{
		{"due yesterday", ptr("2026-08-24"), false, true},
		{"due a month ago", ptr("2026-07-25"), false, true},
		{"due today", ptr("2026-08-25"), false, false},
		{"due tomorrow", ptr("2026-08-26"), false, false},
		{"no due date", nil, false, false},
		{"completed and past due", ptr("2026-08-24"), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := todo.Todo{ID: 1, Text: "task", Priority: todo.PriorityMedium, DueDate: tt.dueDate, Completed: tt.completed}
			if tt.completed {
				item.CompletedAt = ptr(now.UnixMilli())
			}
			filter := NewFilterState()
			filter.ShowCompleted = true

			views := DeriveViews([]todo.Todo{item}, filter, now)
			if got := views.Overdue[1]; got != tt.overdue {
				t.Fatalf("overdue = %v, want %v", got, tt.overdue)
			}
		})
	}
}

func TestDueTodayNeverOverdue(t *testing.T) {
	for _, hour := range []int{0, 8, 12, 23} {
		now := time.Date(2026, 8, 25, hour, 30, 0, 0, time.UTC)
		todos := []todo.Todo{{ID: 1, Text: "due today", Priority: todo.PriorityMedium, DueDate: ptr("2026-08-25")}}

		views := DeriveViews(todos, NewFilterState(), now)
		if views.Overdue[1] {
			t.Errorf("todo due today flagged overdue at hour %d", hour)
		}
	}
}

func TestVisibleFiltering(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	recent := now.UnixMilli() - 1000

	todos := []todo.Todo{
		{ID: 1, Text: "write report", Priority: todo.PriorityHigh},
		{ID: 2, Text: "buy milk", Priority: todo.PriorityLow},
		{ID: 3, Text: "call bank", Completed: true, Priority: todo.PriorityHigh, CompletedAt: ptr(recent)},
	}

	tests := []struct {
		name   string
		filter FilterState
		want   []int64
	}{
		{"default hides completed", NewFilterState(), []int64{1, 2}},
		{"show completed", FilterState{Status: StatusAll, Priority: PriorityAll, ShowCompleted: true}, []int64{1, 2, 3}},
		{"status active", FilterState{Status: StatusActive, Priority: PriorityAll, ShowCompleted: true}, []int64{1, 2}},
		{"status completed", FilterState{Status: StatusCompleted, Priority: PriorityAll, ShowCompleted: true}, []int64{3}},
		{"status completed but completed hidden", FilterState{Status: StatusCompleted, Priority: PriorityAll}, []int64{}},
		{"priority high", FilterState{Status: StatusAll, Priority: PriorityFilter(todo.PriorityHigh), ShowCompleted: true}, []int64{1, 3}},
		{"priority low", FilterState{Status: StatusAll, Priority: PriorityFilter(todo.PriorityLow), ShowCompleted: true}, []int64{2}},
		{"priority and status combined", FilterState{Status: StatusActive, Priority: PriorityFilter(todo.PriorityHigh), ShowCompleted: true}, []int64{1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			views := DeriveViews(todos, tt.filter, now)
			if got := visibleIDs(views); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("visible ids = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisibleSortsIncompleteFirst(t *testing.T) {
	now := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	recent := now.UnixMilli() - 1000

	todos := []todo.Todo{
		{ID: 1, Text: "done a", Completed: true, Priority: todo.PriorityMedium, CompletedAt: ptr(recent)},
		{ID: 2, Text: "open a", Priority: todo.PriorityMedium},
		{ID: 3, Text: "done b", Completed: true, Priority: todo.PriorityMedium, CompletedAt: ptr(recent)},
		{ID: 4, Text: "open b", Priority: todo.PriorityMedium},
	}
	filter := NewFilterState()
	filter.ShowCompleted = true

	views := DeriveViews(todos, filter, now)
	want := []int64{2, 4, 1, 3}
	if got := visibleIDs(views); !reflect.DeepEqual(got, want) {
		t.Fatalf("visible ids = %v, want %v (incomplete first, insertion order kept)", got, want)
	}
}
