// Package filter holds the status and priority predicate tables used to derive
// the visible task list.
package filter

import (
	"fmt"

	"github.com/BuzzLyutic/todo-list/internal/model"
)

type Predicate func(model.Task) bool

const (
	All       = "All"
	Active    = "Active"
	Completed = "Completed"

	High   = "High"
	Medium = "Medium"
	Low    = "Low"
	Unset  = "Unset"
)

type entry struct {
	name string
	pred Predicate
}

func always(model.Task) bool { return true }

func priorityIs(p model.Priority) Predicate {
	return func(t model.Task) bool { return t.Priority == p }
}

var statusTable = []entry{
	{All, always},
	{Active, func(t model.Task) bool { return !t.Completed }},
	{Completed, func(t model.Task) bool { return t.Completed }},
}

var priorityTable = []entry{
	{All, always},
	{High, priorityIs(model.PriorityHigh)},
	{Medium, priorityIs(model.PriorityMedium)},
	{Low, priorityIs(model.PriorityLow)},
	{Unset, priorityIs(model.PriorityUnset)},
}

func lookup(table []entry, name string) Predicate {
	for _, e := range table {
		if e.name == name {
			return e.pred
		}
	}
	return always
}

func names(table []entry) []string {
	out := make([]string, 0, len(table))
	for _, e := range table {
		out = append(out, e.name)
	}
	return out
}

// Status returns the status predicate for name. Unknown names select everything.
func Status(name string) Predicate {
	return lookup(statusTable, name)
}

// Priority returns the priority predicate for name. Unknown names select everything.
func Priority(name string) Predicate {
	return lookup(priorityTable, name)
}

func StatusNames() []string {
	return names(statusTable)
}

func PriorityNames() []string {
	return names(priorityTable)
}

func KnownStatus(name string) bool {
	for _, e := range statusTable {
		if e.name == name {
			return true
		}
	}
	return false
}

func KnownPriority(name string) bool {
	for _, e := range priorityTable {
		if e.name == name {
			return true
		}
	}
	return false
}

// Select applies the status predicate, then the priority predicate. The input
// slice is left untouched and the result is always a new non-nil slice.
func Select(tasks []model.Task, status, priority string) []model.Task {
	byStatus := Status(status)
	byPriority := Priority(priority)

	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if byStatus(t) && byPriority(t) {
			out = append(out, t)
		}
	}
	return out
}

func noun(n int) string {
	if n == 1 {
		return "task"
	}
	return "tasks"
}

// Heading renders the visible count, e.g. "2 tasks remaining".
func Heading(n int) string {
	return fmt.Sprintf("%d %s remaining", n, noun(n))
}

// PriorityHeading renders the visible count for the active priority filter,
// e.g. "1 task High priority".
func PriorityHeading(n int, priority string) string {
	if priority == "" {
		priority = All
	}
	return fmt.Sprintf("%d %s %s priority", n, noun(n), priority)
}
