// Package view projects the task collection into the three lists the
// front ends show: pending, completed and search results. Every function
// here is pure; "today" is passed in.
package view

import (
	"sort"
	"strings"
	"time"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// FilterAll disables a filter field.
const FilterAll = "all"

// Filter narrows the pending list. Empty or "all" fields match everything.
type Filter struct {
	Priority model.Priority
	Category model.Category
}

func (f Filter) matches(t model.Task) bool {
	if f.Priority != "" && f.Priority != FilterAll && t.Priority != f.Priority {
		return false
	}
	if f.Category != "" && f.Category != FilterAll && t.Category != f.Category {
		return false
	}
	return true
}

// Card is one rendered task.
type Card struct {
	Task          model.Task
	Overdue       bool
	DueLabel      string
	CategoryLabel string
}

type SearchState int

const (
	SearchEmptyQuery SearchState = iota
	SearchNoResults
	SearchResults
)

type SearchResult struct {
	State   SearchState
	Message string
	Cards   []Card
}

// Projector builds cards for a fixed day and locale.
type Projector struct {
	Today  model.Date
	Locale Locale
}

func NewProjector(today model.Date, loc Locale) Projector {
	return Projector{Today: today, Locale: loc}
}

// IsOverdue reports whether an open task's due day is before today.
func IsOverdue(t model.Task, today model.Date) bool {
	return !t.DueDate.IsZero() && !t.Completed && t.DueDate.Before(today)
}

// FormatDue renders "Today", "Tomorrow" or a short month/day.
func FormatDue(d model.Date, today model.Date, loc Locale) string {
	switch {
	case d.IsZero():
		return ""
	case d == today:
		return loc.Today
	case d == today.AddDays(1):
		return loc.Tomorrow
	default:
		return loc.ShortDate(d)
	}
}

func (p Projector) Card(t model.Task) Card {
	return Card{
		Task:          t,
		Overdue:       IsOverdue(t, p.Today),
		DueLabel:      FormatDue(t.DueDate, p.Today, p.Locale),
		CategoryLabel: p.Locale.CategoryLabel(t.Category),
	}
}

func (p Projector) cards(tasks []model.Task) []Card {
	out := make([]Card, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, p.Card(t))
	}
	return out
}

// Pending lists open tasks matching f: highest priority first, then
// earliest due date, with undated tasks after dated ones.
func (p Projector) Pending(tasks []model.Task, f Filter) []Card {
	var open []model.Task
	for _, t := range tasks {
		if !t.Completed && f.matches(t) {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		a, b := open[i], open[j]
		if a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		switch {
		case a.DueDate.IsZero() && b.DueDate.IsZero():
			return false
		case a.DueDate.IsZero():
			return false
		case b.DueDate.IsZero():
			return true
		}
		return a.DueDate.Before(b.DueDate)
	})
	return p.cards(open)
}

// Completed lists done tasks, most recently completed first.
func (p Projector) Completed(tasks []model.Task) []Card {
	var done []model.Task
	for _, t := range tasks {
		if t.Completed {
			done = append(done, t)
		}
	}
	sort.SliceStable(done, func(i, j int) bool {
		return completedAt(done[i]).After(completedAt(done[j]))
	})
	return p.cards(done)
}

func completedAt(t model.Task) time.Time {
	if t.CompletedAt == nil {
		return time.Unix(0, 0)
	}
	return *t.CompletedAt
}

// Search matches query case-insensitively against title, description and
// category. A blank query never lists tasks.
func (p Projector) Search(tasks []model.Task, query string) SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return SearchResult{State: SearchEmptyQuery, Message: p.Locale.SearchPrompt}
	}

	var hits []model.Task
	for _, t := range tasks {
		if strings.Contains(strings.ToLower(t.Title), q) ||
			strings.Contains(strings.ToLower(t.Description), q) ||
			strings.Contains(strings.ToLower(string(t.Category)), q) {
			hits = append(hits, t)
		}
	}
	if len(hits) == 0 {
		return SearchResult{State: SearchNoResults, Message: p.Locale.NoResults}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Completed != b.Completed {
			return !a.Completed
		}
		return a.Priority.Weight() > b.Priority.Weight()
	})
	return SearchResult{State: SearchResults, Cards: p.cards(hits)}
}

type Stats struct {
	Total     int
	Completed int
	Pending   int
}

func Count(tasks []model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		if t.Completed {
			s.Completed++
		} else {
			s.Pending++
		}
	}
	return s
}
