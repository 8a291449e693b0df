// Package entry defines the record exchanged with the entries service and
// its mapping to model.Task.
package entry

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// RequiredFields must be present on every entry written to the service.
var RequiredFields = []string{"id", "date", "title", "content"}

var ErrMalformed = errors.New("malformed entry")

type Entry struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	Completed   bool   `json:"completed,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	CreatedAt   string `json:"createdAt,omitempty"`
	UpdatedAt   string `json:"updatedAt,omitempty"`
	CompletedAt string `json:"completedAt,omitempty"`
}

// FromTask maps a task onto the wire shape. A task without an entry date is
// stamped with today's date.
func FromTask(t model.Task, now time.Time) Entry {
	date := t.Date
	if date.IsZero() {
		date = model.DateOf(now)
	}
	created, updated := t.CreatedAt, t.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	e := Entry{
		ID:        t.ID,
		Date:      date.String(),
		Title:     t.Title,
		Content:   t.Description,
		Completed: t.Completed,
		Priority:  string(t.Priority),
		Category:  string(t.Category),
		DueDate:   t.DueDate.String(),
		CreatedAt: created.Format(time.RFC3339Nano),
		UpdatedAt: updated.Format(time.RFC3339Nano),
	}
	if e.Priority == "" {
		e.Priority = string(model.PriorityMedium)
	}
	if e.Category == "" {
		e.Category = string(model.CategoryPersonal)
	}
	if t.CompletedAt != nil {
		e.CompletedAt = t.CompletedAt.Format(time.RFC3339Nano)
	}
	return e
}

// FromTasks maps a whole collection. The result is never nil so it encodes
// as an empty JSON array.
func FromTasks(tasks []model.Task, now time.Time) []Entry {
	out := make([]Entry, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FromTask(t, now))
	}
	return out
}

// ToTask maps an entry back to a normalized task.
func ToTask(e Entry) (model.Task, error) {
	if e.ID == "" {
		return model.Task{}, fmt.Errorf("%w: missing id", ErrMalformed)
	}
	if strings.TrimSpace(e.Title) == "" {
		return model.Task{}, fmt.Errorf("%w: entry %s has no title", ErrMalformed, e.ID)
	}
	date, err := model.ParseDate(e.Date)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: entry %s: %v", ErrMalformed, e.ID, err)
	}
	due, err := model.ParseDate(e.DueDate)
	if err != nil {
		return model.Task{}, fmt.Errorf("%w: entry %s: %v", ErrMalformed, e.ID, err)
	}
	t := model.Task{
		ID:          e.ID,
		Title:       e.Title,
		Description: e.Content,
		Date:        date,
		Priority:    model.Priority(e.Priority),
		Category:    model.Category(e.Category),
		DueDate:     due,
		Completed:   e.Completed,
		CreatedAt:   parseTime(e.CreatedAt),
		UpdatedAt:   parseTime(e.UpdatedAt),
	}
	if at := parseTime(e.CompletedAt); !at.IsZero() {
		t.CompletedAt = &at
	}
	model.Normalize(&t)
	return t, nil
}

// ToTasks maps a collection, failing on the first malformed entry.
func ToTasks(entries []Entry) ([]model.Task, error) {
	out := make([]model.Task, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		t, err := ToTask(e)
		if err != nil {
			return nil, err
		}
		if seen[t.ID] {
			return nil, fmt.Errorf("%w: duplicate id %s", ErrMalformed, t.ID)
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out, nil
}

// MissingField returns the first required field absent from raw, or "".
func MissingField(raw map[string]json.RawMessage) string {
	for _, f := range RequiredFields {
		if _, ok := raw[f]; !ok {
			return f
		}
	}
	return ""
}

// parseTime accepts RFC 3339 timestamps and bare dates; anything else is
// treated as absent.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if d, err := model.ParseDate(s); err == nil && !d.IsZero() {
		return d.In(time.Local)
	}
	return time.Time{}
}
