package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyTitle is returned when a task would be saved without a title.
var ErrEmptyTitle = errors.New("task title is required")

type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Weight orders priorities for sorting. Unknown values weigh as medium.
func (p Priority) Weight() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

func (p Priority) Valid() bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// ParsePriority accepts the canonical names plus the single-letter forms
// used by taskwarrior and org-mode exports (H/M/L).
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return PriorityMedium, nil
	case "high", "h":
		return PriorityHigh, nil
	case "medium", "m":
		return PriorityMedium, nil
	case "low", "l":
		return PriorityLow, nil
	}
	return "", fmt.Errorf("unknown priority %q (want high, medium or low)", s)
}

type Category string

const (
	CategoryWork     Category = "work"
	CategoryPersonal Category = "personal"
	CategoryStudy    Category = "study"
	CategoryHealth   Category = "health"
	CategoryShopping Category = "shopping"
	CategoryOther    Category = "other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryStudy,
	CategoryHealth,
	CategoryShopping,
	CategoryOther,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == "" {
		return CategoryPersonal, nil
	}
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Task is a single to-do record. The JSON names match the local cache layout.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Date        Date       `json:"date"`
	Priority    Priority   `json:"priority"`
	Category    Category   `json:"category"`
	DueDate     Date       `json:"dueDate"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// New builds a pending task with a fresh id and timestamps. The result is
// normalized but not validated.
func New(title, description string, priority Priority, category Category, due Date, now time.Time) Task {
	t := Task{
		ID:          NewID(now),
		Title:       title,
		Description: description,
		Date:        DateOf(now),
		Priority:    priority,
		Category:    category,
		DueDate:     due,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	Normalize(&t)
	return t
}

// NewID returns a millisecond timestamp followed by a random suffix.
func NewID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strconv.FormatInt(now.UnixMilli(), 10) + suffix[:9]
}

// SetCompleted flips the completion state and keeps CompletedAt consistent
// with it. It reports whether the task transitioned to completed.
func (t *Task) SetCompleted(done bool, now time.Time) bool {
	was := t.Completed
	t.Completed = done
	if done {
		if !was || t.CompletedAt == nil {
			at := now
			t.CompletedAt = &at
		}
	} else {
		t.CompletedAt = nil
	}
	t.UpdatedAt = now
	return done && !was
}

// Normalize fills defaults for missing or unknown fields. It is applied
// wherever tasks enter the store: cache loads, remote fetches and writes.
func Normalize(t *Task) {
	t.Title = strings.TrimSpace(t.Title)
	t.Description = strings.TrimSpace(t.Description)
	if !t.Priority.Valid() {
		t.Priority = PriorityMedium
	}
	if !t.Category.Valid() {
		t.Category = CategoryPersonal
	}

	if t.CreatedAt.IsZero() {
		if !t.Date.IsZero() {
			t.CreatedAt = t.Date.In(time.Local)
		} else {
			t.CreatedAt = time.Now()
		}
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	if t.Date.IsZero() {
		t.Date = DateOf(t.CreatedAt)
	}

	if !t.Completed {
		t.CompletedAt = nil
	} else if t.CompletedAt == nil {
		at := t.UpdatedAt
		if at.IsZero() {
			at = time.Unix(0, 0).UTC()
		}
		t.CompletedAt = &at
	}
}

// Validate reports whether t can be persisted.
func Validate(t Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	return nil
}

// NormalizeAll normalizes a slice in place and returns it.
func NormalizeAll(tasks []Task) []Task {
	for i := range tasks {
		Normalize(&tasks[i])
	}
	return tasks
}
