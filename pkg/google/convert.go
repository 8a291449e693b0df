package google

import (
	"fmt"
	"strings"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tarefas/pkg/colors"
	"github.com/harrisonrobin/tarefas/pkg/model"
)

// PropertyTaskID is the private extended property holding the task id.
const PropertyTaskID = "tarefas_id"

const (
	prefixDone    = "✓"
	prefixOverdue = "!"
)

// Summary is the event title for t: "✓ " when done, "! " when overdue.
func Summary(t model.Task, today model.Date) string {
	switch {
	case t.Completed:
		return prefixDone + " " + t.Title
	case !t.DueDate.IsZero() && t.DueDate.Before(today):
		return prefixOverdue + " " + t.Title
	}
	return t.Title
}

// TaskToEvent builds the all-day event mirroring t on its due day.
func TaskToEvent(t model.Task, today model.Date) (*calendar.Event, error) {
	if t.DueDate.IsZero() {
		return nil, fmt.Errorf("task %s has no due date", t.ID)
	}

	var desc strings.Builder
	if t.Description != "" {
		desc.WriteString(t.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Priority: %s\n", t.Priority)
	fmt.Fprintf(&desc, "Category: %s\n", t.Category)
	if t.Completed && t.CompletedAt != nil {
		fmt.Fprintf(&desc, "Completed: %s\n", t.CompletedAt.Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(&desc, "ID: %s\n", t.ID)

	return &calendar.Event{
		Summary:     Summary(t, today),
		Description: desc.String(),
		ColorId:     colors.EventColorID(t.Category),
		Start:       &calendar.EventDateTime{Date: t.DueDate.String()},
		End:         &calendar.EventDateTime{Date: t.DueDate.AddDays(1).String()},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{PropertyTaskID: t.ID},
		},
	}, nil
}

// EventNeedsUpdate returns a patch carrying the fields of target that differ
// from existing, or nil when they match.
func EventNeedsUpdate(existing, target *calendar.Event) *calendar.Event {
	patch := &calendar.Event{}
	changed := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		changed = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		changed = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		changed = true
	}
	if eventDay(existing.Start) != eventDay(target.Start) || eventDay(existing.End) != eventDay(target.End) {
		patch.Start = target.Start
		patch.End = target.End
		changed = true
	}

	if !changed {
		return nil
	}
	return patch
}

func eventDay(dt *calendar.EventDateTime) string {
	if dt == nil {
		return ""
	}
	if dt.Date != "" {
		return dt.Date
	}
	return dt.DateTime
}
