// Package colors maps categories and priorities to display colours, both
// for the terminal and for Google Calendar events.
package colors

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

// Calendar colour ids are the fixed event palette of the Calendar API
// ("1" lavender ... "11" tomato).
const defaultEventColorID = "8" // graphite

type swatch struct {
	Terminal lipgloss.Color
	EventID  string
}

var categorySwatches = map[model.Category]swatch{
	model.CategoryWork:     {Terminal: lipgloss.Color("#60A5FA"), EventID: "9"},  // blueberry
	model.CategoryPersonal: {Terminal: lipgloss.Color("#A78BFA"), EventID: "1"},  // lavender
	model.CategoryStudy:    {Terminal: lipgloss.Color("#F59E0B"), EventID: "5"},  // banana
	model.CategoryHealth:   {Terminal: lipgloss.Color("#10B981"), EventID: "10"}, // basil
	model.CategoryShopping: {Terminal: lipgloss.Color("#F472B6"), EventID: "4"},  // flamingo
	model.CategoryOther:    {Terminal: lipgloss.Color("#9CA3AF"), EventID: "8"},  // graphite
}

var priorityColors = map[model.Priority]lipgloss.Color{
	model.PriorityHigh:   lipgloss.Color("#EF4444"),
	model.PriorityMedium: lipgloss.Color("#F59E0B"),
	model.PriorityLow:    lipgloss.Color("#10B981"),
}

var (
	Muted   = lipgloss.Color("#6B7280")
	Overdue = lipgloss.Color("#EF4444")
	Accent  = lipgloss.Color("#7C3AED")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
)

func Category(c model.Category) lipgloss.Color {
	if s, ok := categorySwatches[c]; ok {
		return s.Terminal
	}
	return Muted
}

func Priority(p model.Priority) lipgloss.Color {
	if c, ok := priorityColors[p]; ok {
		return c
	}
	return priorityColors[model.PriorityMedium]
}

// EventColorID returns the calendar colour id for a category.
func EventColorID(c model.Category) string {
	if s, ok := categorySwatches[c]; ok {
		return s.EventID
	}
	return defaultEventColorID
}
