package view

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/tarefas/pkg/colors"
)

var (
	titleStyle     = lipgloss.NewStyle().Bold(true)
	doneTitleStyle = lipgloss.NewStyle().Strikethrough(true).Foreground(colors.Muted)
	descStyle      = lipgloss.NewStyle().Foreground(colors.Muted)
	overdueStyle   = lipgloss.NewStyle().Foreground(colors.Overdue).Bold(true)
	dueStyle       = lipgloss.NewStyle().Foreground(colors.Accent)
	emptyStyle     = lipgloss.NewStyle().Foreground(colors.Muted).Italic(true)
	selectedStyle  = lipgloss.NewStyle().Foreground(colors.Accent).Bold(true)
)

// RenderCard draws one task as a single line plus an optional description
// line. selected marks the cursor row.
func RenderCard(c Card, selected bool) string {
	cursor := "  "
	if selected {
		cursor = selectedStyle.Render("› ")
	}

	box := "[ ]"
	title := titleStyle.Render(c.Task.Title)
	if c.Task.Completed {
		box = "[✓]"
		title = doneTitleStyle.Render(c.Task.Title)
	}

	prio := lipgloss.NewStyle().Foreground(colors.Priority(c.Task.Priority)).
		Render("●")
	cat := lipgloss.NewStyle().Foreground(colors.Category(c.Task.Category)).
		Render(c.CategoryLabel)

	parts := []string{cursor + box, prio, title, cat}
	if c.DueLabel != "" {
		if c.Overdue {
			parts = append(parts, overdueStyle.Render("! "+c.DueLabel))
		} else {
			parts = append(parts, dueStyle.Render(c.DueLabel))
		}
	}
	line := strings.Join(parts, " ")

	if c.Task.Description != "" {
		line += "\n      " + descStyle.Render(c.Task.Description)
	}
	return line
}

// RenderCards draws cards one per line, or the empty message.
func RenderCards(cards []Card, empty string, cursor int) string {
	if len(cards) == 0 {
		return emptyStyle.Render(empty)
	}
	var b strings.Builder
	for i, c := range cards {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(RenderCard(c, i == cursor))
	}
	return b.String()
}

// RenderStats draws the header counters.
func RenderStats(s Stats, loc Locale) string {
	if loc.Tag == Portuguese.Tag {
		return fmt.Sprintf("%d pendentes · %d concluídas · %d no total", s.Pending, s.Completed, s.Total)
	}
	return fmt.Sprintf("%d pending · %d done · %d total", s.Pending, s.Completed, s.Total)
}

// Screen is everything a front end needs to draw the active view.
type Screen struct {
	Heading string
	Cards   []Card
	// Message replaces the card list when it is empty or a search has
	// nothing to show.
	Message string
	Stats   Stats
	Status  string
	Cursor  int
}

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colors.Accent)
	footerStyle  = lipgloss.NewStyle().Foreground(colors.Muted)
)

// RenderScreen draws a heading, the stats line, the list and a status
// footer.
func RenderScreen(s Screen, loc Locale) string {
	body := RenderCards(s.Cards, s.Message, s.Cursor)
	if len(s.Cards) > 0 && s.Message != "" {
		body = emptyStyle.Render(s.Message) + "\n" + body
	}
	parts := []string{
		headingStyle.Render(s.Heading),
		footerStyle.Render(RenderStats(s.Stats, loc)),
		"",
		body,
	}
	if s.Status != "" {
		parts = append(parts, "", footerStyle.Render(s.Status))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}
