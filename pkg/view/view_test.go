package view

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

var now = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

func day(s string) model.Date {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mk(title string, p model.Priority, c model.Category, due string) model.Task {
	var d model.Date
	if due != "" {
		d = day(due)
	}
	return model.New(title, "", p, c, d, now)
}

func titles(cards []Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.Task.Title)
	}
	return out
}

func TestPendingOrdersByPriorityThenDue(t *testing.T) {
	p := NewProjector(testToday(), English)
	tasks := []model.Task{
		mk("B", model.PriorityLow, model.CategoryWork, "2099-01-01"),
		mk("A", model.PriorityHigh, model.CategoryWork, "2099-01-01"),
		mk("undated", model.PriorityMedium, model.CategoryWork, ""),
		mk("soon", model.PriorityMedium, model.CategoryWork, "2098-06-01"),
		mk("later", model.PriorityMedium, model.CategoryWork, "2098-07-01"),
	}
	assert.Equal(t, []string{"A", "soon", "later", "undated", "B"}, titles(p.Pending(tasks, Filter{})))
}

func testToday() model.Date { return model.DateOf(now) }

func TestPendingKeepsTiesInOrderAndIsIdempotent(t *testing.T) {
	p := NewProjector(testToday(), English)
	tasks := []model.Task{
		mk("first", model.PriorityMedium, model.CategoryWork, ""),
		mk("second", model.PriorityMedium, model.CategoryHealth, ""),
		mk("third", model.PriorityMedium, model.CategoryStudy, ""),
	}
	once := p.Pending(tasks, Filter{})
	assert.Equal(t, []string{"first", "second", "third"}, titles(once))

	var again []model.Task
	for _, c := range once {
		again = append(again, c.Task)
	}
	assert.Equal(t, titles(once), titles(p.Pending(again, Filter{})))
}

func TestPendingSkipsCompletedAndFilters(t *testing.T) {
	p := NewProjector(testToday(), English)
	done := mk("done", model.PriorityHigh, model.CategoryWork, "")
	done.SetCompleted(true, now)
	tasks := []model.Task{
		done,
		mk("work high", model.PriorityHigh, model.CategoryWork, ""),
		mk("work low", model.PriorityLow, model.CategoryWork, ""),
		mk("health high", model.PriorityHigh, model.CategoryHealth, ""),
	}

	assert.Equal(t, []string{"work high", "health high", "work low"}, titles(p.Pending(tasks, Filter{})))
	assert.Equal(t, []string{"work high", "health high", "work low"},
		titles(p.Pending(tasks, Filter{Priority: FilterAll, Category: FilterAll})))
	assert.Equal(t, []string{"work high", "health high"},
		titles(p.Pending(tasks, Filter{Priority: model.PriorityHigh})))
	assert.Equal(t, []string{"work high"},
		titles(p.Pending(tasks, Filter{Priority: model.PriorityHigh, Category: model.CategoryWork})))
	assert.Empty(t, p.Pending(tasks, Filter{Category: model.CategoryShopping}))
}

func TestCompletedNewestFirst(t *testing.T) {
	p := NewProjector(testToday(), English)
	older := mk("older", model.PriorityLow, model.CategoryWork, "")
	older.SetCompleted(true, now.Add(-time.Hour))
	newer := mk("newer", model.PriorityLow, model.CategoryWork, "")
	newer.SetCompleted(true, now)
	open := mk("open", model.PriorityLow, model.CategoryWork, "")

	assert.Equal(t, []string{"newer", "older"}, titles(p.Completed([]model.Task{older, open, newer})))
}

func TestOverdue(t *testing.T) {
	today := day("2024-03-10")
	yesterday := mk("late", model.PriorityMedium, model.CategoryWork, "2024-03-09")
	assert.True(t, IsOverdue(yesterday, today))

	yesterday.SetCompleted(true, now)
	assert.False(t, IsOverdue(yesterday, today))

	assert.False(t, IsOverdue(mk("today", model.PriorityMedium, model.CategoryWork, "2024-03-10"), today))
	assert.False(t, IsOverdue(mk("none", model.PriorityMedium, model.CategoryWork, ""), today))
}

func TestFormatDue(t *testing.T) {
	today := day("2024-03-10")
	assert.Equal(t, "Today", FormatDue(today, today, English))
	assert.Equal(t, "Tomorrow", FormatDue(day("2024-03-11"), today, English))
	assert.Equal(t, "Mar 25", FormatDue(day("2024-03-25"), today, English))
	assert.Equal(t, "Hoje", FormatDue(today, today, Portuguese))
	assert.Equal(t, "Amanhã", FormatDue(day("2024-03-11"), today, Portuguese))
	assert.Equal(t, "25 de mar.", FormatDue(day("2024-03-25"), today, Portuguese))
	assert.Equal(t, "", FormatDue(model.Date{}, today, English))
	assert.Equal(t, "Tomorrow", FormatDue(day("2025-01-01"), day("2024-12-31"), English))
}

func TestCardLabels(t *testing.T) {
	p := NewProjector(day("2024-03-10"), Portuguese)
	c := p.Card(mk("x", model.PriorityMedium, model.CategoryHealth, "2024-03-01"))
	assert.True(t, c.Overdue)
	assert.Equal(t, "Saúde", c.CategoryLabel)
	assert.Equal(t, "1 de mar.", c.DueLabel)
}

func TestSearch(t *testing.T) {
	p := NewProjector(testToday(), English)
	milk := mk("Buy milk", model.PriorityLow, model.CategoryShopping, "")
	report := mk("Report", model.PriorityHigh, model.CategoryWork, "")
	report.Description = "quarterly MILK numbers"
	done := mk("milkshake", model.PriorityHigh, model.CategoryOther, "")
	done.SetCompleted(true, now)
	tasks := []model.Task{done, milk, report}

	for _, q := range []string{"", "   "} {
		r := p.Search(tasks, q)
		assert.Equal(t, SearchEmptyQuery, r.State)
		assert.Empty(t, r.Cards)
		assert.Equal(t, English.SearchPrompt, r.Message)
	}

	r := p.Search(tasks, "zzz")
	assert.Equal(t, SearchNoResults, r.State)
	assert.Equal(t, English.NoResults, r.Message)

	r = p.Search(tasks, "Milk")
	require.Equal(t, SearchResults, r.State)
	assert.Equal(t, []string{"Report", "Buy milk", "milkshake"}, titles(r.Cards))

	r = p.Search(tasks, "shopping")
	assert.Equal(t, []string{"Buy milk"}, titles(r.Cards))
}

func TestCount(t *testing.T) {
	done := mk("a", model.PriorityLow, model.CategoryWork, "")
	done.SetCompleted(true, now)
	s := Count([]model.Task{done, mk("b", model.PriorityLow, model.CategoryWork, "")})
	assert.Equal(t, Stats{Total: 2, Completed: 1, Pending: 1}, s)
	assert.Equal(t, Stats{}, Count(nil))
}

func TestLocaleFor(t *testing.T) {
	assert.Equal(t, Portuguese.Tag, LocaleFor("pt-BR").Tag)
	assert.Equal(t, Portuguese.Tag, LocaleFor("pt").Tag)
	assert.Equal(t, English.Tag, LocaleFor("en-US").Tag)
	assert.Equal(t, English.Tag, LocaleFor("").Tag)
	assert.Equal(t, English.Tag, LocaleFor("not a tag!").Tag)
}

func TestRenderCards(t *testing.T) {
	assert.Contains(t, RenderCards(nil, English.EmptyPending, 0), English.EmptyPending)

	p := NewProjector(day("2024-03-10"), English)
	late := mk("Pay rent", model.PriorityHigh, model.CategoryPersonal, "2024-03-01")
	late.Description = "landlord"
	out := RenderCards([]Card{p.Card(late)}, "", 0)
	assert.Contains(t, out, "Pay rent")
	assert.Contains(t, out, "landlord")
	assert.Contains(t, out, "! Mar 1")
	assert.Contains(t, out, "Personal")
}
