// Package tui is the interactive terminal front end. It keeps only
// presentation state; every operation goes through app.Controller.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/tarefas/pkg/app"
	"github.com/harrisonrobin/tarefas/pkg/colors"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/remote"
	"github.com/harrisonrobin/tarefas/pkg/view"
)

const toastTTL = 3 * time.Second

type mode int

const (
	modeBrowse mode = iota
	modeAdd
	modeSearch
	modeConfirm
)

type confirmKind int

const (
	confirmDelete confirmKind = iota + 1
	confirmClear
)

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(colors.Muted)
	activeTabStyle = lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(colors.Accent).Underline(true)
	toastStyle     = lipgloss.NewStyle().Bold(true).Foreground(colors.Success)
	errStyle       = lipgloss.NewStyle().Foreground(colors.Overdue)
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(colors.Warning)
	helpStyle      = lipgloss.NewStyle().Foreground(colors.Muted)
)

// Model is the bubbletea model. The controller it wraps must be built
// with app.AlwaysConfirm because the model asks for confirmation itself.
type Model struct {
	ctx    context.Context
	ctrl   *app.Controller
	events *Events

	st      app.State
	mode    mode
	confirm confirmKind
	target  string

	input   textinput.Model
	spin    spinner.Model
	syncing bool

	toast    string
	toastSeq int
	err      error
}

func New(ctx context.Context, ctrl *app.Controller, events *Events) Model {
	in := textinput.New()
	in.Prompt = "› "
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	return Model{
		ctx:    ctx,
		ctrl:   ctrl,
		events: events,
		st:     app.State{View: app.ViewHome},
		input:  in,
		spin:   sp,
	}
}

// Run starts the program on the terminal and blocks until it quits.
func Run(ctx context.Context, ctrl *app.Controller, events *Events) error {
	p := tea.NewProgram(New(ctx, ctrl, events), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.events.wait()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case toastMsg:
		m.toastSeq++
		m.toast = msg.text
		seq := m.toastSeq
		return m, tea.Batch(m.events.wait(), tea.Tick(toastTTL, func(time.Time) tea.Msg {
			return clearToastMsg{seq: seq}
		}))

	case clearToastMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case statusMsg:
		return m, m.events.wait()

	case syncedMsg:
		m.syncing = false
		m.err = nil
		return m, nil

	case spinner.TickMsg:
		if !m.syncing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	switch m.mode {
	case modeConfirm:
		return m.handleConfirm(msg)
	case modeAdd, modeSearch:
		return m.handleInput(msg)
	}
	return m.handleBrowse(msg)
}

func (m Model) handleBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.err = nil
	switch key := msg.String(); key {
	case "q":
		return m, tea.Quit
	case "tab":
		m.st = m.ctrl.Show(m.st, cycleView(m.st.View, 1))
	case "shift+tab":
		m.st = m.ctrl.Show(m.st, cycleView(m.st.View, -1))
	case "1", "2", "3", "4":
		m.st = m.ctrl.Show(m.st, app.Views[key[0]-'1'])
	case "j", "down":
		m.move(1)
	case "k", "up":
		m.move(-1)
	case "a":
		m.mode = modeAdd
		m.input.Reset()
		return m, m.input.Focus()
	case "/":
		m.mode = modeSearch
		m.input.SetValue(m.st.Query)
		m.input.CursorEnd()
		m.st = m.ctrl.Search(m.st, m.st.Query)
		return m, m.input.Focus()
	case " ", "x":
		if id := m.current(); id != "" {
			m.st, _, m.err = m.ctrl.Toggle(m.st, id)
		}
	case "d":
		if id := m.current(); id != "" {
			m.mode, m.confirm, m.target = modeConfirm, confirmDelete, id
		}
	case "C":
		m.mode, m.confirm = modeConfirm, confirmClear
	case "p":
		f := m.st.Filter
		f.Priority = cycle(priorityFilters, f.Priority)
		m.st = m.ctrl.SetFilter(m.st, f)
	case "c":
		f := m.st.Filter
		f.Category = cycle(categoryFilters, f.Category)
		m.st = m.ctrl.SetFilter(m.st, f)
	case "r":
		if m.syncing {
			return m, nil
		}
		m.syncing = true
		m.ctrl.SetStatus(remote.StatusConnecting)
		return m, tea.Batch(m.sync(), m.spin.Tick)
	}
	return m, nil
}

func (m Model) handleInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		if m.mode == modeAdd {
			var (
				st  app.State
				ok  bool
				err error
			)
			st, _, ok, err = m.ctrl.QuickAdd(m.st, m.input.Value())
			if ok {
				m.st = st
			}
			m.err = err
			m.input.Reset()
		}
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.st = m.ctrl.Search(m.st, m.input.Value())
	}
	return m, cmd
}

func (m Model) handleConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if k := msg.String(); k == "y" || k == "Y" {
		switch m.confirm {
		case confirmDelete:
			m.st, _, m.err = m.ctrl.Delete(m.st, m.target)
		case confirmClear:
			m.st, _, m.err = m.ctrl.ClearCompleted(m.st)
		}
	}
	m.mode, m.confirm, m.target = modeBrowse, 0, ""
	return m, nil
}

func (m Model) sync() tea.Cmd {
	ctx, ctrl := m.ctx, m.ctrl
	return func() tea.Msg {
		status, err := ctrl.Sync(ctx)
		return syncedMsg{status: status, err: err}
	}
}

// screen renders the active view with the cursor on the first card when
// nothing visible is selected.
func (m Model) screen() view.Screen {
	scr := m.ctrl.Render(m.st)
	if scr.Cursor < 0 && len(scr.Cards) > 0 {
		scr.Cursor = 0
	}
	return scr
}

func (m Model) current() string {
	scr := m.screen()
	if len(scr.Cards) == 0 {
		return ""
	}
	return scr.Cards[scr.Cursor].Task.ID
}

func (m *Model) move(delta int) {
	scr := m.screen()
	if len(scr.Cards) == 0 {
		return
	}
	i := min(max(scr.Cursor+delta, 0), len(scr.Cards)-1)
	m.st.Selected = scr.Cards[i].Task.ID
}

func cycleView(v app.View, step int) app.View {
	n := len(app.Views)
	for i, known := range app.Views {
		if known == v {
			return app.Views[((i+step)%n+n)%n]
		}
	}
	return app.ViewHome
}

var (
	priorityFilters = []model.Priority{view.FilterAll, model.PriorityHigh, model.PriorityMedium, model.PriorityLow}
	categoryFilters = append([]model.Category{view.FilterAll}, model.Categories...)
)

func cycle[T comparable](options []T, cur T) T {
	for i, o := range options {
		if o == cur {
			return options[(i+1)%len(options)]
		}
	}
	if len(options) > 1 {
		return options[1]
	}
	return options[0]
}

func (m Model) View() string {
	loc := m.ctrl.Locale()
	scr := m.screen()

	var b strings.Builder
	b.WriteString(m.tabs(loc))
	b.WriteString("\n\n")
	b.WriteString(view.RenderScreen(scr, loc))
	b.WriteString("\n\n")

	switch m.mode {
	case modeAdd, modeSearch:
		b.WriteString(m.input.View())
	case modeConfirm:
		prompt := loc.DeletePrompt
		if m.confirm == confirmClear {
			prompt = loc.ClearPrompt
		}
		b.WriteString(promptStyle.Render(prompt + " [y/N]"))
	default:
		b.WriteString(helpStyle.Render(m.help(loc)))
	}

	if m.syncing {
		b.WriteString("\n" + m.spin.View())
	}
	if m.toast != "" {
		b.WriteString("\n" + toastStyle.Render(m.toast))
	}
	if m.err != nil {
		b.WriteString("\n" + errStyle.Render(m.err.Error()))
	}
	return b.String()
}

func (m Model) tabs(loc view.Locale) string {
	out := make([]string, 0, len(app.Views))
	for i, v := range app.Views {
		label := fmt.Sprintf("%d %s", i+1, loc.Headings[string(v)])
		if v == m.st.View {
			out = append(out, activeTabStyle.Render(label))
		} else {
			out = append(out, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (m Model) help(loc view.Locale) string {
	prio, cat := string(view.FilterAll), string(view.FilterAll)
	if p := m.st.Filter.Priority; p != "" && p != view.FilterAll {
		prio = loc.PriorityLabel(p)
	}
	if c := m.st.Filter.Category; c != "" && c != view.FilterAll {
		cat = loc.CategoryLabel(c)
	}
	return fmt.Sprintf("a add · space toggle · d delete · C clear done · / search · p %s · c %s · r sync · q quit",
		prio, cat)
}
