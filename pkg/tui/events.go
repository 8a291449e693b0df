package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/remote"
)

type (
	toastMsg      struct{ text string }
	clearToastMsg struct{ seq int }
	statusMsg     remote.Status
	syncedMsg     struct {
		status remote.Status
		err    error
	}
)

// Events carries notifications from background goroutines (the save
// queue, the celebration hook) into the running program. Sends never
// block; a full buffer drops the message.
type Events struct {
	ch chan tea.Msg
}

func NewEvents() *Events {
	return &Events{ch: make(chan tea.Msg, 32)}
}

func (e *Events) send(msg tea.Msg) {
	select {
	case e.ch <- msg:
	default:
	}
}

// Celebrate implements app.Celebrator by showing a toast.
func (e *Events) Celebrate(_ model.Task, message string) {
	if message != "" {
		e.send(toastMsg{text: message})
	}
}

// Status is a remote.StatusFunc that asks the program to redraw.
func (e *Events) Status(s remote.Status) {
	e.send(statusMsg(s))
}

func (e *Events) wait() tea.Cmd {
	return func() tea.Msg { return <-e.ch }
}
