// Package app holds the interaction controller shared by the CLI and the
// TUI. Handlers take the current State and return the next one; the
// controller itself keeps no UI state.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/remote"
	"github.com/harrisonrobin/tarefas/pkg/view"
)

// ErrNotFound is returned when a handler is given an unknown task id.
var ErrNotFound = errors.New("task not found")

type View string

const (
	ViewHome      View = "home"
	ViewTasks     View = "tasks"
	ViewCompleted View = "completed"
	ViewSearch    View = "search"
)

// Views lists the views in navigation order.
var Views = []View{ViewHome, ViewTasks, ViewCompleted, ViewSearch}

// State is the UI state a front end carries between handler calls.
type State struct {
	View     View
	Filter   view.Filter
	Query    string
	Selected string
}

// Store is the part of the task store the controller needs.
type Store interface {
	All() []model.Task
	Get(id string) (model.Task, bool)
	Upsert(t model.Task) error
	Remove(id string) (bool, error)
	RemoveWhere(pred func(model.Task) bool) (int, error)
	Refresh(ctx context.Context, fetch func(context.Context) ([]model.Task, error)) (bool, error)
}

// Fetcher reads the authoritative collection.
type Fetcher interface {
	Fetch(ctx context.Context) ([]model.Task, error)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm approves everything. Front ends that already asked use it.
var AlwaysConfirm = ConfirmFunc(func(string) bool { return true })

// Celebrator is told when a task gets completed.
type Celebrator interface {
	Celebrate(task model.Task, message string)
}

type NopCelebrator struct{}

func (NopCelebrator) Celebrate(model.Task, string) {}

type Options struct {
	Confirmer  Confirmer
	Celebrator Celebrator
	Locale     view.Locale
	Logger     *slog.Logger
	Now        func() time.Time
}

type Controller struct {
	store     Store
	fetcher   Fetcher
	confirm   Confirmer
	celebrate Celebrator
	locale    view.Locale
	logger    *slog.Logger
	now       func() time.Time

	mu     sync.Mutex
	status remote.Status
}

func New(s Store, f Fetcher, opts Options) *Controller {
	c := &Controller{
		store:     s,
		fetcher:   f,
		confirm:   opts.Confirmer,
		celebrate: opts.Celebrator,
		locale:    opts.Locale,
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if c.confirm == nil {
		c.confirm = AlwaysConfirm
	}
	if c.celebrate == nil {
		c.celebrate = NopCelebrator{}
	}
	if c.locale.Headings == nil {
		c.locale = view.English
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

func (c *Controller) Locale() view.Locale { return c.locale }

// SetStatus records the latest sync status. It matches remote.StatusFunc
// and may be called from any goroutine.
func (c *Controller) SetStatus(s remote.Status) {
	c.mu.Lock()
	c.status = s
	c.mu.Unlock()
}

func (c *Controller) Status() remote.Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Create adds a task from the form input. Nothing is stored when the
// title is empty or a field does not parse.
func (c *Controller) Create(st State, in Input) (State, model.Task, error) {
	p, err := in.parse()
	if err != nil {
		return st, model.Task{}, err
	}
	t := model.New(in.Title, in.Description, p.priority, p.category, p.due, c.now())
	if err := model.Validate(t); err != nil {
		return st, model.Task{}, err
	}
	if err := c.store.Upsert(t); err != nil {
		return st, model.Task{}, err
	}
	c.logger.Debug("task created", "id", t.ID)
	st.Selected = t.ID
	return st, t, nil
}

// QuickAdd creates a task with default fields. A blank title does nothing
// and reports false.
func (c *Controller) QuickAdd(st State, title string) (State, model.Task, bool, error) {
	st, t, err := c.Create(st, Input{Title: title})
	if errors.Is(err, model.ErrEmptyTitle) {
		return st, model.Task{}, false, nil
	}
	if err != nil {
		return st, model.Task{}, false, err
	}
	return st, t, true, nil
}

// Edit merges patch into the task with id.
func (c *Controller) Edit(st State, id string, patch Patch) (State, model.Task, error) {
	t, ok := c.store.Get(id)
	if !ok {
		return st, model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err := patch.apply(&t); err != nil {
		return st, model.Task{}, err
	}
	t.UpdatedAt = c.now()
	model.Normalize(&t)
	if err := c.store.Upsert(t); err != nil {
		return st, model.Task{}, err
	}
	st.Selected = t.ID
	return st, t, nil
}

// Toggle flips completion. Completing a task fires the celebrator.
func (c *Controller) Toggle(st State, id string) (State, model.Task, error) {
	t, ok := c.store.Get(id)
	if !ok {
		return st, model.Task{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	justDone := t.SetCompleted(!t.Completed, c.now())
	if err := c.store.Upsert(t); err != nil {
		return st, model.Task{}, err
	}
	if justDone {
		c.fireCelebration(t)
	}
	return st, t, nil
}

// fireCelebration runs the celebrator on its own goroutine so a slow or
// panicking hook cannot touch the caller.
func (c *Controller) fireCelebration(t model.Task) {
	msg := ""
	if n := len(c.locale.Celebrations); n > 0 {
		msg = c.locale.Celebrations[rand.IntN(n)]
	}
	cel := c.celebrate
	logger := c.logger
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Warn("celebration hook panicked", "panic", r)
			}
		}()
		cel.Celebrate(t, msg)
	}()
}

// Delete removes a task after confirmation. It reports whether the task
// was removed; a declined prompt is not an error.
func (c *Controller) Delete(st State, id string) (State, bool, error) {
	if _, ok := c.store.Get(id); !ok {
		return st, false, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if !c.confirm.Confirm(c.locale.DeletePrompt) {
		return st, false, nil
	}
	removed, err := c.store.Remove(id)
	if err != nil {
		return st, false, err
	}
	if st.Selected == id {
		st.Selected = ""
	}
	return st, removed, nil
}

// ClearCompleted removes every completed task after confirmation and shows
// the completed view.
func (c *Controller) ClearCompleted(st State) (State, int, error) {
	if !c.confirm.Confirm(c.locale.ClearPrompt) {
		return st, 0, nil
	}
	n, err := c.store.RemoveWhere(func(t model.Task) bool { return t.Completed })
	if err != nil {
		return st, 0, err
	}
	st.View = ViewCompleted
	st.Selected = ""
	return st, n, nil
}

func (c *Controller) SetFilter(st State, f view.Filter) State {
	st.Filter = f
	return st
}

func (c *Controller) Search(st State, query string) State {
	st.View = ViewSearch
	st.Query = query
	return st
}

func (c *Controller) Show(st State, v View) State {
	st.View = v
	st.Selected = ""
	return st
}

// Sync reloads the collection from the remote once queued saves have
// landed. An *remote.OfflineError means the local copy is in use and a
// *remote.PushError that local changes still could not be sent; the
// returned status is final either way.
func (c *Controller) Sync(ctx context.Context) (remote.Status, error) {
	status := remote.StatusSynced
	replaced, err := c.store.Refresh(ctx, c.fetcher.Fetch)
	var pushErr *remote.PushError
	switch {
	case errors.As(err, &pushErr):
		status = remote.StatusErrorSavedLocally
	case err != nil:
		status = remote.StatusOffline
	case !replaced:
		c.logger.Debug("kept local changes made during sync")
	}
	c.SetStatus(status)
	return status, err
}

// Import stores drafts produced by an importer. Drafts without a title are
// skipped; drafts whose id is already present are left alone.
func (c *Controller) Import(st State, drafts []model.Task) (State, int, error) {
	n := 0
	for _, d := range drafts {
		if d.ID == "" {
			d.ID = model.NewID(c.now())
		} else if _, exists := c.store.Get(d.ID); exists {
			continue
		}
		if d.CreatedAt.IsZero() {
			d.CreatedAt = c.now()
		}
		model.Normalize(&d)
		if model.Validate(d) != nil {
			continue
		}
		if err := c.store.Upsert(d); err != nil {
			return st, n, err
		}
		n++
	}
	return st, n, nil
}

// Render projects the collection for the active view.
func (c *Controller) Render(st State) view.Screen {
	tasks := c.store.All()
	p := view.NewProjector(model.DateOf(c.now()), c.locale)

	scr := view.Screen{
		Heading: c.locale.Headings[string(st.View)],
		Stats:   view.Count(tasks),
		Status:  c.locale.Statuses[string(c.Status())],
	}
	switch st.View {
	case ViewCompleted:
		scr.Cards = p.Completed(tasks)
		if len(scr.Cards) == 0 {
			scr.Message = c.locale.EmptyCompleted
		}
	case ViewSearch:
		r := p.Search(tasks, st.Query)
		scr.Cards = r.Cards
		scr.Message = r.Message
	default:
		scr.Cards = p.Pending(tasks, st.Filter)
		if len(scr.Cards) == 0 {
			scr.Message = c.locale.EmptyPending
		}
	}
	if scr.Heading == "" {
		scr.Heading = c.locale.Headings[string(ViewHome)]
	}
	scr.Cursor = -1
	for i, card := range scr.Cards {
		if card.Task.ID == st.Selected {
			scr.Cursor = i
			break
		}
	}
	return scr
}
