package app

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/remote"
	"github.com/harrisonrobin/tarefas/pkg/server"
	"github.com/harrisonrobin/tarefas/pkg/store"
	"github.com/harrisonrobin/tarefas/pkg/view"
)

type countingPusher struct {
	mu    sync.Mutex
	count int
}

func (p *countingPusher) Push(context.Context, []model.Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func (p *countingPusher) pushes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

type fakeFetcher struct {
	err error
}

func (f fakeFetcher) Fetch(context.Context) ([]model.Task, error) {
	return nil, f.err
}

type recordingCelebrator struct {
	got chan model.Task
}

func (r recordingCelebrator) Celebrate(t model.Task, _ string) { r.got <- t }

type panickyCelebrator struct{ done chan struct{} }

func (p panickyCelebrator) Celebrate(model.Task, string) {
	close(p.done)
	panic("boom")
}

var clock = time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	ctl    *Controller
	store  *store.Store
	pusher *countingPusher
}

func newFixture(t *testing.T, opts Options) fixture {
	t.Helper()
	p := &countingPusher{}
	s := store.New(cache.NewTaskCache(cache.NewMemorySlot(), nil), p, nil, nil)
	t.Cleanup(func() { s.Close(context.Background()) })
	if opts.Now == nil {
		opts.Now = func() time.Time { return clock }
	}
	return fixture{ctl: New(s, fakeFetcher{}, opts), store: s, pusher: p}
}

func (f fixture) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.store.Flush(ctx))
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	f := newFixture(t, Options{})

	_, _, err := f.ctl.Create(State{}, Input{Title: "   "})
	assert.ErrorIs(t, err, model.ErrEmptyTitle)

	st, _, added, err := f.ctl.QuickAdd(State{}, "")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, State{}, st)

	f.flush(t)
	assert.Empty(t, f.store.All())
	assert.Equal(t, 0, f.pusher.pushes())
}

func TestCreateParsesInput(t *testing.T) {
	f := newFixture(t, Options{})

	st, task, err := f.ctl.Create(State{View: ViewTasks}, Input{
		Title:    "  Write report ",
		Priority: "high",
		Category: "work",
		DueDate:  "2024-05-03",
	})
	require.NoError(t, err)
	assert.Equal(t, "Write report", task.Title)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, model.CategoryWork, task.Category)
	assert.Equal(t, "2024-05-03", task.DueDate.String())
	assert.Equal(t, task.ID, st.Selected)
	assert.Equal(t, ViewTasks, st.View)

	_, _, err = f.ctl.Create(State{}, Input{Title: "x", Priority: "urgent"})
	assert.Error(t, err)
	_, _, err = f.ctl.Create(State{}, Input{Title: "x", Category: "hobby"})
	assert.Error(t, err)
	_, _, err = f.ctl.Create(State{}, Input{Title: "x", DueDate: "tomorrow"})
	assert.Error(t, err)
	assert.Len(t, f.store.All(), 1)
}

func TestQuickAddUsesDefaults(t *testing.T) {
	f := newFixture(t, Options{})

	_, task, added, err := f.ctl.QuickAdd(State{}, "Call mom")
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, model.PriorityMedium, task.Priority)
	assert.Equal(t, model.CategoryPersonal, task.Category)
	assert.True(t, task.DueDate.IsZero())
	assert.False(t, task.Completed)
}

func TestEdit(t *testing.T) {
	f := newFixture(t, Options{})
	_, task, _, err := f.ctl.QuickAdd(State{}, "draft")
	require.NoError(t, err)

	later := clock.Add(time.Hour)
	f.ctl.now = func() time.Time { return later }

	_, edited, err := f.ctl.Edit(State{}, task.ID, Patch{
		Title:    Ptr("final"),
		Priority: Ptr("low"),
		DueDate:  Ptr("2024-06-01"),
	})
	require.NoError(t, err)
	assert.Equal(t, "final", edited.Title)
	assert.Equal(t, model.PriorityLow, edited.Priority)
	assert.Equal(t, model.CategoryPersonal, edited.Category)
	assert.Equal(t, later, edited.UpdatedAt)
	assert.Equal(t, task.CreatedAt, edited.CreatedAt)

	_, _, err = f.ctl.Edit(State{}, task.ID, Patch{Title: Ptr(" ")})
	assert.ErrorIs(t, err, model.ErrEmptyTitle)
	got, _ := f.store.Get(task.ID)
	assert.Equal(t, "final", got.Title)

	_, padded, err := f.ctl.Edit(State{}, task.ID, Patch{Description: Ptr("  padded  ")})
	require.NoError(t, err)
	got, _ = f.store.Get(task.ID)
	assert.Equal(t, "padded", padded.Description)
	assert.Equal(t, got.Description, padded.Description)

	_, cleared, err := f.ctl.Edit(State{}, task.ID, Patch{DueDate: Ptr("")})
	require.NoError(t, err)
	assert.True(t, cleared.DueDate.IsZero())

	_, _, err = f.ctl.Edit(State{}, "missing", Patch{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleSetsAndClearsCompletedAt(t *testing.T) {
	cel := recordingCelebrator{got: make(chan model.Task, 1)}
	f := newFixture(t, Options{Celebrator: cel})
	_, task, _, err := f.ctl.QuickAdd(State{}, "run")
	require.NoError(t, err)

	_, done, err := f.ctl.Toggle(State{}, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock, *done.CompletedAt)

	select {
	case got := <-cel.got:
		assert.Equal(t, task.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("celebrator not called")
	}

	_, undone, err := f.ctl.Toggle(State{}, task.ID)
	require.NoError(t, err)
	assert.False(t, undone.Completed)
	assert.Nil(t, undone.CompletedAt)

	select {
	case <-cel.got:
		t.Fatal("celebrator called when reopening a task")
	case <-time.After(20 * time.Millisecond):
	}

	_, _, err = f.ctl.Toggle(State{}, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTogglePanickingCelebrator(t *testing.T) {
	cel := panickyCelebrator{done: make(chan struct{})}
	f := newFixture(t, Options{Celebrator: cel})
	_, task, _, err := f.ctl.QuickAdd(State{}, "risky")
	require.NoError(t, err)

	_, done, err := f.ctl.Toggle(State{}, task.ID)
	require.NoError(t, err)
	<-cel.done

	stored, ok := f.store.Get(task.ID)
	require.True(t, ok)
	assert.True(t, stored.Completed)
	assert.Equal(t, done.CompletedAt, stored.CompletedAt)
}

func TestDeleteAsksFirst(t *testing.T) {
	answer := false
	var prompts []string
	f := newFixture(t, Options{Confirmer: ConfirmFunc(func(p string) bool {
		prompts = append(prompts, p)
		return answer
	})})
	_, task, _, err := f.ctl.QuickAdd(State{}, "keep me")
	require.NoError(t, err)
	f.flush(t)
	pushes := f.pusher.pushes()

	_, removed, err := f.ctl.Delete(State{Selected: task.ID}, task.ID)
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Len(t, f.store.All(), 1)
	f.flush(t)
	assert.Equal(t, pushes, f.pusher.pushes())

	answer = true
	st, removed, err := f.ctl.Delete(State{Selected: task.ID}, task.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, st.Selected)
	assert.Empty(t, f.store.All())
	assert.Equal(t, []string{view.English.DeletePrompt, view.English.DeletePrompt}, prompts)

	_, _, err = f.ctl.Delete(State{}, task.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClearCompleted(t *testing.T) {
	f := newFixture(t, Options{})
	_, a, _, _ := f.ctl.QuickAdd(State{}, "a")
	_, _, _, _ = f.ctl.QuickAdd(State{}, "b")
	_, c, _, _ := f.ctl.QuickAdd(State{}, "c")
	_, _, err := f.ctl.Toggle(State{}, a.ID)
	require.NoError(t, err)
	_, _, err = f.ctl.Toggle(State{}, c.ID)
	require.NoError(t, err)

	st, n, err := f.ctl.ClearCompleted(State{View: ViewTasks})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, ViewCompleted, st.View)
	require.Len(t, f.store.All(), 1)
	assert.Equal(t, "b", f.store.All()[0].Title)
}

func TestClearCompletedDeclined(t *testing.T) {
	f := newFixture(t, Options{Confirmer: ConfirmFunc(func(string) bool { return false })})
	_, a, _, _ := f.ctl.QuickAdd(State{}, "a")
	_, _, err := f.ctl.Toggle(State{}, a.ID)
	require.NoError(t, err)

	st, n, err := f.ctl.ClearCompleted(State{View: ViewTasks})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, ViewTasks, st.View)
	assert.Len(t, f.store.All(), 1)
}

func TestFilterOnlyAffectsPending(t *testing.T) {
	f := newFixture(t, Options{})
	_, _, err := f.ctl.Create(State{}, Input{Title: "work", Category: "work"})
	require.NoError(t, err)
	_, _, err = f.ctl.Create(State{}, Input{Title: "gym", Category: "health"})
	require.NoError(t, err)
	_, done, err := f.ctl.Create(State{}, Input{Title: "old work", Category: "work"})
	require.NoError(t, err)
	_, _, err = f.ctl.Toggle(State{}, done.ID)
	require.NoError(t, err)

	st := f.ctl.SetFilter(State{View: ViewTasks}, view.Filter{Category: model.CategoryHealth})
	scr := f.ctl.Render(st)
	require.Len(t, scr.Cards, 1)
	assert.Equal(t, "gym", scr.Cards[0].Task.Title)
	assert.Equal(t, view.Stats{Total: 3, Completed: 1, Pending: 2}, scr.Stats)

	scr = f.ctl.Render(f.ctl.Show(st, ViewCompleted))
	require.Len(t, scr.Cards, 1)
	assert.Equal(t, "old work", scr.Cards[0].Task.Title)
}

func TestRenderMessages(t *testing.T) {
	f := newFixture(t, Options{Locale: view.Portuguese})

	scr := f.ctl.Render(State{View: ViewTasks})
	assert.Empty(t, scr.Cards)
	assert.Equal(t, view.Portuguese.EmptyPending, scr.Message)

	scr = f.ctl.Render(State{View: ViewCompleted})
	assert.Equal(t, view.Portuguese.EmptyCompleted, scr.Message)

	st := f.ctl.Search(State{}, "  ")
	assert.Equal(t, ViewSearch, st.View)
	scr = f.ctl.Render(st)
	assert.Empty(t, scr.Cards)
	assert.Equal(t, view.Portuguese.SearchPrompt, scr.Message)

	_, task, _, err := f.ctl.QuickAdd(State{}, "Comprar pão")
	require.NoError(t, err)
	scr = f.ctl.Render(State{View: ViewSearch, Query: "PÃO", Selected: task.ID})
	require.Len(t, scr.Cards, 1)
	assert.Equal(t, 0, scr.Cursor)
	assert.Equal(t, view.Portuguese.Headings["search"], scr.Heading)
}

func TestSyncStatus(t *testing.T) {
	f := newFixture(t, Options{})
	status, err := f.ctl.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.StatusSynced, status)

	f.ctl.fetcher = fakeFetcher{err: &remote.OfflineError{Err: errors.New("down")}}
	status, err = f.ctl.Sync(context.Background())
	var offline *remote.OfflineError
	assert.ErrorAs(t, err, &offline)
	assert.Equal(t, remote.StatusOffline, status)
	assert.Equal(t, remote.StatusOffline, f.ctl.Status())
}

func TestImportSkipsExistingAndUntitled(t *testing.T) {
	f := newFixture(t, Options{})
	_, existing, _, err := f.ctl.QuickAdd(State{}, "already here")
	require.NoError(t, err)

	drafts := []model.Task{
		{Title: "from org", Priority: model.PriorityHigh},
		{Title: ""},
		{ID: existing.ID, Title: "duplicate"},
	}
	_, n, err := f.ctl.Import(State{}, drafts)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	all := f.store.All()
	require.Len(t, all, 2)
	assert.Equal(t, "already here", all[0].Title)
	assert.Equal(t, "from org", all[1].Title)
	assert.NotEmpty(t, all[1].ID)
	assert.Equal(t, model.CategoryPersonal, all[1].Category)
}

// gatedRemote serves the entries API but parks POSTs on gate while hold is
// set.
type gatedRemote struct {
	entries *server.EntryStore
	hold    atomic.Bool
	gate    chan struct{}
}

func newGatedRemote(t *testing.T) (*gatedRemote, string) {
	t.Helper()
	g := &gatedRemote{
		entries: server.NewEntryStore(cache.NewMemorySlot(), "task-data"),
		gate:    make(chan struct{}),
	}
	_, err := g.entries.Init()
	require.NoError(t, err)
	api := server.New(g.entries, nil).Handler()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && g.hold.Load() {
			<-g.gate
		}
		api.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)
	return g, srv.URL + "/api"
}

func TestSyncWaitsForInFlightSave(t *testing.T) {
	g, url := newGatedRemote(t)
	tc := cache.NewTaskCache(cache.NewMemorySlot(), nil)
	client := remote.NewClient(tc, remote.Options{BaseURL: url})
	s := store.New(tc, client, nil, nil)
	t.Cleanup(func() { s.Close(context.Background()) })
	ctl := New(s, client, Options{Now: func() time.Time { return clock }})
	f := fixture{ctl: ctl, store: s}

	_, task, _, err := ctl.QuickAdd(State{}, "a1")
	require.NoError(t, err)
	f.flush(t)
	_, err = ctl.Sync(context.Background())
	require.NoError(t, err)

	g.hold.Store(true)
	_, _, err = ctl.Toggle(State{}, task.ID)
	require.NoError(t, err)

	synced := make(chan error, 1)
	go func() {
		_, err := ctl.Sync(context.Background())
		synced <- err
	}()
	select {
	case err := <-synced:
		t.Fatalf("sync finished while a save was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(g.gate)
	select {
	case err := <-synced:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sync did not finish")
	}
	f.flush(t)

	local, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.True(t, local.Completed)

	recs, err := g.entries.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "true", string(recs[0]["completed"]))
}

func TestSyncResendsAfterFailedSave(t *testing.T) {
	g, url := newGatedRemote(t)
	tc := cache.NewTaskCache(cache.NewMemorySlot(), nil)
	client := remote.NewClient(tc, remote.Options{BaseURL: url})
	failing := &flakyPusher{Pusher: client, fail: true}
	s := store.New(tc, failing, nil, nil)
	t.Cleanup(func() { s.Close(context.Background()) })
	ctl := New(s, client, Options{Now: func() time.Time { return clock }})

	_, task, _, err := ctl.QuickAdd(State{}, "offline write")
	require.NoError(t, err)
	require.NoError(t, s.Flush(context.Background()))

	status, err := ctl.Sync(context.Background())
	var pushErr *remote.PushError
	require.ErrorAs(t, err, &pushErr)
	assert.Equal(t, remote.StatusErrorSavedLocally, status)
	_, ok := s.Get(task.ID)
	assert.True(t, ok, "a failed resend keeps the local write")

	failing.setFail(false)
	status, err = ctl.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, remote.StatusSynced, status)
	_, ok = s.Get(task.ID)
	assert.True(t, ok)

	recs, err := g.entries.List()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, task.ID, recs[0].ID())
}

// flakyPusher fails with a *remote.PushError while fail is set.
type flakyPusher struct {
	store.Pusher
	mu   sync.Mutex
	fail bool
}

func (p *flakyPusher) setFail(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = v
}

func (p *flakyPusher) Push(ctx context.Context, tasks []model.Task) error {
	p.mu.Lock()
	fail := p.fail
	p.mu.Unlock()
	if fail {
		return &remote.PushError{Err: errors.New("connection refused")}
	}
	return p.Pusher.Push(ctx, tasks)
}
