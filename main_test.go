package main

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/config"
	"github.com/harrisonrobin/tarefas/pkg/server"
)

type harness struct {
	entries *server.EntryStore
	cfgPath string
}

func newHarness(t *testing.T, backend string) *harness {
	t.Helper()
	entries := server.NewEntryStore(cache.NewMemorySlot(), "task-data")
	_, err := entries.Init()
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(entries, nil).Handler())
	t.Cleanup(ts.Close)

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Remote.URL = ts.URL + "/api"
	cfg.Cache.Backend = backend
	h := &harness{entries: entries, cfgPath: filepath.Join(dir, "config.yaml")}
	require.NoError(t, config.Save(cfg, h.cfgPath))
	return h
}

func (h *harness) run(args ...string) error {
	return newRootCommand().Run(context.Background(), append([]string{"tarefas", "--config", h.cfgPath}, args...))
}

func (h *harness) records(t *testing.T) []server.Record {
	t.Helper()
	recs, err := h.entries.List()
	require.NoError(t, err)
	return recs
}

func TestTaskCommandsReachTheBackend(t *testing.T) {
	for _, backend := range []string{"file", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			h := newHarness(t, backend)

			require.NoError(t, h.run("add", "--priority", "high", "--due", "2030-01-02", "Buy", "milk"))
			recs := h.records(t)
			require.Len(t, recs, 1)
			assert.Equal(t, "Buy milk", recs[0].Field("title"))
			assert.Equal(t, "high", recs[0].Field("priority"))
			assert.Equal(t, "2030-01-02", recs[0].Field("dueDate"))
			id := recs[0].ID()

			require.NoError(t, h.run("edit", "--title", "Buy oat milk", id))
			assert.Equal(t, "Buy oat milk", h.records(t)[0].Field("title"))

			require.NoError(t, h.run("done", id))
			assert.Equal(t, "true", string(h.records(t)[0]["completed"]))
			assert.NotEmpty(t, h.records(t)[0].Field("completedAt"))

			require.NoError(t, h.run("quick", "Call", "mom"))
			assert.Len(t, h.records(t), 2)

			require.NoError(t, h.run("list"))
			require.NoError(t, h.run("completed", "--pretty"))
			require.NoError(t, h.run("search", "mom"))
			require.NoError(t, h.run("stats"))

			require.NoError(t, h.run("clear", "--yes"))
			recs = h.records(t)
			require.Len(t, recs, 1)
			assert.Equal(t, "Call mom", recs[0].Field("title"))

			require.NoError(t, h.run("rm", "--yes", recs[0].ID()))
			assert.Empty(t, h.records(t))
		})
	}
}

func TestCommandErrors(t *testing.T) {
	h := newHarness(t, "file")

	assert.Error(t, h.run("add", "--priority", "urgent", "x"))
	assert.Error(t, h.run("add"))
	assert.Error(t, h.run("edit", "--title", "x", "missing-id"))
	assert.Error(t, h.run("edit", "missing-id"))
	assert.Error(t, h.run("done", "missing-id"))
	assert.Error(t, h.run("list", "--category", "chores"))
	assert.Empty(t, h.records(t))
}

func TestImportTaskwarriorFile(t *testing.T) {
	h := newHarness(t, "file")
	export := filepath.Join(t.TempDir(), "export.json")
	require.NoError(t, os.WriteFile(export, []byte(`[
		{"uuid":"u-1","description":"Renew passport","status":"pending","priority":"H","project":"personal"},
		{"uuid":"u-2","description":"Old","status":"deleted"}
	]`), 0600))

	require.NoError(t, h.run("import", "taskwarrior", "--file", export))
	recs := h.records(t)
	require.Len(t, recs, 1)
	assert.Equal(t, "u-1", recs[0].ID())

	// A second import recognizes the same ids.
	require.NoError(t, h.run("import", "tw", "--file", export))
	assert.Len(t, h.records(t), 1)
}

func TestImportOrg(t *testing.T) {
	h := newHarness(t, "file")
	org := filepath.Join(t.TempDir(), "todo.org")
	require.NoError(t, os.WriteFile(org, []byte("* TODO Water plants :personal:\n* DONE Pay rent\n"), 0600))

	require.NoError(t, h.run("import", "org", org))
	assert.Len(t, h.records(t), 2)
}

func TestConfigCommands(t *testing.T) {
	h := newHarness(t, "file")

	require.NoError(t, h.run("config", "set-calendar", "Agenda"))
	require.NoError(t, h.run("config", "set-remote", "--token", "s3cret", "http://example.test/api"))
	assert.Error(t, h.run("config", "set-remote", "not a url"))
	require.NoError(t, h.run("config", "show"))

	cfg, err := config.Load(h.cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "Agenda", cfg.Calendar.Name)
	assert.True(t, cfg.Calendar.Enabled)
	assert.Equal(t, "http://example.test/api", cfg.Remote.URL)
	assert.Equal(t, "s3cret", cfg.Remote.Token)
}
