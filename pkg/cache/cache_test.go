package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

func slots(t *testing.T) map[string]Slot {
	t.Helper()
	sq, err := NewSQLiteSlot(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })

	return map[string]Slot{
		"memory": NewMemorySlot(),
		"file":   NewFileSlot(filepath.Join(t.TempDir(), "cache")),
		"sqlite": sq,
	}
}

func TestSlotRoundTrip(t *testing.T) {
	for name, slot := range slots(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := slot.Get("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, slot.Put("k", []byte("one")))
			require.NoError(t, slot.Put("k", []byte("two")))

			v, ok, err := slot.Get("k")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", string(v))
		})
	}
}

func TestTaskCacheEmptyWhenAbsent(t *testing.T) {
	c := NewTaskCache(NewMemorySlot(), nil)
	tasks := c.Tasks()
	assert.NotNil(t, tasks)
	assert.Empty(t, tasks)
}

func TestTaskCacheNormalizesOnLoad(t *testing.T) {
	slot := NewMemorySlot()
	raw := `[{"id":"a","title":"Old entry","completed":true,"updatedAt":"2024-01-02T03:04:05Z"}]`
	require.NoError(t, slot.Put(TasksKey, []byte(raw)))

	tasks := NewTaskCache(slot, nil).Tasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, model.PriorityMedium, tasks[0].Priority)
	assert.Equal(t, model.CategoryPersonal, tasks[0].Category)
	require.NotNil(t, tasks[0].CompletedAt)
	assert.True(t, tasks[0].CompletedAt.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestTaskCacheCorruptValue(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, TasksKey+".json"), []byte("{not json"), 0600))

	c := NewTaskCache(NewFileSlot(dir), nil)
	assert.Empty(t, c.Tasks())
}

func TestTaskCacheUpdate(t *testing.T) {
	c := NewTaskCache(NewMemorySlot(), nil)
	now := time.Now()
	first := model.New("first", "", model.PriorityLow, model.CategoryWork, model.Date{}, now)
	require.NoError(t, c.Replace([]model.Task{first}))

	written, err := c.Update(func(tasks []model.Task) []model.Task {
		return append(tasks, model.New("second", "", model.PriorityHigh, model.CategoryHealth, model.Date{}, now))
	})
	require.NoError(t, err)
	assert.Len(t, written, 2)

	got := c.Tasks()
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
}
