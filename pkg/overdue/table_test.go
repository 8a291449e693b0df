package overdue

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

func dated(id, due string) model.Task {
	d, err := model.ParseDate(due)
	if err != nil {
		panic(err)
	}
	t := model.New("task "+id, "", model.PriorityMedium, model.CategoryWork, d, time.Now())
	t.ID = id
	return t
}

func TestTrackAndSweep(t *testing.T) {
	today := model.Date{Year: 2024, Month: time.June, Day: 10}
	tbl, err := Open(filepath.Join(t.TempDir(), FileName))
	require.NoError(t, err)

	tbl.Track(dated("a", "2024-06-11"), "ev-a", today)
	tbl.Track(dated("b", "2024-06-12"), "ev-b", today)
	tbl.Track(dated("late", "2024-06-01"), "ev-late", today)
	tbl.Track(dated("noevent", "2024-06-20"), "", today)

	done := dated("done", "2024-06-15")
	done.SetCompleted(true, time.Now())
	tbl.Track(done, "ev-done", today)

	assert.Len(t, tbl.Entries, 2)

	assert.Empty(t, tbl.Sweep(today))

	swept := tbl.Sweep(today.AddDays(3))
	require.Len(t, swept, 2)
	assert.Equal(t, "a", swept[0].TaskID)
	assert.Equal(t, "ev-b", swept[1].EventID)
	assert.Empty(t, tbl.Entries)
}

func TestSavedTableSurvivesReopen(t *testing.T) {
	today := model.Date{Year: 2024, Month: time.June, Day: 10}
	path := filepath.Join(t.TempDir(), "nested", FileName)
	tbl, err := Open(path)
	require.NoError(t, err)

	tbl.Track(dated("a", "2024-06-11"), "ev-a", today)
	require.NoError(t, tbl.Save())

	again, err := Open(path)
	require.NoError(t, err)
	require.Contains(t, again.Entries, "a")
	assert.Equal(t, "2024-06-11", again.Entries["a"].Due.String())

	again.Track(dated("a", ""), "ev-a", today)
	assert.Empty(t, again.Entries)
}
