// Package overdue tracks open dated tasks between calendar syncs so that
// tasks whose due day has passed can be re-marked without a full sync.
package overdue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/harrisonrobin/tarefas/pkg/model"
)

const FileName = "pending_tasks.json"

type Entry struct {
	TaskID  string     `json:"task_id"`
	EventID string     `json:"event_id"`
	Title   string     `json:"title"`
	Due     model.Date `json:"due"`
}

type Table struct {
	Entries map[string]Entry `json:"entries"`
	path    string
	dirty   bool
}

// Open loads the table at path; a missing file gives an empty table.
func Open(path string) (*Table, error) {
	t := &Table{path: path, Entries: make(map[string]Entry)}
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return t, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, t); err != nil {
		return nil, fmt.Errorf("decode overdue table %s: %w", path, err)
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return t, nil
}

func (t *Table) Save() error {
	if !t.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(t.path, b, 0600); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Track records task if it is open, dated and not yet overdue on today;
// otherwise it drops it.
func (t *Table) Track(task model.Task, eventID string, today model.Date) {
	if task.Completed || task.DueDate.IsZero() || task.DueDate.Before(today) || eventID == "" {
		t.Remove(task.ID)
		return
	}
	next := Entry{TaskID: task.ID, EventID: eventID, Title: task.Title, Due: task.DueDate}
	if old, ok := t.Entries[task.ID]; !ok || old != next {
		t.Entries[task.ID] = next
		t.dirty = true
	}
}

func (t *Table) Remove(taskID string) {
	if _, ok := t.Entries[taskID]; ok {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}

// Sweep removes and returns the entries whose due day is before today,
// ordered by due day.
func (t *Table) Sweep(today model.Date) []Entry {
	var swept []Entry
	for id, e := range t.Entries {
		if e.Due.Before(today) {
			swept = append(swept, e)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	sort.Slice(swept, func(i, j int) bool {
		if swept[i].Due != swept[j].Due {
			return swept[i].Due.Before(swept[j].Due)
		}
		return swept[i].TaskID < swept[j].TaskID
	})
	return swept
}
