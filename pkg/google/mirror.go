package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/tarefas/pkg/index"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/overdue"
)

// Mirror keeps the calendar in line with the task collection.
type Mirror struct {
	cal    *CalendarClient
	index  *index.EventIndex
	table  *overdue.Table
	logger *slog.Logger
}

type Report struct {
	Synced  int
	Deleted int
	Overdue int
	Failed  int
}

func NewMirror(cal *CalendarClient, idx *index.EventIndex, table *overdue.Table, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mirror{cal: cal, index: idx, table: table, logger: logger}
}

// Sync mirrors every dated task and deletes the events of tasks that are
// gone or lost their due date. Per-task failures are logged and counted;
// the returned error joins them.
func (m *Mirror) Sync(ctx context.Context, tasks []model.Task, today model.Date) (Report, error) {
	var (
		rep   Report
		errs  []error
		dated = make(map[string]bool)
	)

	for _, t := range tasks {
		if t.DueDate.IsZero() {
			continue
		}
		dated[t.ID] = true
		ev, err := m.cal.SyncTask(ctx, t, today)
		if err != nil {
			m.logger.Warn("calendar sync failed", "task", t.ID, "error", err)
			errs = append(errs, fmt.Errorf("sync %s: %w", t.ID, err))
			rep.Failed++
			continue
		}
		rep.Synced++
		if m.table != nil {
			m.table.Track(t, ev.Id, today)
		}
	}

	if m.index != nil {
		for _, id := range m.index.TaskIDs() {
			if dated[id] {
				continue
			}
			if err := m.cal.DeleteTask(ctx, id); err != nil {
				m.logger.Warn("calendar delete failed", "task", id, "error", err)
				errs = append(errs, fmt.Errorf("delete %s: %w", id, err))
				rep.Failed++
				continue
			}
			if m.table != nil {
				m.table.Remove(id)
			}
			rep.Deleted++
		}
	}

	if err := m.save(); err != nil {
		errs = append(errs, err)
	}
	return rep, errors.Join(errs...)
}

// Sweep marks the events of tasks that became overdue since the last sync.
func (m *Mirror) Sweep(ctx context.Context, today model.Date) (Report, error) {
	var (
		rep  Report
		errs []error
	)
	if m.table == nil {
		return rep, nil
	}
	for _, e := range m.table.Sweep(today) {
		patch := &calendar.Event{Summary: prefixOverdue + " " + e.Title}
		if _, err := m.cal.PatchEvent(ctx, e.EventID, patch); err != nil {
			if isGone(err) {
				continue
			}
			m.logger.Warn("could not mark event overdue", "task", e.TaskID, "error", err)
			errs = append(errs, err)
			rep.Failed++
			continue
		}
		rep.Overdue++
	}
	if err := m.save(); err != nil {
		errs = append(errs, err)
	}
	return rep, errors.Join(errs...)
}

func (m *Mirror) save() error {
	var errs []error
	if m.index != nil {
		if err := m.index.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save event index: %w", err))
		}
	}
	if m.table != nil {
		if err := m.table.Save(); err != nil {
			errs = append(errs, fmt.Errorf("save overdue table: %w", err))
		}
	}
	return errors.Join(errs...)
}
