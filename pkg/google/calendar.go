package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/tarefas/pkg/index"
	"github.com/harrisonrobin/tarefas/pkg/model"
)

// CalendarClient reads and writes the events mirroring tasks on a single
// calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	logger     *slog.Logger
}

func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, logger *slog.Logger) *CalendarClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CalendarClient{srv: srv, calendarID: calendarID, index: idx, logger: logger}
}

// SyncTask creates the event for t or patches the existing one when it
// differs.
func (c *CalendarClient) SyncTask(ctx context.Context, t model.Task, today model.Date) (*calendar.Event, error) {
	target, err := TaskToEvent(t, today)
	if err != nil {
		return nil, err
	}

	existing, err := c.find(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}

	if existing != nil {
		patch := EventNeedsUpdate(existing, target)
		if patch == nil {
			c.remember(t.ID, existing.Id)
			return existing, nil
		}
		updated, err := c.PatchEvent(ctx, existing.Id, patch)
		if err != nil {
			return nil, err
		}
		c.remember(t.ID, updated.Id)
		return updated, nil
	}

	created, err := c.srv.Events.Insert(c.calendarID, target).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	c.logger.Debug("event created", "task", t.ID, "event", created.Id)
	c.remember(t.ID, created.Id)
	return created, nil
}

// DeleteTask removes the event mirroring taskID, if any.
func (c *CalendarClient) DeleteTask(ctx context.Context, taskID string) error {
	existing, err := c.find(ctx, taskID)
	if err != nil {
		return err
	}
	if existing != nil {
		if err := c.DeleteEvent(ctx, existing.Id); err != nil && !isGone(err) {
			return err
		}
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	return nil
}

func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// find looks the event up through the index first and falls back to the
// private extended property.
func (c *CalendarClient) find(ctx context.Context, taskID string) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			ev, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && ev.Status != "cancelled" {
				return ev, nil
			}
			c.index.Remove(taskID)
		}
	}
	return c.GetEventByTaskID(ctx, taskID)
}

// GetEventByTaskID searches the calendar for the event tagged with taskID.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", PropertyTaskID, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	for _, ev := range events.Items {
		if ev.Status != "cancelled" {
			return ev, nil
		}
	}
	return nil, nil
}

func (c *CalendarClient) remember(taskID, eventID string) {
	if c.index != nil {
		c.index.Set(taskID, eventID)
	}
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && (gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone)
}
