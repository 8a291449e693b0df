package google

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/tarefas/pkg/auth"
	"github.com/harrisonrobin/tarefas/pkg/index"
)

// NewClient authorizes through flow and opens the calendar whose title is
// calendarName.
func NewClient(ctx context.Context, flow *auth.Flow, calendarName string, idx *index.EventIndex, logger *slog.Logger) (*CalendarClient, error) {
	hc, err := flow.Client(ctx)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(hc))
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve Calendar client: %w", err)
	}
	calendarID, err := FindCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, logger), nil
}

// FindCalendar returns the id of the calendar titled name.
func FindCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	var id string
	err := srv.CalendarList.List().Pages(ctx, func(page *calendar.CalendarList) error {
		for _, item := range page.Items {
			if item.Summary == name && id == "" {
				id = item.Id
			}
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	if id == "" {
		return "", fmt.Errorf("calendar %q not found", name)
	}
	return id, nil
}
