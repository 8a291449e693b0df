package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/harrisonrobin/tarefas/pkg/auth"
	"github.com/harrisonrobin/tarefas/pkg/google"
	"github.com/harrisonrobin/tarefas/pkg/index"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/overdue"
)

func newCalendarCommand() *cli.Command {
	return &cli.Command{
		Name:  "calendar",
		Usage: "Mirror dated tasks to Google Calendar",
		Commands: []*cli.Command{
			{
				Name:   "auth",
				Usage:  "Authorize access to Google Calendar, replacing any saved token",
				Action: runCalendarAuth,
			},
			{
				Name:  "sync",
				Usage: "Create, update and delete events to match the task list",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "calendar", Usage: "Calendar name (overrides config)"},
					&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: "Print nothing; fail instead of asking for authorization"},
				},
				Action: runCalendarSync,
			},
		},
	}
}

func authFlow(cmd *cli.Command) (*auth.Flow, error) {
	dir, err := configDir(cmd)
	if err != nil {
		return nil, err
	}
	return &auth.Flow{Dir: dir, Scopes: auth.CalendarScopes, Out: os.Stdout}, nil
}

func runCalendarAuth(ctx context.Context, cmd *cli.Command) error {
	flow, err := authFlow(cmd)
	if err != nil {
		return err
	}
	tokenPath := filepath.Join(flow.Dir, auth.TokenFile)
	if err := os.Remove(tokenPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("could not delete token file '%s': %w. Please delete it manually", tokenPath, err)
	}
	if _, err := flow.Client(ctx); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("Authentication successful! Token saved to %s\n", tokenPath)
	return nil
}

func runCalendarSync(ctx context.Context, cmd *cli.Command) error {
	quiet := cmd.Bool("quiet")
	flow, err := authFlow(cmd)
	if err != nil {
		return err
	}
	if quiet {
		if _, err := auth.LoadToken(filepath.Join(flow.Dir, auth.TokenFile)); err != nil {
			return fmt.Errorf("not authorized, run `tarefas calendar auth`: %w", err)
		}
	}

	return withEnv(ctx, cmd, false, func(e *env) error {
		name := e.cfg.Calendar.Name
		if cmd.IsSet("calendar") {
			name = cmd.String("calendar")
		}

		idx, err := index.Open(filepath.Join(e.dir, index.FileName))
		if err != nil {
			return err
		}
		table, err := overdue.Open(filepath.Join(e.dir, overdue.FileName))
		if err != nil {
			return err
		}

		flow.Logger = e.logger
		cal, err := google.NewClient(ctx, flow, name, idx, e.logger)
		if err != nil {
			return err
		}
		mirror := google.NewMirror(cal, idx, table, e.logger)

		today := model.Today()
		synced, syncErr := mirror.Sync(ctx, e.store.All(), today)
		swept, sweepErr := mirror.Sweep(ctx, today)
		if !quiet {
			fmt.Printf("Calendar %q: %d synced, %d removed, %d marked overdue, %d failed\n",
				name, synced.Synced, synced.Deleted, swept.Overdue, synced.Failed+swept.Failed)
		}
		return errors.Join(syncErr, sweepErr)
	})
}
