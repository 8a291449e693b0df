package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/harrisonrobin/tarefas/pkg/app"
	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/server"
	"github.com/harrisonrobin/tarefas/pkg/tui"
)

func newSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reload the collection from the remote",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd, envOptions{})
			if err != nil {
				return err
			}
			defer e.close()

			status, err := e.ctrl.Sync(ctx)
			fmt.Println(e.ctrl.Locale().Statuses[string(status)])
			if err != nil {
				e.logger.Debug("sync failed", "error", err)
			}
			return nil
		},
	}
}

func newTUICommand() *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Start the interactive interface",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			events := tui.NewEvents()
			e, err := openEnv(cmd, envOptions{
				confirmer:  app.AlwaysConfirm,
				celebrator: events,
				onStatus:   events.Status,
			})
			if err != nil {
				return err
			}
			e.load(ctx)

			runErr := tui.Run(ctx, e.ctrl, events)
			if err := e.close(); runErr == nil {
				runErr = err
			}
			if runErr == nil && e.cfg.Calendar.Enabled {
				spawnCalendarSync(cmd, e.logger)
			}
			return runErr
		},
	}
}

func newServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the entries backend",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (overrides config)"},
			&cli.StringFlag{Name: "data", Usage: "JSON data file (overrides config)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			addr := cfg.Server.Addr
			if cmd.IsSet("addr") {
				addr = cmd.String("addr")
			}
			data := cfg.Server.DataFile
			if cmd.IsSet("data") {
				data = cmd.String("data")
			}

			dir, file := filepath.Split(data)
			if dir == "" {
				dir = "."
			}
			entries := server.NewEntryStore(cache.NewFileSlot(dir), strings.TrimSuffix(file, ".json"))
			created, err := entries.Init()
			if err != nil {
				return fmt.Errorf("prepare data file: %w", err)
			}
			if created {
				fmt.Printf("Created empty data file %s\n", data)
			}
			return server.New(entries, nil).ListenAndServe(ctx, addr)
		},
	}
}
