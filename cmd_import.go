package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/harrisonrobin/tarefas/pkg/app"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/orgmode"
	"github.com/harrisonrobin/tarefas/pkg/taskwarrior"
)

func newImportCommand() *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Create tasks from other tools",
		Commands: []*cli.Command{
			{
				Name:      "org",
				Usage:     "Import TODO and DONE headlines from Org files",
				ArgsUsage: "<file.org>...",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					paths := cmd.Args().Slice()
					if len(paths) == 0 {
						return fmt.Errorf("usage: tarefas import org <file.org>...")
					}
					drafts, err := orgmode.ParseFiles(paths, time.Now())
					if err != nil {
						return fmt.Errorf("read org files: %w", err)
					}
					return importDrafts(ctx, cmd, drafts)
				},
			},
			{
				Name:      "taskwarrior",
				Aliases:   []string{"tw"},
				Usage:     "Import from `task export`, or from a JSON file with --file (- for stdin)",
				ArgsUsage: "[filter...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read exported JSON instead of running task"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					tasks, err := readTaskwarrior(ctx, cmd)
					if err != nil {
						return err
					}
					return importDrafts(ctx, cmd, taskwarrior.ToDrafts(tasks, time.Now()))
				},
			},
		},
	}
}

func readTaskwarrior(ctx context.Context, cmd *cli.Command) ([]taskwarrior.Task, error) {
	switch path := cmd.String("file"); path {
	case "":
		return taskwarrior.NewClient().Export(ctx, cmd.Args().Slice())
	case "-":
		return taskwarrior.ParseTasks(os.Stdin)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return taskwarrior.ParseTasks(f)
	}
}

func importDrafts(ctx context.Context, cmd *cli.Command, drafts []model.Task) error {
	return withEnv(ctx, cmd, true, func(e *env) error {
		_, n, err := e.ctrl.Import(app.State{}, drafts)
		if err != nil {
			return fmt.Errorf("import: %w", err)
		}
		fmt.Printf("Imported %d of %d task(s)\n", n, len(drafts))
		return nil
	})
}
