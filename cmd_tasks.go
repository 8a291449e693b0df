package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/harrisonrobin/tarefas/pkg/app"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/view"
)

func yesFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:    "yes",
		Aliases: []string{"y"},
		Usage:   "Do not ask for confirmation",
	}
}

func taskFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "description", Aliases: []string{"d"}, Usage: "Longer description"},
		&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Usage: "high, medium or low"},
		&cli.StringFlag{Name: "category", Usage: "work, personal, study, health, shopping or other"},
		&cli.StringFlag{Name: "due", Usage: "Due date as YYYY-MM-DD"},
	}
}

func newAddCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Add a task",
		ArgsUsage: "<title>",
		Flags:     taskFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			in := app.Input{
				Title:       strings.Join(cmd.Args().Slice(), " "),
				Description: cmd.String("description"),
				Priority:    cmd.String("priority"),
				Category:    cmd.String("category"),
				DueDate:     cmd.String("due"),
			}
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, t, err := e.ctrl.Create(app.State{}, in)
				if err != nil {
					return fmt.Errorf("add task: %w", err)
				}
				fmt.Printf("Added %s: %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
}

func newQuickCommand() *cli.Command {
	return &cli.Command{
		Name:      "quick",
		Usage:     "Add a task with default fields",
		ArgsUsage: "<title>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			title := strings.Join(cmd.Args().Slice(), " ")
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, t, ok, err := e.ctrl.QuickAdd(app.State{}, title)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Nothing to add.")
					return nil
				}
				fmt.Printf("Added %s: %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
}

func newEditCommand() *cli.Command {
	flags := append(taskFlags(), &cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "New title"})
	return &cli.Command{
		Name:      "edit",
		Usage:     "Change fields of a task",
		ArgsUsage: "<task_id>",
		Flags:     flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("usage: tarefas edit [--title ...] <task_id>")
			}
			var patch app.Patch
			for name, field := range map[string]**string{
				"title":       &patch.Title,
				"description": &patch.Description,
				"priority":    &patch.Priority,
				"category":    &patch.Category,
				"due":         &patch.DueDate,
			} {
				if cmd.IsSet(name) {
					*field = app.Ptr(cmd.String(name))
				}
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to change")
			}
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, t, err := e.ctrl.Edit(app.State{}, id, patch)
				if err != nil {
					return fmt.Errorf("edit task: %w", err)
				}
				fmt.Printf("Updated %s: %s\n", t.ID, t.Title)
				return nil
			})
		},
	}
}

func newDoneCommand() *cli.Command {
	return &cli.Command{
		Name:      "done",
		Aliases:   []string{"toggle"},
		Usage:     "Toggle completion of a task",
		ArgsUsage: "<task_id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("usage: tarefas done <task_id>")
			}
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, t, err := e.ctrl.Toggle(app.State{}, id)
				if err != nil {
					return err
				}
				if t.Completed {
					e.cheer.wait(500 * time.Millisecond)
				} else {
					fmt.Printf("Reopened %s: %s\n", t.ID, t.Title)
				}
				return nil
			})
		},
	}
}

func newRemoveCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Aliases:   []string{"delete"},
		Usage:     "Delete a task",
		ArgsUsage: "<task_id>",
		Flags:     []cli.Flag{yesFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			id := cmd.Args().First()
			if id == "" {
				return fmt.Errorf("usage: tarefas rm <task_id>")
			}
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, removed, err := e.ctrl.Delete(app.State{}, id)
				if err != nil {
					return err
				}
				if removed {
					fmt.Printf("Deleted %s\n", id)
				}
				return nil
			})
		},
	}
}

func newClearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "Delete every completed task",
		Flags: []cli.Flag{yesFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEnv(ctx, cmd, true, func(e *env) error {
				_, n, err := e.ctrl.ClearCompleted(app.State{})
				if err != nil {
					return err
				}
				fmt.Printf("Deleted %d completed task(s)\n", n)
				return nil
			})
		},
	}
}

func prettyFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "pretty",
		Usage: "Render styled cards instead of a table",
	}
}

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List pending tasks",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "priority", Aliases: []string{"p"}, Value: view.FilterAll, Usage: "Only this priority"},
			&cli.StringFlag{Name: "category", Value: view.FilterAll, Usage: "Only this category"},
			prettyFlag(),
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			f, err := filterFrom(cmd)
			if err != nil {
				return err
			}
			return withEnv(ctx, cmd, false, func(e *env) error {
				st := e.ctrl.SetFilter(app.State{View: app.ViewTasks}, f)
				return printScreen(e, cmd, e.ctrl.Render(st))
			})
		},
	}
}

func filterFrom(cmd *cli.Command) (view.Filter, error) {
	f := view.Filter{Priority: view.FilterAll, Category: view.FilterAll}
	if p := cmd.String("priority"); p != view.FilterAll {
		prio, err := model.ParsePriority(p)
		if err != nil {
			return f, err
		}
		f.Priority = prio
	}
	if c := cmd.String("category"); c != view.FilterAll {
		cat, err := model.ParseCategory(c)
		if err != nil {
			return f, err
		}
		f.Category = cat
	}
	return f, nil
}

func newCompletedCommand() *cli.Command {
	return &cli.Command{
		Name:  "completed",
		Usage: "List completed tasks, most recent first",
		Flags: []cli.Flag{prettyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEnv(ctx, cmd, false, func(e *env) error {
				return printScreen(e, cmd, e.ctrl.Render(app.State{View: app.ViewCompleted}))
			})
		},
	}
}

func newSearchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search titles and descriptions",
		ArgsUsage: "<query>",
		Flags:     []cli.Flag{prettyFlag()},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			query := strings.Join(cmd.Args().Slice(), " ")
			return withEnv(ctx, cmd, false, func(e *env) error {
				st := e.ctrl.Search(app.State{}, query)
				return printScreen(e, cmd, e.ctrl.Render(st))
			})
		},
	}
}

func newStatsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show task counts",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withEnv(ctx, cmd, false, func(e *env) error {
				scr := e.ctrl.Render(app.State{View: app.ViewHome})
				fmt.Println(view.RenderStats(scr.Stats, e.ctrl.Locale()))
				return nil
			})
		},
	}
}

// printScreen writes the cards as a table, or styled with --pretty.
func printScreen(e *env, cmd *cli.Command, scr view.Screen) error {
	if cmd.Bool("pretty") {
		scr.Cursor = -1
		fmt.Println(view.RenderScreen(scr, e.ctrl.Locale()))
		return nil
	}
	if len(scr.Cards) == 0 {
		fmt.Println(scr.Message)
		return nil
	}

	loc := e.ctrl.Locale()
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tCATEGORY\tDUE\tTITLE")
	for _, c := range scr.Cards {
		done := " "
		if c.Task.Completed {
			done = "✓"
		}
		due := c.DueLabel
		if c.Overdue {
			due = "! " + due
		}
		if due == "" {
			due = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			c.Task.ID,
			done,
			loc.PriorityLabel(c.Task.Priority),
			c.CategoryLabel,
			due,
			c.Task.Title,
		)
	}
	return w.Flush()
}
