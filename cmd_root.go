package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/harrisonrobin/tarefas/pkg/app"
	"github.com/harrisonrobin/tarefas/pkg/cache"
	"github.com/harrisonrobin/tarefas/pkg/config"
	"github.com/harrisonrobin/tarefas/pkg/model"
	"github.com/harrisonrobin/tarefas/pkg/remote"
	"github.com/harrisonrobin/tarefas/pkg/store"
	"github.com/harrisonrobin/tarefas/pkg/view"
)

const flushTimeout = 15 * time.Second

func newRootCommand() *cli.Command {
	defaultPath, _ := config.GetConfigPath()
	return &cli.Command{
		Name:  "tarefas",
		Usage: "Personal task list with remote sync and a Google Calendar mirror",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   defaultPath,
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			newAddCommand(),
			newQuickCommand(),
			newEditCommand(),
			newDoneCommand(),
			newRemoveCommand(),
			newClearCommand(),
			newListCommand(),
			newCompletedCommand(),
			newSearchCommand(),
			newStatsCommand(),
			newSyncCommand(),
			newTUICommand(),
			newServeCommand(),
			newCalendarCommand(),
			newImportCommand(),
			newConfigCommand(),
		},
		DefaultCommand: "list",
	}
}

func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	level := slog.LevelInfo
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return ctx, nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

// configDir is the directory holding the config file; cache, credentials
// and calendar state live next to it.
func configDir(cmd *cli.Command) (string, error) {
	if p := cmd.String("config"); p != "" {
		return filepath.Dir(p), nil
	}
	return config.Dir()
}

type envOptions struct {
	confirmer  app.Confirmer
	celebrator app.Celebrator
	onStatus   remote.StatusFunc
}

// env is everything a task command needs, wired from the config.
type env struct {
	cfg    *config.Config
	dir    string
	logger *slog.Logger
	remote *remote.Client
	store  *store.Store
	ctrl   *app.Controller
	closer io.Closer
	cheer  printCelebrator
}

func openEnv(cmd *cli.Command, opts envOptions) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dir, err := configDir(cmd)
	if err != nil {
		return nil, err
	}
	logger := slog.Default()

	e := &env{cfg: cfg, dir: dir, logger: logger}
	slot, err := e.openSlot()
	if err != nil {
		return nil, err
	}
	tc := cache.NewTaskCache(slot, logger)

	var ctrl *app.Controller
	e.remote = remote.NewClient(tc, remote.Options{
		BaseURL: cfg.Remote.URL,
		Token:   cfg.Remote.Token,
		Timeout: cfg.Remote.Timeout,
		Logger:  logger,
		OnStatus: func(s remote.Status) {
			if ctrl != nil {
				ctrl.SetStatus(s)
			}
			if opts.onStatus != nil {
				opts.onStatus(s)
			}
		},
	})
	e.store = store.New(tc, e.remote, logger, func(r store.SaveResult) {
		logger.Debug("save finished", "seq", r.Seq, "count", r.Count, "error", r.Err)
	})

	confirmer := opts.confirmer
	if confirmer == nil {
		confirmer = app.AlwaysConfirm
	}
	ctrl = app.New(e.store, e.remote, app.Options{
		Confirmer:  confirmer,
		Celebrator: opts.celebrator,
		Locale:     view.LocaleFor(cfg.Locale),
		Logger:     logger,
	})
	e.ctrl = ctrl
	return e, nil
}

func (e *env) openSlot() (cache.Slot, error) {
	switch e.cfg.Cache.Backend {
	case "sqlite":
		path := e.cfg.Cache.Path
		if path == "" {
			path = filepath.Join(e.dir, "cache.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("create cache dir: %w", err)
		}
		s, err := cache.NewSQLiteSlot(path)
		if err != nil {
			return nil, err
		}
		e.closer = s
		return s, nil
	default:
		path := e.cfg.Cache.Path
		if path == "" {
			path = filepath.Join(e.dir, "cache")
		}
		return cache.NewFileSlot(path), nil
	}
}

// load runs the initial fetch. Being offline is reported but not fatal.
func (e *env) load(ctx context.Context) {
	if _, err := e.remote.FetchAll(ctx); err != nil {
		e.logger.Warn("working offline", "error", err)
	}
}

// close waits for queued saves and releases the cache.
func (e *env) close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	err := e.store.Close(ctx)
	if e.closer != nil {
		if cerr := e.closer.Close(); err == nil {
			err = cerr
		}
	}
	if status := e.ctrl.Status(); status == remote.StatusErrorSavedLocally {
		fmt.Fprintln(os.Stderr, e.ctrl.Locale().Statuses[string(status)])
	}
	return err
}

// withEnv opens the environment, loads the collection and runs fn. When the
// calendar mirror is enabled and fn changed something, a detached
// `calendar sync` is started afterwards.
func withEnv(ctx context.Context, cmd *cli.Command, mutates bool, fn func(*env) error) error {
	cheer := newPrintCelebrator()
	e, err := openEnv(cmd, envOptions{
		confirmer:  stdinConfirmer(cmd),
		celebrator: cheer,
	})
	if err != nil {
		return err
	}
	e.cheer = cheer
	e.load(ctx)

	runErr := fn(e)
	closeErr := e.close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	if mutates && e.cfg.Calendar.Enabled {
		spawnCalendarSync(cmd, e.logger)
	}
	return nil
}

// stdinConfirmer prompts on the terminal unless --yes was given.
func stdinConfirmer(cmd *cli.Command) app.Confirmer {
	if cmd.Bool("yes") {
		return app.AlwaysConfirm
	}
	return app.ConfirmFunc(func(prompt string) bool {
		fmt.Fprintf(os.Stderr, "%s [y/N] ", prompt)
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		return answer == "y" || answer == "yes" || answer == "s" || answer == "sim"
	})
}

// printCelebrator prints the completion message. wait lets a one-shot
// command see it before exiting.
type printCelebrator struct {
	done chan struct{}
}

func newPrintCelebrator() printCelebrator {
	return printCelebrator{done: make(chan struct{}, 1)}
}

func (p printCelebrator) Celebrate(_ model.Task, message string) {
	if message != "" {
		fmt.Println(message)
	}
	select {
	case p.done <- struct{}{}:
	default:
	}
}

func (p printCelebrator) wait(d time.Duration) {
	select {
	case <-p.done:
	case <-time.After(d):
	}
}

// spawnCalendarSync re-runs this binary as `calendar sync` in the
// background so the command returns without waiting on Google.
func spawnCalendarSync(cmd *cli.Command, logger *slog.Logger) {
	self, err := os.Executable()
	if err != nil {
		logger.Warn("could not find self", "error", err)
		return
	}
	args := []string{"--config", cmd.String("config"), "calendar", "sync", "--quiet"}
	bg := exec.Command(self, args...)
	bg.Stdout = nil
	bg.Stderr = nil
	if err := bg.Start(); err != nil {
		logger.Warn("could not start calendar sync", "error", err)
		return
	}
	_ = bg.Process.Release()
}
