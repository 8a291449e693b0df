package main

import (
	"context"
	"fmt"
	"net/url"
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/tarefas/pkg/config"
)

func newConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Show or change settings",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration",
				Action: runConfigShow,
			},
			{
				Name:      "set-calendar",
				Usage:     "Set the Google Calendar that mirrors dated tasks",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "disable", Usage: "Stop mirroring after changes"},
				},
				Action: runConfigSetCalendar,
			},
			{
				Name:      "set-remote",
				Usage:     "Set the entries API base URL",
				ArgsUsage: "<url>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "token", Usage: "Bearer token sent with every request"},
				},
				Action: runConfigSetRemote,
			},
		},
		DefaultCommand: "show",
	}
}

func runConfigShow(_ context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Remote.Token != "" {
		cfg.Remote.Token = "********"
	}
	fmt.Printf("# %s\n", cmd.String("config"))
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(cfg)
}

func runConfigSetCalendar(_ context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("usage: tarefas config set-calendar <name>")
	}
	return updateConfig(cmd, func(cfg *config.Config) {
		cfg.Calendar.Name = name
		cfg.Calendar.Enabled = !cmd.Bool("disable")
		fmt.Printf("Default calendar set to: %s\n", name)
	})
}

func runConfigSetRemote(_ context.Context, cmd *cli.Command) error {
	raw := cmd.Args().First()
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("usage: tarefas config set-remote <url>, e.g. http://localhost:5001/api")
	}
	return updateConfig(cmd, func(cfg *config.Config) {
		cfg.Remote.URL = raw
		if cmd.IsSet("token") {
			cfg.Remote.Token = cmd.String("token")
		}
		fmt.Printf("Remote set to: %s\n", raw)
	})
}

func updateConfig(cmd *cli.Command, fn func(*config.Config)) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	fn(cfg)
	if err := config.Save(cfg, cmd.String("config")); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}
	return nil
}
