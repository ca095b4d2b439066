// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, serveCommand, syncCommand, groupsCommand, settingsCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// setupCommand initializes the database and config file
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Initialize database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Action: r.Setup,
	}
}

// serveCommand runs the dashboard API server
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the dashboard API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to bind",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on",
			},
		},
		Action: r.Serve,
	}
}

// syncCommand handles sync job operations
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Sync job operations",
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "Run a sync job and stream progress",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "entity",
						Aliases: []string{"e"},
						Usage:   "Entity to sync (repeatable); defaults to all",
					},
					&cli.BoolFlag{
						Name:  "full",
						Usage: "Full refresh instead of incremental",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output the final job record as JSON",
					},
				},
				Action: r.SyncStart,
			},
			{
				Name:  "status",
				Usage: "Show one job record",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "job-id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
				},
				Action: r.SyncStatus,
			},
			{
				Name:  "history",
				Usage: "List recent jobs, most recent first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of jobs to return",
						Value: 10,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SyncHistory,
			},
			{
				Name:  "watch",
				Usage: "Poll a running job on a dashboard server until it finishes",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "job-id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "server",
						Usage: "Base URL of the dashboard server",
						Value: "http://localhost:5050",
					},
				},
				Action: r.SyncWatch,
			},
		},
	}
}

// groupsCommand handles account group operations
func groupsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "groups",
		Usage: "Account group operations",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List groups and their conflicts",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.GroupsList,
			},
			{
				Name:  "snapshot",
				Usage: "Show per-group balance totals",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.GroupsSnapshot,
			},
		},
	}
}

// settingsCommand reads and writes scheduler settings
func settingsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read or change dashboard settings",
		Commands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Show current settings",
				Action: r.SettingsShow,
			},
			{
				Name:  "interval",
				Usage: "Set the recurring sync interval in hours (0 disables)",
				Arguments: []cli.Argument{
					&cli.IntArg{
						Name: "hours",
					},
				},
				Action: r.SettingsInterval,
			},
		},
	}
}

// tuiCommand launches the interactive terminal UI
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"ui"},
		Usage:   "Launch the interactive terminal UI",
		Action:  r.TUI,
	}
}
