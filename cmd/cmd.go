// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for configuration and the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "Write a config file from the built-in template",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "database",
				Usage: "Initialize database and run migrations",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Aliases: []string{"c"},
						Usage:   "Path to configuration file",
						Value:   "config.toml",
					},
				},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles the Google sign-in session.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Sign in, sign out and inspect the session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with Google",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "id-token",
						Usage:   "Google id_token to exchange instead of running the browser flow",
						Sources: cli.EnvVars("BOTANICA_ID_TOKEN"),
					},
					&cli.BoolFlag{
						Name:  "no-browser",
						Usage: "Print the sign-in URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Sign out and forget the saved session",
				Action: r.AuthLogout,
			},
			{
				Name:  "status",
				Usage: "Show the signed-in user",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "verify",
						Usage: "Check the session against the backend",
					},
				},
				Action: r.AuthStatus,
			},
		},
	}
}

// dataCommand handles the main data record.
func dataCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "data",
		Usage: "Show or save the main data record",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the main data record",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DataShow,
			},
			{
				Name:  "save",
				Usage: "Update fields of the main data record",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "set",
						Aliases: []string{"s"},
						Usage:   "Field to set as key=value (repeatable)",
					},
					&cli.StringFlag{
						Name:    "file",
						Aliases: []string{"f"},
						Usage:   "JSON object of fields to set",
					},
				},
				Action: r.DataSave,
			},
		},
	}
}

// jobsCommand handles subcategory CRUD.
func jobsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "jobs",
		Aliases: []string{"job"},
		Usage:   "Manage jobs",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List jobs",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "cached",
						Usage: "Read the last fetched list from the local store without contacting the backend",
					},
				},
				Action: r.JobsList,
			},
			{
				Name:  "show",
				Usage: "Show one job",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.JobsShow,
			},
			{
				Name:  "create",
				Usage: "Create a job",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Job name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "short",
						Usage: "Short description",
					},
					&cli.StringFlag{
						Name:  "long",
						Usage: "Long description",
					},
					&cli.BoolFlag{
						Name:  "active",
						Usage: "Mark the job active",
						Value: true,
					},
				},
				Action: r.JobsCreate,
			},
			{
				Name:  "update",
				Usage: "Update a job; only the given flags change",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "name",
						Usage: "Job name",
					},
					&cli.StringFlag{
						Name:  "short",
						Usage: "Short description",
					},
					&cli.StringFlag{
						Name:  "long",
						Usage: "Long description",
					},
					&cli.BoolFlag{
						Name:  "active",
						Usage: "Mark the job active (--active=false to deactivate)",
					},
				},
				Action: r.JobsUpdate,
			},
			{
				Name:    "delete",
				Aliases: []string{"rm"},
				Usage:   "Delete a job",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:    "yes",
						Aliases: []string{"y"},
						Usage:   "Skip the confirmation prompt",
					},
				},
				Action: r.JobsDelete,
			},
			{
				Name:  "export",
				Usage: "Export the job list",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format: csv, md, txt or json",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path (default: jobs.<format>, - for stdout)",
					},
				},
				Action: r.JobsExport,
			},
			{
				Name:  "backup",
				Usage: "Fetch every job and write one file per job plus a manifest",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "Per-job format: csv, md, txt or json",
						Value: "json",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"d"},
						Usage:   "Output directory (default: jobs_backup_{epoch})",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent detail requests (1-10)",
						Value: 5,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Detail requests per second, 0 for no extra limit",
					},
				},
				Action: r.JobsBackup,
			},
		},
	}
}

// apiCommand handles direct authenticated backend calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the backend",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// tuiCommand launches the interactive interface
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "Launch the interactive terminal UI",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "File that receives logs while the UI owns the terminal",
				Value: "./tmp/botanica-tui.log",
			},
		},
		Action: r.TUI,
	}
}
