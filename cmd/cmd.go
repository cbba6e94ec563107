// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles database initialization.
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
			&cli.BoolFlag{
				Name:  "rollback",
				Usage: "Undo the most recent schema migration instead of applying",
			},
		},
		Action: r.Setup,
	}
}

// accountCommand handles user account operations.
func accountCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "account",
		Usage: "Manage user accounts",
		Commands: []*cli.Command{
			{
				Name:  "create",
				Usage: "Create a new account",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "user",
						Aliases: []string{"u"},
						Usage:   "Username (or DEID_USER)",
					},
					&cli.StringFlag{
						Name:  "password",
						Usage: "Password, at least 8 characters (or DEID_PASSWORD)",
					},
				},
				Action: r.AccountCreate,
			},
			{
				Name:  "passwd",
				Usage: "Change the account password",
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:     "new-password",
						Usage:    "New password, at least 8 characters",
						Required: true,
					},
				),
				Action: r.AccountPasswd,
			},
			{
				Name:   "delete",
				Usage:  "Delete the account and all its projects",
				Flags:  authFlags(),
				Action: r.AccountDelete,
			},
		},
	}
}

// projectCommand handles project operations.
func projectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "project",
		Aliases: []string{"proj"},
		Usage:   "Manage projects",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a project and make it the active one",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:  "notes",
						Usage: "Free-form project notes",
					},
				),
				Action: r.ProjectCreate,
			},
			{
				Name:  "list",
				Usage: "List the account's projects",
				Flags: append(authFlags(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				),
				Action: r.ProjectList,
			},
			{
				Name:      "use",
				Usage:     "Switch the active project",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags:     authFlags(),
				Action:    r.ProjectUse,
			},
		},
	}
}

// keywordCommand handles user-defined detection rules.
func keywordCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "keyword",
		Aliases: []string{"kw"},
		Usage:   "Manage keyword detection rules",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a keyword rule to the active project",
				Arguments: []cli.Argument{&cli.StringArg{Name: "pattern"}},
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:  "type",
						Usage: "Entity type (PERSON, ORG, LOCATION, PRODUCT, CODE_NAME, CUSTOM)",
						Value: "CUSTOM",
					},
					&cli.BoolFlag{
						Name:  "user-wide",
						Usage: "Apply the rule to every project the account owns",
					},
					&cli.BoolFlag{
						Name:  "case-sensitive",
						Usage: "Match case exactly",
					},
				),
				Action: r.KeywordAdd,
			},
			{
				Name:  "list",
				Usage: "List keyword rules visible to the active project",
				Flags: append(authFlags(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				),
				Action: r.KeywordList,
			},
			{
				Name:      "rm",
				Usage:     "Remove a keyword rule by ID",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     authFlags(),
				Action:    r.KeywordRemove,
			},
			{
				Name:      "import",
				Usage:     "Import keyword rules from a file, one 'pattern[,type]' per line",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: append(authFlags(),
					&cli.BoolFlag{
						Name:  "user-wide",
						Usage: "Import as account-wide rules",
					},
				),
				Action: r.KeywordImport,
			},
		},
	}
}

// dictCommand handles token dictionary operations.
func dictCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dict",
		Usage: "Inspect and manage the token dictionary",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the active project's dictionary entries",
				Flags: append(authFlags(),
					&cli.BoolFlag{Name: "json", Usage: "Output JSON"},
					&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print output", Value: true},
				),
				Action: r.DictList,
			},
			{
				Name:  "export",
				Usage: "Export the dictionary to a file",
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:  "format",
						Usage: "Export format (csv, markdown, txt, json)",
						Value: "csv",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Output file path",
					},
				),
				Action: r.DictExport,
			},
			{
				Name:      "correct-type",
				Usage:     "Correct the entity type recorded for a token",
				Arguments: []cli.Argument{&cli.StringArg{Name: "token"}},
				Flags: append(authFlags(),
					&cli.StringFlag{
						Name:     "type",
						Usage:    "New entity type",
						Required: true,
					},
				),
				Action: r.DictCorrectType,
			},
			{
				Name:      "rm",
				Usage:     "Delete the dictionary entry for an original value",
				Arguments: []cli.Argument{&cli.StringArg{Name: "original"}},
				Flags: append(authFlags(),
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Delete even if the token appeared in restored output",
					},
				),
				Action: r.DictRemove,
			},
		},
	}
}

// obscureCommand runs the deidentification pipeline over files.
func obscureCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "obscure",
		Usage:     "Replace sensitive names in documents with reversible tokens",
		ArgsUsage: "<files...>",
		Flags: append(authFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: next to each input)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent workers for multi-file runs",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Files started per second for multi-file runs",
			},
		),
		Action: r.Obscure,
	}
}

// restoreCommand runs the reidentification pipeline over files.
func restoreCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "restore",
		Usage:     "Replace tokens in returned documents with their original values",
		ArgsUsage: "<files...>",
		Flags: append(authFlags(),
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: next to each input)",
			},
		),
		Action: r.Restore,
	}
}

// tuiCommand returns the top-level TUI command for interactive dictionary management.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch interactive dictionary browser",
		Flags:   authFlags(),
		Action:  r.TUI,
	}
}
