package main

import (
	"database/sql"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/slicerbridge/internal/config"
	"github.com/hpungsan/slicerbridge/internal/errors"
	"github.com/hpungsan/slicerbridge/internal/ops"
	"github.com/hpungsan/slicerbridge/internal/web"
)

// stdinName is the display name of a profile read from stdin.
const stdinName = "stdin.ini"

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sql.DB, cfg *config.Config) *cli.App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	app := &cli.App{
		Name:    "slicerbridge",
		Usage:   "Convert PrusaSlicer profiles to OrcaSlicer",
		Version: Version,
		Commands: []*cli.Command{
			convertCmd(db, cfg),
			classifyCmd(cfg),
			inheritCmd(cfg),
			historyCmd(db, cfg),
			serveCmd(db, cfg),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// convertCmd creates the convert command.
func convertCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert PrusaSlicer INI profiles or config bundles (reads stdin when no file is given)",
		ArgsUsage: "[file...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "nozzle", Usage: "Nozzle diameter in mm (default from config)"},
			&cli.StringFlag{Name: "policy", Aliases: []string{"p"}, Usage: "Name collision policy: skip|overwrite|merge"},
			&cli.StringFlag{Name: "plastic", Usage: "Plastic type for filament profiles"},
			&cli.StringFlag{Name: "physical-printer", Usage: "Physical printer INI file"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write each profile as JSON into this directory"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Value: stdinName, Usage: "Display name for stdin input"},
			&cli.StringFlag{Name: "support-style", Usage: "Force a support style: grid|snug|tree|organic"},
			&cli.StringFlag{Name: "compatibility", Usage: "Compatibility conditions: keep|discard"},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "Ask before resolving ambiguous fields"},
			&cli.BoolFlag{Name: "record", Value: true, Usage: "Record the batch in history"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatJSON, Usage: "Output format: json|table"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log conversion details to stderr"},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if err := validateFormat(format); err != nil {
				return outputError(err)
			}

			files, err := convertFiles(c, cfg)
			if err != nil {
				return outputError(err)
			}

			local := *cfg
			if s := c.String("support-style"); s != "" {
				local.SupportStyleChoice = s
			}
			if s := c.String("compatibility"); s != "" {
				local.CompatibilityChoice = s
			}

			input := ops.ConvertInput{
				Files:               files,
				NozzleSize:          c.String("nozzle"),
				Policy:              c.String("policy"),
				PlasticType:         c.String("plastic"),
				PhysicalPrinterPath: c.String("physical-printer"),
				OutDir:              c.String("out"),
				Record:              c.Bool("record") && db != nil,
				Origin:              ops.OriginCLI,
				Logger:              newLogger(c.App.ErrWriter, c.Bool("verbose")),
			}

			if c.Bool("interactive") {
				if !isTerminal() {
					return outputError(errors.NewInvalidRequest("--interactive needs a terminal on stdin"))
				}
				fallback, err := ops.DeciderFromConfig(&local)
				if err != nil {
					return outputError(err)
				}
				decider, closePrompt, err := newPromptDecider(c.App.ErrWriter, fallback)
				if err != nil {
					return outputError(errors.NewInternal(err))
				}
				defer closePrompt()
				input.Decider = decider
			}

			output, err := ops.Convert(c.Context, db, &local, input)
			if err != nil {
				return outputError(err)
			}

			if format == formatTable {
				renderConvert(c.App.Writer, output)
				return nil
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// convertFiles builds the inputs from positional paths; "-" or no path reads stdin.
func convertFiles(c *cli.Context, cfg *config.Config) ([]ops.ConvertFile, error) {
	args := c.Args().Slice()
	if len(args) == 0 {
		if !stdinHasData() {
			return nil, errors.NewInvalidRequest("no input files (pass paths or pipe a profile via stdin)")
		}
		args = []string{"-"}
	}

	files := make([]ops.ConvertFile, 0, len(args))
	usedStdin := false
	for _, arg := range args {
		if arg != "-" {
			files = append(files, ops.ConvertFile{Path: arg})
			continue
		}
		if usedStdin {
			return nil, errors.NewInvalidRequest("stdin can only be read once")
		}
		usedStdin = true
		text, err := readStdin(cfg.MaxInputBytes)
		if err != nil {
			return nil, err
		}
		if text == "" {
			return nil, errors.NewInvalidRequest("stdin is empty")
		}
		files = append(files, ops.ConvertFile{Name: c.String("name"), Content: text})
	}
	return files, nil
}

// classifyCmd creates the classify command.
func classifyCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "classify",
		Usage:     "Detect the type of every profile in a file without converting",
		ArgsUsage: "<file>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatJSON, Usage: "Output format: json|table"},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if err := validateFormat(format); err != nil {
				return outputError(err)
			}
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("classify takes exactly one file"))
			}

			output, err := ops.Classify(cfg, ops.ClassifyInput{Path: c.Args().First()})
			if err != nil {
				return outputError(err)
			}

			if format == formatTable {
				renderClassify(c.App.Writer, output)
				return nil
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// inheritCmd creates the inherit command.
func inheritCmd(cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:      "inherit",
		Usage:     "Turn a converted filament profile into a user profile inheriting from a system profile",
		ArgsUsage: "<converted.json>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "plastic", Usage: "Plastic type (default: detected from the profile)"},
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Profile name (default: profile_name or file stem)"},
			&cli.StringFlag{Name: "base-dir", Usage: "Directory of OrcaSlicer system filament profiles"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Write <name>.json into this directory"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return outputError(errors.NewInvalidRequest("inherit takes exactly one converted profile"))
			}

			output, err := ops.Inherit(cfg, ops.InheritInput{
				SourcePath: c.Args().First(),
				Plastic:    c.String("plastic"),
				Name:       c.String("name"),
				BaseDir:    c.String("base-dir"),
				OutDir:     c.String("out"),
			})
			if err != nil {
				return outputError(err)
			}

			return outputJSON(c.App.Writer, output)
		},
	}
}

// historyCmd groups the commands over recorded conversion batches.
func historyCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Browse and manage recorded conversion batches",
		Subcommands: []*cli.Command{
			historyListCmd(db),
			historyFetchCmd(db),
			historyDeleteCmd(db),
			historyExportCmd(db, cfg),
			historyImportCmd(db, cfg),
			historyPurgeCmd(db),
		},
	}
}

func historyListCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded batches, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "origin", Usage: "Filter by origin: cli|mcp|web"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted batches"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: formatJSON, Usage: "Output format: json|table"},
		},
		Action: func(c *cli.Context) error {
			format := c.String("format")
			if err := validateFormat(format); err != nil {
				return outputError(err)
			}

			output, err := ops.List(c.Context, db, ops.ListInput{
				Origin:         c.String("origin"),
				Limit:          c.Int("limit"),
				Offset:         c.Int("offset"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}

			if format == formatTable {
				renderHistory(c.App.Writer, output)
				return nil
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyFetchCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "fetch",
		Usage:     "Show one recorded batch",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "section", Aliases: []string{"s"}, Usage: "Print only this report section as text"},
			&cli.BoolFlag{Name: "no-profiles", Usage: "Exclude converted profiles from output"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted batches"},
		},
		Action: func(c *cli.Context) error {
			input := ops.FetchInput{
				ID:             c.Args().First(),
				IncludeDeleted: c.Bool("include-deleted"),
				Section:        c.String("section"),
			}
			if c.Bool("no-profiles") {
				includeProfiles := false
				input.IncludeProfiles = &includeProfiles
			}

			output, err := ops.Fetch(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}

			if input.Section != "" {
				_, err := fmt.Fprintln(c.App.Writer, output.Report)
				return err
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyDeleteCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Soft-delete a recorded batch",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyExportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export recorded batches to a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: ~/.slicerbridge/exports/<origin>-<timestamp>.jsonl)"},
			&cli.StringFlag{Name: "origin", Usage: "Filter by origin"},
			&cli.BoolFlag{Name: "include-deleted", Usage: "Include soft-deleted batches"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, db, cfg, ops.ExportInput{
				Path:           c.String("path"),
				Origin:         c.String("origin"),
				IncludeDeleted: c.Bool("include-deleted"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyImportCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Import recorded batches from a JSONL file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Import file path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: string(ops.ImportModeError), Usage: "Collision mode: error|replace|rename"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, db, cfg, ops.ImportInput{
				Path: c.String("path"),
				Mode: ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

func historyPurgeCmd(db *sql.DB) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete soft-deleted batches",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "older-than", Usage: "Only purge if deleted more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{}
			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c.App.Writer, output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sql.DB, cfg *config.Config) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the history browser and the JSON convert API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8450, Usage: "Port to listen on"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log request handling to stderr"},
		},
		Action: func(c *cli.Context) error {
			port := c.Int("port")
			if port <= 0 || port > 65535 {
				return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid port: %d", port)))
			}
			logger := newLogger(c.App.ErrWriter, c.Bool("verbose"))
			srv := web.NewServer(db, cfg, Version, c.String("bind"), port, logger)
			if err := web.Run(srv); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// newLogger returns a text logger on w; verbose lowers the level to debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// outputError formats error for CLI.
func outputError(err error) error {
	var bErr *errors.BridgeError
	if stderrors.As(err, &bErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", bErr.Code, bErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// readStdin reads stdin up to limit bytes.
func readStdin(limit int64) (string, error) {
	if limit <= 0 {
		limit = config.DefaultConfig().MaxInputBytes
	}
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", errors.NewReadFailed("stdin", err)
	}
	if int64(len(data)) > limit {
		return "", errors.NewInputTooLarge(limit, int64(len(data)))
	}
	return strings.TrimSpace(string(data)), nil
}

// parseDuration parses "7d" format to days.
func parseDuration(s string) (int, error) {
	if numStr, ok := strings.CutSuffix(s, "d"); ok {
		days, err := strconv.Atoi(numStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		if days < 0 {
			return 0, fmt.Errorf("duration must be non-negative")
		}
		return days, nil
	}
	return 0, fmt.Errorf("duration must end with 'd' (days), e.g., 7d")
}

// displayPath shortens paths under the working directory for messages.
func displayPath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	if rel, err := filepath.Rel(cwd, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
