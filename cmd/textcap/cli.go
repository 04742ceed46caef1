package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/textcap/internal/capture"
	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/desktop"
	"github.com/hpungsan/textcap/internal/errors"
	"github.com/hpungsan/textcap/internal/ops"
	"github.com/hpungsan/textcap/internal/sourcetag"
	"github.com/hpungsan/textcap/internal/web"
)

// appEnv carries what the commands need. store is nil when config.json
// could not be loaded; cfg then holds the defaults.
type appEnv struct {
	db       *sql.DB
	baseDir  string
	store    *config.Store
	storeErr error
	cfg      *config.Config
}

// config returns a copy of the live configuration.
func (e *appEnv) config() *config.Config {
	if e.store != nil {
		return e.store.Config()
	}
	return e.cfg.Clone()
}

// requireStore returns the settings store or a CLI error explaining why it is unavailable.
func (e *appEnv) requireStore() (*config.Store, error) {
	if e.store == nil {
		msg := "config store unavailable"
		if e.storeErr != nil {
			msg += ": " + e.storeErr.Error()
		}
		return nil, errors.NewInternal(stderrors.New(msg))
	}
	return e.store, nil
}

// newCLIApp creates the CLI application with all commands.
// env may be nil when only help or version output is needed.
func newCLIApp(env *appEnv) *cli.App {
	app := &cli.App{
		Name:    "textcap",
		Usage:   "Capture selected text into a session document",
		Version: Version,
		Commands: []*cli.Command{
			runCmd(env),
			sessionsCmd(env),
			entriesCmd(env),
			searchCmd(env),
			exportCmd(env),
			purgeCmd(env),
			tagsCmd(env),
			configCmd(env),
			serveCmd(env),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// runCmd creates the run command.
func runCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Capture selected text until stopped, timed out or the capture limit is reached",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "save-to", Aliases: []string{"o"}, Usage: "Copy the captured lines to this document when the session ends"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Session document format: docx|md"},
			&cli.IntFlag{Name: "timeout", Usage: "Session timeout in seconds"},
			&cli.IntFlag{Name: "max-captures", Usage: "Stop after this many captures"},
			&cli.BoolFlag{Name: "toggle", Aliases: []string{"t"}, Usage: "Read stdin lines; each line toggles capture on or off (q quits)"},
		},
		Action: func(c *cli.Context) error {
			cfg := applyRunFlags(c, env.config())
			if err := cfg.Validate(); err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctrl := capture.NewController(capture.ControllerOptions{
				Config:   cfg,
				BaseDir:  env.baseDir,
				Desktop:  desktop.New(),
				Tags:     sourcetag.WithOverrides(cfg.TextSourceTags),
				Journal:  ops.NewJournal(env.db),
				Notifier: capture.NewWriterNotifier(os.Stderr),
			})

			err := config.Watch(ctx, env.baseDir, func(next *config.Config) {
				ctrl.ApplyConfig(applyRunFlags(c, next))
			})
			if err != nil {
				slog.Warn("config hot reload disabled", "error", err)
			}

			if c.Bool("toggle") {
				return runToggle(ctx, ctrl, os.Stdin, c.String("save-to"))
			}

			if _, err := ctrl.Start(ctx); err != nil {
				return outputError(err)
			}

			select {
			case <-ctrl.Done():
			case <-ctx.Done():
			}

			summary, err := ctrl.Stop(c.String("save-to"))
			if summary != nil {
				if outErr := outputJSON(summary); outErr != nil {
					return outErr
				}
			}
			if err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// runToggle switches capture on and off for each line read from in. A
// session that ends by timeout or capture limit is finished (and saved to
// saveTo) as soon as it ends. A line of "q" or end of input stops any running
// session and returns.
func runToggle(ctx context.Context, ctrl *capture.Controller, in io.Reader, saveTo string) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(os.Stderr, "Press Enter to toggle capture, q to quit.")
	for {
		select {
		case <-ctx.Done():
			return finishToggle(ctrl, saveTo)

		case <-ctrl.Done():
			summary, err := ctrl.Stop(saveTo)
			if summary != nil {
				if err := outputJSON(summary); err != nil {
					return err
				}
			}
			if err != nil {
				slog.Warn("capture stopped with an error", "error", err)
			}

		case line, ok := <-lines:
			if !ok || line == "q" {
				return finishToggle(ctrl, saveTo)
			}
			started, info, summary, err := ctrl.Toggle(ctx, saveTo)
			if err != nil {
				if summary == nil {
					return outputError(err)
				}
				slog.Warn("capture stopped with an error", "error", err)
			}
			if started {
				if err := outputJSON(info); err != nil {
					return err
				}
			} else if summary != nil {
				if err := outputJSON(summary); err != nil {
					return err
				}
			}
		}
	}
}

// finishToggle stops a session that is still running or has ended on its own.
func finishToggle(ctrl *capture.Controller, saveTo string) error {
	if ctrl.Done() == nil {
		return nil
	}
	summary, err := ctrl.Stop(saveTo)
	if summary != nil {
		if outErr := outputJSON(summary); outErr != nil {
			return outErr
		}
	}
	if err != nil {
		return outputError(err)
	}
	return nil
}

// applyRunFlags overlays run's command-line settings on cfg.
func applyRunFlags(c *cli.Context, cfg *config.Config) *config.Config {
	if format := c.String("format"); format != "" {
		cfg.DocumentFormat = format
	}
	if timeout := c.Int("timeout"); timeout != 0 {
		cfg.SessionTimeoutSeconds = timeout
	}
	if maxCaptures := c.Int("max-captures"); maxCaptures != 0 {
		cfg.MaxCaptures = maxCaptures
	}
	return cfg
}

// sessionsCmd creates the sessions command.
func sessionsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "sessions",
		Usage:     "List capture sessions, or show one session with its entries",
		ArgsUsage: "[id]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Skip first N results"},
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"md"}, Usage: "Print the session as Markdown (requires id)"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				output, err := ops.GetSession(c.Context, env.db, c.Args().First())
				if err != nil {
					return outputError(err)
				}
				if c.Bool("markdown") {
					fmt.Fprint(os.Stdout, ops.RenderSessionMarkdown(output))
					return nil
				}
				return outputJSON(output)
			}
			if c.Bool("markdown") {
				return outputError(errors.NewInvalidRequest("--markdown requires a session id"))
			}

			output, err := ops.ListSessions(c.Context, env.db, ops.ListSessionsInput{
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// entriesCmd creates the entries command.
func entriesCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "entries",
		Usage: "List captured entries, oldest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Filter by session ID"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by source tag, e.g. [Word]"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Skip first N results"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.ListEntries(c.Context, env.db, ops.ListEntriesInput{
				SessionID: optionalFlag(c, "session"),
				SourceTag: optionalFlag(c, "tag"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// searchCmd creates the search command.
func searchCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search captured text",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Filter by session ID"},
			&cli.StringFlag{Name: "tag", Usage: "Filter by source tag"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Max results"},
			&cli.IntFlag{Name: "offset", Usage: "Skip first N results"},
		},
		Action: func(c *cli.Context) error {
			query := strings.Join(c.Args().Slice(), " ")
			output, err := ops.Search(c.Context, env.db, ops.SearchInput{
				Query:     query,
				SessionID: optionalFlag(c, "session"),
				SourceTag: optionalFlag(c, "tag"),
				Limit:     c.Int("limit"),
				Offset:    c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export captured entries to JSONL, Markdown or DOCX",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Export file path (default: exports directory)"},
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "Export format: jsonl|md|docx (default: from path extension, else jsonl)"},
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Export only this session"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, env.db, env.config(), db.ExportsDir(env.baseDir), ops.ExportInput{
				Path:      c.String("path"),
				Format:    c.String("format"),
				SessionID: optionalFlag(c, "session"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// purgeCmd creates the purge command.
func purgeCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "Permanently delete finished sessions and their entries",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "session", Aliases: []string{"s"}, Usage: "Purge only this session"},
			&cli.StringFlag{Name: "older-than", Usage: "Only purge sessions that ended more than N days ago (e.g., 7d)"},
		},
		Action: func(c *cli.Context) error {
			input := ops.PurgeInput{SessionID: optionalFlag(c, "session")}

			if olderThan := c.String("older-than"); olderThan != "" {
				days, err := parseDuration(olderThan)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.OlderThanDays = &days
			}

			output, err := ops.Purge(c.Context, env.db, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// tagsCmd creates the tags command group.
func tagsCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Show or extend the process → source tag table",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the source tag table and per-tag entry counts",
				Action: func(c *cli.Context) error {
					table := sourcetag.WithOverrides(env.config().TextSourceTags)
					output, err := ops.Tags(c.Context, env.db, table)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(output)
				},
			},
			{
				Name:      "add",
				Usage:     "Add or replace a source tag, e.g. tags add slack.exe [Slack]",
				ArgsUsage: "<process> <label>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("expected <process> <label>"))
					}
					store, err := env.requireStore()
					if err != nil {
						return outputError(err)
					}
					process, label := c.Args().Get(0), c.Args().Get(1)
					if err := store.AddSourceTag(process, label); err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					return outputJSON(sourcetag.Entry{Process: strings.TrimSpace(process), Label: label})
				},
			},
		},
	}
}

// configCmd creates the config command group.
func configCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Read or change settings in config.json",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Print one setting, or all settings without a key",
				ArgsUsage: "[key]",
				Action: func(c *cli.Context) error {
					if c.NArg() == 0 {
						return outputJSON(env.config())
					}
					store, err := env.requireStore()
					if err != nil {
						return outputError(err)
					}
					key := c.Args().First()
					value, err := store.Get(key)
					if err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					return outputJSON(map[string]any{key: value})
				},
			},
			{
				Name:      "set",
				Usage:     "Change a setting; the value is parsed as JSON, else taken as a string",
				ArgsUsage: "<key> <value>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return outputError(errors.NewInvalidRequest("expected <key> <value>"))
					}
					store, err := env.requireStore()
					if err != nil {
						return outputError(err)
					}
					key := c.Args().Get(0)
					value := parseConfigValue(c.Args().Get(1))
					if err := store.Set(key, value); err != nil {
						return outputError(errors.NewInvalidRequest(err.Error()))
					}
					current, err := store.Get(key)
					if err != nil {
						return outputError(errors.NewInternal(err))
					}
					return outputJSON(map[string]any{key: current})
				},
			},
			{
				Name:  "path",
				Usage: "Print the config file location",
				Action: func(c *cli.Context) error {
					return outputJSON(map[string]string{"path": config.Path(env.baseDir)})
				},
			},
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(env *appEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Browse captured sessions in a local web viewer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to listen on"},
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			tags := sourcetag.WithOverrides(env.config().TextSourceTags)
			if err := config.Watch(ctx, env.baseDir, func(next *config.Config) {
				tags.Replace(next.TextSourceTags)
			}); err != nil {
				slog.Warn("config hot reload disabled", "error", err)
			}

			srv, err := web.NewServer(env.db, tags, Version, c.String("bind"), c.Int("port"))
			if err != nil {
				return outputError(errors.NewInvalidRequest(err.Error()))
			}

			slog.Info("web viewer listening", "addr", "http://"+srv.Addr)
			if err := web.Run(ctx, srv); err != nil {
				return outputError(errors.NewInternal(err))
			}
			return nil
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var textcapErr *errors.TextcapError
	if stderrors.As(err, &textcapErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", textcapErr.Code, textcapErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// optionalFlag returns a pointer to a non-empty string flag, else nil.
func optionalFlag(c *cli.Context, name string) *string {
	v := strings.TrimSpace(c.String(name))
	if v == "" {
		return nil
	}
	return &v
}

// parseConfigValue decodes s as JSON, falling back to the raw string so
// "config set document_format md" works without quoting.
func parseConfigValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
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
