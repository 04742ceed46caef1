package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hpungsan/textcap/internal/config"
	"github.com/hpungsan/textcap/internal/db"
	"github.com/hpungsan/textcap/internal/logging"
	"github.com/hpungsan/textcap/internal/mcp"
	"github.com/hpungsan/textcap/internal/sourcetag"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"run": true, "sessions": true, "entries": true, "search": true,
	"export": true, "purge": true, "tags": true, "config": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v"
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _            _
  | |_ _____  _| |_ ___ __ _ _ __
  | __/ _ \ \/ / __/ __/ _' | '_ \
  | ||  __/>  <| || (_| (_| | |_) |
   \__\___/_/\_\\__\___\__,_| .__/
                            |_|
  Selected-text capture log

  Usage: textcap <command> [options]
         textcap run        start capturing
         textcap --help

  MCP server mode requires piped input.`)
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	baseDir, err := config.DefaultBaseDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	store, storeErr := config.OpenStore(baseDir)
	cfg := config.DefaultConfig()
	if storeErr == nil {
		cfg = store.Config()
	}

	// Stdout carries MCP messages and CLI JSON, so console logs go to stderr.
	closeLog, err := logging.Setup(baseDir, cfg.LogLevel, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()

	if storeErr != nil {
		slog.Warn("failed to load config, using defaults", "path", config.Path(baseDir), "error", storeErr)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(&appEnv{db: database, baseDir: baseDir, store: store, storeErr: storeErr, cfg: cfg})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			closeLog()
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'textcap --help' for usage.\n")
		os.Exit(1)
	}

	// MCP server mode (default)
	tags := sourcetag.WithOverrides(cfg.TextSourceTags)
	if err := mcp.Run(database, cfg, db.ExportsDir(baseDir), tags, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
