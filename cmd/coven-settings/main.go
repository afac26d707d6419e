// ABOUTME: CLI for inspecting and editing coven client settings
// ABOUTME: Dispatches subcommands over the SQLite store and the JSON settings files

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/coven-settings/internal/config"
	"github.com/2389/coven-settings/internal/logging"
	"github.com/2389/coven-settings/internal/store"
)

const banner = `
                                            _   _   _
  ___ _____   _____ _ __        ___  ___| |_| |_(_)_ __   __ _ ___
 / __/ _ \ \ / / _ \ '_ \ _____/ __|/ _ \ __| __| | '_ \ / _' / __|
| (_| (_) \ V /  __/ | | |_____\__ \  __/ |_| |_| | | | | (_| \__ \
 \___\___/ \_/ \___|_| |_|     |___/\___|\__|\__|_|_| |_|\__, |___/
                                                         |___/
`

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

// app carries what every subcommand needs.
type app struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	configPath := ""
	for len(args) > 0 && (args[0] == "--config" || args[0] == "-c") {
		if len(args) < 2 {
			return fmt.Errorf("%s requires a path", args[0])
		}
		configPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage(stdout)
		return fmt.Errorf("no command given")
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	a := &app{
		cfg:    cfg,
		logger: logging.New(cfg.Logging, stderr),
		out:    stdout,
	}

	cmd := args[0]
	args = args[1:]

	switch cmd {
	case "servers":
		return a.cmdServers(ctx, args)
	case "tokens":
		return a.cmdTokens(ctx, args)
	case "users":
		return a.cmdUsers(ctx, args)
	case "active":
		return a.cmdActive(ctx, args)
	case "files":
		return a.cmdFiles(args)
	case "schema":
		return a.cmdSchema(ctx)
	case "help", "-h", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stdout)
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

// loadConfig reads path, or the located config, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = config.Locate()
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func (a *app) openStore() (*store.SQLiteStore, error) {
	return store.NewSQLiteStore(a.cfg.DatabasePath(),
		store.WithDriver(a.cfg.Database.Driver),
		store.WithBusyTimeout(a.cfg.Database.BusyTimeout),
		store.WithLogger(a.logger),
	)
}

func printUsage(w io.Writer) {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Fprint(w, banner)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: coven-settings [--config <path>] <command> [args]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Database commands:")
	fmt.Fprintln(w, "  servers                             List servers, most recently used first")
	fmt.Fprintln(w, "  servers add --name <n> --address <a> [--id <id>]")
	fmt.Fprintln(w, "  servers rename --address <a> --name <n> [--id <id>]")
	fmt.Fprintln(w, "  servers connect <address>           Record a successful connection")
	fmt.Fprintln(w, "  servers remove <address>            Remove a server with its tokens and users")
	fmt.Fprintln(w, "  tokens <address>                    List tokens for a server")
	fmt.Fprintln(w, "  tokens add --address <a> --user <u> --token <t> [--device <d>]")
	fmt.Fprintln(w, "  tokens remove <address> <user>")
	fmt.Fprintln(w, "  users <address>                     List users for a server")
	fmt.Fprintln(w, "  users add --address <a> --user <u> --name <n>")
	fmt.Fprintln(w, "  users remove <address> <user>")
	fmt.Fprintln(w, "  active                              Show the active token")
	fmt.Fprintln(w, "  active set <address> <user>")
	fmt.Fprintln(w, "  active unset")
	fmt.Fprintln(w, "  schema                              Show the database schema version")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Settings file commands:")
	fmt.Fprintln(w, "  files paths                         Show the resolved file locations")
	fmt.Fprintln(w, "  files servers                       List servers in servers.json")
	fmt.Fprintln(w, "  files servers add --name <n> --address <a> [--id <id>]")
	fmt.Fprintln(w, "  files servers remove <address>")
	fmt.Fprintln(w, "  files servers use <address>         Bookmark the current server")
	fmt.Fprintln(w, "  files tokens                        List tokens in tokens.json")
	fmt.Fprintln(w, "  files tokens add <address> <token>")
	fmt.Fprintln(w, "  files tokens remove <address> [token]")
	fmt.Fprintln(w, "  files tokens prefer <address> [token]")
	fmt.Fprintln(w)
	yellow.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  COVEN_SETTINGS_CONFIG               Config file (YAML, or TOML when named *.toml)")
	fmt.Fprintln(w)
}

// parseFlags reads --key value pairs into a map. Unknown keys are kept.
func parseFlags(args []string) (map[string]string, []string) {
	flags := make(map[string]string)
	var rest []string
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if len(arg) > 2 && arg[:2] == "--" && i+1 < len(args) {
			flags[arg[2:]] = args[i+1]
			i++
			continue
		}
		rest = append(rest, arg)
	}
	return flags, rest
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
