// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdAsk
	CmdChat
	CmdServe
	CmdConfig
	CmdVersion
	CmdHelp
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdTUI:
		return "tui"
	case CmdAsk:
		return "ask"
	case CmdChat:
		return "chat"
	case CmdServe:
		return "serve"
	case CmdConfig:
		return "config"
	case CmdVersion:
		return "version"
	default:
		return "help"
	}
}

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	ConfigPath string // --config: TOML file instead of ~/.folio/config.toml
	BackendURL string // --backend: overrides widget.backend_url
	Quiet      bool
	Verbose    bool
	JSON       bool

	// Command-specific
	Query      string // ask
	Subcommand string // config
	Watch      bool   // serve --watch
	Addr       string // serve --addr host:port
	Port       int    // serve --port, keeps the configured host
	Open       bool   // tui --open

	// Raw args (remaining after the command name)
	Raw []string
}

const usageText = `folio - a terminal portfolio with an AI assistant

Usage:
  folio                      Open the portfolio (default)
  folio tui [--open]         Same; --open starts with the chat widget open
  folio ask "question"       Ask the assistant one question
  folio chat                 Chat with the assistant line by line
  folio serve [--watch]      Run the chat backend (POST /api/chat)
  folio config [show|path|init]
  folio version
  folio help

Global flags:
  --config FILE    Use FILE instead of ~/.folio/config.toml
  --backend URL    Chat backend base URL (default http://127.0.0.1:8000)
  --json           Machine-readable output (ask, config show, version)
  -q, --quiet      Less output
  -v, --verbose    Debug logging

Serve flags:
  --addr HOST:PORT Listen address (default from [server] host/port)
  --port N         Listen port on the configured host
  --watch          Reload CORS origins, limits and log level on config change

Environment:
  MISTRAL_API_KEY, FOLIO_BACKEND_URL, FOLIO_PORT, FOLIO_DB_PATH,
  FOLIO_ALLOWED_ORIGINS, FOLIO_DAILY_QUOTA, REDIS_URL, FOLIO_LOG_LEVEL,
  FOLIO_HOME. A .env file in the working directory or FOLIO_HOME is read.

Version: %s
`

// PrintUsage prints the usage/help text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// globalSwitches are boolean flags accepted by every command.
var globalSwitches = []string{"json", "q", "quiet", "v", "verbose"}

// ParseArgs parses command-line arguments (without the program name).
func ParseArgs(argv []string) (Command, Args, error) {
	remaining, args := parseGlobalFlags(argv)

	if len(remaining) == 0 {
		return CmdTUI, args, nil
	}

	name := strings.ToLower(remaining[0])
	remaining = remaining[1:]
	args.Raw = remaining

	switch name {
	case "tui":
		p := NewArgParser(remaining, "open")
		args.Open = p.BoolFlag("open")
		return CmdTUI, args, nil

	case "ask":
		p := NewArgParser(remaining, globalSwitches...)
		args.Query = strings.TrimSpace(strings.Join(p.PositionalFrom(0), " "))
		if args.Query == "" {
			return CmdAsk, args, UsageError(`ask needs a question, e.g. folio ask "What projects are you proudest of?"`)
		}
		return CmdAsk, args, nil

	case "chat":
		return CmdChat, args, nil

	case "serve", "server":
		p := NewArgParser(remaining, "watch", "w")
		args.Watch = p.BoolFlag("watch", "w")
		args.Addr = p.Flag("addr", "a")
		port, err := p.FlagInt(0, "port", "p")
		if err != nil {
			return CmdServe, args, UsageError("%v", err)
		}
		if port < 0 || port > 65535 {
			return CmdServe, args, UsageError("--port must be between 1 and 65535, got %d", port)
		}
		args.Port = port
		return CmdServe, args, nil

	case "config":
		p := NewArgParser(remaining)
		args.Subcommand = strings.ToLower(p.Subcommand())
		switch args.Subcommand {
		case "", "show", "path", "init":
		default:
			return CmdConfig, args, UsageError("unknown config subcommand %q (show, path, init)", args.Subcommand)
		}
		return CmdConfig, args, nil

	case "version", "--version":
		return CmdVersion, args, nil

	case "help", "-h", "--help":
		return CmdHelp, args, nil
	}

	return CmdHelp, args, UsageError("unknown command %q", name)
}

// parseGlobalFlags strips global flags from anywhere in argv.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch arg {
		case "-q", "--quiet":
			args.Quiet = true
		case "-v", "--verbose":
			args.Verbose = true
		case "--json":
			args.JSON = true
		case "--config", "--backend":
			if i+1 < len(argv) {
				i++
				args.setValue(arg, argv[i])
			}
		default:
			if k, v, ok := strings.Cut(arg, "="); ok && (k == "--config" || k == "--backend") {
				args.setValue(k, v)
				continue
			}
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

func (a *Args) setValue(flag, value string) {
	switch flag {
	case "--config":
		a.ConfigPath = value
	case "--backend":
		a.BackendURL = value
	}
}

// =============================================================================
// VERSION / HELP
// =============================================================================

// VersionData is the JSON form of `folio version --json`.
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
}

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return writeJSON(w, VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		})
	}
	fmt.Fprintf(w, "folio version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}

// HandleHelp prints usage.
func HandleHelp(w io.Writer) error {
	PrintUsage(w)
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// =============================================================================
// DISPATCH
// =============================================================================

// Run executes cmd. Output goes to w except for the interactive commands,
// which own the terminal.
func Run(ctx context.Context, w io.Writer, cmd Command, args Args) error {
	switch cmd {
	case CmdVersion:
		return HandleVersion(w, args)
	case CmdHelp:
		return HandleHelp(w)
	case CmdConfig:
		return HandleConfig(w, args)
	}

	// Settles the lipgloss profile before anything is styled.
	ColorsEnabled()
	cfg, err := LoadConfig(args)
	if err != nil {
		return err
	}

	switch cmd {
	case CmdAsk:
		return HandleAsk(ctx, w, cfg, args)
	case CmdChat:
		return HandleChat(ctx, cfg, args)
	case CmdServe:
		return HandleServe(cfg, args)
	default:
		return HandleTUI(ctx, cfg, args)
	}
}
