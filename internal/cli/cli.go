// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/session"
	"github.com/jeranaias/deskmate/internal/transport"
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
	CmdShell
	CmdModel
	CmdConfig
	CmdVersion
	CmdHelp
	CmdUnknown
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet      bool
	Verbose    bool
	JSON       bool
	ConfigPath string // --config; empty means ~/.deskmate/config.toml

	// Command-specific
	Command string // As typed, for error messages
	Query   string

	// Raw holds the arguments after the command name.
	Raw []string
}

// Env carries the dependencies commands run against. main builds it once.
type Env struct {
	Config    *config.Config
	Logger    *zap.Logger
	Models    *modelconfig.Store
	Resolver  session.ConfigResolver
	Transport transport.Transport

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

const usageText = `deskmate - terminal client for a streaming chat assistant

Usage:
  deskmate                         Start the chat interface (default)
  deskmate ask "question"          Ask one question and stream the reply
  deskmate shell                   Line-mode conversation with history
  deskmate model [show|set|clear]  Manage the active model configuration
  deskmate config [subcommand]     Inspect or edit config.toml
  deskmate version                 Show version information
  deskmate help                    Show this help

Ask:
  deskmate ask "question"          Question as arguments
  echo "question" | deskmate ask   Question from stdin
    Ctrl+C stops the reply and keeps what was received.

Model:
  deskmate model show              Show the active configuration (key masked)
  deskmate model set --api-key KEY [--base-url URL] [--model NAME]
  deskmate model clear             Remove the active configuration

Config:
  deskmate config show             Print the effective configuration
  deskmate config get <key>        Print one value (e.g. chat.playback_interval_ms)
  deskmate config set <key> <val>  Change one value in config.toml
  deskmate config keys             List all keys
  deskmate config path             Print the config file path

Global flags:
  --config PATH                    Use another config file
  --json                           Machine-readable output
  -q, --quiet                      Suppress informational output
  -v, --verbose                    Print reply statistics

Version: %s
`

// PrintUsage writes the usage text.
func PrintUsage(w io.Writer) {
	fmt.Fprintf(w, usageText, Version)
}

// Parse parses command-line arguments (without the program name).
func Parse(argv []string) (Command, Args) {
	remaining, args := parseGlobalFlags(argv)
	if len(remaining) == 0 {
		return CmdTUI, args
	}

	args.Command = remaining[0]
	args.Raw = remaining[1:]

	switch strings.ToLower(args.Command) {
	case "tui", "chat":
		return CmdTUI, args
	case "ask", "a":
		args.Query = strings.Join(NewArgParser(args.Raw).PositionalFrom(0), " ")
		return CmdAsk, args
	case "shell", "repl":
		return CmdShell, args
	case "model", "models":
		return CmdModel, args
	case "config", "cfg":
		return CmdConfig, args
	case "version", "--version":
		return CmdVersion, args
	case "help", "-h", "--help":
		return CmdHelp, args
	}
	return CmdUnknown, args
}

// parseGlobalFlags extracts global flags and returns the remaining args.
// Global flags are accepted anywhere on the command line.
func parseGlobalFlags(argv []string) ([]string, Args) {
	var remaining []string
	var args Args

	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--json":
			args.JSON = true
		case arg == "--config" && i+1 < len(argv):
			i++
			args.ConfigPath = argv[i]
		case strings.HasPrefix(arg, "--config="):
			args.ConfigPath = strings.TrimPrefix(arg, "--config=")
		default:
			remaining = append(remaining, arg)
		}
	}
	return remaining, args
}

// =============================================================================
// VERSION
// =============================================================================

// HandleVersion prints version information.
func HandleVersion(w io.Writer, args Args) error {
	if args.JSON {
		return NewJSONResponse("version", VersionData{
			Version:   Version,
			GitCommit: GitCommit,
			BuildDate: BuildDate,
			GoVersion: runtime.Version(),
		}).Fprint(w)
	}
	fmt.Fprintf(w, "deskmate version %s\n", Version)
	fmt.Fprintf(w, "  Git commit: %s\n", GitCommit)
	fmt.Fprintf(w, "  Build date: %s\n", BuildDate)
	return nil
}
