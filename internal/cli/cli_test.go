// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/transport"
)

// =============================================================================
// ARG PARSER TESTS
// =============================================================================

func TestArgParser_BasicParsing(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantSub  string
		validate func(*testing.T, *ArgParser)
	}{
		{
			name:    "simple subcommand",
			args:    []string{"show"},
			wantSub: "show",
		},
		{
			name:    "flag with value",
			args:    []string{"set", "--api-key", "sk-123"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("api-key") != "sk-123" {
					t.Errorf("Flag(api-key) = %q, want %q", p.Flag("api-key"), "sk-123")
				}
			},
		},
		{
			name:    "flag with equals",
			args:    []string{"set", "--base-url=https://api.example.com/v1"},
			wantSub: "set",
			validate: func(t *testing.T, p *ArgParser) {
				if p.Flag("base-url") != "https://api.example.com/v1" {
					t.Errorf("Flag(base-url) = %q", p.Flag("base-url"))
				}
			},
		},
		{
			name:    "boolean flag does not swallow positional",
			args:    []string{"--json", "show"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if !p.BoolFlag("json") {
					t.Error("BoolFlag(json) should be true")
				}
			},
		},
		{
			name:    "explicit false",
			args:    []string{"show", "--verbose=false"},
			wantSub: "show",
			validate: func(t *testing.T, p *ArgParser) {
				if p.BoolFlag("verbose") {
					t.Error("BoolFlag(verbose) should be false")
				}
				if !p.HasFlag("verbose") {
					t.Error("HasFlag(verbose) should be true")
				}
			},
		},
		{
			name:    "double dash ends flags",
			args:    []string{"why", "--", "-1", "--odd"},
			wantSub: "why",
			validate: func(t *testing.T, p *ArgParser) {
				got := strings.Join(p.PositionalFrom(1), " ")
				if got != "-1 --odd" {
					t.Errorf("PositionalFrom(1) = %q", got)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := NewArgParser(tt.args)
			if parser.Subcommand() != tt.wantSub {
				t.Errorf("Subcommand() = %q, want %q", parser.Subcommand(), tt.wantSub)
			}
			if tt.validate != nil {
				tt.validate(t, parser)
			}
		})
	}
}

func TestArgParser_EmptyArgs(t *testing.T) {
	p := NewArgParser(nil)
	if p.Subcommand() != "" || p.PositionalCount() != 0 {
		t.Errorf("empty parser has subcommand %q, %d positionals", p.Subcommand(), p.PositionalCount())
	}
	if p.Positional(3) != "" || p.PositionalFrom(1) != nil {
		t.Error("out of range lookups should be empty")
	}
	if p.FlagOrDefault("model", "gpt-4o") != "gpt-4o" {
		t.Error("FlagOrDefault should return the default")
	}
}

// =============================================================================
// COMMAND PARSING TESTS
// =============================================================================

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		argv    []string
		wantCmd Command
		check   func(*testing.T, Args)
	}{
		{"no args starts tui", nil, CmdTUI, nil},
		{"chat alias", []string{"chat"}, CmdTUI, nil},
		{
			name:    "ask joins words",
			argv:    []string{"ask", "what", "is", "go?"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.Query != "what is go?" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:    "global flags anywhere",
			argv:    []string{"--config", "/tmp/c.toml", "ask", "hi", "--json", "-v"},
			wantCmd: CmdAsk,
			check: func(t *testing.T, a Args) {
				if a.ConfigPath != "/tmp/c.toml" || !a.JSON || !a.Verbose {
					t.Errorf("global flags not parsed: %+v", a)
				}
				if a.Query != "hi" {
					t.Errorf("Query = %q", a.Query)
				}
			},
		},
		{
			name:    "model keeps raw args",
			argv:    []string{"model", "set", "--api-key", "k"},
			wantCmd: CmdModel,
			check: func(t *testing.T, a Args) {
				if len(a.Raw) != 3 || a.Raw[0] != "set" {
					t.Errorf("Raw = %v", a.Raw)
				}
			},
		},
		{"config", []string{"--config=/x.toml", "config", "path"}, CmdConfig, nil},
		{"version", []string{"version"}, CmdVersion, nil},
		{"help flag", []string{"--help"}, CmdHelp, nil},
		{"unknown", []string{"frobnicate"}, CmdUnknown, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, args := Parse(tt.argv)
			if cmd != tt.wantCmd {
				t.Errorf("Parse(%v) command = %d, want %d", tt.argv, cmd, tt.wantCmd)
			}
			if tt.check != nil {
				tt.check(t, args)
			}
		})
	}
}

// =============================================================================
// ERROR TESTS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", ErrMissingArgument("question", "deskmate ask"), ExitUsageError},
		{"reply error", &ReplyError{Short: "boom"}, ExitGeneralError},
		{"reported reply error", reported(&ReplyError{Short: "boom"}), ExitGeneralError},
		{"interrupted", ErrInterrupted, ExitInterrupted},
		{"config missing", modelconfig.ErrConfigMissing, ExitConfigError},
		{"invalid config", config.ValidateErrors{{Field: "ui.max_fps", Message: "bad"}}, ExitConfigError},
		{"transport", &transport.TransportError{Kind: transport.ErrKindConnection, Message: "connect failed", Cause: errors.New("refused")}, ExitNetworkError},
		{"other", errors.New("whatever"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDisplayError_SkipsReported(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, reported(&ReplyError{Short: "x"}), false)
	DisplayError(&buf, ErrInterrupted, false)
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	DisplayError(&buf, errors.New("disk full"), false)
	if !strings.Contains(buf.String(), "disk full") {
		t.Errorf("DisplayError output = %q", buf.String())
	}
}

func TestHandleVersion_JSON(t *testing.T) {
	var buf bytes.Buffer
	if err := HandleVersion(&buf, Args{JSON: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"version": "`+Version+`"`) {
		t.Errorf("unexpected output: %s", buf.String())
	}
}
