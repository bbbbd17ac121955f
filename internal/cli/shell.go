// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/session"
)

const shellPrompt = "deskmate> "

// =============================================================================
// LINE INPUT
// =============================================================================

// lineReader supplies one line of user input per call. io.EOF ends the shell.
type lineReader interface {
	ReadLine(prompt string) (string, error)
	Close() error
}

// historyInput reads lines with editing and history, saved between runs.
type historyInput struct {
	line        *liner.State
	historyFile string
}

func newHistoryInput() *historyInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &historyInput{line: line, historyFile: filepath.Join(dir, "shell_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (in *historyInput) ReadLine(prompt string) (string, error) {
	text, err := in.line.Prompt(prompt)
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) != "" {
		in.line.AppendHistory(text)
	}
	return text, nil
}

// Close saves history (owner read/write only) and restores the terminal.
func (in *historyInput) Close() error {
	if err := os.MkdirAll(filepath.Dir(in.historyFile), 0700); err == nil {
		if f, err := os.OpenFile(in.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			in.line.WriteHistory(f)
			f.Close()
		}
	}
	return in.line.Close()
}

// =============================================================================
// SHELL
// =============================================================================

// HandleShell runs a line-mode conversation on the terminal. Replies stream
// as they are revealed; Ctrl+C stops the current reply, and Ctrl+C or
// Ctrl+D at the prompt leaves.
func HandleShell(ctx context.Context, env *Env, args Args) error {
	if !IsTTY() {
		return &UsageError{Reason: "shell needs an interactive terminal", Example: `deskmate ask "question"`}
	}
	in := newHistoryInput()
	defer in.Close()
	return runShell(ctx, env, args, in)
}

func runShell(ctx context.Context, env *Env, args Args, in lineReader) error {
	printer := &replyPrinter{w: env.Stdout, live: true}
	ctrl := session.New(sessionOptions(env, printer))
	defer ctrl.Close()

	if !args.Quiet {
		fmt.Fprintln(env.Stdout, TitleStyle.Render("deskmate shell"))
		fmt.Fprintln(env.Stdout, DimStyle.Render("Type /help for commands, Ctrl+D to leave."))
	}

	replies := 0
	for {
		text, err := in.ReadLine(shellPrompt)
		if err == io.EOF {
			break
		}
		if err != nil {
			return NewCommandError("shell", "read", "could not read input", err)
		}

		text = strings.TrimSpace(text)
		switch {
		case text == "":
			continue
		case strings.HasPrefix(text, "/"):
			if !shellCommand(env, ctrl, text) {
				return nil
			}
			continue
		}

		printer.reset()
		replyCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		reply, err := ctrl.Send(text)
		if err != nil {
			stop()
			fmt.Fprintln(env.Stderr, ErrorStyle.Render("[Error]"), err)
			continue
		}
		awaitReply(replyCtx, ctrl, reply)
		stop()
		replies++

		if final := printer.result(); final != nil {
			// The error is already on screen; the shell carries on.
			if err := printer.finish(env.Stderr, final, args); err != nil {
				var replyErr *ReplyError
				if errors.As(err, &replyErr) {
					fmt.Fprintln(env.Stderr, ErrorStyle.Render(replyErr.Error()))
				}
			}
		}
		if ctx.Err() != nil {
			return ErrInterrupted
		}
	}

	if !args.Quiet {
		fmt.Fprintf(env.Stdout, "\n%s\n", DimStyle.Render(fmt.Sprintf("%d replies this session.", replies)))
	}
	return nil
}

// shellCommand runs a slash command and reports whether the shell goes on.
func shellCommand(env *Env, ctrl *session.Controller, text string) bool {
	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/quit", "/exit", "/q":
		return false
	case "/clear", "/new":
		if err := ctrl.Reset(); err != nil {
			fmt.Fprintln(env.Stderr, ErrorStyle.Render("[Error]"), err)
		} else {
			fmt.Fprintln(env.Stdout, DimStyle.Render("Conversation cleared."))
		}
	case "/history":
		for _, m := range ctrl.Messages() {
			fmt.Fprintln(env.Stdout, RenderField(string(m.Role), firstLine(m.Content)))
		}
	case "/help":
		fmt.Fprintln(env.Stdout, "  /clear    Start a new conversation")
		fmt.Fprintln(env.Stdout, "  /history  List the messages so far")
		fmt.Fprintln(env.Stdout, "  /quit     Leave the shell")
		fmt.Fprintln(env.Stdout, "  Ctrl+C    Stop the reply that is streaming")
	default:
		fmt.Fprintln(env.Stderr, WarningStyle.Render("Unknown command: "+fields[0]))
	}
	return true
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " ..."
	}
	return s
}
