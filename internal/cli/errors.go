// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/transport"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess      = 0
	ExitGeneralError = 1 // Includes a reply that ended in error
	ExitUsageError   = 2
	ExitConfigError  = 3
	ExitNetworkError = 5
	ExitInterrupted  = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError represents a CLI command error with context.
type CommandError struct {
	Command string // e.g. "model"
	Action  string // e.g. "set"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// UsageError represents invalid command usage.
type UsageError struct {
	Reason  string
	Example string
}

func (e *UsageError) Error() string {
	if e.Example != "" {
		return fmt.Sprintf("%s\nUsage: %s", e.Reason, e.Example)
	}
	return e.Reason
}

// ReplyError reports a reply that finished in the Errored state.
type ReplyError struct {
	Short  string
	Detail string
}

func (e *ReplyError) Error() string {
	if e.Detail != "" {
		return e.Short + ": " + e.Detail
	}
	return e.Short
}

// ErrInterrupted is returned when the user stops a reply with Ctrl+C.
var ErrInterrupted = errors.New("interrupted")

// reportedError marks an error the command has already written out.
type reportedError struct{ error }

func (e reportedError) Unwrap() error { return e.error }

func reported(err error) error { return reportedError{err} }

// NewCommandError creates a new command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument creates a usage error for a missing argument.
func ErrMissingArgument(what, usage string) error {
	return &UsageError{Reason: "missing " + what, Example: usage}
}

// =============================================================================
// ERROR DISPLAY
// =============================================================================

// DisplayError writes an error in the CLI's format.
func DisplayError(w io.Writer, err error, jsonMode bool) {
	var already reportedError
	if err == nil || errors.As(err, &already) || errors.Is(err, ErrInterrupted) {
		return
	}
	if jsonMode {
		NewJSONErrorResponse("", err).Fprint(w)
		return
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode determines the exit code for an error.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var usageErr *UsageError
	var replyErr *ReplyError
	var validateErrs config.ValidateErrors
	switch {
	case errors.Is(err, ErrInterrupted):
		return ExitInterrupted
	case errors.As(err, &usageErr):
		return ExitUsageError
	case errors.As(err, &replyErr):
		return ExitGeneralError
	case errors.Is(err, modelconfig.ErrConfigMissing), errors.As(err, &validateErrs):
		return ExitConfigError
	case transport.IsTransportError(err):
		return ExitNetworkError
	}
	return ExitGeneralError
}
