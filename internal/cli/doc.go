// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements deskmate's command-line commands.
//
// # Commands
//
//   - ask: send one question and stream the reply to stdout
//   - shell: line-mode conversation with input history
//   - model: show, set or clear the active model configuration
//   - config: inspect and edit config.toml by dotted key
//   - version, help
//
// Running deskmate with no command starts the chat interface, which lives
// in package chat and is launched from main.
//
// # Usage
//
//	cmd, args := cli.Parse(os.Args[1:])
//	switch cmd {
//	case cli.CmdAsk:
//	    err = cli.HandleAsk(ctx, env, args)
//	// ...
//	}
//	if err != nil {
//	    cli.DisplayError(os.Stderr, err, args.JSON)
//	    os.Exit(cli.GetExitCode(err))
//	}
//
// Commands write machine-readable output with --json and honor NO_COLOR.
package cli
