// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package logging builds the application's zap logger.
//
// Records are written as JSON to a size-rotated file (lumberjack) and,
// optionally, as console text to stderr. Stdout is left to the UI.
//
//	logger, closer, err := logging.New(logging.Options{Level: "debug", Dir: dir})
//	defer closer.Close()
package logging
