// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view for the deskmate TUI.
//
// The view never streams anything itself. It renders the message list the
// session controller publishes and calls Send and Stop from tea.Cmd
// goroutines, so a blocking publish can never stall the update loop.
//
// # Key Types
//
//   - Model: Bubble Tea model for the chat view
//   - Session: the controller surface the view depends on
//   - Publisher: session.Publisher that forwards updates into the program,
//     coalescing in-progress snapshots to a frame rate
//   - KeyMap: keyboard bindings
//
// Error replies arrive as sentinel-encoded content and are split back into
// a short message and detail with sentinel.Split.
package chat
