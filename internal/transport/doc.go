// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package transport opens the streaming chat request to the assistant
// service and yields the raw response chunks.
//
// Cancellation is a context: cancelling the context passed to Open tears the
// connection down and turns the pending Next into ErrCancelled. Any other
// failure (non-200 status, dial or read error) is a *TransportError.
//
// No read or idle timeout is applied; a stalled stream waits until its
// context is cancelled.
package transport
