// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package transport

// =============================================================================
// REQUEST TYPES
// =============================================================================

// HistoryEntry is one prior message sent as conversation context.
type HistoryEntry struct {
	Role    string `json:"role"`    // "user" or "assistant"
	Content string `json:"content"` // Finalized message content
}

// ChatRequest is the body of the streaming chat request.
type ChatRequest struct {
	Message   string         `json:"message"`              // The new user message
	History   []HistoryEntry `json:"history"`              // Prior messages, oldest first, no system role
	Mode      string         `json:"mode"`                 // Session mode (e.g., "private")
	SessionID string         `json:"session_id,omitempty"` // Conversation the server persists under

	// Resolved model configuration
	APIKey    string `json:"api_key"`
	BaseURL   string `json:"base_url"`
	ModelName string `json:"model_name"`
}

// =============================================================================
// CHUNK READER
// =============================================================================

// ChunkReader yields raw response chunks in arrival order.
//
// Next blocks until a chunk arrives, the stream ends (io.EOF), the request
// context is cancelled (ErrCancelled) or the transport fails (*TransportError).
// The returned slice is owned by the caller.
type ChunkReader interface {
	Next() ([]byte, error)
	Close() error
}
