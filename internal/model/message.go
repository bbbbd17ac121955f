// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jeranaias/deskmate/internal/stream"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a conversation.
type Message struct {
	// Identity
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Timestamp time.Time `json:"timestamp"`

	// Content is the visible text. While InProgress it is the revealed
	// prefix of the reply; once finalized it is the complete result.
	Content string `json:"content"`

	// Streaming state (assistant replies only)
	InProgress bool         `json:"-"`
	State      stream.State `json:"-"`

	// ServerID is the ID the assistant service assigned on completion.
	ServerID string `json:"server_id,omitempty"`

	// Performance metrics (assistant replies only)
	Stats *Statistics `json:"-"`
}

// NewMessage creates a new finalized message with a generated ID.
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        generateID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
		State:     stream.StateDone,
	}
}

// NewUserMessage creates a new user message.
func NewUserMessage(content string) *Message {
	return NewMessage(RoleUser, content)
}

// NewAssistantMessage creates an empty in-progress assistant reply.
func NewAssistantMessage() *Message {
	return &Message{
		ID:         generateID(),
		Role:       RoleAssistant,
		Timestamp:  time.Now(),
		InProgress: true,
		State:      stream.StateStreaming,
	}
}

// NewSystemMessage creates a new system message.
func NewSystemMessage(content string) *Message {
	return NewMessage(RoleSystem, content)
}

// Finalize records the final content and state of a reply.
func (m *Message) Finalize(content string, state stream.State, stats *Statistics) {
	m.Content = content
	m.InProgress = false
	m.State = state
	m.Stats = stats
}

// IsEmpty returns true if the message has no content.
func (m *Message) IsEmpty() bool {
	return m.Content == ""
}

// =============================================================================
// STATISTICS TYPE
// =============================================================================

// Statistics holds timing and volume information for one reply.
type Statistics struct {
	TTFT          time.Duration // Time to first content frame
	TotalDuration time.Duration // Send to finalization
	Deltas        int           // Content frames received
	Bytes         int           // Bytes of text received
}

// Format returns a one-line summary of the statistics.
func (s *Statistics) Format() string {
	if s == nil {
		return ""
	}
	return fmt.Sprintf("%.1fs | %d chunks | %d bytes | TTFT %dms",
		s.TotalDuration.Seconds(), s.Deltas, s.Bytes, s.TTFT.Milliseconds())
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// generateID creates a unique message ID.
func generateID() string {
	return "msg_" + uuid.NewString()
}
