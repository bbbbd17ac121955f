// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// MaxMessages is the maximum number of messages to keep in conversation history.
// When exceeded, the oldest finalized messages are pruned.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the ordered, append-only message list of one chat session.
//
// Conversation is not safe for concurrent use; the session controller
// guards it.
type Conversation struct {
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	messages []*Message
}

// NewConversation creates a new conversation with a generated ID.
func NewConversation() *Conversation {
	now := time.Now()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		messages:  make([]*Message, 0),
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// AddMessage appends a message.
func (c *Conversation) AddMessage(msg *Message) {
	c.messages = append(c.messages, msg)
	c.UpdatedAt = time.Now()
	c.pruneOldMessages()
}

// AddUserMessage creates and appends a user message.
func (c *Conversation) AddUserMessage(content string) *Message {
	msg := NewUserMessage(content)
	c.AddMessage(msg)
	return msg
}

// AddAssistantMessage creates and appends an in-progress assistant reply.
func (c *Conversation) AddAssistantMessage() *Message {
	msg := NewAssistantMessage()
	c.AddMessage(msg)
	return msg
}

// AddSystemMessage creates and appends a system message.
func (c *Conversation) AddSystemMessage(content string) *Message {
	msg := NewSystemMessage(content)
	c.AddMessage(msg)
	return msg
}

// GetMessageByID returns a message by its ID, or nil.
func (c *Conversation) GetMessageByID(id string) *Message {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].ID == id {
			return c.messages[i]
		}
	}
	return nil
}

// GetLastMessage returns the most recent message, or nil if empty.
func (c *Conversation) GetLastMessage() *Message {
	if len(c.messages) == 0 {
		return nil
	}
	return c.messages[len(c.messages)-1]
}

// InProgress returns the reply currently streaming, or nil.
func (c *Conversation) InProgress() *Message {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].InProgress {
			return c.messages[i]
		}
	}
	return nil
}

// MessageCount returns the number of messages.
func (c *Conversation) MessageCount() int {
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c *Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// Snapshot returns a copy of the message list safe to hand to observers.
func (c *Conversation) Snapshot() []Message {
	out := make([]Message, len(c.messages))
	for i, msg := range c.messages {
		out[i] = *msg
	}
	return out
}

// History returns the finalized user and assistant messages, oldest first.
// System messages and in-progress replies are excluded.
func (c *Conversation) History() []Message {
	out := make([]Message, 0, len(c.messages))
	for _, msg := range c.messages {
		if msg.Role == RoleSystem || msg.InProgress {
			continue
		}
		out = append(out, *msg)
	}
	return out
}

// pruneOldMessages drops the oldest finalized messages beyond MaxMessages.
func (c *Conversation) pruneOldMessages() {
	excess := len(c.messages) - MaxMessages
	if excess <= 0 {
		return
	}
	kept := make([]*Message, 0, MaxMessages)
	for _, msg := range c.messages {
		if excess > 0 && !msg.InProgress {
			excess--
			continue
		}
		kept = append(kept, msg)
	}
	c.messages = kept
}
