// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Conversation: ordered, append-only message list of one chat session
//   - Message: single message with role, content, timestamp and stream state
//   - Statistics: timing and volume of one assistant reply
//   - Role: message role enumeration (user, assistant, system)
//
// Assistant replies are created in progress and finalized exactly once.
// Observers receive value copies through Conversation.Snapshot.
//
// # Usage
//
//	conv := model.NewConversation()
//	conv.AddUserMessage("Hello!")
//	reply := conv.AddAssistantMessage()
//	reply.Finalize("Hi there", stream.StateDone, nil)
package model
