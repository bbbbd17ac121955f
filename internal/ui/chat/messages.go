// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/session"
)

// =============================================================================
// CONVERSATION MESSAGES
// =============================================================================

// ConversationMsg carries a published snapshot of the conversation.
type ConversationMsg struct {
	session.Update
}

// SendFailedMsg reports a Send rejected before any reply was created.
type SendFailedMsg struct {
	Err error
}

// StoppedMsg signals that Stop has returned.
type StoppedMsg struct{}

// =============================================================================
// STATUS MESSAGES
// =============================================================================

// StatusMsg sets a temporary status line.
type StatusMsg struct {
	Text string
}

// clearStatusMsg clears the status line if it has not been replaced since.
type clearStatusMsg struct {
	seq int
}

// ConfigReloadedMsg delivers a configuration reloaded from disk.
type ConfigReloadedMsg struct {
	Config *config.Config
}
