// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"sync"

	"github.com/jeranaias/deskmate/internal/stream"
)

// Reply is a handle to the assistant message created by one Send.
type Reply struct {
	// ID is the ID of the assistant message in the conversation.
	ID string

	done chan struct{}

	mu      sync.Mutex
	state   stream.State
	content string
}

func newReply(id string) *Reply {
	return &Reply{
		ID:    id,
		done:  make(chan struct{}),
		state: stream.StateStreaming,
	}
}

// Done is closed once the reply has been finalized and published.
func (r *Reply) Done() <-chan struct{} {
	return r.done
}

// Outcome returns the terminal state, or StateStreaming while in progress.
func (r *Reply) Outcome() stream.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Content returns the finalized content, or "" while in progress.
func (r *Reply) Content() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.content
}

// Wait blocks until the reply is finalized or ctx is done.
func (r *Reply) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Reply) resolve(state stream.State, content string) {
	r.mu.Lock()
	r.state = state
	r.content = content
	r.mu.Unlock()
	close(r.done)
}
