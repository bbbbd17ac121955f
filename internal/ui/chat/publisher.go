// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/time/rate"

	"github.com/jeranaias/deskmate/internal/session"
)

// =============================================================================
// PUBLISHER
// =============================================================================

// DefaultMaxFPS caps in-progress renders when no rate is configured.
const DefaultMaxFPS = 30

// Publisher forwards session updates into a running tea.Program.
//
// In-progress snapshots are coalesced to at most maxFPS per second; the
// newest one held back is delivered when the limiter allows. Final
// snapshots are never dropped or delayed.
type Publisher struct {
	send    func(tea.Msg)
	limiter *rate.Limiter
	period  time.Duration

	mu      sync.Mutex
	pending *session.Update
	timer   *time.Timer
}

// NewPublisher creates a publisher that delivers messages with send,
// usually (*tea.Program).Send.
func NewPublisher(send func(tea.Msg), maxFPS int) *Publisher {
	if maxFPS <= 0 {
		maxFPS = DefaultMaxFPS
	}
	return &Publisher{
		send:    send,
		limiter: rate.NewLimiter(rate.Limit(maxFPS), 1),
		period:  time.Second / time.Duration(maxFPS),
	}
}

// Publish implements session.Publisher.
func (p *Publisher) Publish(u session.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if u.Final || p.limiter.Allow() {
		p.dropPending()
		p.send(ConversationMsg{Update: u})
		return
	}

	p.pending = &u
	if p.timer == nil {
		p.timer = time.AfterFunc(p.period, p.flush)
	}
}

// SetMaxFPS changes the in-progress render cap.
func (p *Publisher) SetMaxFPS(maxFPS int) {
	if maxFPS <= 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limiter.SetLimit(rate.Limit(maxFPS))
	p.period = time.Second / time.Duration(maxFPS)
}

func (p *Publisher) flush() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timer = nil
	if p.pending == nil {
		return
	}
	u := *p.pending
	p.pending = nil
	p.limiter.Allow()
	p.send(ConversationMsg{Update: u})
}

// dropPending discards a held-back snapshot superseded by a newer one.
// Caller holds p.mu.
func (p *Publisher) dropPending() {
	p.pending = nil
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}
