// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"time"
)

// DefaultPlaybackInterval reveals roughly a hundred runes per second, fast
// enough to read as a continuous type-out.
const DefaultPlaybackInterval = 10 * time.Millisecond

// =============================================================================
// PLAYBACK SCHEDULER
// =============================================================================

// Scheduler paces the reveal of an Accumulator's buffer at a fixed cadence,
// independent of how bursty network delivery is.
//
// The scheduler holds at most one ticker. The owning goroutine selects on C
// and calls Advance for each tick. C returns nil while stopped, so a select
// case on it simply never fires.
type Scheduler struct {
	interval time.Duration
	ticker   *time.Ticker
}

// NewScheduler creates a stopped scheduler.
func NewScheduler(interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultPlaybackInterval
	}
	return &Scheduler{interval: interval}
}

// Start begins ticking. Any previous ticker is stopped first.
func (s *Scheduler) Start() {
	s.Stop()
	s.ticker = time.NewTicker(s.interval)
}

// Stop cancels the ticker. Safe to call any number of times.
func (s *Scheduler) Stop() {
	if s.ticker != nil {
		s.ticker.Stop()
		s.ticker = nil
	}
}

// Running reports whether a ticker is active.
func (s *Scheduler) Running() bool {
	return s.ticker != nil
}

// C returns the tick channel, or nil while stopped.
func (s *Scheduler) C() <-chan time.Time {
	if s.ticker == nil {
		return nil
	}
	return s.ticker.C
}

// Interval returns the tick cadence.
func (s *Scheduler) Interval() time.Duration {
	return s.interval
}

// Advance handles one tick. It reveals one more rune of acc and returns the
// visible text and whether it changed. Catching up while acc is still
// streaming leaves the ticker running so newly arrived text resumes
// revealing; the scheduler stops itself only once acc is caught up and
// terminal.
func (s *Scheduler) Advance(acc *Accumulator) (string, bool) {
	visible, changed := acc.Advance()
	if acc.CaughtUp() && acc.Terminal() {
		s.Stop()
	}
	return visible, changed
}
