// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/deskmate/internal/sentinel"
)

// =============================================================================
// TRANSITION
// =============================================================================

// Transition is the outcome of applying one event to an Accumulator.
type Transition struct {
	State State

	// Content is the message content to publish when Publish is set.
	Content string
	Publish bool

	// StartPlayback asks the caller to start the scheduler if it is idle.
	StartPlayback bool

	// Envelope is set when the reply ended in an error.
	Envelope *sentinel.Envelope
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator owns the reassembled text of one in-flight reply and its
// playback cursor.
//
// Invariants: 0 <= cursor <= len(buffer); the cursor only moves forward and
// always sits on a rune boundary; once terminal, no frame mutates the buffer.
//
// An Accumulator is owned by a single goroutine and is not safe for
// concurrent use.
type Accumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	buffer   strings.Builder
	cursor   int
	terminal bool
	state    State

	messageID string
	envelope  *sentinel.Envelope

	deltas       int
	startTime    time.Time
	firstDeltaAt time.Time
	endTime      time.Time
}

// NewAccumulator creates an accumulator in the Streaming state.
func NewAccumulator() *Accumulator {
	return &Accumulator{
		state:     StateStreaming,
		startTime: time.Now(),
	}
}

// Apply folds one frame into the accumulator. Frames after a terminal
// transition are no-ops and return the current state without publishing.
func (a *Accumulator) Apply(f Frame) Transition {
	if a.terminal {
		return Transition{State: a.state}
	}

	switch f.Kind {
	case FrameContent:
		if f.Text == "" {
			return Transition{State: a.state}
		}
		if a.firstDeltaAt.IsZero() {
			a.firstDeltaAt = time.Now()
		}
		a.buffer.WriteString(f.Text)
		a.deltas++
		return Transition{State: a.state, StartPlayback: true}

	case FrameError:
		env := sentinel.FromServer(f.Text)
		return a.finish(StateErrored, sentinel.Append(a.buffer.String(), env.String()), &env)

	case FrameCompletion:
		a.messageID = f.MessageID
		// Completion snaps the visible text to the full buffer.
		return a.finish(StateDone, a.buffer.String(), nil)
	}

	return Transition{State: a.state}
}

// Cancel finalizes a reply stopped by the user. The content is everything
// received from the network, regardless of how much had been revealed.
func (a *Accumulator) Cancel() Transition {
	if a.terminal {
		return Transition{State: a.state}
	}
	return a.finish(StateCancelled, sentinel.Stopped(a.buffer.String()), nil)
}

// Fail finalizes a reply whose transport failed. The streamed text is
// replaced by the fixed connection failure sentinel.
func (a *Accumulator) Fail() Transition {
	if a.terminal {
		return Transition{State: a.state}
	}
	env := sentinel.TransportFailure
	return a.finish(StateErrored, env.String(), &env)
}

// finish marks the accumulator terminal and moves the cursor to the end.
func (a *Accumulator) finish(state State, content string, env *sentinel.Envelope) Transition {
	a.terminal = true
	a.state = state
	a.envelope = env
	a.cursor = a.buffer.Len()
	a.endTime = time.Now()
	return Transition{State: state, Content: content, Publish: true, Envelope: env}
}

// Advance moves the cursor forward by one rune and returns the revealed
// prefix. It returns false when the cursor is already at the end.
func (a *Accumulator) Advance() (string, bool) {
	buf := a.buffer.String()
	if a.cursor >= len(buf) {
		return buf[:a.cursor], false
	}
	_, size := utf8.DecodeRuneInString(buf[a.cursor:])
	a.cursor += size
	return buf[:a.cursor], true
}

// CaughtUp reports whether every received byte has been revealed.
func (a *Accumulator) CaughtUp() bool {
	return a.cursor >= a.buffer.Len()
}

// Buffer returns all text received so far.
func (a *Accumulator) Buffer() string {
	return a.buffer.String()
}

// Visible returns the revealed prefix of the buffer.
func (a *Accumulator) Visible() string {
	return a.buffer.String()[:a.cursor]
}

// Cursor returns the playback cursor as a byte offset into the buffer.
func (a *Accumulator) Cursor() int {
	return a.cursor
}

// Terminal reports whether the reply has been finalized.
func (a *Accumulator) Terminal() bool {
	return a.terminal
}

// State returns the current state.
func (a *Accumulator) State() State {
	return a.state
}

// MessageID returns the server-assigned message ID from the completion frame.
func (a *Accumulator) MessageID() string {
	return a.messageID
}

// Envelope returns the error envelope of an errored reply.
func (a *Accumulator) Envelope() *sentinel.Envelope {
	return a.envelope
}

// Deltas returns the number of non-empty content frames applied.
func (a *Accumulator) Deltas() int {
	return a.deltas
}

// TTFT returns the time from creation to the first content frame.
func (a *Accumulator) TTFT() time.Duration {
	if a.firstDeltaAt.IsZero() {
		return 0
	}
	return a.firstDeltaAt.Sub(a.startTime)
}

// Duration returns the time from creation to finalization, or until now
// while streaming.
func (a *Accumulator) Duration() time.Duration {
	if a.endTime.IsZero() {
		return time.Since(a.startTime)
	}
	return a.endTime.Sub(a.startTime)
}
