// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

// State is the lifecycle state of one streaming reply.
type State int

const (
	StateIdle State = iota
	StateAwaitingConfig
	StateStreaming
	StateDone
	StateErrored
	StateCancelled
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingConfig:
		return "awaiting_config"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further frames can change a reply in this state.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateErrored || s == StateCancelled
}
