// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
)

// FrameKind identifies the type of a decoded frame.
type FrameKind int

const (
	FrameContent FrameKind = iota
	FrameError
	FrameCompletion
)

// String returns the frame kind name.
func (k FrameKind) String() string {
	switch k {
	case FrameContent:
		return "content"
	case FrameError:
		return "error"
	case FrameCompletion:
		return "completion"
	default:
		return "unknown"
	}
}

// Frame is one decoded unit of the response stream.
type Frame struct {
	Kind FrameKind

	// Text is the delta for FrameContent and the raw error for FrameError.
	Text string

	// MessageID is the server-assigned ID carried by a completion, if any.
	MessageID string
}

// ContentDelta returns a content frame.
func ContentDelta(text string) Frame {
	return Frame{Kind: FrameContent, Text: text}
}

// ErrorSignal returns an error frame carrying the server's raw error.
func ErrorSignal(raw string) Frame {
	return Frame{Kind: FrameError, Text: raw}
}

// Completion returns a completion frame.
func Completion(messageID string) Frame {
	return Frame{Kind: FrameCompletion, MessageID: messageID}
}

// payload is the JSON envelope carried on a data line.
type payload struct {
	Content   *string         `json:"content,omitempty"`
	Error     json.RawMessage `json:"error,omitempty"`
	Done      bool            `json:"done,omitempty"`
	MessageID string          `json:"message_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
}

// errorText returns the server's error text and whether an error is present.
// A string is used as is; an object contributes its "message" field, and
// anything else its raw JSON. A null error counts as absent.
func (p *payload) errorText() (string, bool) {
	raw := bytes.TrimSpace(p.Error)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}
	var obj struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(raw, &obj) == nil && obj.Message != "" {
		return obj.Message, true
	}
	return string(raw), true
}
