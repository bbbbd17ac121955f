// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sentinel

import (
	"strings"
)

// =============================================================================
// WIRE FORMAT
// =============================================================================

const (
	// Marker opens every error sentinel.
	Marker = "__ERROR__"

	// Delimiter separates the marker, short message and detail segments.
	Delimiter = "|"

	// FallbackDetail is used when a sentinel carries no detail segment.
	FallbackDetail = "No further details were provided."

	// StoppedMarker is appended to a reply the user cancelled.
	StoppedMarker = "_[Generation stopped]_"

	// separator sits between streamed text and a trailing marker.
	separator = "\n\n"
)

// =============================================================================
// ENVELOPE
// =============================================================================

// Envelope is the structured form of an error sentinel.
type Envelope struct {
	Short  string `json:"short"`
	Detail string `json:"detail"`
}

// Fixed envelopes for the error tiers that do not originate from the server.
var (
	ConfigMissing = Envelope{
		Short:  "Model not configured",
		Detail: "Set an API key for the active model before chatting.",
	}
	TransportFailure = Envelope{
		Short:  "Connection failed",
		Detail: "Could not reach the assistant service. Check that it is running and try again.",
	}
)

// ServerErrorShort is the short message used when the server sends a plain
// error string instead of a sentinel.
const ServerErrorShort = "The assistant service reported an error"

// String encodes the envelope as a sentinel.
func (e Envelope) String() string {
	return Encode(e)
}

// Encode renders e as MARKER|short|detail.
func Encode(e Envelope) string {
	return Marker + Delimiter + e.Short + Delimiter + e.Detail
}

// Parse decodes a sentinel string. Everything after the second delimiter is
// the detail, so a detail containing the delimiter survives a round trip.
// Returns false when s does not start with the marker.
func Parse(s string) (Envelope, bool) {
	if !IsSentinel(s) {
		return Envelope{}, false
	}

	parts := strings.Split(s, Delimiter)
	env := Envelope{}
	if len(parts) > 1 {
		env.Short = parts[1]
	}
	if len(parts) > 2 {
		env.Detail = strings.Join(parts[2:], Delimiter)
	} else {
		env.Detail = FallbackDetail
	}
	return env, true
}

// IsSentinel reports whether s is an encoded sentinel.
func IsSentinel(s string) bool {
	return s == Marker || strings.HasPrefix(s, Marker+Delimiter)
}

// FromServer builds an envelope from the raw error string of an error frame.
// A raw value that is already a sentinel is parsed as such.
func FromServer(raw string) Envelope {
	if env, ok := Parse(raw); ok {
		return env
	}
	detail := strings.TrimSpace(raw)
	if detail == "" {
		detail = FallbackDetail
	}
	return Envelope{Short: ServerErrorShort, Detail: detail}
}

// =============================================================================
// MESSAGE CONTENT HELPERS
// =============================================================================

// Append joins streamed text and a trailing marker or sentinel. Empty text
// yields the trailer alone, with no leading blank line.
func Append(text, trailer string) string {
	if text == "" {
		return trailer
	}
	return text + separator + trailer
}

// Stopped returns the finalized content of a cancelled reply.
func Stopped(received string) string {
	return Append(received, StoppedMarker)
}

// Split separates message content into the streamed text and a trailing
// error sentinel, if any. Renderers use this as their single error path.
func Split(content string) (text string, env Envelope, ok bool) {
	if env, ok := Parse(content); ok {
		return "", env, true
	}
	idx := strings.LastIndex(content, separator+Marker+Delimiter)
	if idx < 0 {
		return content, Envelope{}, false
	}
	env, ok = Parse(content[idx+len(separator):])
	return content[:idx], env, ok
}

// IsStopped reports whether content ends with the stopped marker.
func IsStopped(content string) bool {
	return strings.HasSuffix(content, StoppedMarker)
}
