// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/jeranaias/deskmate/internal/sentinel"
)

// =============================================================================
// FRAMING CONSTANTS
// =============================================================================

const (
	// DataPrefix marks a line that carries a frame.
	DataPrefix = "data:"

	// DoneSentinel is the literal completion line payload.
	DoneSentinel = "[DONE]"

	// MaxLineSize caps a single line. Longer lines are discarded as malformed.
	MaxLineSize = 1 << 20

	// DefaultMaxMalformed is the default run of consecutive unparsable data
	// lines tolerated before the decoder reports a protocol error.
	DefaultMaxMalformed = 8
)

// ProtocolErrorShort is the short message of the envelope emitted when the
// malformed line limit is hit.
const ProtocolErrorShort = "Malformed response"

// =============================================================================
// DECODER
// =============================================================================

// Decoder splits raw response bytes into frames. Chunk boundaries need not
// align with line boundaries; the partial trailing line is carried over to
// the next Feed call.
//
// A Decoder is not safe for concurrent use; a stream has exactly one reader.
type Decoder struct {
	remainder []byte
	overflow  bool // discarding the rest of an oversized line

	maxMalformed int
	malformedRun int
	escalated    bool

	// Dropped counts data lines that failed to parse.
	Dropped int
}

// NewDecoder creates a decoder that escalates after maxMalformed consecutive
// unparsable data lines. Zero disables escalation.
func NewDecoder(maxMalformed int) *Decoder {
	if maxMalformed < 0 {
		maxMalformed = 0
	}
	return &Decoder{maxMalformed: maxMalformed}
}

// Feed consumes one chunk and returns the frames completed by it, in order.
func (d *Decoder) Feed(chunk []byte) []Frame {
	var frames []Frame

	for len(chunk) > 0 {
		idx := bytes.IndexByte(chunk, '\n')
		if idx < 0 {
			frames = d.buffer(chunk, frames)
			break
		}

		switch {
		case d.overflow:
			d.overflow = false
		case len(d.remainder)+idx > MaxLineSize:
			frames = d.dropOversized(frames)
		default:
			line := chunk[:idx]
			if len(d.remainder) > 0 {
				line = append(d.remainder, line...)
			}
			frames = d.decodeLine(line, frames)
		}
		d.remainder = d.remainder[:0]
		chunk = chunk[idx+1:]
	}

	return frames
}

// Flush decodes any buffered partial line. Call it once the stream has
// ended without a trailing newline.
func (d *Decoder) Flush() []Frame {
	if d.overflow || len(d.remainder) == 0 {
		d.overflow = false
		d.remainder = d.remainder[:0]
		return nil
	}
	line := d.remainder
	d.remainder = nil
	return d.decodeLine(line, nil)
}

// Pending returns the number of buffered bytes awaiting a newline.
func (d *Decoder) Pending() int {
	return len(d.remainder)
}

// buffer stores a partial line, dropping it once it grows past MaxLineSize.
func (d *Decoder) buffer(partial []byte, frames []Frame) []Frame {
	if d.overflow {
		return frames
	}
	if len(d.remainder)+len(partial) > MaxLineSize {
		d.remainder = d.remainder[:0]
		d.overflow = true
		return d.dropOversized(frames)
	}
	d.remainder = append(d.remainder, partial...)
	return frames
}

// dropOversized counts a discarded oversized line as malformed.
func (d *Decoder) dropOversized(frames []Frame) []Frame {
	d.Dropped++
	d.malformedRun++
	return d.checkMalformed(frames)
}

// decodeLine appends the frames for one line to frames.
func (d *Decoder) decodeLine(line []byte, frames []Frame) []Frame {
	line = bytes.TrimRight(line, "\r")

	if !bytes.HasPrefix(line, []byte(DataPrefix)) {
		// Keep-alives, SSE comments and blank lines.
		return frames
	}

	data := line[len(DataPrefix):]
	if len(data) > 0 && data[0] == ' ' {
		data = data[1:]
	}

	if string(data) == DoneSentinel {
		d.malformedRun = 0
		return append(frames, Completion(""))
	}

	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		// Skip malformed lines
		d.Dropped++
		d.malformedRun++
		return d.checkMalformed(frames)
	}
	d.malformedRun = 0

	if raw, ok := p.errorText(); ok {
		return append(frames, ErrorSignal(raw))
	}
	if p.Content != nil && *p.Content != "" {
		frames = append(frames, ContentDelta(*p.Content))
	}
	if p.Done {
		id := p.MessageID
		if id == "" {
			id = p.SessionID
		}
		frames = append(frames, Completion(id))
	}
	return frames
}

// checkMalformed emits a single protocol error once the malformed run
// reaches the configured limit.
func (d *Decoder) checkMalformed(frames []Frame) []Frame {
	if d.maxMalformed == 0 || d.escalated || d.malformedRun < d.maxMalformed {
		return frames
	}
	d.escalated = true
	env := sentinel.Envelope{
		Short:  ProtocolErrorShort,
		Detail: fmt.Sprintf("received %d consecutive unparsable lines from the assistant service", d.malformedRun),
	}
	return append(frames, ErrorSignal(sentinel.Encode(env)))
}
