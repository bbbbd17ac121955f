// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream reassembles and paces an incrementally delivered reply.
//
// # Key Types
//
//   - Decoder: splits raw bytes into frames across arbitrary chunk boundaries
//   - Frame: content delta, error signal or completion
//   - Accumulator: the received text, playback cursor and terminal state
//   - Scheduler: fixed-cadence ticker that advances the playback cursor
//   - State: Idle, AwaitingConfig, Streaming, Done, Errored, Cancelled
//
// # Wire Format
//
// The response is newline-separated. Lines starting with "data:" carry
// either the literal [DONE] or a JSON object with optional content, error,
// done and message_id keys. Other lines and unparsable JSON are skipped.
//
// # Usage
//
//	dec := stream.NewDecoder(stream.DefaultMaxMalformed)
//	acc := stream.NewAccumulator()
//	for _, f := range dec.Feed(chunk) {
//	    tr := acc.Apply(f)
//	    if tr.Publish {
//	        show(tr.Content)
//	    }
//	}
package stream
