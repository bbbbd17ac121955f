// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates one chat session's streaming reply cycle.
//
// The Controller owns the ordered message list and is the only component
// the UI talks to. Send resolves the model configuration, opens the
// transport and starts two goroutines per cycle:
//
//   - a reader that pulls raw chunks, decodes frames and pushes them onto a
//     bounded channel in arrival order;
//   - a loop that owns the Accumulator and the playback Scheduler, applies
//     frames, reveals text on each tick and finalizes the reply.
//
// Stop cancels the cycle context, which closes the connection, and returns
// once the cancelled reply has been published.
//
// # Usage
//
//	ctl := session.New(session.Options{
//	    Resolver:  store.Resolver(),
//	    Transport: transport.NewHTTPTransport(cfg, logger),
//	    Publisher: session.PublisherFunc(render),
//	    Logger:    logger,
//	})
//	reply, err := ctl.Send("Hello!")
//	<-reply.Done()
//
// Every outcome, including failures, arrives as an assistant message; Send
// only returns an error for ErrBusy and ErrEmptyMessage.
package session
