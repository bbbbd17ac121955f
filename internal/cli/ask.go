// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"

	"github.com/jeranaias/deskmate/internal/model"
	"github.com/jeranaias/deskmate/internal/sentinel"
	"github.com/jeranaias/deskmate/internal/session"
	"github.com/jeranaias/deskmate/internal/stream"
)

// maxStdinQuestion bounds a question read from a pipe.
const maxStdinQuestion = 1 << 20

// HandleAsk sends one question and streams the reply to stdout.
// Ctrl+C stops the reply; the text received so far is kept.
func HandleAsk(ctx context.Context, env *Env, args Args) error {
	question := strings.TrimSpace(args.Query)
	if question == "" && stdinIsPipe(env.Stdin) {
		data, err := io.ReadAll(io.LimitReader(env.Stdin, maxStdinQuestion))
		if err != nil {
			return NewCommandError("ask", "read", "could not read stdin", err)
		}
		question = strings.TrimSpace(string(data))
	}
	if question == "" {
		return ErrMissingArgument("question", `deskmate ask "your question"`)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	printer := &replyPrinter{w: env.Stdout, live: !args.JSON}
	ctrl := session.New(sessionOptions(env, printer))
	defer ctrl.Close()

	reply, err := ctrl.Send(question)
	if err != nil {
		return err
	}
	awaitReply(ctx, ctrl, reply)

	final := printer.result()
	if final == nil {
		return NewCommandError("ask", "stream", "no reply was published", nil)
	}
	if args.JSON {
		return reportJSON(env.Stdout, final)
	}
	return printer.finish(env.Stderr, final, args)
}

// awaitReply blocks until reply is finalized, stopping it if ctx ends first.
func awaitReply(ctx context.Context, ctrl *session.Controller, reply *session.Reply) {
	select {
	case <-reply.Done():
	case <-ctx.Done():
		ctrl.Stop()
	}
	<-reply.Done()
}

// sessionOptions builds controller options from the loaded configuration.
func sessionOptions(env *Env, pub session.Publisher) session.Options {
	opts := session.Options{
		Resolver:  env.Resolver,
		Transport: env.Transport,
		Publisher: pub,
		Logger:    env.Logger,
	}
	if cfg := env.Config; cfg != nil {
		opts.Mode = cfg.Chat.Mode
		opts.PlaybackInterval = cfg.PlaybackInterval()
		opts.MaxMalformed = cfg.Chat.MaxMalformedLines
		opts.EventBuffer = cfg.Chat.EventBuffer
	}
	return opts
}

// =============================================================================
// REPLY PRINTER
// =============================================================================

// replyPrinter writes the revealed text of the streaming reply as it grows
// and keeps the finalized message.
type replyPrinter struct {
	w    io.Writer
	live bool

	mu      sync.Mutex
	printed string
	final   *model.Message
}

// Publish implements session.Publisher.
func (p *replyPrinter) Publish(u session.Update) {
	msg := lastAssistant(u.Messages)
	if msg == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !msg.InProgress {
		if u.Final {
			p.final = msg
		}
		return
	}
	if p.live && strings.HasPrefix(msg.Content, p.printed) && len(msg.Content) > len(p.printed) {
		io.WriteString(p.w, msg.Content[len(p.printed):])
		p.printed = msg.Content
	}
}

// reset forgets the previous reply so the printer can serve the next one.
func (p *replyPrinter) reset() {
	p.mu.Lock()
	p.printed = ""
	p.final = nil
	p.mu.Unlock()
}

func (p *replyPrinter) result() *model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final
}

// finish prints whatever the playback had not revealed yet, then the
// stopped marker or the error.
func (p *replyPrinter) finish(stderr io.Writer, msg *model.Message, args Args) error {
	text, env, isErr := sentinel.Split(msg.Content)
	stopped := !isErr && sentinel.IsStopped(text)
	if stopped {
		text = strings.TrimSuffix(strings.TrimSuffix(text, sentinel.StoppedMarker), "\n\n")
	}

	p.mu.Lock()
	printed := p.printed
	p.mu.Unlock()

	rest := text
	if strings.HasPrefix(text, printed) {
		rest = text[len(printed):]
	} else if printed != "" {
		io.WriteString(p.w, "\n")
	}
	io.WriteString(p.w, rest)
	if text != "" {
		io.WriteString(p.w, "\n")
	}

	if stopped && !args.Quiet {
		fmt.Fprintln(stderr, WarningStyle.Render(sentinel.StoppedMarker))
	}
	if args.Verbose && msg.State == stream.StateDone && msg.Stats != nil {
		fmt.Fprintln(stderr, DimStyle.Render(msg.Stats.Format()))
	}

	switch {
	case isErr:
		return &ReplyError{Short: env.Short, Detail: env.Detail}
	case msg.State == stream.StateCancelled:
		return ErrInterrupted
	}
	return nil
}

func reportJSON(w io.Writer, msg *model.Message) error {
	text, env, isErr := sentinel.Split(msg.Content)
	data := AskData{
		Content:     text,
		State:       msg.State.String(),
		ServerID:    msg.ServerID,
		ErrorShort:  env.Short,
		ErrorDetail: env.Detail,
	}
	if s := msg.Stats; s != nil {
		data.DurationMs = s.TotalDuration.Milliseconds()
		data.TTFTMs = s.TTFT.Milliseconds()
		data.Chunks = s.Deltas
		data.Bytes = s.Bytes
	}

	resp := NewJSONResponse("ask", data)
	if isErr {
		resp.Success = false
		short := env.Short
		resp.Error = &short
	}
	if err := resp.Fprint(w); err != nil {
		return err
	}
	if isErr {
		return reported(&ReplyError{Short: env.Short, Detail: env.Detail})
	}
	return nil
}

func lastAssistant(msgs []model.Message) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleAssistant {
			m := msgs[i]
			return &m
		}
	}
	return nil
}
