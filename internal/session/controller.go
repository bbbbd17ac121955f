// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/deskmate/internal/model"
	"github.com/jeranaias/deskmate/internal/modelconfig"
	"github.com/jeranaias/deskmate/internal/sentinel"
	"github.com/jeranaias/deskmate/internal/stream"
	"github.com/jeranaias/deskmate/internal/transport"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrBusy is returned by Send while a reply is streaming.
	ErrBusy = errors.New("a reply is already streaming")

	// ErrEmptyMessage is returned by Send for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// ConfigResolver resolves the active model configuration before each send.
// *modelconfig.Resolver satisfies it.
type ConfigResolver interface {
	Resolve(ctx context.Context) (modelconfig.ModelConfig, error)
}

// Update is one published view of the conversation.
type Update struct {
	Messages []model.Message
	State    stream.State

	// Final is set when the update finalizes a reply.
	Final bool
}

// Publisher receives conversation updates. Calls are serialized and made
// without internal locks held, but a Publisher must not call Stop.
type Publisher interface {
	Publish(Update)
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(Update)

// Publish calls f(u).
func (f PublisherFunc) Publish(u Update) { f(u) }

// =============================================================================
// OPTIONS
// =============================================================================

// DefaultEventBuffer is the capacity of the reader-to-loop channel.
const DefaultEventBuffer = 64

// DefaultMode is the session mode sent with each request.
const DefaultMode = "private"

// Options configures a Controller.
type Options struct {
	Resolver  ConfigResolver
	Transport transport.Transport
	Publisher Publisher
	Logger    *zap.Logger

	Mode      string // Session mode sent with each request
	SessionID string // Defaults to the conversation ID

	PlaybackInterval time.Duration // Reveal cadence, one rune per tick
	MaxMalformed     int           // Consecutive unparsable lines before escalation
	EventBuffer      int
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller orchestrates config resolution, transport, decoding,
// accumulation and playback for one conversation.
type Controller struct {
	resolver  ConfigResolver
	transport transport.Transport
	publisher Publisher
	logger    *zap.Logger

	mode         string
	sessionID    string
	maxMalformed int
	eventBuffer  int

	// pubMu serializes snapshot+publish so observers see updates in order.
	pubMu sync.Mutex

	mu       sync.Mutex
	conv     *model.Conversation
	state    stream.State
	active   *cycle
	interval time.Duration
}

// cycle is one streaming reply.
type cycle struct {
	reply    *Reply
	cancel   context.CancelFunc
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

func (c *cycle) requestStop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// event is one batch handed from the reader to the loop.
type event struct {
	frames []stream.Frame
	err    error
	eof    bool
}

// New creates an idle Controller.
func New(opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = PublisherFunc(func(Update) {})
	}
	mode := opts.Mode
	if mode == "" {
		mode = DefaultMode
	}
	buffer := opts.EventBuffer
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	interval := opts.PlaybackInterval
	if interval <= 0 {
		interval = stream.DefaultPlaybackInterval
	}

	conv := model.NewConversation()
	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = conv.ID
	}

	return &Controller{
		resolver:     opts.Resolver,
		transport:    opts.Transport,
		publisher:    publisher,
		logger:       logger.Named("session"),
		mode:         mode,
		sessionID:    sessionID,
		maxMalformed: opts.MaxMalformed,
		eventBuffer:  buffer,
		conv:         conv,
		state:        stream.StateIdle,
		interval:     interval,
	}
}

// State returns the current stream state.
func (c *Controller) State() stream.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Messages returns a copy of the message list.
func (c *Controller) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conv.Snapshot()
}

// SessionID returns the ID sent with each request.
func (c *Controller) SessionID() string {
	return c.sessionID
}

// SetPlaybackInterval changes the reveal cadence. It applies from the next
// reply on.
func (c *Controller) SetPlaybackInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

// AddSystemMessage appends a local notice. System messages are shown but
// never sent as history.
func (c *Controller) AddSystemMessage(text string) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	c.conv.AddSystemMessage(text)
	u := Update{Messages: c.conv.Snapshot(), State: c.state}
	c.mu.Unlock()

	c.publisher.Publish(u)
}

// Reset starts a new conversation. It fails with ErrBusy while streaming.
func (c *Controller) Reset() error {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	if c.state == stream.StateStreaming || c.state == stream.StateAwaitingConfig {
		c.mu.Unlock()
		return ErrBusy
	}
	c.conv = model.NewConversation()
	c.state = stream.StateIdle
	u := Update{Messages: c.conv.Snapshot(), State: c.state}
	c.mu.Unlock()

	c.publisher.Publish(u)
	return nil
}

// =============================================================================
// SEND
// =============================================================================

// Send appends text as a user message and starts streaming the reply.
//
// A missing model configuration is not an error: the reply is finalized at
// once with the config-missing sentinel and no transport is opened.
func (c *Controller) Send(text string) (*Reply, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == stream.StateStreaming || c.state == stream.StateAwaitingConfig {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	prev := c.state
	c.state = stream.StateAwaitingConfig
	c.mu.Unlock()

	cfg, err := c.resolve()
	if err != nil {
		c.logger.Warn("send rejected", zap.Error(err))
		return c.rejectConfig(text, prev), nil
	}

	c.pubMu.Lock()
	c.mu.Lock()
	history := toHistory(c.conv.History())
	c.conv.AddUserMessage(text)
	msg := c.conv.AddAssistantMessage()
	c.state = stream.StateStreaming

	ctx, cancel := context.WithCancel(context.Background())
	cyc := &cycle{
		reply:  newReply(msg.ID),
		cancel: cancel,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	c.active = cyc
	interval := c.interval
	u := Update{Messages: c.conv.Snapshot(), State: c.state}
	c.mu.Unlock()
	c.publisher.Publish(u)
	c.pubMu.Unlock()

	req := transport.ChatRequest{
		Message:   text,
		History:   history,
		Mode:      c.mode,
		SessionID: c.sessionID,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		ModelName: cfg.Model,
	}

	c.logger.Debug("reply started",
		zap.String("reply_id", msg.ID),
		zap.String("model", cfg.Model),
		zap.Int("history", len(history)))

	events := make(chan event, c.eventBuffer)
	go c.read(ctx, req, events)
	go c.loop(cyc, stream.NewScheduler(interval), events)

	return cyc.reply, nil
}

func (c *Controller) resolve() (modelconfig.ModelConfig, error) {
	if c.resolver == nil {
		return modelconfig.ModelConfig{}, modelconfig.ErrConfigMissing
	}
	return c.resolver.Resolve(context.Background())
}

// rejectConfig appends the user message and a finalized config-missing
// reply, and restores the previous state.
func (c *Controller) rejectConfig(text string, prev stream.State) *Reply {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	content := sentinel.ConfigMissing.String()

	c.mu.Lock()
	c.conv.AddUserMessage(text)
	msg := c.conv.AddAssistantMessage()
	msg.Finalize(content, stream.StateErrored, nil)
	c.state = prev
	u := Update{Messages: c.conv.Snapshot(), State: c.state, Final: true}
	c.mu.Unlock()

	c.publisher.Publish(u)

	reply := newReply(msg.ID)
	reply.resolve(stream.StateErrored, content)
	return reply
}

func toHistory(msgs []model.Message) []transport.HistoryEntry {
	history := make([]transport.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		history = append(history, transport.HistoryEntry{Role: m.Role.String(), Content: m.Content})
	}
	return history
}

// =============================================================================
// STOP
// =============================================================================

// Stop cancels the streaming reply and returns once it has been finalized
// and published. It is a no-op when nothing is streaming.
func (c *Controller) Stop() {
	c.mu.Lock()
	cyc := c.active
	c.mu.Unlock()
	if cyc == nil {
		return
	}

	cyc.cancel()
	cyc.requestStop()
	<-cyc.done
}

// Close stops any streaming reply.
func (c *Controller) Close() error {
	c.Stop()
	return nil
}

// =============================================================================
// READER
// =============================================================================

// read opens the transport and pushes decoded frames onto events in
// arrival order. It closes events when it returns.
//
// Sends block: the loop consumes events until they are closed, so frames
// decoded before a cancellation always reach it.
func (c *Controller) read(ctx context.Context, req transport.ChatRequest, events chan<- event) {
	defer close(events)

	push := func(ev event) bool {
		events <- ev
		return ctx.Err() == nil
	}

	rd, err := c.transport.Open(ctx, req)
	if err != nil {
		push(event{err: err})
		return
	}
	defer rd.Close()

	dec := stream.NewDecoder(c.maxMalformed)
	for {
		chunk, err := rd.Next()
		if len(chunk) > 0 {
			if frames := dec.Feed(chunk); len(frames) > 0 {
				if !push(event{frames: frames}) {
					return
				}
			}
		}
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			push(event{frames: dec.Flush(), eof: true})
		} else {
			push(event{err: err})
		}
		if dec.Dropped > 0 {
			c.logger.Debug("malformed lines dropped", zap.Int("count", dec.Dropped))
		}
		return
	}
}

// =============================================================================
// LOOP
// =============================================================================

// loop owns the accumulator and scheduler of one cycle.
func (c *Controller) loop(cyc *cycle, sched *stream.Scheduler, events <-chan event) {
	acc := stream.NewAccumulator()
	var final stream.Transition

	for !acc.Terminal() {
		select {
		case ev, ok := <-events:
			if !ok {
				// The reader gave up because the cycle was cancelled.
				final = acc.Cancel()
				break
			}
			final = c.apply(acc, sched, ev)

		case <-sched.C():
			visible, changed := sched.Advance(acc)
			if changed {
				c.publishProgress(cyc.reply.ID, visible)
			}

		case <-cyc.stop:
			drainContent(acc, events)
			final = acc.Cancel()
		}
	}

	sched.Stop()
	cyc.cancel()
	for range events {
		// Wait for the reader to release the connection.
	}

	c.finalize(cyc, acc, final)
	close(cyc.done)
}

// apply folds one reader event into acc and returns the terminal
// transition, if any.
func (c *Controller) apply(acc *stream.Accumulator, sched *stream.Scheduler, ev event) stream.Transition {
	var tr stream.Transition
	for _, f := range ev.frames {
		tr = acc.Apply(f)
		if tr.StartPlayback && !sched.Running() {
			sched.Start()
		}
		if acc.Terminal() {
			return tr
		}
	}

	switch {
	case ev.err != nil && transport.IsCancelled(ev.err):
		return acc.Cancel()
	case ev.err != nil:
		c.logger.Warn("transport failed", zap.Error(ev.err))
		return acc.Fail()
	case ev.eof:
		c.logger.Warn("stream ended without completion")
		return acc.Apply(stream.Completion(""))
	}
	return tr
}

// drainContent applies the content deltas the reader decoded before it saw
// the cancellation, and returns once the reader has closed events.
func drainContent(acc *stream.Accumulator, events <-chan event) {
	for ev := range events {
		for _, f := range ev.frames {
			if f.Kind == stream.FrameContent {
				acc.Apply(f)
			}
		}
	}
}

func (c *Controller) publishProgress(id, visible string) {
	c.pubMu.Lock()
	defer c.pubMu.Unlock()

	c.mu.Lock()
	msg := c.conv.GetMessageByID(id)
	if msg == nil || !msg.InProgress {
		c.mu.Unlock()
		return
	}
	msg.Content = visible
	u := Update{Messages: c.conv.Snapshot(), State: c.state}
	c.mu.Unlock()

	c.publisher.Publish(u)
}

func (c *Controller) finalize(cyc *cycle, acc *stream.Accumulator, tr stream.Transition) {
	stats := &model.Statistics{
		TTFT:          acc.TTFT(),
		TotalDuration: acc.Duration(),
		Deltas:        acc.Deltas(),
		Bytes:         len(acc.Buffer()),
	}

	c.pubMu.Lock()
	c.mu.Lock()
	if msg := c.conv.GetMessageByID(cyc.reply.ID); msg != nil {
		msg.Finalize(tr.Content, tr.State, stats)
		msg.ServerID = acc.MessageID()
	}
	c.state = tr.State
	c.active = nil
	u := Update{Messages: c.conv.Snapshot(), State: c.state, Final: true}
	c.mu.Unlock()
	c.publisher.Publish(u)
	c.pubMu.Unlock()

	fields := []zap.Field{
		zap.String("reply_id", cyc.reply.ID),
		zap.Stringer("state", tr.State),
		zap.Int("deltas", stats.Deltas),
		zap.Int("bytes", stats.Bytes),
		zap.Duration("ttft", stats.TTFT),
		zap.Duration("duration", stats.TotalDuration),
	}
	if tr.Envelope != nil {
		fields = append(fields, zap.String("error", tr.Envelope.Short))
	}
	c.logger.Info("reply finished", fields...)

	cyc.reply.resolve(tr.State, tr.Content)
}
