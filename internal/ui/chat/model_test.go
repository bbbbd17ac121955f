// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/deskmate/internal/config"
	"github.com/jeranaias/deskmate/internal/model"
	"github.com/jeranaias/deskmate/internal/sentinel"
	"github.com/jeranaias/deskmate/internal/session"
	"github.com/jeranaias/deskmate/internal/stream"
	"github.com/jeranaias/deskmate/internal/ui/styles"
)

// fakeSession records calls made by the chat view.
type fakeSession struct {
	mu       sync.Mutex
	sent     []string
	stops    int
	resets   int
	interval time.Duration
	sendErr  error
}

func (f *fakeSession) Send(text string) (*session.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, text)
	return nil, nil
}

func (f *fakeSession) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeSession) Reset() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
	return nil
}

func (f *fakeSession) State() stream.State { return stream.StateIdle }
func (f *fakeSession) Messages() []model.Message { return nil }
func (f *fakeSession) AddSystemMessage(text string) {}

func (f *fakeSession) SetPlaybackInterval(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.interval = d
}

func newTestModel(t *testing.T) (Model, *fakeSession) {
	t.Helper()
	fs := &fakeSession{}
	m := New(Options{Session: fs, Theme: styles.PlainTheme(), ShowStats: true})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	return updated.(Model), fs
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func typeText(m Model, text string) Model {
	m.input.SetValue(text)
	return m
}

func streamingUpdate(content string) ConversationMsg {
	user := model.NewUserMessage("hi")
	reply := model.NewAssistantMessage()
	reply.Content = content
	return ConversationMsg{Update: session.Update{
		Messages: []model.Message{*user, *reply},
		State:    stream.StateStreaming,
	}}
}

func finalUpdate(content string, state stream.State) ConversationMsg {
	user := model.NewUserMessage("hi")
	reply := model.NewAssistantMessage()
	reply.Finalize(content, state, &model.Statistics{Deltas: 2, Bytes: 5})
	return ConversationMsg{Update: session.Update{
		Messages: []model.Message{*user, *reply},
		State:    state,
		Final:    true,
	}}
}

func TestEnter_SendsThroughCommand(t *testing.T) {
	m, fs := newTestModel(t)
	m = typeText(m, "  hello there  ")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Empty(t, m.input.Value())

	assert.Nil(t, cmd())
	assert.Equal(t, []string{"hello there"}, fs.sent)
}

func TestEnter_BlankInputDoesNothing(t *testing.T) {
	m, fs := newTestModel(t)
	m = typeText(m, "   ")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.Empty(t, fs.sent)
}

func TestEnter_WhileStreamingShowsHint(t *testing.T) {
	m, fs := newTestModel(t)
	m, _ = update(t, m, streamingUpdate("par"))
	m = typeText(m, "another")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, fs.sent)
	assert.Contains(t, m.StatusMessage(), "still streaming")
	assert.Equal(t, "another", m.input.Value())
}

func TestSendFailed_SetsStatus(t *testing.T) {
	m, fs := newTestModel(t)
	fs.sendErr = session.ErrBusy
	m = typeText(m, "hello")

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	msg := cmd()
	require.IsType(t, SendFailedMsg{}, msg)

	m, clearCmd := update(t, m, msg)
	assert.Contains(t, m.StatusMessage(), "still streaming")
	require.NotNil(t, clearCmd)

	m, _ = update(t, m, clearStatusMsg{seq: m.statusSeq})
	assert.Empty(t, m.StatusMessage())
}

func TestConversationMsg_TracksState(t *testing.T) {
	m, _ := newTestModel(t)

	m, cmd := update(t, m, streamingUpdate("Hel"))
	assert.True(t, m.IsStreaming())
	assert.NotNil(t, cmd, "spinner should start")
	assert.Contains(t, m.View(), "Hel")

	m, _ = update(t, m, finalUpdate("Hello", stream.StateDone))
	assert.False(t, m.IsStreaming())
	assert.Equal(t, stream.StateDone, m.State())
	assert.Len(t, m.Messages(), 2)
	assert.Contains(t, m.View(), "5 bytes")
}

func TestEsc_StopsStreamingReply(t *testing.T) {
	m, fs := newTestModel(t)
	m, _ = update(t, m, streamingUpdate("Hi"))

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	// A second press while the first Stop is pending is ignored.
	m, again := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, again)

	assert.Equal(t, StoppedMsg{}, cmd())
	assert.Equal(t, 1, fs.stops)

	m, _ = update(t, m, StoppedMsg{})
	assert.False(t, m.stopping)
}

func TestEsc_IdleDoesNotStop(t *testing.T) {
	m, fs := newTestModel(t)
	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd)
	assert.Zero(t, fs.stops)
}

func TestView_RendersErrorSentinel(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, finalUpdate(sentinel.TransportFailure.String(), stream.StateErrored))

	view := m.View()
	assert.Contains(t, view, sentinel.TransportFailure.Short)
	assert.NotContains(t, view, sentinel.Marker)
}

func TestView_RendersServerErrorAfterText(t *testing.T) {
	m, _ := newTestModel(t)
	content := sentinel.Append("Partial answer", sentinel.Envelope{Short: "Quota exceeded", Detail: "Try later"}.String())
	m, _ = update(t, m, finalUpdate(content, stream.StateErrored))

	view := m.View()
	assert.Contains(t, view, "Partial answer")
	assert.Contains(t, view, "Quota exceeded")
	assert.NotContains(t, view, sentinel.Marker)
}

func TestView_RendersStoppedMarker(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, finalUpdate(sentinel.Stopped("Hi the"), stream.StateCancelled))

	view := m.View()
	assert.Contains(t, view, "Hi the")
	assert.Contains(t, view, sentinel.StoppedMarker)
}

func TestSlashClear_ResetsSession(t *testing.T) {
	m, fs := newTestModel(t)
	m = typeText(m, "/clear")

	_, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.IsType(t, StatusMsg{}, cmd())
	assert.Equal(t, 1, fs.resets)
	assert.Empty(t, fs.sent)
}

func TestSlashUnknown_SetsStatus(t *testing.T) {
	m, fs := newTestModel(t)
	m = typeText(m, "/frobnicate now")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Contains(t, m.StatusMessage(), "/frobnicate")
	assert.Empty(t, fs.sent)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyF1})
	assert.Contains(t, m.View(), "Keyboard shortcuts")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.NotContains(t, m.View(), "Keyboard shortcuts")
}

func TestConfigReloaded_RetunesSession(t *testing.T) {
	m, fs := newTestModel(t)
	cfg := config.Default()
	cfg.Chat.PlaybackIntervalMs = 40
	cfg.UI.ShowStats = false

	m, _ = update(t, m, ConfigReloadedMsg{Config: cfg})
	assert.Equal(t, 40*time.Millisecond, fs.interval)
	assert.False(t, m.showStats)
	assert.Equal(t, "Configuration reloaded", m.StatusMessage())
}

func TestView_BeforeResize(t *testing.T) {
	m := New(Options{Theme: styles.PlainTheme()})
	assert.Equal(t, "Initializing...", m.View())
}
