// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deskmate/internal/session"
)

const statusDuration = 4 * time.Second

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case ConversationMsg:
		return m.handleConversation(msg)

	case spinner.TickMsg:
		if !m.IsStreaming() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.updateViewport()
		return m, cmd

	case SendFailedMsg:
		return m.setStatus(describeSendError(msg.Err))

	case StoppedMsg:
		m.stopping = false
		return m, nil

	case StatusMsg:
		return m.setStatus(msg.Text)

	case clearStatusMsg:
		if msg.seq == m.statusSeq {
			m.statusMsg = ""
		}
		return m, nil

	case ConfigReloadedMsg:
		return m.handleConfigReloaded(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Layout: header + viewport + separator/input + status bar
	const (
		headerHeight    = 1
		inputAreaHeight = 2
		statusBarHeight = 1
	)

	vpHeight := m.height - headerHeight - inputAreaHeight - statusBarHeight
	if vpHeight < 1 {
		vpHeight = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vpHeight

	const promptLen = 2 // "> "
	m.input.Width = max(m.width-promptLen-2, 10)

	m.updateViewport()
	return m, nil
}

func (m Model) handleConversation(msg ConversationMsg) (tea.Model, tea.Cmd) {
	wasStreaming := m.IsStreaming()
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0

	m.messages = msg.Messages
	m.state = msg.State
	m.updateViewport()
	if atBottom {
		m.viewport.GotoBottom()
	}

	if m.IsStreaming() && !wasStreaming {
		return m, m.spinner.Tick
	}
	return m, nil
}

func (m Model) handleConfigReloaded(msg ConfigReloadedMsg) (tea.Model, tea.Cmd) {
	cfg := msg.Config
	if cfg == nil {
		return m, nil
	}
	if m.session != nil {
		m.session.SetPlaybackInterval(cfg.PlaybackInterval())
	}
	if m.publisher != nil {
		m.publisher.SetMaxFPS(cfg.UI.MaxFPS)
	}
	m.showStats = cfg.UI.ShowStats
	m.updateViewport()
	return m.setStatus("Configuration reloaded")
}

func (m Model) setStatus(text string) (tea.Model, tea.Cmd) {
	m.statusSeq++
	m.statusMsg = text
	return m, clearStatusAfter(m.statusSeq, statusDuration)
}

func describeSendError(err error) string {
	switch {
	case errors.Is(err, session.ErrBusy):
		return "A reply is still streaming - press Esc to stop it"
	case errors.Is(err, session.ErrEmptyMessage):
		return "Type a message first"
	case err != nil:
		return err.Error()
	}
	return ""
}

// =============================================================================
// KEY HANDLING
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		if m.IsStreaming() && m.session != nil {
			return m, tea.Sequence(stopCmd(m.session), tea.Quit)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Stop):
		if m.IsStreaming() {
			return m.stop()
		}
		if m.showHelp {
			m.showHelp = false
			return m, nil
		}
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keyMap.Clear):
		if m.session == nil {
			return m, nil
		}
		return m, resetCmd(m.session)

	case key.Matches(msg, m.keyMap.Submit):
		return m.submit()

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) stop() (tea.Model, tea.Cmd) {
	if m.stopping || m.session == nil {
		return m, nil
	}
	m.stopping = true
	return m, stopCmd(m.session)
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.input.Value())
	if text == "" {
		return m, nil
	}
	if strings.HasPrefix(text, "/") {
		m.input.Reset()
		return m.handleCommand(text)
	}
	if m.IsStreaming() {
		return m.setStatus(describeSendError(session.ErrBusy))
	}
	if m.session == nil {
		return m, nil
	}

	m.input.Reset()
	return m, sendCmd(m.session, text)
}

// handleCommand runs a slash command typed in the input.
func (m Model) handleCommand(text string) (tea.Model, tea.Cmd) {
	fields := strings.Fields(text)
	switch strings.ToLower(fields[0]) {
	case "/clear", "/new":
		if m.session == nil {
			return m, nil
		}
		return m, resetCmd(m.session)
	case "/stop":
		if m.IsStreaming() {
			return m.stop()
		}
		return m.setStatus("Nothing to stop")
	case "/stats":
		m.showStats = !m.showStats
		m.updateViewport()
		return m, nil
	case "/help":
		m.showHelp = !m.showHelp
		return m, nil
	case "/quit", "/exit":
		if m.IsStreaming() && m.session != nil {
			return m, tea.Sequence(stopCmd(m.session), tea.Quit)
		}
		return m, tea.Quit
	}
	return m.setStatus("Unknown command: " + fields[0] + " (try /help)")
}
