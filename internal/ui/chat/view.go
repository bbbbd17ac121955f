// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/deskmate/internal/model"
	"github.com/jeranaias/deskmate/internal/sentinel"
	"github.com/jeranaias/deskmate/internal/stream"
	"github.com/jeranaias/deskmate/internal/util"
)

// =============================================================================
// MAIN RENDER
// =============================================================================

// renderChat renders the complete chat view.
// Layout: header (1 line) + messages (viewport) + separator/input (2 lines) + status (1 line).
// The viewport height is set in handleResize; keep both in step.
func (m Model) renderChat() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		m.viewport.View(),
		m.renderInput(),
		m.renderStatusBar(),
	)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := m.theme.HeaderTitle.Render("deskmate")

	var info []string
	if m.modelName != "" {
		info = append(info, m.modelName)
	}
	if m.serviceURL != "" {
		info = append(info, m.serviceURL)
	}
	right := ""
	if len(info) > 0 {
		// Header padding takes 2 columns
		avail := m.width - lipgloss.Width(title) - 5
		right = m.theme.HeaderInfo.Render(util.TruncateWidth(strings.Join(info, " | "), max(avail, 0)))
	}

	gap := m.width - 2 - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	line := title + strings.Repeat(" ", gap) + right
	return m.theme.Header.Width(m.width).MaxHeight(1).Render(line)
}

// =============================================================================
// MESSAGES
// =============================================================================

// updateViewport re-renders the conversation into the viewport.
func (m *Model) updateViewport() {
	m.viewport.SetContent(m.renderMessages())
}

func (m Model) renderMessages() string {
	if len(m.messages) == 0 {
		return m.renderEmptyState()
	}

	blocks := make([]string, 0, len(m.messages))
	for i := range m.messages {
		blocks = append(blocks, m.renderMessage(&m.messages[i]))
	}
	return strings.Join(blocks, "\n\n")
}

func (m Model) renderMessage(msg *model.Message) string {
	switch msg.Role {
	case model.RoleUser:
		return m.theme.UserLabel.Render(msg.Role.DisplayName()) + "\n" + m.renderBody(msg.Content)
	case model.RoleSystem:
		label := m.theme.SystemLabel.Render(msg.Role.DisplayName())
		return label + "\n" + m.theme.SystemBody.Width(m.bodyWidth()).Render(msg.Content)
	default:
		return m.renderAssistantMessage(msg)
	}
}

func (m Model) renderAssistantMessage(msg *model.Message) string {
	label := m.theme.AssistantLabel.Render(msg.Role.DisplayName())
	if msg.InProgress {
		label += " " + m.spinner.View()
	}

	var b strings.Builder
	b.WriteString(label)

	text, env, isErr := sentinel.Split(msg.Content)
	stopped := !isErr && sentinel.IsStopped(text)
	if stopped {
		text = strings.TrimSuffix(strings.TrimSuffix(text, sentinel.StoppedMarker), "\n\n")
	}

	if text != "" {
		b.WriteString("\n")
		b.WriteString(m.renderBody(text))
	} else if msg.InProgress {
		b.WriteString("\n")
		b.WriteString(m.theme.Stats.Render("Thinking..."))
	}

	if isErr {
		b.WriteString("\n")
		b.WriteString(m.renderErrorBox(env))
	}
	if stopped {
		b.WriteString("\n")
		b.WriteString(m.theme.MessageBody.Render(m.theme.StoppedMarker.Render(sentinel.StoppedMarker)))
	}

	if m.showStats && msg.State == stream.StateDone && msg.Stats != nil {
		b.WriteString("\n")
		b.WriteString(m.theme.Stats.Render(msg.Stats.Format()))
	}
	return b.String()
}

func (m Model) renderBody(text string) string {
	return m.theme.MessageBody.Width(m.bodyWidth()).Render(text)
}

// renderErrorBox draws the short message and detail of an error sentinel.
func (m Model) renderErrorBox(env sentinel.Envelope) string {
	inner := m.theme.ErrorTitle.Render(env.Short)
	if env.Detail != "" {
		inner += "\n" + m.theme.ErrorDetail.Render(env.Detail)
	}
	// Border, padding and margin take 6 columns
	return m.theme.ErrorBox.Width(max(m.bodyWidth()-4, 10)).Render(inner)
}

func (m Model) bodyWidth() int {
	if m.viewport.Width < 20 {
		return 20
	}
	return m.viewport.Width - 2
}

func (m Model) renderEmptyState() string {
	lines := []string{
		m.theme.HeaderTitle.Render("deskmate"),
		"",
		m.theme.HeaderInfo.Render("Type a message and press Enter to start."),
		m.theme.HeaderInfo.Render("Esc stops a reply, F1 shows all keys."),
	}
	block := strings.Join(lines, "\n")
	return lipgloss.Place(max(m.viewport.Width, 1), max(m.viewport.Height, 1), lipgloss.Center, lipgloss.Center, block)
}

// =============================================================================
// INPUT
// =============================================================================

func (m Model) renderInput() string {
	sep := m.theme.Separator.Render(strings.Repeat("─", max(m.width, 1)))
	return sep + "\n" + m.input.View()
}

// =============================================================================
// STATUS BAR
// =============================================================================

func (m Model) renderStatusBar() string {
	var indicator string
	switch {
	case m.stopping:
		indicator = m.theme.StatusBusy.Render("stopping")
	case m.state == stream.StateAwaitingConfig:
		indicator = m.theme.StatusBusy.Render(m.spinner.View() + " connecting")
	case m.state == stream.StateStreaming:
		indicator = m.theme.StatusBusy.Render(m.spinner.View() + " streaming")
	case m.state == stream.StateErrored:
		indicator = m.theme.StatusError.Render("error")
	default:
		indicator = m.theme.StatusIdle.Render("ready")
	}

	left := indicator
	if m.statusMsg != "" {
		left += "  " + m.statusMsg
	}

	h := m.help
	h.Width = max(m.width-lipgloss.Width(left)-4, 0)
	right := h.ShortHelpView(m.keyMap.ShortHelp())

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.theme.StatusBar.Width(m.width).MaxHeight(1).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// HELP OVERLAY
// =============================================================================

func (m Model) renderHelpOverlay() string {
	h := m.help
	h.ShowAll = true
	h.Width = m.width

	commands := []string{
		m.theme.ShortcutKey.Render("/clear") + "  " + m.theme.ShortcutDesc.Render("start a new conversation"),
		m.theme.ShortcutKey.Render("/stop") + "   " + m.theme.ShortcutDesc.Render("stop the current reply"),
		m.theme.ShortcutKey.Render("/stats") + "  " + m.theme.ShortcutDesc.Render("toggle reply statistics"),
		m.theme.ShortcutKey.Render("/quit") + "   " + m.theme.ShortcutDesc.Render("exit"),
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		m.theme.HeaderTitle.Render("Keyboard shortcuts"),
		"",
		h.FullHelpView(m.keyMap.FullHelp()),
		"",
		m.theme.HeaderTitle.Render("Commands"),
		"",
		strings.Join(commands, "\n"),
		"",
		m.theme.ShortcutDesc.Render("Press F1 or Esc to close"),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
}
