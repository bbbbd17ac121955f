// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/deskmate/internal/model"
	"github.com/jeranaias/deskmate/internal/session"
	"github.com/jeranaias/deskmate/internal/stream"
	"github.com/jeranaias/deskmate/internal/ui/styles"
)

// =============================================================================
// SESSION SURFACE
// =============================================================================

// Session is the controller surface the chat view uses.
// *session.Controller satisfies it.
type Session interface {
	Send(text string) (*session.Reply, error)
	Stop()
	Reset() error
	State() stream.State
	Messages() []model.Message
	SetPlaybackInterval(d time.Duration)
	AddSystemMessage(text string)
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options configures the chat view.
type Options struct {
	Session    Session
	Publisher  *Publisher // Optional; retuned on config reload
	Theme      *styles.Theme
	ModelName  string // Shown in the header
	ServiceURL string // Shown in the header
	ShowStats  bool
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	session   Session
	publisher *Publisher
	theme     *styles.Theme
	keyMap    KeyMap

	// Dimensions
	width  int
	height int

	// Latest published conversation
	messages []model.Message
	state    stream.State

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model
	help     help.Model

	// Status
	modelName  string
	serviceURL string
	showStats  bool
	showHelp   bool
	statusMsg  string
	statusSeq  int
	stopping   bool
}

// New creates a new chat model.
func New(opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.PromptStyle = theme.InputPrompt
	ti.Placeholder = "Type a message..."
	ti.CharLimit = 8192
	ti.Focus()

	vp := viewport.New(80, 20)

	// ASCII frames render on every terminal
	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}

	m := Model{
		session:    opts.Session,
		publisher:  opts.Publisher,
		theme:      theme,
		keyMap:     DefaultKeyMap(),
		viewport:   vp,
		input:      ti,
		spinner:    sp,
		help:       help.New(),
		modelName:  opts.ModelName,
		serviceURL: opts.ServiceURL,
		showStats:  opts.ShowStats,
		state:      stream.StateIdle,
	}
	if opts.Session != nil {
		m.messages = opts.Session.Messages()
		m.state = opts.Session.State()
	}
	return m
}

// =============================================================================
// BUBBLE TEA INTERFACE
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// View renders the model.
func (m Model) View() string {
	return m.renderChat()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// IsStreaming reports whether a reply is in progress.
func (m Model) IsStreaming() bool {
	return m.state == stream.StateStreaming || m.state == stream.StateAwaitingConfig
}

// State returns the last published stream state.
func (m Model) State() stream.State {
	return m.state
}

// Messages returns the last published message list.
func (m Model) Messages() []model.Message {
	return m.messages
}

// StatusMessage returns the temporary status line.
func (m Model) StatusMessage() string {
	return m.statusMsg
}

// =============================================================================
// COMMANDS
// =============================================================================

// sendCmd calls Send off the update loop. Outcomes arrive through the
// publisher; only a rejected Send produces a message here.
func sendCmd(s Session, text string) tea.Cmd {
	return func() tea.Msg {
		if _, err := s.Send(text); err != nil {
			return SendFailedMsg{Err: err}
		}
		return nil
	}
}

// stopCmd calls Stop off the update loop. Stop waits for the final
// publish, which itself goes through the program.
func stopCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		s.Stop()
		return StoppedMsg{}
	}
}

func resetCmd(s Session) tea.Cmd {
	return func() tea.Msg {
		if err := s.Reset(); err != nil {
			return SendFailedMsg{Err: err}
		}
		return StatusMsg{Text: "Started a new conversation"}
	}
}

func clearStatusAfter(seq int, d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
