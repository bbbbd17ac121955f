// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the application.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	// Header
	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderInfo  lipgloss.Style

	// Messages
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	MessageBody    lipgloss.Style
	SystemBody     lipgloss.Style
	StoppedMarker  lipgloss.Style
	Stats          lipgloss.Style

	// Error box
	ErrorBox    lipgloss.Style
	ErrorTitle  lipgloss.Style
	ErrorDetail lipgloss.Style

	// Input
	InputPrompt lipgloss.Style
	Separator   lipgloss.Style

	// Status bar
	StatusBar    lipgloss.Style
	StatusIdle   lipgloss.Style
	StatusBusy   lipgloss.Style
	StatusError  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return newTheme(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// PlainTheme creates a theme that renders no color, for pipes and tests.
func PlainTheme() *Theme {
	return newTheme(termenv.Ascii, true)
}

func newTheme(profile termenv.Profile, isDark bool) *Theme {
	r := lipgloss.NewRenderer(os.Stdout)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(isDark)
	s := r.NewStyle

	return &Theme{
		IsDark:       isDark,
		ColorProfile: profile,

		Header:      s().Background(SurfaceDim).Padding(0, 1),
		HeaderTitle: s().Foreground(Purple).Bold(true),
		HeaderInfo:  s().Foreground(TextSecondary),

		UserLabel:      s().Foreground(Cyan).Bold(true),
		AssistantLabel: s().Foreground(Purple).Bold(true),
		SystemLabel:    s().Foreground(Amber).Bold(true),
		MessageBody:    s().Foreground(TextPrimary).PaddingLeft(2),
		SystemBody:     s().Foreground(TextSecondary).Italic(true).PaddingLeft(2),
		StoppedMarker:  s().Foreground(Amber).Italic(true),
		Stats:          s().Foreground(TextMuted).PaddingLeft(2),

		ErrorBox:    s().Border(lipgloss.RoundedBorder()).BorderForeground(Rose).Padding(0, 1).MarginLeft(2),
		ErrorTitle:  s().Foreground(Rose).Bold(true),
		ErrorDetail: s().Foreground(TextSecondary),

		InputPrompt: s().Foreground(Cyan).Bold(true),
		Separator:   s().Foreground(Overlay),

		StatusBar:    s().Background(SurfaceDim).Padding(0, 1),
		StatusIdle:   s().Foreground(Emerald),
		StatusBusy:   s().Foreground(Purple),
		StatusError:  s().Foreground(Rose),
		ShortcutKey:  s().Foreground(Cyan),
		ShortcutDesc: s().Foreground(TextMuted),
	}
}
