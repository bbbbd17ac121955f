// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the deskmate TUI.
//
// Colors are Lip Gloss AdaptiveColors so light and dark terminals both
// render legibly. NewTheme detects the terminal's color profile with termenv
// and builds every style the chat view uses.
//
//	theme := styles.NewTheme()
//	fmt.Println(theme.ErrorTitle.Render("Connection failed"))
package styles
