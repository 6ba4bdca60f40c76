// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared lipgloss styles for all CLI output.
//
// Colors degrade automatically on dumb terminals; lipgloss handles
// NO_COLOR and TTY detection.
package cli

import "github.com/charmbracelet/lipgloss"

var (
	// promptStyle renders the REPL prompt.
	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	// titleStyle is used for banners and headers.
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("135")).
			Bold(true)

	// labelStyle is used for field labels in status output.
	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(16)

	// valueStyle is used for field values.
	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// systemStyle marks game notices (XP awards, mode changes).
	systemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	// errorStyle marks failures.
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	// successStyle marks level-ups and confirmations.
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true)

	// dimStyle de-emphasizes hints.
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242"))
)

// xpBar renders a simple progress bar for XP toward the next level.
func xpBar(current, next, width int) string {
	if next <= 0 || width <= 0 {
		return ""
	}
	filled := current * width / next
	if filled > width {
		filled = width
	}
	bar := ""
	for i := 0; i < width; i++ {
		if i < filled {
			bar += "█"
		} else {
			bar += "░"
		}
	}
	return successStyle.Render(bar)
}
