// Package styles provides the styling system for the Octopus CLI.
package styles

import "github.com/charmbracelet/lipgloss"

// Palette tuned for dark terminal backgrounds.
var (
	Teal    = lipgloss.Color("#2dd4bf")
	Sky     = lipgloss.Color("#38bdf8")
	Violet  = lipgloss.Color("#a78bfa")
	Red     = lipgloss.Color("#f87171")
	Amber   = lipgloss.Color("#fbbf24")
	Gray200 = lipgloss.Color("#e5e5e5")
	Gray500 = lipgloss.Color("#737373")
	Gray700 = lipgloss.Color("#404040")
	Gray800 = lipgloss.Color("#262626")
	Black   = lipgloss.Color("#000000")

	// Semantic colors
	ColorPrimary   = Teal
	ColorSecondary = Sky
	ColorAccent    = Violet
	ColorSuccess   = Teal
	ColorWarning   = Amber
	ColorError     = Red
	ColorInfo      = Sky

	ColorText      = Gray200
	ColorTextMuted = Gray500
	ColorBg        = Black
	ColorBgMuted   = Gray800
	ColorBorder    = Gray700
)
