package tui

import "github.com/charmbracelet/lipgloss"

// Color constants.
var (
	colorGreen  = lipgloss.Color("#10b981")
	colorYellow = lipgloss.Color("#f59e0b")
	colorRed    = lipgloss.Color("#ef4444")
	colorGray   = lipgloss.Color("#6b7280")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorCyan   = lipgloss.Color("#06b6d4")
	colorPurple = lipgloss.Color("#8b5cf6")
	colorWhite  = lipgloss.Color("#f8fafc")
	colorDark   = lipgloss.Color("#1e293b")
)

// Status styles, used for the import handler state of a core.
var (
	StyleStatusIdle    = lipgloss.NewStyle().Bold(true).Foreground(colorGreen)
	StyleStatusBusy    = lipgloss.NewStyle().Bold(true).Foreground(colorYellow)
	StyleStatusFailed  = lipgloss.NewStyle().Bold(true).Foreground(colorRed)
	StyleStatusUnknown = lipgloss.NewStyle().Foreground(colorGray)
)

// StyleHeader is the full-width dark header bar.
var StyleHeader = lipgloss.NewStyle().
	Background(colorDark).
	Foreground(colorWhite).
	Padding(0, 1)

// StyleLabel is the dim label column of a core panel.
var StyleLabel = lipgloss.NewStyle().Foreground(colorGray).Width(12)

// Utility styles.
var (
	StyleError = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
	StyleDim   = lipgloss.NewStyle().Foreground(colorGray)
)

// StatusStyle returns the style for an import handler status. "idle" and
// "busy" are the healthy states; anything else reported by the server is
// an error text.
func StatusStyle(status string) lipgloss.Style {
	switch status {
	case "idle":
		return StyleStatusIdle
	case "busy":
		return StyleStatusBusy
	case "":
		return StyleStatusUnknown
	default:
		return StyleStatusFailed
	}
}
