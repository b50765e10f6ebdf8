// Package tui implements the terminal review surface for mdreview.
package tui

import "github.com/charmbracelet/lipgloss"

// Tokyo Night palette.
const (
	colorBlue   = lipgloss.Color("#7aa2f7")
	colorGray   = lipgloss.Color("#565f89")
	colorWhite  = lipgloss.Color("#c0caf5")
	colorMuted  = lipgloss.Color("#9aa5ce")
	colorGreen  = lipgloss.Color("#9ece6a")
	colorYellow = lipgloss.Color("#e0af68")
	colorRed    = lipgloss.Color("#f7768e")
	colorPanel  = lipgloss.Color("#24283b")
)

const (
	gutterCursor    = "▸"
	gutterBar       = "▌"
	gutterBlank     = " "
	iconDot         = "•"
	gutterWidth     = 3
	threadPanelRows = 8
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue)

	statusStyles = map[string]lipgloss.Style{
		"pending":           lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
		"approved":          lipgloss.NewStyle().Foreground(colorGreen).Bold(true),
		"changes_requested": lipgloss.NewStyle().Foreground(colorYellow).Bold(true),
		"rejected":          lipgloss.NewStyle().Foreground(colorRed).Bold(true),
	}

	helpStyle = lipgloss.NewStyle().
			Foreground(colorGray)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorRed)

	noticeStyle = lipgloss.NewStyle().
			Foreground(colorGreen)

	codeLineStyle = lipgloss.NewStyle().
			Foreground(colorMuted).
			Background(colorPanel)

	cursorStyle    = lipgloss.NewStyle().Foreground(colorBlue).Bold(true)
	dragStyle      = lipgloss.NewStyle().Foreground(colorBlue)
	committedStyle = lipgloss.NewStyle().Foreground(colorGreen)
	pendingStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	threadStyle    = lipgloss.NewStyle().Foreground(colorYellow)
	resolvedStyle  = lipgloss.NewStyle().Foreground(colorGray)
	activeStyle    = lipgloss.NewStyle().Foreground(colorRed).Bold(true)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(colorGray).
			Foreground(colorWhite)

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(1, 2)
)

func statusStyle(status string) lipgloss.Style {
	if s, ok := statusStyles[status]; ok {
		return s
	}
	return helpStyle
}
