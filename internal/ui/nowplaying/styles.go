package nowplaying

import "github.com/charmbracelet/lipgloss"

var (
	primary = lipgloss.Color("#a78bfa")
	fgBase  = lipgloss.Color("#c0c0c0")
	fgMuted = lipgloss.Color("#808080")
	subtle  = lipgloss.Color("#585858")
	cursor  = lipgloss.Color("#303030")
	success = lipgloss.Color("#22c55e")
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(primary)
	baseStyle     = lipgloss.NewStyle().Foreground(fgBase)
	mutedStyle    = lipgloss.NewStyle().Foreground(fgMuted)
	cursorStyle   = lipgloss.NewStyle().Background(cursor).Foreground(fgBase)
	playingStyle  = lipgloss.NewStyle().Foreground(success)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fgBase)
	progressStyle = lipgloss.NewStyle().Foreground(primary)

	barStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(subtle)
)
