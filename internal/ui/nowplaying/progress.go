package nowplaying

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/llehouerou/wavelet/internal/playback"
)

const (
	filledBlock = "▓"
	emptyBlock  = "░"
)

func statusSymbol(p playback.Phase) string {
	switch p {
	case playback.PhaseRunning:
		return "▶"
	case playback.PhasePaused:
		return "⏸"
	default:
		return "■"
	}
}

// RenderProgressBar renders a block-style progress bar.
// Format: ▶  01:23  ▓▓▓▓▓░░░░░  04:56
func RenderProgressBar(elapsed, duration, width int, phase playback.Phase) string {
	status := statusSymbol(phase)
	posStr := playback.FormatSeconds(elapsed)
	durStr := playback.FormatSeconds(duration)

	fixedWidth := lipgloss.Width(status) + 2 + lipgloss.Width(posStr) + 2 + 2 + lipgloss.Width(durStr)
	barWidth := width - fixedWidth
	if barWidth < 3 {
		// Too narrow for bar, just show times
		return status + "  " + posStr + " / " + durStr
	}

	var ratio float64
	if duration > 0 {
		ratio = float64(elapsed) / float64(duration)
	}
	filled := min(int(float64(barWidth)*ratio), barWidth)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, barWidth-filled)

	return status + "  " + posStr + "  " + bar + "  " + durStr
}

func truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	return runewidth.Truncate(s, maxWidth, "…")
}
