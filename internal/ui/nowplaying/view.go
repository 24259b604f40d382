package nowplaying

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/llehouerou/wavelet/internal/keymap"
	"github.com/llehouerou/wavelet/internal/playback"
)

const barHeight = 3 // top border + content + bottom border

func (m Model) View() string {
	var b strings.Builder

	header := headerStyle.Render("wavelet") + mutedStyle.Render(fmt.Sprintf("  %d tracks", len(m.tracks)))
	b.WriteString(header + "\n")
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View() + "\n")
	}

	footer := m.renderHelp()
	rows := m.height - countLines(b.String()) - barHeight - countLines(footer)
	b.WriteString(m.renderList(max(rows, 1)))
	b.WriteString(m.renderBar())
	b.WriteString("\n" + footer)
	return b.String()
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

func (m Model) renderList(rows int) string {
	if len(m.visible) == 0 {
		msg := "Catalog is empty. Add tracks with: wavelet catalog add <dir>"
		if len(m.tracks) > 0 {
			msg = "No match"
		}
		return mutedStyle.Render(msg) + strings.Repeat("\n", rows)
	}

	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(m.visible))

	var b strings.Builder
	for i := start; i < end; i++ {
		b.WriteString(m.renderRow(m.visible[i], i == m.cursor))
		b.WriteString("\n")
	}
	b.WriteString(strings.Repeat("\n", rows-(end-start)))
	return b.String()
}

func (m Model) renderRow(t playback.Track, selected bool) string {
	marker := "  "
	if m.track != nil && m.track.ID == t.ID && m.track.Source == t.Source {
		marker = statusSymbol(m.phase) + " "
	}

	name := t.Title
	if t.Artist != "" {
		name = t.Artist + " - " + t.Title
	}
	length := playback.FormatSeconds(t.Duration)
	nameWidth := max(m.width-lipgloss.Width(marker)-len(length)-2, 1)
	name = truncate(name, nameWidth)
	line := marker + runewidth.FillRight(name, nameWidth) + "  " + length

	switch {
	case selected:
		return cursorStyle.Render(line)
	case marker != "  ":
		return playingStyle.Render(line)
	default:
		return baseStyle.Render(line)
	}
}

// renderBar renders the one-line player bar.
func (m Model) renderBar() string {
	inner := max(m.width-6, 10)
	if m.track == nil {
		return barStyle.Padding(0, 2).Width(m.width - 2).Render(mutedStyle.Render("No track loaded"))
	}

	title := m.track.Title
	if m.track.Artist != "" {
		title += " · " + m.track.Artist
	}
	titleWidth := min(lipgloss.Width(title), inner/2)
	title = truncate(title, titleWidth)
	bar := RenderProgressBar(m.elapsed, m.track.Duration, inner-titleWidth-3, m.phase)

	content := titleStyle.Render(title) + "   " + progressStyle.Render(bar)
	return barStyle.Padding(0, 2).Width(m.width - 2).Render(content)
}

func (m Model) renderHelp() string {
	if !m.showHelp {
		return mutedStyle.Render("? help · q quit")
	}
	lines := []string{
		keymap.HelpLine(keymap.ByContext("playback")),
		keymap.HelpLine(keymap.ByContext("catalog")),
		keymap.HelpLine(keymap.ByContext("global")),
	}
	return mutedStyle.Render(strings.Join(lines, "\n"))
}
