package nowplaying

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavelet/internal/playback"
)

// TrackMsg reports a track change. Track is nil when nothing is loaded.
type TrackMsg struct{ Track *playback.Track }

// PhaseMsg reports a phase change.
type PhaseMsg struct{ Phase playback.Phase }

// ElapsedMsg reports elapsed seconds.
type ElapsedMsg struct{ Elapsed int }

// Bridge forwards session notifications into a bubbletea program.
type Bridge struct {
	send func(tea.Msg)
}

// NewBridge returns an observer that calls send (usually tea.Program.Send).
func NewBridge(send func(tea.Msg)) *Bridge {
	return &Bridge{send: send}
}

func (b *Bridge) TrackChanged(t *playback.Track) error {
	b.send(TrackMsg{Track: t})
	return nil
}

func (b *Bridge) PhaseChanged(p playback.Phase) error {
	b.send(PhaseMsg{Phase: p})
	return nil
}

func (b *Bridge) ElapsedChanged(seconds int) error {
	b.send(ElapsedMsg{Elapsed: seconds})
	return nil
}
