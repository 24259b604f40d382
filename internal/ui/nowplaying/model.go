// Package nowplaying is the terminal front end: a catalog list and a player
// bar that follow the session through observer notifications only.
package nowplaying

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavelet/internal/keymap"
	"github.com/llehouerou/wavelet/internal/playback"
)

// Model is the bubbletea model.
type Model struct {
	service playback.Service
	keys    *keymap.Resolver

	tracks  []playback.Track
	visible []playback.Track
	cursor  int

	filter    textinput.Model
	filtering bool
	showHelp  bool

	// Session view, fed by TrackMsg, PhaseMsg and ElapsedMsg.
	track   *playback.Track
	phase   playback.Phase
	elapsed int

	width  int
	height int
}

// New creates a model listing tracks and sending commands to service.
func New(service playback.Service, tracks []playback.Track) Model {
	ti := textinput.New()
	ti.Prompt = "/"
	ti.Placeholder = "filter"
	ti.CharLimit = 64

	return Model{
		service: service,
		keys:    keymap.NewResolver(keymap.Bindings),
		tracks:  tracks,
		visible: tracks,
		filter:  ti,
		width:   80,
		height:  24,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TrackMsg:
		m.track = msg.Track
	case PhaseMsg:
		m.phase = msg.Phase
	case ElapsedMsg:
		m.elapsed = msg.Elapsed
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.keys.Resolve(msg.String()) {
	case keymap.ActionQuit:
		return m, tea.Quit
	case keymap.ActionSearch:
		m.filtering = true
		cmd := m.filter.Focus()
		return m, cmd
	case keymap.ActionHelp:
		m.showHelp = !m.showHelp
	case keymap.ActionPlayPause:
		m.service.Toggle()
	case keymap.ActionPause:
		m.service.Pause()
	case keymap.ActionStart:
		m.service.Start()
	case keymap.ActionStop:
		m.service.Stop()
	case keymap.ActionMoveUp:
		m.cursor = max(m.cursor-1, 0)
	case keymap.ActionMoveDown:
		m.cursor = min(m.cursor+1, max(len(m.visible)-1, 0))
	case keymap.ActionJumpStart:
		m.cursor = 0
	case keymap.ActionJumpEnd:
		m.cursor = max(len(m.visible)-1, 0)
	case keymap.ActionLoad:
		if t, ok := m.Selected(); ok {
			m.service.LoadTrack(t)
		}
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filter.Blur()
		m.filter.Reset()
		m.applyFilter()
		return m, nil
	case tea.KeyEnter:
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *Model) applyFilter() {
	term := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if term == "" {
		m.visible = m.tracks
	} else {
		m.visible = nil
		for _, t := range m.tracks {
			if matches(t, term) {
				m.visible = append(m.visible, t)
			}
		}
	}
	m.cursor = min(m.cursor, max(len(m.visible)-1, 0))
}

func matches(t playback.Track, term string) bool {
	for _, f := range []string{t.Title, t.Artist, t.Album} {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// Selected returns the track under the cursor.
func (m Model) Selected() (playback.Track, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return playback.Track{}, false
	}
	return m.visible[m.cursor], true
}
