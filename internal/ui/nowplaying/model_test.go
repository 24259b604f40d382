package nowplaying

import (
	"strings"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/llehouerou/wavelet/internal/playback"
)

var testTracks = []playback.Track{
	{ID: 1, Title: "Halcyon", Artist: "Orbital", Album: "Brown", Duration: 567, Source: "/m/halcyon.flac"},
	{ID: 2, Title: "Roygbiv", Artist: "Boards of Canada", Album: "Music Has the Right", Duration: 151, Source: "/m/roygbiv.mp3"},
	{ID: 3, Title: "Xtal", Artist: "Aphex Twin", Album: "SAW 85-92", Duration: 293, Source: "/m/xtal.mp3"},
}

func newTestModel(t *testing.T) (Model, playback.Service) {
	t.Helper()
	svc := playback.New(playback.Options{TickInterval: time.Hour})
	t.Cleanup(func() { svc.Close() })
	return New(svc, testTracks), svc
}

func send(m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, msg := range msgs {
		var next tea.Model
		next, cmd = m.Update(msg)
		m = next.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModel_LoadSelected(t *testing.T) {
	m, svc := newTestModel(t)

	m, _ = send(m, runes("j"), tea.KeyMsg{Type: tea.KeyEnter})

	if got := svc.CurrentTrack(); got == nil || got.ID != 2 {
		t.Fatalf("CurrentTrack() = %+v, want track 2", got)
	}
	if svc.CurrentPhase() != playback.PhaseRunning {
		t.Errorf("phase = %v, want Running", svc.CurrentPhase())
	}
	if sel, _ := m.Selected(); sel.ID != 2 {
		t.Errorf("Selected() = %d, want 2", sel.ID)
	}
}

func TestModel_PlaybackKeys(t *testing.T) {
	m, svc := newTestModel(t)
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})

	steps := []struct {
		key  tea.KeyMsg
		want playback.Phase
	}{
		{tea.KeyMsg{Type: tea.KeySpace}, playback.PhasePaused},
		{tea.KeyMsg{Type: tea.KeySpace}, playback.PhaseRunning},
		{runes("p"), playback.PhasePaused},
		{runes("P"), playback.PhaseRunning},
		{runes("s"), playback.PhaseStopped},
		{runes("p"), playback.PhaseStopped},
	}
	for i, st := range steps {
		m, _ = send(m, st.key)
		if got := svc.CurrentPhase(); got != st.want {
			t.Errorf("step %d (%s): phase = %v, want %v", i, st.key, got, st.want)
		}
	}
}

func TestModel_Navigation(t *testing.T) {
	m, _ := newTestModel(t)

	tests := []struct {
		key  tea.KeyMsg
		want int
	}{
		{runes("k"), 0},
		{runes("j"), 1},
		{tea.KeyMsg{Type: tea.KeyDown}, 2},
		{runes("j"), 2},
		{runes("g"), 0},
		{runes("G"), 2},
		{tea.KeyMsg{Type: tea.KeyUp}, 1},
	}
	for _, tt := range tests {
		m, _ = send(m, tt.key)
		if m.cursor != tt.want {
			t.Errorf("after %s: cursor = %d, want %d", tt.key, m.cursor, tt.want)
		}
	}
}

func TestModel_Filter(t *testing.T) {
	m, svc := newTestModel(t)

	m, _ = send(m, runes("/"), runes("a"), runes("p"), runes("h"))
	if !m.filtering {
		t.Fatal("expected filter mode")
	}
	if len(m.visible) != 1 || m.visible[0].ID != 3 {
		t.Fatalf("visible = %+v, want only Xtal", m.visible)
	}

	// Keys go to the filter while it is focused.
	m, _ = send(m, runes("s"))
	if svc.CurrentPhase() != playback.PhaseStopped || len(m.visible) != 0 {
		t.Errorf("'s' should have been typed into the filter")
	}
	m, _ = send(m, tea.KeyMsg{Type: tea.KeyBackspace}, tea.KeyMsg{Type: tea.KeyEnter})
	if m.filtering {
		t.Fatal("enter should leave filter mode")
	}

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if got := svc.CurrentTrack(); got == nil || got.ID != 3 {
		t.Fatalf("CurrentTrack() = %+v, want Xtal", got)
	}

	m, _ = send(m, runes("/"), tea.KeyMsg{Type: tea.KeyEsc})
	if len(m.visible) != len(testTracks) || m.filter.Value() != "" {
		t.Errorf("esc should clear the filter, visible = %d", len(m.visible))
	}
}

func TestModel_Quit(t *testing.T) {
	m, _ := newTestModel(t)
	for _, key := range []tea.KeyMsg{runes("q"), {Type: tea.KeyCtrlC}} {
		_, cmd := send(m, key)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", key)
		}
	}
}

func TestModel_ViewFollowsNotifications(t *testing.T) {
	m, svc := newTestModel(t)
	m, _ = send(m, tea.WindowSizeMsg{Width: 100, Height: 20})

	view := m.View()
	if !strings.Contains(view, "No track loaded") {
		t.Error("expected empty player bar")
	}

	// Commands alone do not change the view; only notifications do.
	svc.LoadTrack(testTracks[0])
	if !strings.Contains(m.View(), "No track loaded") {
		t.Error("view changed without a notification")
	}

	track := testTracks[0]
	m, _ = send(m, TrackMsg{Track: &track}, PhaseMsg{Phase: playback.PhasePaused}, ElapsedMsg{Elapsed: 65})
	view = m.View()
	for _, want := range []string{"Halcyon · Orbital", "01:05", "09:27", "⏸"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}

	m, _ = send(m, TrackMsg{})
	if !strings.Contains(m.View(), "No track loaded") {
		t.Error("expected empty player bar after the track went away")
	}
}

func TestModel_EmptyCatalog(t *testing.T) {
	svc := playback.New(playback.Options{TickInterval: time.Hour})
	defer svc.Close()
	m := New(svc, nil)

	m, _ = send(m, tea.KeyMsg{Type: tea.KeyEnter}, runes("G"))
	if svc.CurrentTrack() != nil {
		t.Error("enter on an empty list should not load anything")
	}
	if !strings.Contains(m.View(), "Catalog is empty") {
		t.Error("expected empty catalog hint")
	}
}

func TestModel_HelpToggle(t *testing.T) {
	m, _ := newTestModel(t)
	m, _ = send(m, runes("?"))
	if !strings.Contains(m.View(), "space play/pause") {
		t.Error("expected full help")
	}
	m, _ = send(m, runes("?"))
	if strings.Contains(m.View(), "space play/pause") {
		t.Error("expected short help")
	}
}

func TestRenderProgressBar(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  int
		duration int
		phase    playback.Phase
		prefix   string
		filled   func(filled, empty int) bool
	}{
		{"start", 0, 10, playback.PhasePaused, "⏸  00:00  ", func(f, _ int) bool { return f == 0 }},
		{"half", 5, 10, playback.PhaseRunning, "▶  00:05  ", func(f, e int) bool { return e-f == 0 || e-f == 1 }},
		{"end", 10, 10, playback.PhaseRunning, "▶  00:10  ", func(_, e int) bool { return e == 0 }},
		{"zero duration", 0, 0, playback.PhaseStopped, "■  00:00  ", func(f, _ int) bool { return f == 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderProgressBar(tt.elapsed, tt.duration, 40, tt.phase)
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("RenderProgressBar() = %q, want prefix %q", got, tt.prefix)
			}
			if !strings.HasSuffix(got, "  "+playback.FormatSeconds(tt.duration)) {
				t.Errorf("RenderProgressBar() = %q, missing duration", got)
			}
			f, e := strings.Count(got, filledBlock), strings.Count(got, emptyBlock)
			if f+e == 0 || !tt.filled(f, e) {
				t.Errorf("RenderProgressBar() = %q: %d filled, %d empty", got, f, e)
			}
		})
	}
}

func TestRenderProgressBar_TooNarrow(t *testing.T) {
	if got := RenderProgressBar(3, 10, 10, playback.PhaseRunning); got != "▶  00:03 / 00:10" {
		t.Errorf("RenderProgressBar() = %q", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("Boards of Canada", 8); got != "Boards …" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("short", 8); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("anything", 0); got != "" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestBridge_ForwardsFacets(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		svc := playback.New(playback.Options{})
		defer svc.Close()

		var mu sync.Mutex
		var got []tea.Msg
		svc.RegisterObserver("tui", NewBridge(func(msg tea.Msg) {
			mu.Lock()
			got = append(got, msg)
			mu.Unlock()
		}))
		synctest.Wait()

		svc.LoadTrack(testTracks[1])
		synctest.Wait()
		time.Sleep(1500 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(got) != 6 {
			t.Fatalf("got %d messages: %#v", len(got), got)
		}
		if tm, ok := got[3].(TrackMsg); !ok || tm.Track == nil || tm.Track.ID != 2 {
			t.Errorf("got[3] = %#v, want TrackMsg for track 2", got[3])
		}
		if pm, ok := got[4].(PhaseMsg); !ok || pm.Phase != playback.PhaseRunning {
			t.Errorf("got[4] = %#v, want Running", got[4])
		}
		if em, ok := got[5].(ElapsedMsg); !ok || em.Elapsed != 1 {
			t.Errorf("got[5] = %#v, want elapsed 1", got[5])
		}
	})
}
