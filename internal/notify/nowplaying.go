package notify

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Action keys on the now-playing notification.
const (
	ActionToggle = "toggle"
	ActionStop   = "stop"
)

// NowPlaying keeps one desktop notification in sync with the session.
// The notification is replaced in place on every change and closed when
// the track goes away.
type NowPlaying struct {
	notifier Notifier
	service  playback.Service
	logger   *zap.Logger
	id       playback.ObserverID

	mu      sync.Mutex
	notifID uint32
	track   *playback.Track
	phase   playback.Phase
	elapsed int

	done chan struct{}
	once sync.Once
}

// NewNowPlaying registers a now-playing observer on service.
func NewNowPlaying(n Notifier, service playback.Service, logger *zap.Logger) *NowPlaying {
	if logger == nil {
		logger = zap.NewNop()
	}
	np := &NowPlaying{
		notifier: n,
		service:  service,
		logger:   logger.Named("notify"),
		done:     make(chan struct{}),
	}
	if actions := n.Actions(); actions != nil {
		go np.handleActions(actions)
	}
	np.id = service.RegisterObserver("notify", np)
	return np
}

// Close unregisters the observer and dismisses the notification.
func (np *NowPlaying) Close() {
	np.once.Do(func() {
		np.service.UnregisterObserver(np.id)
		close(np.done)
		np.mu.Lock()
		defer np.mu.Unlock()
		np.dismissLocked()
	})
}

func (np *NowPlaying) TrackChanged(t *playback.Track) error {
	np.mu.Lock()
	defer np.mu.Unlock()
	np.track = t
	if t == nil {
		np.dismissLocked()
		return nil
	}
	return np.showLocked()
}

func (np *NowPlaying) PhaseChanged(p playback.Phase) error {
	np.mu.Lock()
	defer np.mu.Unlock()
	np.phase = p
	return np.showLocked()
}

func (np *NowPlaying) ElapsedChanged(seconds int) error {
	np.mu.Lock()
	defer np.mu.Unlock()
	np.elapsed = seconds
	return np.showLocked()
}

func (np *NowPlaying) showLocked() error {
	if np.track == nil || np.closed() {
		return nil
	}
	id, err := np.notifier.Notify(np.buildLocked())
	if err != nil {
		// The notification daemon may come back; keep observing.
		np.logger.Debug("notify failed", zap.Error(err))
		return nil
	}
	np.notifID = id
	return nil
}

func (np *NowPlaying) dismissLocked() {
	if np.notifID == 0 {
		return
	}
	if err := np.notifier.Close(np.notifID); err != nil {
		np.logger.Debug("close notification", zap.Error(err))
	}
	np.notifID = 0
}

func (np *NowPlaying) buildLocked() Notification {
	t := np.track
	label := "Pause"
	if np.phase != playback.PhaseRunning {
		label = "Play"
	}
	return Notification{
		Title:      t.Title,
		Body:       Body(*t, np.phase, np.elapsed),
		Icon:       albumArt(t.Source),
		Timeout:    0,
		ReplacesID: np.notifID,
		Urgency:    UrgencyLow,
		Actions:    []string{ActionToggle, label, ActionStop, "Stop"},
	}
}

// Body renders the notification text: artist and album, then progress.
func Body(t playback.Track, phase playback.Phase, elapsed int) string {
	var lines []string
	var who []string
	if t.Artist != "" {
		who = append(who, t.Artist)
	}
	if t.Album != "" {
		who = append(who, t.Album)
	}
	if len(who) > 0 {
		lines = append(lines, strings.Join(who, " · "))
	}
	progress := playback.FormatSeconds(elapsed) + " / " + playback.FormatSeconds(t.Duration)
	if phase != playback.PhaseRunning {
		progress += " (" + phase.String() + ")"
	}
	return strings.Join(append(lines, progress), "\n")
}

func (np *NowPlaying) closed() bool {
	select {
	case <-np.done:
		return true
	default:
		return false
	}
}

func (np *NowPlaying) handleActions(actions <-chan Action) {
	for {
		select {
		case <-np.done:
			return
		case a, ok := <-actions:
			if !ok {
				return
			}
			np.mu.Lock()
			ours := a.ID != 0 && a.ID == np.notifID
			np.mu.Unlock()
			if !ours {
				continue
			}
			switch a.Key {
			case ActionToggle:
				np.service.Toggle()
			case ActionStop:
				np.service.Stop()
			}
		}
	}
}
