//go:build linux

package mpris

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/quarckster/go-mpris-server/pkg/events"
	"github.com/quarckster/go-mpris-server/pkg/server"
	"github.com/quarckster/go-mpris-server/pkg/types"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
	"github.com/llehouerou/wavelet/internal/player"
)

const busName = "wavelet"

// Opener turns an OpenUri request into a track. Nil disables OpenUri.
type Opener func(uri string) (playback.Track, error)

// Adapter exposes the session on the session bus as an MPRIS2 player.
// It is a regular session observer: property change signals are emitted
// from its delivery goroutine.
type Adapter struct {
	service playback.Service
	server  *server.Server
	signals *signaler
	id      playback.ObserverID
	logger  *zap.Logger
}

// New registers the player on D-Bus and subscribes it to service.
func New(service playback.Service, open Opener, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Adapter{service: service, logger: logger}

	a.server = server.NewServer(busName, &rootAdapter{}, &playerAdapter{service: service, open: open})
	a.signals = &signaler{emit: events.NewEventHandler(a.server).Player, logger: logger}

	go func() {
		if err := a.server.Listen(); err != nil {
			logger.Warn("mpris server stopped", zap.Error(err))
		}
	}()

	a.id = service.RegisterObserver("mpris", a.signals)
	return a, nil
}

// Close unsubscribes the adapter and releases D-Bus resources.
func (a *Adapter) Close() error {
	a.service.UnregisterObserver(a.id)
	a.signals.close()
	return a.server.Stop()
}

// emitter is the subset of the MPRIS player event handler the signaler uses.
type emitter interface {
	OnTitle() error
	OnPlayPause() error
	OnSeek(position types.Microseconds) error
}

// signaler translates facet changes into MPRIS PropertiesChanged/Seeked signals.
type signaler struct {
	emit   emitter
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	elapsed int
}

func (s *signaler) TrackChanged(*playback.Track) error {
	return s.send("title", s.emit.OnTitle)
}

func (s *signaler) PhaseChanged(playback.Phase) error {
	return s.send("playback status", s.emit.OnPlayPause)
}

// ElapsedChanged only signals jumps: clients extrapolate Position themselves
// while playing, so a regular one-second step is not a seek.
func (s *signaler) ElapsedChanged(seconds int) error {
	s.mu.Lock()
	prev := s.elapsed
	s.elapsed = seconds
	s.mu.Unlock()

	if seconds == prev+1 || seconds == prev {
		return nil
	}
	return s.send("seeked", func() error {
		return s.emit.OnSeek(types.Microseconds(int64(seconds) * 1_000_000))
	})
}

func (s *signaler) send(what string, fn func() error) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return playback.ErrObserverGone
	}

	if err := fn(); err != nil {
		// The bus may not be connected yet; properties are re-read on demand.
		s.logger.Debug("mpris signal failed", zap.String("signal", what), zap.Error(err))
		if errors.Is(err, dbus.ErrClosed) {
			return fmt.Errorf("%w: %w", playback.ErrObserverGone, err)
		}
	}
	return nil
}

func (s *signaler) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// rootAdapter implements OrgMprisMediaPlayer2Adapter.
type rootAdapter struct{}

func (r *rootAdapter) Raise() error {
	return nil // Not supported
}

func (r *rootAdapter) Quit() error {
	return nil // Not supported - app manages its own lifecycle
}

func (r *rootAdapter) CanQuit() (bool, error) {
	return false, nil
}

func (r *rootAdapter) CanRaise() (bool, error) {
	return false, nil
}

func (r *rootAdapter) HasTrackList() (bool, error) {
	return false, nil
}

func (r *rootAdapter) Identity() (string, error) {
	return "Wavelet", nil
}

//nolint:revive // Method name required by interface.
func (r *rootAdapter) SupportedUriSchemes() ([]string, error) {
	return []string{"file"}, nil
}

func (r *rootAdapter) SupportedMimeTypes() ([]string, error) {
	mimes := make([]string, 0, len(player.ContentTypes))
	for _, ct := range player.ContentTypes {
		mimes = append(mimes, ct)
	}
	slices.Sort(mimes)
	return mimes, nil
}

// playerAdapter implements OrgMprisMediaPlayer2PlayerAdapter on top of the
// session commands and queries.
type playerAdapter struct {
	service playback.Service
	open    Opener
}

func (p *playerAdapter) Next() error {
	return nil // Single-track session
}

func (p *playerAdapter) Previous() error {
	return nil // Single-track session
}

func (p *playerAdapter) Pause() error {
	p.service.Pause()
	return nil
}

func (p *playerAdapter) PlayPause() error {
	p.service.Toggle()
	return nil
}

func (p *playerAdapter) Stop() error {
	p.service.Stop()
	return nil
}

func (p *playerAdapter) Play() error {
	p.service.Start()
	return nil
}

func (p *playerAdapter) Seek(_ types.Microseconds) error {
	return nil // Not supported
}

func (p *playerAdapter) SetPosition(_ string, _ types.Microseconds) error {
	return nil // Not supported
}

//nolint:revive // Method name required by interface.
func (p *playerAdapter) OpenUri(uri string) error {
	if p.open == nil {
		return nil
	}
	t, err := p.open(uri)
	if err != nil {
		return err
	}
	p.service.LoadTrack(t)
	return nil
}

func (p *playerAdapter) PlaybackStatus() (types.PlaybackStatus, error) {
	switch p.service.CurrentPhase() {
	case playback.PhaseRunning:
		return types.PlaybackStatusPlaying, nil
	case playback.PhasePaused:
		return types.PlaybackStatusPaused, nil
	case playback.PhaseStopped:
		return types.PlaybackStatusStopped, nil
	}
	return types.PlaybackStatusStopped, nil
}

func (p *playerAdapter) Rate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetRate(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Metadata() (types.Metadata, error) {
	s := p.service.Snapshot()
	if s.Track == nil {
		return types.Metadata{}, nil
	}
	track := s.Track
	path := player.SourcePath(track.Source)

	meta := types.Metadata{
		TrackId:     dbus.ObjectPath(formatTrackID(track.Source, s.Generation)),
		Length:      types.Microseconds(track.Length().Microseconds()),
		Title:       track.Title,
		Album:       track.Album,
		TrackNumber: track.TrackNumber,
		Url:         "file://" + path,
	}
	if track.Artist != "" {
		meta.Artist = []string{track.Artist}
	}
	if artPath := FindAlbumArt(path); artPath != "" {
		meta.ArtUrl = "file://" + artPath
	}
	return meta, nil
}

func (p *playerAdapter) Volume() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) SetVolume(_ float64) error {
	return nil // Not supported
}

func (p *playerAdapter) Position() (int64, error) {
	return int64(p.service.CurrentElapsed()) * 1_000_000, nil
}

func (p *playerAdapter) MinimumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) MaximumRate() (float64, error) {
	return 1.0, nil
}

func (p *playerAdapter) CanGoNext() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanGoPrevious() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanPlay() (bool, error) {
	return p.service.CurrentTrack() != nil, nil
}

func (p *playerAdapter) CanPause() (bool, error) {
	return p.service.CurrentPhase() == playback.PhaseRunning, nil
}

func (p *playerAdapter) CanSeek() (bool, error) {
	return false, nil
}

func (p *playerAdapter) CanControl() (bool, error) {
	return true, nil
}

// formatTrackID derives a D-Bus object path unique to one load of a track.
func formatTrackID(source string, generation uint64) string {
	h := fnv.New64a()
	h.Write([]byte(source))
	return fmt.Sprintf("/org/mpris/MediaPlayer2/Track/%x_%d", h.Sum64(), generation)
}
