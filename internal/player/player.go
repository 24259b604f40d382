// Package player renders tracks to the sound card with beep.
package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Verify Player implements playback.Backend at compile time.
var _ playback.Backend = (*Player)(nil)

var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
)

// initSpeaker opens the audio device once, at the rate of the first track.
func initSpeaker(rate beep.SampleRate) (beep.SampleRate, error) {
	speakerMu.Lock()
	defer speakerMu.Unlock()
	if speakerRate != 0 {
		return speakerRate, nil
	}
	if err := speaker.Init(rate, rate.N(time.Second/10)); err != nil {
		return 0, err
	}
	speakerRate = rate
	return rate, nil
}

// Player is a playback.Backend that plays local files.
type Player struct {
	logger *zap.Logger

	mu       sync.Mutex
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl

	failMu   sync.Mutex
	failures chan error
	closed   bool
}

// New creates a player. The audio device is opened on first Play.
func New(logger *zap.Logger) *Player {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Player{
		logger:   logger,
		failures: make(chan error, 1),
	}
}

// Play stops the current track and starts t from the beginning.
func (p *Player) Play(t playback.Track) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	path := SourcePath(t.Source)
	streamer, format, err := open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	rate, err := initSpeaker(format.SampleRate)
	if err != nil {
		streamer.Close()
		return fmt.Errorf("init speaker: %w", err)
	}

	var out beep.Streamer = streamer
	if format.SampleRate != rate {
		out = beep.Resample(4, format.SampleRate, rate, streamer)
	}
	p.streamer = streamer
	p.format = format
	p.ctrl = &beep.Ctrl{Streamer: out}

	// The callback runs on the speaker goroutine with the speaker locked.
	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		if err := streamer.Err(); err != nil {
			p.fail(fmt.Errorf("decode %s: %w", path, err))
		}
	})))

	p.logger.Debug("playing",
		zap.Int64("track", t.ID),
		zap.String("path", path),
		zap.Int("sample_rate", int(format.SampleRate)))
	return nil
}

// Pause pauses output. It is a no-op when nothing is loaded.
func (p *Player) Pause() error {
	p.setPaused(true)
	return nil
}

// Resume resumes paused output.
func (p *Player) Resume() error {
	p.setPaused(false)
	return nil
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctrl == nil {
		return
	}
	speaker.Lock()
	p.ctrl.Paused = paused
	speaker.Unlock()
}

// Stop stops output and releases the decoder.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

func (p *Player) stopLocked() {
	if p.streamer == nil {
		return
	}
	speaker.Clear()
	if err := p.streamer.Close(); err != nil {
		p.logger.Debug("close streamer", zap.Error(err))
	}
	p.streamer = nil
	p.ctrl = nil
}

// Position returns the decoder position of the current track.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos)
}

// Failures reports decoder errors that happen mid-track.
func (p *Player) Failures() <-chan error {
	return p.failures
}

// fail must not take p.mu: it runs with the speaker locked.
func (p *Player) fail(err error) {
	p.failMu.Lock()
	defer p.failMu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.failures <- err:
	default:
		p.logger.Warn("dropping playback failure", zap.Error(err))
	}
}

// Close stops output and closes Failures.
func (p *Player) Close() error {
	p.mu.Lock()
	p.stopLocked()
	p.mu.Unlock()

	p.failMu.Lock()
	defer p.failMu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.failures)
	}
	return nil
}
