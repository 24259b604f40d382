package playback

import (
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Backend renders audio for the session.
// Calls come from a single goroutine; Failures may fire at any time.
type Backend interface {
	Play(t Track) error
	Pause() error
	Resume() error
	Stop() error
	Position() time.Duration
	// Failures reports asynchronous playback errors (decoder errors,
	// device loss). It is closed when the backend is closed.
	Failures() <-chan error
}

// driftTolerance is how far the backend position may wander from the
// session clock before it is logged.
const driftTolerance = 2 * time.Second

// backendDriver mirrors committed states onto a Backend.
// It runs as a regular observer; errors are fed back as Fail commands.
type backendDriver struct {
	backend Backend
	report  func(generation uint64, err error)
	logger  *zap.Logger

	last    State
	playing atomic.Uint64 // generation the backend was last started for
}

func newBackendDriver(b Backend, report func(uint64, error), logger *zap.Logger) *backendDriver {
	return &backendDriver{backend: b, report: report, logger: logger}
}

// deliver is registered with the Registry.
func (d *backendDriver) deliver(s State) error {
	prev := d.last
	d.last = s

	switch {
	case s.Track == nil:
		if prev.Track != nil {
			d.call(s, "stop", d.backend.Stop)
		}
	case s.Phase == PhaseRunning && (s.Generation != d.playing.Load() || prev.Phase == PhaseStopped || rewound(prev, s)):
		t := *s.Track
		d.playing.Store(s.Generation)
		d.call(s, "play", func() error { return d.backend.Play(t) })
	case s.Phase == PhaseRunning && prev.Phase == PhasePaused:
		d.call(s, "resume", d.backend.Resume)
	case s.Phase == PhasePaused && prev.Phase != PhasePaused:
		d.call(s, "pause", d.backend.Pause)
	case s.Phase == PhaseStopped && prev.Phase != PhaseStopped:
		d.call(s, "stop", d.backend.Stop)
	case s.Phase == PhaseRunning:
		d.checkDrift(s)
	}
	return nil
}

// rewound reports a restart from zero that the conflated mailbox collapsed
// into a single Running -> Running step.
func rewound(prev, s State) bool {
	return prev.Generation == s.Generation && s.Elapsed < prev.Elapsed
}

func (d *backendDriver) call(s State, op string, fn func() error) {
	if err := fn(); err != nil {
		d.logger.Warn("backend call failed",
			zap.String("op", op),
			zap.Uint64("generation", s.Generation),
			zap.Error(err))
		d.report(s.Generation, fmt.Errorf("%s: %w", op, err))
	}
}

func (d *backendDriver) checkDrift(s State) {
	pos := d.backend.Position()
	clock := time.Duration(s.Elapsed) * time.Second
	if diff := pos - clock; diff > driftTolerance || diff < -driftTolerance {
		d.logger.Debug("backend position drift",
			zap.Duration("backend", pos),
			zap.Duration("session", clock))
	}
}

// watchFailures translates asynchronous backend failures into Fail
// commands tagged with the generation that was playing.
func (d *backendDriver) watchFailures(done <-chan struct{}) {
	failures := d.backend.Failures()
	if failures == nil {
		return
	}
	for {
		select {
		case <-done:
			return
		case err, ok := <-failures:
			if !ok {
				return
			}
			gen := d.playing.Load()
			d.logger.Warn("backend failure",
				zap.Uint64("generation", gen),
				zap.Error(err))
			d.report(gen, err)
		}
	}
}
