// internal/playback/service_impl.go
package playback

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Verify serviceImpl implements Service at compile time.
var _ Service = (*serviceImpl)(nil)

// Options configures a session.
type Options struct {
	// TickInterval is the wall-clock duration of one playback second.
	TickInterval time.Duration
	// Backend, when set, is driven from committed states.
	Backend Backend
	Logger  *zap.Logger
}

type serviceImpl struct {
	store    *Store
	query    Query
	clock    *Clock
	registry *Registry
	logger   *zap.Logger

	driverID ObserverID

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// New creates a playback session in the default state.
func New(opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &serviceImpl{
		store:  NewStore(),
		logger: logger.Named("playback"),
		done:   make(chan struct{}),
	}
	s.query = NewQuery(s.store)
	s.clock = NewClock(opts.TickInterval, s.store.Snapshot, s.tick)
	s.registry = NewRegistry(s.store.Snapshot, logger.Named("registry"))

	// Clock first, then fan-out.
	s.store.OnCommit(s.clock.Observe)
	s.store.OnCommit(s.registry.OnCommit)

	if opts.Backend != nil {
		d := newBackendDriver(opts.Backend, s.ReportFailure, logger.Named("backend"))
		s.driverID = s.registry.Add("backend", d.deliver)
		go d.watchFailures(s.done)
	}
	return s
}

func (s *serviceImpl) dispatch(c Command) {
	if s.isClosed() {
		return
	}
	next, changed := s.store.Dispatch(c)
	if !changed {
		s.logger.Debug("command ignored", zap.String("command", c.Name()))
		return
	}
	s.logger.Info("command applied",
		zap.String("command", c.Name()),
		zap.Stringer("phase", next.Phase),
		zap.Uint64("generation", next.Generation))
}

func (s *serviceImpl) tick(t Tick, live func() bool) {
	if s.isClosed() {
		return
	}
	next, changed := s.store.dispatchWhen(t, live)
	if !changed {
		s.logger.Debug("stale tick discarded", zap.Uint64("generation", t.Generation))
		return
	}
	if next.Phase == PhaseStopped {
		s.logger.Info("track finished", zap.Uint64("generation", next.Generation))
	}
}

// LoadTrack replaces the current track and starts it.
func (s *serviceImpl) LoadTrack(t Track) { s.dispatch(LoadTrack{Track: t}) }

// Start resumes or restarts the current track.
func (s *serviceImpl) Start() { s.dispatch(Start{}) }

// Pause pauses the running track.
func (s *serviceImpl) Pause() { s.dispatch(Pause{}) }

// Stop stops and rewinds the current track.
func (s *serviceImpl) Stop() { s.dispatch(Stop{}) }

// Toggle pauses a running track and starts a paused or stopped one.
func (s *serviceImpl) Toggle() { s.dispatch(Toggle{}) }

func (s *serviceImpl) ReportFailure(generation uint64, err error) {
	s.dispatch(Fail{Generation: generation, Err: err})
}

func (s *serviceImpl) Snapshot() State      { return s.query.Snapshot() }
func (s *serviceImpl) CurrentTrack() *Track { return s.query.CurrentTrack() }
func (s *serviceImpl) CurrentPhase() Phase  { return s.query.CurrentPhase() }
func (s *serviceImpl) CurrentElapsed() int  { return s.query.CurrentElapsed() }

// RegisterObserver adds a facet observer. It immediately receives the
// current track, phase and elapsed time.
func (s *serviceImpl) RegisterObserver(name string, o Observer) ObserverID {
	return s.registry.AddObserver(name, o)
}

// Register adds a snapshot observer. It immediately receives the current state.
func (s *serviceImpl) Register(name string, deliver DeliverFunc) ObserverID {
	return s.registry.Add(name, deliver)
}

// UnregisterObserver removes an observer. Unknown ids are ignored.
func (s *serviceImpl) UnregisterObserver(id ObserverID) {
	if id == s.driverID && id != 0 {
		return
	}
	s.registry.Remove(id)
}

// Watch opens a conflated stream of committed states.
func (s *serviceImpl) Watch() *Stream {
	return s.store.Watch()
}

func (s *serviceImpl) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close stops the clock, drops every observer and closes open streams.
func (s *serviceImpl) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.clock.Close()
	s.registry.Close()
	s.store.close()
	return nil
}
