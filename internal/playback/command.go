package playback

// Command is an input to the session state machine.
//
// Commands whose precondition does not hold are no-ops, never errors:
//
//	┌──────────┐   LoadTrack / Start    ┌──────────┐
//	│ Stopped  │ ─────────────────────▶ │ Running  │ ◀── LoadTrack (any phase)
//	└──────────┘                        └──────────┘
//	     ▲  ▲                             │     ▲
//	     │  │ Stop, Fail, last Tick  Pause│     │Start
//	     │  │                             ▼     │
//	     │  └────────────────────────── ┌──────────┐
//	     └──────────────── Stop, Fail ─ │  Paused  │
//	                                    └──────────┘
//
// Tick and Fail carry the generation they were issued under and are dropped
// when it no longer matches the live generation.
type Command interface {
	// Name identifies the command in logs.
	Name() string
	apply(s State) State
}

// LoadTrack replaces the current track and starts it from zero.
type LoadTrack struct {
	Track Track
}

// Start resumes a paused track or restarts a stopped one.
type Start struct{}

// Pause pauses a running track.
type Pause struct{}

// Stop stops the track and rewinds it.
type Stop struct{}

// Toggle pauses when running and starts otherwise.
type Toggle struct{}

// Tick advances elapsed time by one second for the given generation.
type Tick struct {
	Generation uint64
}

// Fail reports a backend failure for the given generation.
// The track is cleared and the session stops.
type Fail struct {
	Generation uint64
	Err        error
}

func (LoadTrack) Name() string { return "load" }
func (Start) Name() string     { return "start" }
func (Pause) Name() string     { return "pause" }
func (Stop) Name() string      { return "stop" }
func (Toggle) Name() string    { return "toggle" }
func (Tick) Name() string      { return "tick" }
func (Fail) Name() string      { return "fail" }

func (c LoadTrack) apply(s State) State {
	t := c.Track
	t.Duration = max(t.Duration, 0)
	return State{
		Track:      &t,
		Phase:      PhaseRunning,
		Elapsed:    0,
		Generation: s.Generation + 1,
	}
}

func (Start) apply(s State) State {
	if s.Track == nil || s.Phase == PhaseRunning {
		return s
	}
	s.Phase = PhaseRunning
	return s
}

func (Pause) apply(s State) State {
	if s.Phase != PhaseRunning {
		return s
	}
	s.Phase = PhasePaused
	return s
}

func (Stop) apply(s State) State {
	if !s.Phase.IsActive() {
		return s
	}
	s.Phase = PhaseStopped
	s.Elapsed = 0
	return s
}

func (Toggle) apply(s State) State {
	if s.Phase == PhaseRunning {
		return Pause{}.apply(s)
	}
	return Start{}.apply(s)
}

func (c Tick) apply(s State) State {
	if c.Generation != s.Generation || s.Phase != PhaseRunning || s.Track == nil {
		return s
	}
	next := s.Elapsed + 1
	if next >= s.Track.Duration {
		s.Phase = PhaseStopped
		s.Elapsed = 0
		return s
	}
	s.Elapsed = next
	return s
}

func (c Fail) apply(s State) State {
	if c.Generation != s.Generation {
		return s
	}
	if s.Track == nil && s.Phase == PhaseStopped {
		return s
	}
	return State{Phase: PhaseStopped, Generation: s.Generation}
}

// Apply computes the state that follows s under c.
// The returned flag is false when c was a no-op or was discarded as stale.
func Apply(s State, c Command) (State, bool) {
	next := c.apply(s)
	return next, next != s
}
