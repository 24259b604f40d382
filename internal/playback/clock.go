package playback

import (
	"sync"
	"time"
)

// DefaultTickInterval is the wall-clock time per elapsed playback second.
const DefaultTickInterval = time.Second

// Clock issues Tick commands while the session is running.
//
// It is armed and disarmed by Observe, which the store calls on every commit.
// A ticker loop belongs to exactly one generation; a stale loop that fires
// after a track change produces a Tick the state machine discards, and a
// loop replaced by a Pause and Start within one interval issues nothing.
type Clock struct {
	interval time.Duration
	current  func() State
	tick     TickFunc

	mu      sync.Mutex
	stop    chan struct{}
	armed   bool
	gen     uint64
	stopped bool
}

// TickFunc submits a Tick. live reports whether the issuing loop still owns
// the clock; the submitter must check it atomically with the commit.
type TickFunc func(t Tick, live func() bool)

// NewClock creates a clock. current reads the live state, tick submits a Tick.
func NewClock(interval time.Duration, current func() State, tick TickFunc) *Clock {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Clock{
		interval: interval,
		current:  current,
		tick:     tick,
	}
}

// Observe re-arms or disarms the clock for s. It never blocks.
func (c *Clock) Observe(s State) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return
	}
	if s.Phase != PhaseRunning || s.Track == nil {
		c.disarmLocked()
		return
	}
	if c.armed && c.gen == s.Generation {
		return
	}
	c.disarmLocked()
	c.armed = true
	c.gen = s.Generation
	c.stop = make(chan struct{})
	go c.run(s.Generation, c.stop)
}

// Armed reports whether a ticker loop is active, and for which generation.
func (c *Clock) Armed() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, c.armed
}

// Close disarms the clock permanently.
func (c *Clock) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked()
	c.stopped = true
}

func (c *Clock) disarmLocked() {
	if !c.armed {
		return
	}
	close(c.stop)
	c.armed = false
}

func (c *Clock) owns(stop chan struct{}) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed && c.stop == stop
}

func (c *Clock) run(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	live := func() bool { return c.owns(stop) }

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
		}
		select {
		case <-stop:
			return
		default:
		}

		// Read the live generation right before issuing.
		s := c.current()
		if s.Phase != PhaseRunning || s.Generation != gen {
			return
		}
		c.tick(Tick{Generation: s.Generation}, live)
	}
}
