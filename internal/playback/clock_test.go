package playback

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
)

// clockHarness wires a Clock to a Store the way the service does.
type clockHarness struct {
	store *Store
	clock *Clock

	mu    sync.Mutex
	ticks []Tick
}

func newClockHarness() *clockHarness {
	h := &clockHarness{store: NewStore()}
	h.clock = NewClock(time.Second, h.store.Snapshot, func(t Tick, live func() bool) {
		h.mu.Lock()
		h.ticks = append(h.ticks, t)
		h.mu.Unlock()
		h.store.dispatchWhen(t, live)
	})
	h.store.OnCommit(h.clock.Observe)
	return h
}

func (h *clockHarness) tickCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ticks)
}

func TestClock_AdvancesOncePerInterval(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		defer h.clock.Close()

		h.store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		time.Sleep(3500 * time.Millisecond)
		synctest.Wait()

		assert.Equal(t, 3, h.store.Snapshot().Elapsed)
		assert.Equal(t, 3, h.tickCount())
	})
}

func TestClock_StopsWhenPausedAndResumes(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		defer h.clock.Close()

		h.store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		time.Sleep(2500 * time.Millisecond)
		h.store.Dispatch(Pause{})
		synctest.Wait()

		_, armed := h.clock.Armed()
		assert.False(t, armed)

		time.Sleep(10 * time.Second)
		synctest.Wait()
		assert.Equal(t, 2, h.store.Snapshot().Elapsed)

		h.store.Dispatch(Start{})
		time.Sleep(2500 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 4, h.store.Snapshot().Elapsed)
	})
}

func TestClock_AutoStopsAtEndOfTrack(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		defer h.clock.Close()

		h.store.Dispatch(LoadTrack{Track: testTrack(1, 5)})
		time.Sleep(10 * time.Second)
		synctest.Wait()

		s := h.store.Snapshot()
		assert.Equal(t, PhaseStopped, s.Phase)
		assert.Equal(t, 0, s.Elapsed)
		assert.Equal(t, 5, h.tickCount(), "no ticks after the track stopped")

		_, armed := h.clock.Armed()
		assert.False(t, armed)
	})
}

func TestClock_RearmsOnNewGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		defer h.clock.Close()

		h.store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		time.Sleep(2500 * time.Millisecond)
		h.store.Dispatch(LoadTrack{Track: testTrack(2, 60)})
		synctest.Wait()

		gen, armed := h.clock.Armed()
		assert.True(t, armed)
		assert.Equal(t, uint64(2), gen)

		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		s := h.store.Snapshot()
		assert.Equal(t, int64(2), s.Track.ID)
		assert.Equal(t, 1, s.Elapsed)
	})
}

func TestClock_TicksCarryLiveGeneration(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		defer h.clock.Close()

		h.store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		h.store.Dispatch(LoadTrack{Track: testTrack(2, 60)})
		h.store.Dispatch(LoadTrack{Track: testTrack(3, 60)})
		time.Sleep(4500 * time.Millisecond)
		synctest.Wait()

		h.mu.Lock()
		defer h.mu.Unlock()
		for _, tk := range h.ticks {
			assert.Equal(t, uint64(3), tk.Generation)
		}
		assert.Equal(t, 4, h.store.Snapshot().Elapsed)
	})
}

func TestClock_ReplacedLoopDoesNotTick(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		store := NewStore()
		var once sync.Once
		// Pause and Start land after the first loop woke up but before it
		// reads the state, so it sees the same generation still running.
		current := func() State {
			once.Do(func() {
				store.Dispatch(Pause{})
				store.Dispatch(Start{})
			})
			return store.Snapshot()
		}
		clock := NewClock(time.Second, current, func(t Tick, live func() bool) {
			store.dispatchWhen(t, live)
		})
		store.OnCommit(clock.Observe)
		defer clock.Close()

		store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		time.Sleep(1500 * time.Millisecond)
		synctest.Wait()
		assert.Equal(t, 0, store.Snapshot().Elapsed)

		time.Sleep(time.Second)
		synctest.Wait()
		assert.Equal(t, 1, store.Snapshot().Elapsed)
	})
}

func TestClock_CloseDisarms(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		h := newClockHarness()
		h.store.Dispatch(LoadTrack{Track: testTrack(1, 60)})
		h.clock.Close()

		time.Sleep(5 * time.Second)
		synctest.Wait()
		assert.Equal(t, 0, h.tickCount())

		// Observing after Close must not re-arm.
		h.store.Dispatch(LoadTrack{Track: testTrack(2, 60)})
		_, armed := h.clock.Armed()
		assert.False(t, armed)
	})
}

func TestNewClock_DefaultInterval(t *testing.T) {
	c := NewClock(0, func() State { return State{} }, func(Tick, func() bool) {})
	assert.Equal(t, DefaultTickInterval, c.interval)
}
