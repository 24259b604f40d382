package playback

import (
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DefaultSnapshot(t *testing.T) {
	s := NewStore()

	got := s.Snapshot()
	assert.Nil(t, got.Track)
	assert.Equal(t, PhaseStopped, got.Phase)
	assert.Equal(t, 0, got.Elapsed)
	assert.Equal(t, uint64(0), got.Generation)
}

func TestStore_HooksRunInOrderOncePerCommit(t *testing.T) {
	var calls []string
	s := NewStore()
	s.OnCommit(func(State) { calls = append(calls, "clock") })
	s.OnCommit(func(State) { calls = append(calls, "registry") })

	s.Dispatch(LoadTrack{Track: testTrack(1, 10)})
	s.Dispatch(Pause{})

	assert.Equal(t, []string{"clock", "registry", "clock", "registry"}, calls)
}

func TestStore_NoOpCommandDoesNotCommit(t *testing.T) {
	var commits int
	s := NewStore(func(State) { commits++ })

	_, changed := s.Dispatch(Pause{})
	assert.False(t, changed)
	_, changed = s.Dispatch(Tick{Generation: 3})
	assert.False(t, changed)

	assert.Equal(t, 0, commits)
}

func TestStore_HooksSeeCommittedSnapshot(t *testing.T) {
	s := NewStore()
	var seen State
	s.OnCommit(func(st State) { seen = st })

	next, _ := s.Dispatch(LoadTrack{Track: testTrack(9, 10)})

	assert.Equal(t, next, seen)
	assert.Equal(t, next, s.Snapshot())
}

func TestStore_ConcurrentDispatchSerializes(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			s.Dispatch(LoadTrack{Track: testTrack(1, 10)})
		})
	}
	wg.Wait()

	assert.Equal(t, uint64(50), s.Snapshot().Generation)
}

func TestStore_WatchStartsWithCurrentState(t *testing.T) {
	s := NewStore()
	s.Dispatch(LoadTrack{Track: testTrack(1, 10)})

	w := s.Watch()
	defer w.Close()

	got := <-w.Updates
	assert.Equal(t, uint64(1), got.Generation)
}

func TestStore_WatchConflatesForSlowConsumer(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		s := NewStore()
		s.Dispatch(LoadTrack{Track: testTrack(1, 1000)})
		gen := s.Snapshot().Generation

		w := s.Watch()
		defer w.Close()

		var seen []State
		done := make(chan struct{})
		go func() {
			defer close(done)
			for st := range w.Updates {
				seen = append(seen, st)
				time.Sleep(10 * time.Millisecond) // slow consumer
			}
		}()

		const commits = 200
		for range commits {
			s.Dispatch(Tick{Generation: gen})
			time.Sleep(time.Millisecond)
		}
		time.Sleep(time.Second)
		w.Close()
		<-done

		require.NotEmpty(t, seen)
		assert.Less(t, len(seen), commits+1, "slow consumer should skip values")
		for i := 1; i < len(seen); i++ {
			assert.Greater(t, seen[i].Elapsed, seen[i-1].Elapsed, "values out of order at %d", i)
		}
		assert.Equal(t, s.Snapshot(), seen[len(seen)-1])
	})
}

func TestStore_CloseClosesStreams(t *testing.T) {
	s := NewStore()
	w := s.Watch()
	<-w.Updates

	s.close()

	_, ok := <-w.Updates
	assert.False(t, ok)
	w.Close() // second close is safe
}

func TestStore_WatchAfterCloseIsClosed(t *testing.T) {
	s := NewStore()
	s.close()

	w := s.Watch()
	_, ok := <-w.Updates
	assert.False(t, ok)
	assert.Empty(t, s.streams.streams)

	s.Dispatch(LoadTrack{Track: testTrack(1, 60)})
	w.Close()
}
