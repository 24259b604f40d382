package playback

import (
	"sync"
	"sync/atomic"
)

// CommitHook is notified of every committed state, in commit order.
// Hooks run inside the writer and must not block or call back into the store.
type CommitHook func(State)

// Store owns the current session state.
//
// All writes go through Dispatch, which runs under a single mutex: commits
// never interleave and readers never see a partially applied state.
// Reads are lock-free.
type Store struct {
	mu      sync.Mutex // serializes writers
	current atomic.Pointer[State]
	hooks   []CommitHook
	streams *streamSet
}

// NewStore creates a store holding the default state
// (no track, stopped, zero elapsed, generation 0).
func NewStore(hooks ...CommitHook) *Store {
	s := &Store{
		hooks:   hooks,
		streams: newStreamSet(),
	}
	s.current.Store(&State{Phase: PhaseStopped})
	return s
}

// OnCommit appends a hook. Hooks run in registration order.
func (s *Store) OnCommit(h CommitHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Snapshot returns the latest committed state. It never blocks.
func (s *Store) Snapshot() State {
	return *s.current.Load()
}

// Dispatch applies c to the current state and commits the result.
// It returns the resulting state and whether a commit happened.
func (s *Store) Dispatch(c Command) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, changed := Apply(s.Snapshot(), c)
	if !changed {
		return next, false
	}
	s.commitLocked(next)
	return next, true
}

// dispatchWhen is Dispatch guarded by live, which is evaluated under the
// writer lock. When live reports false nothing is applied.
func (s *Store) dispatchWhen(c Command, live func() bool) (State, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !live() {
		return s.Snapshot(), false
	}
	next, changed := Apply(s.Snapshot(), c)
	if !changed {
		return next, false
	}
	s.commitLocked(next)
	return next, true
}

func (s *Store) commitLocked(next State) {
	s.current.Store(&next)
	for _, h := range s.hooks {
		h(next)
	}
	s.streams.publish(next)
}

// Watch opens a conflated stream primed with the current state.
// After close it returns a stream whose Updates is already closed.
func (s *Store) Watch() *Stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams.open(s.Snapshot())
}

// close closes every open stream.
func (s *Store) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams.closeAll()
}
