package playback

import "sync"

// Stream delivers the latest committed state to one consumer.
//
// It holds a single slot: when several commits happen before the consumer
// reads, only the most recent one is kept. Values are always observed in
// commit order, but intermediate values may be skipped.
type Stream struct {
	// Updates receives the latest state. It is closed by Close.
	Updates <-chan State

	ch     chan State
	closed bool
	mu     sync.Mutex
	owner  *streamSet
}

// Close detaches the stream from the store and closes Updates.
// It is safe to call Close more than once.
func (s *Stream) Close() {
	s.owner.remove(s)
	s.shut()
}

func (s *Stream) shut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// offer replaces any unread value with st. It never blocks.
func (s *Stream) offer(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	// Drop the pending value, if any, then publish the new one.
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- st:
	default:
	}
}

// streamSet is the set of open streams of a store.
type streamSet struct {
	mu      sync.Mutex
	streams map[*Stream]struct{}
	closed  bool
}

func newStreamSet() *streamSet {
	return &streamSet{streams: make(map[*Stream]struct{})}
}

// open creates a stream primed with the current state.
// Once the set is closed, the stream comes back already shut.
func (ss *streamSet) open(current State) *Stream {
	ch := make(chan State, 1)
	s := &Stream{Updates: ch, ch: ch, owner: ss}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.closed {
		s.shut()
		return s
	}
	s.offer(current)
	ss.streams[s] = struct{}{}
	return s
}

func (ss *streamSet) remove(s *Stream) {
	ss.mu.Lock()
	delete(ss.streams, s)
	ss.mu.Unlock()
}

func (ss *streamSet) publish(st State) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	for s := range ss.streams {
		s.offer(st)
	}
}

func (ss *streamSet) closeAll() {
	ss.mu.Lock()
	streams := make([]*Stream, 0, len(ss.streams))
	for s := range ss.streams {
		streams = append(streams, s)
	}
	ss.streams = make(map[*Stream]struct{})
	ss.closed = true
	ss.mu.Unlock()

	for _, s := range streams {
		s.shut()
	}
}
