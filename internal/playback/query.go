package playback

// Query answers one-shot questions about the session.
// Every method reads the latest committed snapshot and returns immediately.
//
// Query must not be used from a CommitHook: hooks run inside the writer.
type Query struct {
	store *Store
}

// NewQuery returns a read-only view of store.
func NewQuery(store *Store) Query {
	return Query{store: store}
}

// Snapshot returns the full current state.
func (q Query) Snapshot() State {
	return q.store.Snapshot()
}

// CurrentTrack returns a copy of the loaded track, or nil.
func (q Query) CurrentTrack() *Track {
	s := q.store.Snapshot()
	if s.Track == nil {
		return nil
	}
	t := *s.Track
	return &t
}

// CurrentPhase returns the current phase.
func (q Query) CurrentPhase() Phase {
	return q.store.Snapshot().Phase
}

// CurrentElapsed returns the elapsed seconds of the current track.
func (q Query) CurrentElapsed() int {
	return q.store.Snapshot().Elapsed
}
