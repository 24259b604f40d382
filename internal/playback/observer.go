package playback

import "errors"

// ErrObserverGone is returned by a delivery when the observer can no longer
// receive notifications (closed connection, vanished peer). The registry
// removes the observer when it sees this error.
var ErrObserverGone = errors.New("observer gone")

// ObserverID identifies a registered observer.
type ObserverID uint64

// DeliverFunc receives full state snapshots.
type DeliverFunc func(State) error

// Observer receives per-facet change notifications.
// Each method is only called when that facet actually changed.
type Observer interface {
	TrackChanged(t *Track) error
	PhaseChanged(p Phase) error
	ElapsedChanged(seconds int) error
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnTrack   func(*Track) error
	OnPhase   func(Phase) error
	OnElapsed func(int) error
}

func (o ObserverFuncs) TrackChanged(t *Track) error {
	if o.OnTrack == nil {
		return nil
	}
	return o.OnTrack(t)
}

func (o ObserverFuncs) PhaseChanged(p Phase) error {
	if o.OnPhase == nil {
		return nil
	}
	return o.OnPhase(p)
}

func (o ObserverFuncs) ElapsedChanged(seconds int) error {
	if o.OnElapsed == nil {
		return nil
	}
	return o.OnElapsed(seconds)
}

// facetFilter turns full snapshots into facet notifications.
// Each facet is compared only against its own previous value.
type facetFilter struct {
	obs  Observer
	last *State
}

func (f *facetFilter) deliver(s State) error {
	first := f.last == nil
	if first || !sameTrack(*f.last, s) {
		if err := f.obs.TrackChanged(s.Track); err != nil {
			return err
		}
	}
	if first || f.last.Phase != s.Phase {
		if err := f.obs.PhaseChanged(s.Phase); err != nil {
			return err
		}
	}
	if first || f.last.Elapsed != s.Elapsed {
		if err := f.obs.ElapsedChanged(s.Elapsed); err != nil {
			return err
		}
	}
	f.last = &s
	return nil
}
