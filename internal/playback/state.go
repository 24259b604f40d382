// internal/playback/state.go
package playback

import "fmt"

// Phase represents the playback phase of the session.
type Phase int

const (
	PhaseStopped Phase = iota
	PhasePaused
	PhaseRunning
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "Stopped"
	case PhasePaused:
		return "Paused"
	case PhaseRunning:
		return "Running"
	default:
		return "Unknown"
	}
}

// IsActive returns true if a track is engaged (running or paused).
func (p Phase) IsActive() bool {
	return p == PhaseRunning || p == PhasePaused
}

// ParsePhase maps a phase name back to its value.
func ParsePhase(s string) (Phase, bool) {
	switch s {
	case "Stopped":
		return PhaseStopped, true
	case "Paused":
		return PhasePaused, true
	case "Running":
		return PhaseRunning, true
	default:
		return PhaseStopped, false
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(b []byte) error {
	v, ok := ParsePhase(string(b))
	if !ok {
		return fmt.Errorf("unknown phase %q", b)
	}
	*p = v
	return nil
}

// State is an immutable snapshot of the session.
//
// Invariants:
//   - Elapsed is within [0, Track.Duration] when Track is set, 0 otherwise.
//   - Phase == PhaseStopped implies Elapsed == 0.
//   - Generation only moves on LoadTrack, by exactly one.
//
// The Track pointer is shared between snapshots and must not be modified.
type State struct {
	Track      *Track `json:"track"`
	Phase      Phase  `json:"phase"`
	Elapsed    int    `json:"elapsed"`
	Generation uint64 `json:"generation"`
}

// HasTrack returns true if a track is loaded.
func (s State) HasTrack() bool {
	return s.Track != nil
}

// Progress returns elapsed time as a fraction of the track duration (0-1).
func (s State) Progress() float64 {
	if s.Track == nil || s.Track.Duration <= 0 {
		return 0
	}
	return float64(s.Elapsed) / float64(s.Track.Duration)
}

// sameTrack reports whether a and b refer to the same loaded track episode.
// A reload of an identical track is a new episode because the generation moves.
func sameTrack(a, b State) bool {
	if a.Generation != b.Generation {
		return false
	}
	switch {
	case a.Track == nil && b.Track == nil:
		return true
	case a.Track == nil || b.Track == nil:
		return false
	default:
		return *a.Track == *b.Track
	}
}
