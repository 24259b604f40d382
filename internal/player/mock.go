// internal/player/mock.go
package player

import (
	"sync"
	"time"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Mock is a playback.Backend test double that records calls.
type Mock struct {
	mu       sync.Mutex
	calls    []string
	played   []playback.Track
	position time.Duration
	playErr  error
	failures chan error
}

// NewMock creates a new mock player for testing.
func NewMock() *Mock {
	return &Mock{failures: make(chan error, 1)}
}

func (m *Mock) Play(t playback.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "play")
	m.played = append(m.played, t)
	m.position = 0
	return m.playErr
}

func (m *Mock) Pause() error  { m.record("pause"); return nil }
func (m *Mock) Resume() error { m.record("resume"); return nil }
func (m *Mock) Stop() error   { m.record("stop"); return nil }

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Failures() <-chan error { return m.failures }

func (m *Mock) record(call string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Test helpers

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

// Calls returns the backend methods invoked so far, in order.
func (m *Mock) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Played returns every track passed to Play.
func (m *Mock) Played() []playback.Track {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]playback.Track(nil), m.played...)
}

// SimulateFailure reports err as if the decoder failed mid-track.
func (m *Mock) SimulateFailure(err error) {
	select {
	case m.failures <- err:
	default:
	}
}

// Verify Mock implements playback.Backend at compile time.
var _ playback.Backend = (*Mock)(nil)
