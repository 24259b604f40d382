//go:build !linux

package mpris

import (
	"go.uber.org/zap"

	"github.com/llehouerou/wavelet/internal/playback"
)

// Opener turns an OpenUri request into a track.
type Opener func(uri string) (playback.Track, error)

// Adapter is a no-op on non-Linux platforms.
type Adapter struct{}

// New returns a no-op adapter on non-Linux platforms.
func New(_ playback.Service, _ Opener, _ *zap.Logger) (*Adapter, error) {
	return &Adapter{}, nil
}

// Close is a no-op on non-Linux platforms.
func (a *Adapter) Close() error {
	return nil
}
