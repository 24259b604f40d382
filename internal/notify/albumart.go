//go:build linux

package notify

import (
	"github.com/llehouerou/wavelet/internal/mpris"
	"github.com/llehouerou/wavelet/internal/player"
)

// albumArt returns the album art next to a track source, if any.
func albumArt(source string) string {
	return mpris.FindAlbumArt(player.SourcePath(source))
}
