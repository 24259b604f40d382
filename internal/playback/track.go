package playback

import (
	"fmt"
	"time"
)

// Track describes one playable item.
// It is a flat value: every field is a primitive or a string, so it can be
// copied across goroutines and serialized across process boundaries as is.
type Track struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album"`
	Duration    int    `json:"duration"` // seconds
	Source      string `json:"source"`   // file path or URI
	TrackNumber int    `json:"track_number"`
	ContentType string `json:"content_type"`
}

// Length returns the duration as a time.Duration.
func (t Track) Length() time.Duration {
	return time.Duration(t.Duration) * time.Second
}

// FormatSeconds renders seconds as mm:ss (minutes are not capped at 59).
func FormatSeconds(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
