//go:build !linux

package notify

// albumArt returns empty on non-Linux platforms.
// Desktop notifications are only supported on Linux via D-Bus.
func albumArt(_ string) string {
	return ""
}
