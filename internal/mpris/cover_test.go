//go:build linux

package mpris

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("fake"), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestFindAlbumArt(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  string
	}{
		{"none", nil, ""},
		{"cover", []string{"cover.jpg"}, "cover.jpg"},
		{"priority", []string{"folder.jpg", "cover.png"}, "cover.png"},
		{"case insensitive", []string{"Folder.JPG"}, "Folder.JPG"},
		{"unrelated images ignored", []string{"scan01.jpg"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				touch(t, filepath.Join(dir, f))
			}

			want := ""
			if tt.want != "" {
				want = filepath.Join(dir, tt.want)
			}
			if got := FindAlbumArt(filepath.Join(dir, "track.mp3")); got != want {
				t.Errorf("FindAlbumArt() = %q, want %q", got, want)
			}
		})
	}
}

func TestFindAlbumArt_MissingDirectory(t *testing.T) {
	if got := FindAlbumArt("/nonexistent/dir/track.mp3"); got != "" {
		t.Errorf("FindAlbumArt() = %q, want empty string", got)
	}
}
