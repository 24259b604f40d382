package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dhowden/tag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/llehouerou/wavelet/internal/playback"
	"github.com/llehouerou/wavelet/internal/player"
)

const numWorkers = 8

// probe is swapped in tests that have no decodable audio.
var probe = player.Probe

// ReadFile builds a track from the tags and decoded length of path.
// Missing tags fall back to the file name.
func ReadFile(path string) (playback.Track, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return playback.Track{}, err
	}
	length, err := probe(abs)
	if err != nil {
		return playback.Track{}, fmt.Errorf("probe %s: %w", abs, err)
	}

	t := playback.Track{
		Title:       strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs)),
		Duration:    int(math.Round(length.Seconds())),
		Source:      "file://" + abs,
		ContentType: player.ContentTypes[strings.ToLower(filepath.Ext(abs))],
	}

	f, err := os.Open(abs)
	if err != nil {
		return playback.Track{}, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// Untagged files are still playable.
		return t, nil //nolint:nilerr // tags are optional
	}
	if m.Title() != "" {
		t.Title = m.Title()
	}
	t.Artist = m.Artist()
	if t.Artist == "" {
		t.Artist = m.AlbumArtist()
	}
	t.Album = m.Album()
	t.TrackNumber, _ = m.Track()
	return t, nil
}

// ImportResult summarizes an Import run.
type ImportResult struct {
	Added  []playback.Track
	Failed map[string]error
}

// Import reads every music file under paths (files or directories) and
// stores them. Unreadable files are reported in Failed and skipped.
func (c *Catalog) Import(ctx context.Context, paths ...string) (ImportResult, error) {
	files, err := discover(paths)
	if err != nil {
		return ImportResult{}, err
	}

	var (
		mu     sync.Mutex
		tracks = make([]playback.Track, 0, len(files))
		failed = make(map[string]error)
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(numWorkers)
	for _, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			t, err := ReadFile(path)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed[path] = err
				c.logger.Warn("skipping file", zap.String("path", path), zap.Error(err))
				return nil
			}
			tracks = append(tracks, t)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ImportResult{}, err
	}

	ids, err := c.AddAll(ctx, tracks)
	if err != nil {
		return ImportResult{}, err
	}
	for i := range tracks {
		tracks[i].ID = ids[i]
	}
	c.logger.Info("import finished",
		zap.Int("added", len(tracks)),
		zap.Int("failed", len(failed)))
	return ImportResult{Added: tracks, Failed: failed}, nil
}

// discover expands directories into the music files they contain.
func discover(paths []string) ([]string, error) {
	var files []string
	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, root)
			continue
		}
		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && player.IsMusicFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
