// Package catalog stores the tracks a session can load.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	dbutil "github.com/llehouerou/wavelet/internal/db"
	"github.com/llehouerou/wavelet/internal/playback"
)

const trackColumns = `id, source, title, artist, album, duration, track_number, content_type`

// ErrNotFound is returned when no track has the requested id.
var ErrNotFound = errors.New("track not found")

// Catalog is a SQLite-backed track list.
type Catalog struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open opens (and migrates) the catalog at path. Use dbutil.Memory for tests.
func Open(path string, logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := dbutil.Open(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Catalog{db: db, logger: logger}, nil
}

// Close closes the database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Add inserts t, or updates the existing row with the same source.
// It returns the track id.
func (c *Catalog) Add(ctx context.Context, t playback.Track) (int64, error) {
	var id int64
	err := dbutil.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		var err error
		id, err = upsert(ctx, tx, t, time.Now().Unix())
		return err
	})
	return id, err
}

// AddAll stores tracks in a single transaction and returns their ids.
func (c *Catalog) AddAll(ctx context.Context, tracks []playback.Track) ([]int64, error) {
	ids := make([]int64, 0, len(tracks))
	now := time.Now().Unix()
	err := dbutil.WithTx(ctx, c.db, func(tx *sql.Tx) error {
		for _, t := range tracks {
			id, err := upsert(ctx, tx, t, now)
			if err != nil {
				return fmt.Errorf("add %s: %w", t.Source, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func upsert(ctx context.Context, tx *sql.Tx, t playback.Track, now int64) (int64, error) {
	if t.Source == "" {
		return 0, errors.New("track has no source")
	}
	title := t.Title
	if title == "" {
		title = filepath.Base(t.Source)
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		INSERT INTO tracks (source, title, artist, album, duration, track_number, content_type, added_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			album = excluded.album,
			duration = excluded.duration,
			track_number = excluded.track_number,
			content_type = excluded.content_type,
			updated_at = excluded.updated_at
		RETURNING id
	`, t.Source, title, dbutil.NullString(t.Artist), dbutil.NullString(t.Album), max(t.Duration, 0),
		sql.NullInt64{Int64: int64(t.TrackNumber), Valid: t.TrackNumber > 0},
		dbutil.NullString(t.ContentType), now, now).Scan(&id)
	return id, err
}

// Get returns the track with the given id.
func (c *Catalog) Get(ctx context.Context, id int64) (playback.Track, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)
	t, err := scanTrack(row)
	if errors.Is(err, sql.ErrNoRows) {
		return playback.Track{}, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return t, err
}

// List returns every track ordered by artist, album and track number.
func (c *Catalog) List(ctx context.Context) ([]playback.Track, error) {
	return c.query(ctx, `
		SELECT `+trackColumns+` FROM tracks
		ORDER BY artist COLLATE NOCASE, album COLLATE NOCASE, track_number, title COLLATE NOCASE
	`)
}

// Search returns tracks whose title, artist or album contains term.
func (c *Catalog) Search(ctx context.Context, term string) ([]playback.Track, error) {
	like := "%" + term + "%"
	return c.query(ctx, `
		SELECT `+trackColumns+` FROM tracks
		WHERE title LIKE ? OR artist LIKE ? OR album LIKE ?
		ORDER BY artist COLLATE NOCASE, album COLLATE NOCASE, track_number, title COLLATE NOCASE
	`, like, like, like)
}

// Remove deletes the track with the given id.
func (c *Catalog) Remove(ctx context.Context, id int64) error {
	res, err := c.db.ExecContext(ctx, `DELETE FROM tracks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	return nil
}

func (c *Catalog) query(ctx context.Context, q string, args ...any) ([]playback.Track, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []playback.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTrack(s scanner) (playback.Track, error) {
	var t playback.Track
	var artist, album, contentType sql.NullString
	var trackNum sql.NullInt64
	if err := s.Scan(&t.ID, &t.Source, &t.Title, &artist, &album, &t.Duration, &trackNum, &contentType); err != nil {
		return playback.Track{}, err
	}
	t.Artist = dbutil.NullStringValue(artist)
	t.Album = dbutil.NullStringValue(album)
	t.TrackNumber = int(dbutil.NullInt64Value(trackNum))
	t.ContentType = dbutil.NullStringValue(contentType)
	return t, nil
}
