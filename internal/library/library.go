// Package library stores captured photos as JPEG files with a sqlite index.
package library

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS photos (
    id          TEXT PRIMARY KEY,
    file_name   TEXT NOT NULL,
    taken_ns    INTEGER NOT NULL,
    width       INTEGER NOT NULL,
    height      INTEGER NOT NULL,
    file_size   INTEGER NOT NULL,
    lut         TEXT,
    position    TEXT NOT NULL,
    mode        TEXT NOT NULL,
    zoom        REAL NOT NULL,
    flash       INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_photos_taken ON photos(taken_ns);
`

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("photo not found")

// Meta describes how a photo was taken.
type Meta struct {
	LUT      string    `json:"lut,omitempty"`
	Position string    `json:"position"`
	Mode     string    `json:"mode"`
	Zoom     float64   `json:"zoom"`
	Flash    bool      `json:"flash"`
	TakenAt  time.Time `json:"taken_at"`
}

type Record struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
	Meta
}

type Library struct {
	dir     string
	db      *sql.DB
	Quality int
}

// Open creates dir if needed and opens its index.
func Open(dir string) (*Library, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create library directory: %w", err)
	}
	db, err := sql.Open("sqlite3", filepath.Join(dir, "library.db")+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Library{dir: dir, db: db, Quality: 92}, nil
}

func (l *Library) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}

// Dir is the directory holding the photos.
func (l *Library) Dir() string { return l.dir }

// Save writes img as a JPEG and indexes it. The returned id names the photo.
func (l *Library) Save(ctx context.Context, img image.Image, m Meta) (string, error) {
	if img == nil {
		return "", errors.New("no image to save")
	}
	if m.TakenAt.IsZero() {
		m.TakenAt = time.Now()
	}
	id, err := newID(m.TakenAt)
	if err != nil {
		return "", err
	}
	name := id + ".jpg"
	size, err := l.writeJPEG(name, img)
	if err != nil {
		return "", err
	}

	b := img.Bounds()
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO photos (id, file_name, taken_ns, width, height, file_size, lut, position, mode, zoom, flash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, name, m.TakenAt.UnixNano(), b.Dx(), b.Dy(), size, m.LUT, m.Position, m.Mode, m.Zoom, m.Flash,
	)
	if err != nil {
		os.Remove(filepath.Join(l.dir, name))
		return "", fmt.Errorf("insert photo: %w", err)
	}
	return id, nil
}

func (l *Library) writeJPEG(name string, img image.Image) (int64, error) {
	tmp, err := os.CreateTemp(l.dir, ".photo-*")
	if err != nil {
		return 0, fmt.Errorf("create photo file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := jpeg.Encode(tmp, img, &jpeg.Options{Quality: l.Quality}); err != nil {
		tmp.Close()
		return 0, fmt.Errorf("encode jpeg: %w", err)
	}
	st, err := tmp.Stat()
	if err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(l.dir, name)); err != nil {
		return 0, fmt.Errorf("store photo: %w", err)
	}
	return st.Size(), nil
}

func newID(t time.Time) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return t.UTC().Format("20060102T150405") + "-" + hex.EncodeToString(b[:]), nil
}

// List returns every photo, newest first.
func (l *Library) List(ctx context.Context) ([]Record, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, file_name, taken_ns, width, height, file_size, lut, position, mode, zoom, flash
		FROM photos ORDER BY taken_ns DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query photos: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := l.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns the record for id.
func (l *Library) Get(ctx context.Context, id string) (Record, error) {
	row := l.db.QueryRowContext(ctx, `
		SELECT id, file_name, taken_ns, width, height, file_size, lut, position, mode, zoom, flash
		FROM photos WHERE id = ?`, id)
	r, err := l.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	return r, err
}

type scanner interface {
	Scan(dest ...any) error
}

func (l *Library) scan(s scanner) (Record, error) {
	var (
		r      Record
		file   string
		takenN int64
		lut    sql.NullString
	)
	if err := s.Scan(&r.ID, &file, &takenN, &r.Width, &r.Height, &r.Size, &lut, &r.Position, &r.Mode, &r.Zoom, &r.Flash); err != nil {
		return Record{}, err
	}
	r.Path = filepath.Join(l.dir, file)
	r.LUT = lut.String
	r.TakenAt = time.Unix(0, takenN)
	return r, nil
}
