// Package catalog persists the local music library used for local-match lookups.
package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"djfriend/pkg/fuzzy"
)

//go:embed schema.sql
var schemaSQL string

// Store is a SQLite-backed fuzzy.Catalog.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the catalog database at path and applies the schema.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Path() string {
	return s.path
}

// Upsert inserts or updates entries in one transaction and returns how many were written.
func (s *Store) Upsert(ctx context.Context, entries []fuzzy.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tracks (id, artist, title, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET artist = excluded.artist, title = excluded.title, updated_at = excluded.updated_at`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	written := 0
	for _, e := range entries {
		if e.ID == "" || e.Title == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, e.ID, e.Artist, e.Title, now); err != nil {
			return 0, fmt.Errorf("upsert %s: %w", e.ID, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return written, nil
}

// Scan calls fn for every entry in insertion order until fn returns false.
func (s *Store) Scan(ctx context.Context, fn func(fuzzy.Entry) bool) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, artist, title FROM tracks ORDER BY rowid`)
	if err != nil {
		return fmt.Errorf("query tracks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e fuzzy.Entry
		if err := rows.Scan(&e.ID, &e.Artist, &e.Title); err != nil {
			return fmt.Errorf("scan track: %w", err)
		}
		if !fn(e) {
			return nil
		}
	}
	return rows.Err()
}

func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count tracks: %w", err)
	}
	return n, nil
}

// ArtistCount returns the number of distinct artists in the catalog.
func (s *Store) ArtistCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT LOWER(artist)) FROM tracks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count artists: %w", err)
	}
	return n, nil
}

// Prune deletes entries whose IDs are not in keep and returns how many were removed.
func (s *Store) Prune(ctx context.Context, keep []fuzzy.Entry) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS keep_ids (id TEXT PRIMARY KEY)`); err != nil {
		return 0, fmt.Errorf("create temp table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM keep_ids`); err != nil {
		return 0, fmt.Errorf("reset temp table: %w", err)
	}
	for _, e := range keep {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO keep_ids (id) VALUES (?)`, e.ID); err != nil {
			return 0, fmt.Errorf("stage id: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM tracks WHERE id NOT IN (SELECT id FROM keep_ids)`)
	if err != nil {
		return 0, fmt.Errorf("prune tracks: %w", err)
	}
	removed, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return int(removed), nil
}
