package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one research run.
type Entry struct {
	ID             string
	NotePath       string // relative to the vault root when inside it
	Classification string
	Status         string
	Error          string
	Model          string
	ArchivePath    string
	CreatedAt      time.Time
}

// Store manages the research history database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id             TEXT PRIMARY KEY,
	note_path      TEXT NOT NULL,
	classification TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	model          TEXT NOT NULL DEFAULT '',
	archive_path   TEXT NOT NULL DEFAULT '',
	created_at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS runs_note_path ON runs (note_path, status);
CREATE INDEX IF NOT EXISTS runs_created_at ON runs (created_at);
`

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure history: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e, filling in ID and CreatedAt when unset. Returns the
// stored entry.
func (s *Store) Record(ctx context.Context, e Entry) (Entry, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, note_path, classification, status, error, model, archive_path, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.NotePath, e.Classification, e.Status, e.Error, e.Model, e.ArchivePath, e.CreatedAt.UnixNano())
	if err != nil {
		return e, fmt.Errorf("record run: %w", err)
	}
	return e, nil
}

const selectRuns = `SELECT id, note_path, classification, status, error, model, archive_path, created_at FROM runs`

// Recent returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := selectRuns + ` ORDER BY created_at DESC`
	var args []any
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LastSuccess returns the newest successful run for notePath, or nil.
func (s *Store) LastSuccess(ctx context.Context, notePath string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		selectRuns+` WHERE note_path = ? AND status = ? ORDER BY created_at DESC LIMIT 1`,
		notePath, StatusOK)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Count returns the number of recorded runs.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count runs: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var created int64
	err := sc.Scan(&e.ID, &e.NotePath, &e.Classification, &e.Status, &e.Error, &e.Model, &e.ArchivePath, &created)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return e, err
		}
		return e, fmt.Errorf("scan run: %w", err)
	}
	e.CreatedAt = time.Unix(0, created)
	return e, nil
}
