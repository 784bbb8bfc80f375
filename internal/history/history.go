// Package history keeps a ledger of past builds in a SQLite database under
// the cache root. The ledger is advisory: the build service records into it
// best-effort and a write failure never fails a build.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const defaultRecentLimit = 10

// Build is one recorded build.
type Build struct {
	ID        int64
	BuildID   string
	StartedAt time.Time
	Duration  time.Duration
	Outcome   string
	JS        int
	CSS       int
	Images    int
	Error     string
}

// Store persists build records.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens the build ledger at dbPath, creating the parent directory and
// schema if needed. Use ":memory:" for an in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize history schema: %w", err)
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		started_at INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		outcome TEXT NOT NULL,
		js INTEGER NOT NULL,
		css INTEGER NOT NULL,
		images INTEGER NOT NULL,
		error TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_started_at ON builds(started_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record appends one build to the ledger.
func (s *Store) Record(ctx context.Context, b Build) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO builds (build_id, started_at, duration_ms, outcome, js, css, images, error) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		b.BuildID, b.StartedAt.Unix(), b.Duration.Milliseconds(), b.Outcome, b.JS, b.CSS, b.Images, b.Error,
	)
	if err != nil {
		return fmt.Errorf("insert build record: %w", err)
	}

	return nil
}

// Recent returns the latest builds, newest first. A non-positive limit
// returns the default of ten.
func (s *Store) Recent(ctx context.Context, limit int) ([]Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultRecentLimit
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, build_id, started_at, duration_ms, outcome, js, css, images, error FROM builds ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query builds: %w", err)
	}
	defer rows.Close()

	var builds []Build
	for rows.Next() {
		var b Build
		var startedUnix, durationMS int64

		if err := rows.Scan(&b.ID, &b.BuildID, &startedUnix, &durationMS, &b.Outcome, &b.JS, &b.CSS, &b.Images, &b.Error); err != nil {
			return nil, fmt.Errorf("scan build record: %w", err)
		}

		b.StartedAt = time.Unix(startedUnix, 0)
		b.Duration = time.Duration(durationMS) * time.Millisecond
		builds = append(builds, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return builds, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}
