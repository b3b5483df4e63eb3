// Package storage provides the embedded SQLite storage layer for Overseer.
//
// A single database file holds two append-only tables: action_events (one
// row per observed agent action) and session_reviews (one row per completed
// session). The file lives at a well-known local path and is shared between
// the supervisor process (writer) and the dashboard (readers); WAL journal
// mode lets readers poll without blocking the writer and vice versa.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite handle and tracks whether the schema has been
// established. Writes before Initialize fail with ErrNotInitialized;
// reads degrade to empty results while the tables are absent.
type Store struct {
	db          *sql.DB
	logger      *slog.Logger
	initialized atomic.Bool
}

// Open opens (creating if necessary) the database file at path. WAL mode
// and a busy timeout are set through the DSN so every pooled connection
// carries them. Open does not create the schema — call Initialize before
// the first write.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create data dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: ping %s: %w", path, err)
	}

	return &Store{db: db, logger: logger}, nil
}

// schema creates both tables plus the indexes the query engine's filter
// combinations rely on. AUTOINCREMENT is deliberate: ids must be
// monotonically increasing and never reused, even after retention deletes.
const schema = `
CREATE TABLE IF NOT EXISTS action_events (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TEXT    NOT NULL,
	session_id    TEXT    NOT NULL DEFAULT '',
	action_type   TEXT    NOT NULL,
	target        TEXT    NOT NULL DEFAULT '',
	amount        REAL    NOT NULL DEFAULT 0,
	description   TEXT    NOT NULL DEFAULT '',
	verdict       TEXT    NOT NULL,
	reason        TEXT    NOT NULL DEFAULT '',
	key_was_valid INTEGER NOT NULL DEFAULT 0,
	tier          INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_action_events_timestamp   ON action_events(timestamp);
CREATE INDEX IF NOT EXISTS idx_action_events_session_id  ON action_events(session_id);
CREATE INDEX IF NOT EXISTS idx_action_events_action_type ON action_events(action_type);
CREATE INDEX IF NOT EXISTS idx_action_events_verdict     ON action_events(verdict);
CREATE INDEX IF NOT EXISTS idx_action_events_tier        ON action_events(tier);

CREATE TABLE IF NOT EXISTS session_reviews (
	id                         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp                  TEXT NOT NULL,
	session_id                 TEXT NOT NULL DEFAULT '',
	overall_grade              TEXT NOT NULL DEFAULT '',
	overall_score              REAL NOT NULL DEFAULT 0,
	goal_alignment_score       REAL NOT NULL DEFAULT 0,
	security_compliance_score  REAL NOT NULL DEFAULT 0,
	constraint_adherence_score REAL NOT NULL DEFAULT 0,
	total_actions              INTEGER NOT NULL DEFAULT 0,
	verified_actions           INTEGER NOT NULL DEFAULT 0,
	blocked_actions            INTEGER NOT NULL DEFAULT 0,
	highlights                 TEXT NOT NULL DEFAULT '{}',
	insights                   TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS idx_session_reviews_timestamp ON session_reviews(timestamp);
`

// Initialize idempotently ensures the schema exists. Safe to call when the
// file is brand new, empty, or already correctly shaped.
func (s *Store) Initialize(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("storage: initialize schema: %w", err)
	}
	s.initialized.Store(true)
	return nil
}

// Initialized reports whether Initialize has completed on this handle.
func (s *Store) Initialized() bool {
	return s.initialized.Load()
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// timestampLayout is the canonical format for store-assigned times.
// Caller-supplied event timestamps are persisted verbatim.
const timestampLayout = time.RFC3339

func nowUTC() string {
	return time.Now().UTC().Format(timestampLayout)
}

// isMissingTable reports whether err means the backing table has never
// been created. Readers treat this as the documented "no data yet" state
// rather than a failure.
func isMissingTable(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such table")
}
