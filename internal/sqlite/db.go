package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection. The pool is capped at one
// connection so pragmas apply everywhere and writers in this process never
// contend with each other; cross-process contention is handled by the busy
// timeout plus the bounded retry in retry.go.
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 2000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. Idempotent, so every one-shot producer
// can call it on startup.
func (db *DB) RunMigrations() error {
	migration := `
-- Sessions: auto-increment id is the immutable identity; session_id is a
-- renamable public alias, pending_id identifies not-yet-promoted sessions.
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT,
    pending_id TEXT,
    project TEXT NOT NULL,
    original_goal TEXT NOT NULL DEFAULT '',
    current_status TEXT NOT NULL DEFAULT 'idle',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_activity TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    account_alias TEXT NOT NULL DEFAULT 'default',
    bundle_id TEXT,
    terminal_pid INTEGER,
    shell_pid INTEGER,
    window_id INTEGER
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_session_id ON sessions(session_id) WHERE session_id IS NOT NULL;
CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_pending_id ON sessions(pending_id) WHERE pending_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(current_status);
CREATE INDEX IF NOT EXISTS idx_sessions_activity ON sessions(last_activity);

-- Append-only event log
CREATE TABLE IF NOT EXISTS timeline (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_pk INTEGER NOT NULL,
    event_type TEXT NOT NULL,
    content TEXT,
    metadata_json TEXT,
    timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_pk) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_timeline_session ON timeline(session_pk, timestamp);

-- Latest todo snapshot, one row per session, overwritten wholesale
CREATE TABLE IF NOT EXISTS progress (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_pk INTEGER NOT NULL,
    todos_json TEXT,
    completed_count INTEGER NOT NULL DEFAULT 0,
    total_count INTEGER NOT NULL DEFAULT 0,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_pk) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_progress_session ON progress(session_pk);

CREATE TABLE IF NOT EXISTS pending_decisions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_pk INTEGER NOT NULL,
    question TEXT NOT NULL,
    options_json TEXT,
    context TEXT,
    resolved INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    resolved_at TIMESTAMP,
    FOREIGN KEY (session_pk) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_decisions_session ON pending_decisions(session_pk, resolved);

CREATE TABLE IF NOT EXISTS snapshots (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_pk INTEGER NOT NULL,
    last_user_message TEXT,
    last_assistant_message TEXT,
    summary_json TEXT,
    mode TEXT NOT NULL DEFAULT 'raw',
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (session_pk) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session ON snapshots(session_pk, created_at);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
