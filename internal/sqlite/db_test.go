package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// newTestSession inserts a session row and returns its pk.
func newTestSession(t *testing.T, db *DB, sess *session.Session) int64 {
	t.Helper()

	if sess.Project == "" {
		sess.Project = "/tmp/demo"
	}
	if sess.Status == "" {
		sess.Status = session.StatusWorking
	}
	if sess.AccountAlias == "" {
		sess.AccountAlias = "default"
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now().UTC()
	}
	if sess.LastActivity.IsZero() {
		sess.LastActivity = sess.CreatedAt
	}

	pk, err := NewSessionRepository(db).Create(context.Background(), sess)
	require.NoError(t, err)
	return pk
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"sessions",
		"timeline",
		"progress",
		"pending_decisions",
		"snapshots",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}

// TestDeleteCascades verifies that child rows disappear with their session.
func TestDeleteCascades(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	_, err := db.ExecContext(ctx,
		`INSERT INTO timeline (session_pk, event_type, content, timestamp) VALUES (?, ?, ?, ?)`,
		pk, "goal_set", "build the thing", time.Now().UTC())
	require.NoError(t, err)
	_, err = db.ExecContext(ctx,
		`INSERT INTO pending_decisions (session_pk, question, created_at) VALUES (?, ?, ?)`,
		pk, "which one?", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, NewSessionRepository(db).Delete(ctx, pk))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM timeline WHERE session_pk = ?`, pk).Scan(&count))
	require.Equal(t, 0, count, "timeline rows should cascade")
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM pending_decisions WHERE session_pk = ?`, pk).Scan(&count))
	require.Equal(t, 0, count, "decision rows should cascade")
}

// TestOrphanedChildRejected verifies the FK constraint on child inserts.
func TestOrphanedChildRejected(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.ExecContext(context.Background(),
		`INSERT INTO timeline (session_pk, event_type, timestamp) VALUES (?, ?, ?)`,
		9999, "goal_set", time.Now().UTC())
	require.Error(t, err, "insert without parent session should fail")
}
