package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

// SnapshotRepository implements session.SnapshotRepository for SQLite
type SnapshotRepository struct {
	db *DB
}

// NewSnapshotRepository creates a new SnapshotRepository
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db}
}

// Create inserts a snapshot.
func (r *SnapshotRepository) Create(ctx context.Context, snapshot *session.Snapshot) error {
	var summary sql.NullString
	if len(snapshot.Summary) > 0 {
		data, err := json.Marshal(snapshot.Summary)
		if err != nil {
			return fmt.Errorf("failed to encode summary: %w", err)
		}
		summary = sql.NullString{String: string(data), Valid: true}
	}

	result, err := r.db.execRetry(ctx, `
		INSERT INTO snapshots (session_pk, last_user_message, last_assistant_message, summary_json, mode, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		snapshot.SessionPK,
		nullString(snapshot.LastUser),
		nullString(snapshot.LastAssistant),
		summary,
		snapshot.Mode,
		snapshot.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to create snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get snapshot id: %w", err)
	}
	snapshot.ID = id
	return nil
}

// Latest returns the most recent snapshot for a session.
func (r *SnapshotRepository) Latest(ctx context.Context, sessionPK int64) (*session.Snapshot, error) {
	var snapshot session.Snapshot
	var lastUser, lastAssistant, summary sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT id, session_pk, last_user_message, last_assistant_message, summary_json, mode, created_at
		FROM snapshots
		WHERE session_pk = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`,
		sessionPK,
	).Scan(
		&snapshot.ID,
		&snapshot.SessionPK,
		&lastUser,
		&lastAssistant,
		&summary,
		&snapshot.Mode,
		&snapshot.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	snapshot.LastUser = lastUser.String
	snapshot.LastAssistant = lastAssistant.String
	if summary.Valid {
		_ = json.Unmarshal([]byte(summary.String), &snapshot.Summary)
	}
	return &snapshot, nil
}
