package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

// ProgressRepository implements session.ProgressRepository for SQLite
type ProgressRepository struct {
	db *DB
}

// NewProgressRepository creates a new ProgressRepository
func NewProgressRepository(db *DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// Upsert overwrites the session's todo snapshot wholesale.
func (r *ProgressRepository) Upsert(ctx context.Context, progress *session.Progress) error {
	var todos sql.NullString
	if len(progress.Todos) > 0 {
		data, err := json.Marshal(progress.Todos)
		if err != nil {
			return fmt.Errorf("failed to encode todos: %w", err)
		}
		todos = sql.NullString{String: string(data), Valid: true}
	}

	_, err := r.db.execRetry(ctx, `
		INSERT INTO progress (session_pk, todos_json, completed_count, total_count, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_pk) DO UPDATE SET
			todos_json = excluded.todos_json,
			completed_count = excluded.completed_count,
			total_count = excluded.total_count,
			updated_at = excluded.updated_at`,
		progress.SessionPK, todos, progress.CompletedCount, progress.TotalCount, progress.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to upsert progress: %w", err)
	}
	return nil
}

// Get returns the latest todo snapshot for a session.
func (r *ProgressRepository) Get(ctx context.Context, sessionPK int64) (*session.Progress, error) {
	var progress session.Progress
	var todos sql.NullString

	err := r.db.QueryRowContext(ctx, `
		SELECT session_pk, todos_json, completed_count, total_count, updated_at
		FROM progress
		WHERE session_pk = ?`,
		sessionPK,
	).Scan(
		&progress.SessionPK,
		&todos,
		&progress.CompletedCount,
		&progress.TotalCount,
		&progress.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	if todos.Valid {
		if err := json.Unmarshal([]byte(todos.String), &progress.Todos); err != nil {
			return nil, fmt.Errorf("failed to decode todos: %w", err)
		}
	}
	return &progress, nil
}
