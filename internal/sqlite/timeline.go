package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

// TimelineRepository implements session.TimelineRepository for SQLite
type TimelineRepository struct {
	db *DB
}

// NewTimelineRepository creates a new TimelineRepository
func NewTimelineRepository(db *DB) *TimelineRepository {
	return &TimelineRepository{db: db}
}

// Append inserts one immutable event. Events are never updated or deleted
// except by cascading session deletion.
func (r *TimelineRepository) Append(ctx context.Context, event *session.Event) error {
	var metadata sql.NullString
	if len(event.Metadata) > 0 {
		data, err := json.Marshal(event.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}

	result, err := r.db.execRetry(ctx, `
		INSERT INTO timeline (session_pk, event_type, content, metadata_json, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		event.SessionPK, event.Type, nullString(event.Content), metadata, event.Timestamp,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to append event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event id: %w", err)
	}
	event.ID = id
	return nil
}

// ListBySession returns events ordered by timestamp ascending. A positive
// limit keeps only the newest events, still returned oldest first. A row
// whose metadata fails to parse is returned with nil metadata rather than
// failing the whole read.
func (r *TimelineRepository) ListBySession(ctx context.Context, sessionPK int64, limit int) ([]session.Event, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_pk, event_type, content, metadata_json, timestamp
		FROM (
			SELECT id, session_pk, event_type, content, metadata_json, timestamp
			FROM timeline
			WHERE session_pk = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		)
		ORDER BY timestamp ASC, id ASC`,
		sessionPK, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []session.Event
	for rows.Next() {
		var event session.Event
		var content, metadata sql.NullString
		if err := rows.Scan(
			&event.ID,
			&event.SessionPK,
			&event.Type,
			&content,
			&metadata,
			&event.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		event.Content = content.String
		if metadata.Valid {
			// Malformed metadata degrades that one event, not the read.
			_ = json.Unmarshal([]byte(metadata.String), &event.Metadata)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// CountByTypes counts a session's events of the given types.
func (r *TimelineRepository) CountByTypes(ctx context.Context, sessionPK int64, types []session.EventType) (int, error) {
	if len(types) == 0 {
		return 0, nil
	}
	placeholders, args := typeArgs(sessionPK, types)

	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM timeline
		WHERE session_pk = ? AND event_type IN (`+placeholders+`)`,
		args...,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

// LatestContentByTypes returns the content of the newest event of the given types.
func (r *TimelineRepository) LatestContentByTypes(ctx context.Context, sessionPK int64, types []session.EventType) (string, error) {
	if len(types) == 0 {
		return "", repository.ErrNotFound
	}
	placeholders, args := typeArgs(sessionPK, types)

	var content sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT content FROM timeline
		WHERE session_pk = ? AND event_type IN (`+placeholders+`)
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`,
		args...,
	).Scan(&content)
	if err == sql.ErrNoRows {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest content: %w", err)
	}
	return content.String, nil
}

func typeArgs(sessionPK int64, types []session.EventType) (string, []any) {
	placeholders := make([]string, len(types))
	args := make([]any, 0, len(types)+1)
	args = append(args, sessionPK)
	for i, eventType := range types {
		placeholders[i] = "?"
		args = append(args, eventType)
	}
	return strings.Join(placeholders, ", "), args
}
