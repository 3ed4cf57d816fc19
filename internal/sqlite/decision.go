package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

// DecisionRepository implements session.DecisionRepository for SQLite
type DecisionRepository struct {
	db *DB
}

// NewDecisionRepository creates a new DecisionRepository
func NewDecisionRepository(db *DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Create inserts an unresolved decision and returns its id.
func (r *DecisionRepository) Create(ctx context.Context, decision *session.Decision) (int64, error) {
	var options sql.NullString
	if len(decision.Options) > 0 {
		data, err := json.Marshal(decision.Options)
		if err != nil {
			return 0, fmt.Errorf("failed to encode options: %w", err)
		}
		options = sql.NullString{String: string(data), Valid: true}
	}

	result, err := r.db.execRetry(ctx, `
		INSERT INTO pending_decisions (session_pk, question, options_json, context, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		decision.SessionPK, decision.Question, options, nullString(decision.Context), decision.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, repository.ErrForeignKeyViolation
		}
		return 0, fmt.Errorf("failed to create decision: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get decision id: %w", err)
	}
	decision.ID = id
	return id, nil
}

// ResolveAll marks every unresolved decision for a session as resolved.
func (r *DecisionRepository) ResolveAll(ctx context.Context, sessionPK int64, now time.Time) (int64, error) {
	result, err := r.db.execRetry(ctx, `
		UPDATE pending_decisions
		SET resolved = 1, resolved_at = ?
		WHERE session_pk = ? AND resolved = 0`,
		now, sessionPK,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to resolve decisions: %w", err)
	}
	return result.RowsAffected()
}

// Unresolved returns the unresolved decisions for a session, newest first.
func (r *DecisionRepository) Unresolved(ctx context.Context, sessionPK int64) ([]session.Decision, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_pk, question, options_json, context, resolved, created_at, resolved_at
		FROM pending_decisions
		WHERE session_pk = ? AND resolved = 0
		ORDER BY created_at DESC, id DESC`,
		sessionPK,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []session.Decision
	for rows.Next() {
		var decision session.Decision
		var options, contextText sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(
			&decision.ID,
			&decision.SessionPK,
			&decision.Question,
			&options,
			&contextText,
			&decision.Resolved,
			&decision.CreatedAt,
			&resolvedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decision.Context = contextText.String
		if options.Valid {
			_ = json.Unmarshal([]byte(options.String), &decision.Options)
		}
		if resolvedAt.Valid {
			decision.ResolvedAt = &resolvedAt.Time
		}
		decisions = append(decisions, decision)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating decisions: %w", err)
	}

	return decisions, nil
}
