package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

// SessionRepository implements session.SessionRepository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `
	id, session_id, pending_id, project, original_goal, current_status,
	created_at, last_activity, account_alias, bundle_id, terminal_pid,
	shell_pid, window_id
`

// Create inserts a session and returns its primary key.
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session) (int64, error) {
	query := `
		INSERT INTO sessions (
			session_id, pending_id, project, original_goal, current_status,
			created_at, last_activity, account_alias, bundle_id, terminal_pid,
			shell_pid, window_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.execRetry(ctx, query,
		nullString(sess.PublicID),
		nullString(sess.PendingID),
		sess.Project,
		sess.Goal,
		sess.Status,
		sess.CreatedAt,
		sess.LastActivity,
		sess.AccountAlias,
		nullString(sess.Target.BundleID),
		nullInt(sess.Target.TerminalPID),
		nullInt(sess.Target.ShellPID),
		nullInt(sess.Target.WindowID),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}

	pk, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get session pk: %w", err)
	}
	sess.PK = pk
	return pk, nil
}

// GetByPK retrieves a session by primary key.
func (r *SessionRepository) GetByPK(ctx context.Context, pk int64) (*session.Session, error) {
	return r.getWhere(ctx, "id = ?", pk)
}

// GetByPublicID retrieves a session by its public session id.
func (r *SessionRepository) GetByPublicID(ctx context.Context, id string) (*session.Session, error) {
	return r.getWhere(ctx, "session_id = ?", id)
}

// GetByPendingID retrieves a session by its pending id.
func (r *SessionRepository) GetByPendingID(ctx context.Context, id string) (*session.Session, error) {
	return r.getWhere(ctx, "pending_id = ?", id)
}

func (r *SessionRepository) getWhere(ctx context.Context, where string, arg any) (*session.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE ` + where
	sess, err := scanSession(r.db.QueryRowContext(ctx, query, arg))
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return sess, nil
}

// AttachPublicID promotes a pending session in place. Only the alias columns
// change; the primary key every child row references stays put.
func (r *SessionRepository) AttachPublicID(ctx context.Context, pendingID, publicID, goal string, now time.Time) (int64, error) {
	var pk int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM sessions WHERE pending_id = ? AND session_id IS NULL`,
		pendingID,
	).Scan(&pk)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find pending session: %w", err)
	}

	if goal != "" {
		_, err = r.db.execRetry(ctx, `
			UPDATE sessions
			SET session_id = ?, original_goal = ?, current_status = ?, last_activity = ?
			WHERE id = ?`,
			publicID, goal, session.StatusWorking, now, pk,
		)
	} else {
		_, err = r.db.execRetry(ctx, `
			UPDATE sessions
			SET session_id = ?, current_status = ?, last_activity = ?
			WHERE id = ?`,
			publicID, session.StatusWorking, now, pk,
		)
	}
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("session id already attached: %w", err)
		}
		return 0, fmt.Errorf("failed to attach session id: %w", err)
	}

	return pk, nil
}

// UpdateStatus sets the current status and bumps last activity.
func (r *SessionRepository) UpdateStatus(ctx context.Context, pk int64, status session.Status, now time.Time) error {
	result, err := r.db.execRetry(ctx,
		`UPDATE sessions SET current_status = ?, last_activity = ? WHERE id = ?`,
		status, now, pk,
	)
	if err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}
	return requireRow(result)
}

// TouchActivity bumps last activity.
func (r *SessionRepository) TouchActivity(ctx context.Context, pk int64, now time.Time) error {
	result, err := r.db.execRetry(ctx,
		`UPDATE sessions SET last_activity = ? WHERE id = ?`,
		now, pk,
	)
	if err != nil {
		return fmt.Errorf("failed to touch activity: %w", err)
	}
	return requireRow(result)
}

// List returns sessions matching the filter, most recently active first.
func (r *SessionRepository) List(ctx context.Context, filter session.ListFilter) ([]session.Session, error) {
	var conditions []string
	var args []any

	if filter.ActiveOnly {
		conditions = append(conditions, "current_status != ?")
		args = append(args, session.StatusCompleted)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		conditions = append(conditions, "current_status IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.AccountAlias != "" {
		conditions = append(conditions, "account_alias = ?")
		args = append(args, filter.AccountAlias)
	}
	if filter.Since != nil {
		conditions = append(conditions, "last_activity >= ?")
		args = append(args, *filter.Since)
	}
	if filter.Until != nil {
		conditions = append(conditions, "last_activity <= ?")
		args = append(args, *filter.Until)
	}
	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		conditions = append(conditions, "(session_id LIKE ? OR original_goal LIKE ? OR project LIKE ?)")
		args = append(args, pattern, pattern, pattern)
	}

	query := `SELECT ` + sessionColumns + ` FROM sessions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY last_activity DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []session.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes a session; child rows cascade.
func (r *SessionRepository) Delete(ctx context.Context, pk int64) error {
	result, err := r.db.execRetry(ctx, `DELETE FROM sessions WHERE id = ?`, pk)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return requireRow(result)
}

// StatusCounts returns the number of sessions per current status.
func (r *SessionRepository) StatusCounts(ctx context.Context) (map[session.Status]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT current_status, COUNT(*) FROM sessions GROUP BY current_status`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}
	defer rows.Close()

	counts := make(map[session.Status]int)
	for rows.Next() {
		var status session.Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating status counts: %w", err)
	}

	return counts, nil
}

// MarkCompletedByShellPID completes every live session owned by a shell pid.
func (r *SessionRepository) MarkCompletedByShellPID(ctx context.Context, shellPID int, now time.Time) (int64, error) {
	result, err := r.db.execRetry(ctx, `
		UPDATE sessions
		SET current_status = ?, last_activity = ?
		WHERE shell_pid = ? AND current_status != ?`,
		session.StatusCompleted, now, shellPID, session.StatusCompleted,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to complete sessions by shell pid: %w", err)
	}
	return result.RowsAffected()
}

// PurgeOlderThan deletes sessions whose last activity predates the cutoff.
func (r *SessionRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.execRetry(ctx,
		`DELETE FROM sessions WHERE last_activity < ?`, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old sessions: %w", err)
	}
	return result.RowsAffected()
}

// PurgeStalePending removes never-promoted pending rows for a project created
// before the cutoff.
func (r *SessionRepository) PurgeStalePending(ctx context.Context, project string, cutoff time.Time) error {
	_, err := r.db.execRetry(ctx, `
		DELETE FROM sessions
		WHERE pending_id IS NOT NULL AND session_id IS NULL
		  AND project = ? AND created_at < ?`,
		project, cutoff,
	)
	if err != nil {
		return fmt.Errorf("failed to purge stale pending sessions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*session.Session, error) {
	var sess session.Session
	var publicID, pendingID, bundleID sql.NullString
	var terminalPID, shellPID, windowID sql.NullInt64

	err := row.Scan(
		&sess.PK,
		&publicID,
		&pendingID,
		&sess.Project,
		&sess.Goal,
		&sess.Status,
		&sess.CreatedAt,
		&sess.LastActivity,
		&sess.AccountAlias,
		&bundleID,
		&terminalPID,
		&shellPID,
		&windowID,
	)
	if err != nil {
		return nil, err
	}

	sess.PublicID = publicID.String
	sess.PendingID = pendingID.String
	sess.Target = session.Target{
		BundleID:    bundleID.String,
		TerminalPID: int(terminalPID.Int64),
		ShellPID:    int(shellPID.Int64),
		WindowID:    int(windowID.Int64),
	}
	return &sess, nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullInt(value int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(value), Valid: value != 0}
}
