package session

import (
	"context"
	"time"
)

// SessionRepository provides persistence for sessions.
type SessionRepository interface {
	Create(ctx context.Context, sess *Session) (int64, error)
	GetByPK(ctx context.Context, pk int64) (*Session, error)
	GetByPublicID(ctx context.Context, id string) (*Session, error)
	GetByPendingID(ctx context.Context, id string) (*Session, error)
	// AttachPublicID promotes a pending session in place. The primary key is
	// never changed; only the alias columns are.
	AttachPublicID(ctx context.Context, pendingID, publicID, goal string, now time.Time) (int64, error)
	UpdateStatus(ctx context.Context, pk int64, status Status, now time.Time) error
	TouchActivity(ctx context.Context, pk int64, now time.Time) error
	List(ctx context.Context, filter ListFilter) ([]Session, error)
	Delete(ctx context.Context, pk int64) error
	// StatusCounts returns the number of sessions per current status.
	StatusCounts(ctx context.Context) (map[Status]int, error)
	MarkCompletedByShellPID(ctx context.Context, shellPID int, now time.Time) (int64, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	// PurgeStalePending removes never-promoted pending rows for a project
	// created before the cutoff.
	PurgeStalePending(ctx context.Context, project string, cutoff time.Time) error
}

// TimelineRepository provides the append-only event log.
type TimelineRepository interface {
	Append(ctx context.Context, event *Event) error
	// ListBySession returns events oldest first. A positive limit keeps only
	// the newest events; rows with unparseable metadata come back with nil
	// metadata.
	ListBySession(ctx context.Context, sessionPK int64, limit int) ([]Event, error)
	CountByTypes(ctx context.Context, sessionPK int64, types []EventType) (int, error)
	LatestContentByTypes(ctx context.Context, sessionPK int64, types []EventType) (string, error)
}

// ProgressRepository provides the latest todo snapshot per session.
type ProgressRepository interface {
	Upsert(ctx context.Context, progress *Progress) error
	Get(ctx context.Context, sessionPK int64) (*Progress, error)
}

// DecisionRepository provides pending decision persistence.
type DecisionRepository interface {
	Create(ctx context.Context, decision *Decision) (int64, error)
	ResolveAll(ctx context.Context, sessionPK int64, now time.Time) (int64, error)
	Unresolved(ctx context.Context, sessionPK int64) ([]Decision, error)
}

// SnapshotRepository provides snapshot persistence.
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *Snapshot) error
	Latest(ctx context.Context, sessionPK int64) (*Snapshot, error)
}
