package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

func TestSessionCreateAndGet(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	sess := &session.Session{
		PublicID:     "abc-123",
		Project:      "/home/dev/api",
		Goal:         "fix the flaky login test",
		Status:       session.StatusWorking,
		CreatedAt:    now,
		LastActivity: now,
		AccountAlias: "work",
		Target: session.Target{
			BundleID:    "com.googlecode.iterm2",
			TerminalPID: 4242,
			ShellPID:    4243,
			WindowID:    77,
		},
	}
	pk, err := repo.Create(ctx, sess)
	require.NoError(t, err)
	require.Greater(t, pk, int64(0))
	require.Equal(t, pk, sess.PK)

	got, err := repo.GetByPublicID(ctx, "abc-123")
	require.NoError(t, err)
	require.Equal(t, pk, got.PK)
	require.Equal(t, "fix the flaky login test", got.Goal)
	require.Equal(t, session.StatusWorking, got.Status)
	require.Equal(t, "work", got.AccountAlias)
	require.Equal(t, 77, got.Target.WindowID)
	require.Equal(t, 4243, got.Target.ShellPID)

	same, err := repo.GetByPK(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, got.PublicID, same.PublicID)

	_, err = repo.GetByPublicID(ctx, "missing")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionAttachPublicID(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{
		PendingID: "pend-1",
		Status:    session.StatusIdle,
		Goal:      "Waiting for input...",
	})

	now := time.Now().UTC()
	attached, err := repo.AttachPublicID(ctx, "pend-1", "pub-1", "ship the release", now)
	require.NoError(t, err)
	require.Equal(t, pk, attached, "promotion must keep the primary key")

	got, err := repo.GetByPublicID(ctx, "pub-1")
	require.NoError(t, err)
	require.Equal(t, "pend-1", got.PendingID, "pending id stays as an alias")
	require.Equal(t, "ship the release", got.Goal)
	require.Equal(t, session.StatusWorking, got.Status)

	// Already-promoted rows are no longer eligible.
	_, err = repo.AttachPublicID(ctx, "pend-1", "pub-2", "", now)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionAttachPublicIDKeepsGoalWhenEmpty(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	newTestSession(t, db, &session.Session{
		PendingID: "pend-2",
		Goal:      "Waiting for input...",
		Status:    session.StatusIdle,
	})

	_, err := repo.AttachPublicID(ctx, "pend-2", "pub-2", "", time.Now().UTC())
	require.NoError(t, err)

	got, err := repo.GetByPublicID(ctx, "pub-2")
	require.NoError(t, err)
	require.Equal(t, "Waiting for input...", got.Goal)
}

func TestSessionUpdateStatusAndTouch(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	later := time.Now().UTC().Add(time.Minute)
	require.NoError(t, repo.UpdateStatus(ctx, pk, session.StatusWaitingForUser, later))

	got, err := repo.GetByPK(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, session.StatusWaitingForUser, got.Status)
	require.WithinDuration(t, later, got.LastActivity, time.Second)

	require.ErrorIs(t, repo.UpdateStatus(ctx, 9999, session.StatusIdle, later), repository.ErrNotFound)
	require.ErrorIs(t, repo.TouchActivity(ctx, 9999, later), repository.ErrNotFound)
}

func TestSessionListFilters(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	newTestSession(t, db, &session.Session{
		PublicID: "older", Goal: "migrate database", Project: "/work/db",
		Status: session.StatusCompleted, AccountAlias: "work",
		CreatedAt: base, LastActivity: base,
	})
	newTestSession(t, db, &session.Session{
		PublicID: "newer", Goal: "refactor auth", Project: "/work/api",
		Status: session.StatusWorking, AccountAlias: "personal",
		CreatedAt: base.Add(30 * time.Minute), LastActivity: base.Add(30 * time.Minute),
	})

	all, err := repo.List(ctx, session.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "newer", all[0].PublicID, "most recently active first")

	active, err := repo.List(ctx, session.ListFilter{ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, "newer", active[0].PublicID)

	byStatus, err := repo.List(ctx, session.ListFilter{Statuses: []session.Status{session.StatusCompleted}})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, "older", byStatus[0].PublicID)

	byAccount, err := repo.List(ctx, session.ListFilter{AccountAlias: "personal"})
	require.NoError(t, err)
	require.Len(t, byAccount, 1)

	since := base.Add(15 * time.Minute)
	recent, err := repo.List(ctx, session.ListFilter{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, "newer", recent[0].PublicID)

	byQuery, err := repo.List(ctx, session.ListFilter{Query: "auth"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	require.Equal(t, "newer", byQuery[0].PublicID)

	none, err := repo.List(ctx, session.ListFilter{Query: "nonexistent"})
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestSessionStatusCounts(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	newTestSession(t, db, &session.Session{PublicID: "a", Status: session.StatusWorking})
	newTestSession(t, db, &session.Session{PublicID: "b", Status: session.StatusWorking})
	newTestSession(t, db, &session.Session{PublicID: "c", Status: session.StatusIdle})

	counts, err := repo.StatusCounts(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, counts[session.StatusWorking])
	require.Equal(t, 1, counts[session.StatusIdle])
}

func TestSessionMarkCompletedByShellPID(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	newTestSession(t, db, &session.Session{PublicID: "a", Target: session.Target{ShellPID: 100}})
	newTestSession(t, db, &session.Session{PublicID: "b", Target: session.Target{ShellPID: 100}, Status: session.StatusCompleted})
	newTestSession(t, db, &session.Session{PublicID: "c", Target: session.Target{ShellPID: 200}})

	count, err := repo.MarkCompletedByShellPID(ctx, 100, time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, int64(1), count, "only the live session for the pid is completed")

	got, err := repo.GetByPublicID(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, session.StatusCompleted, got.Status)

	other, err := repo.GetByPublicID(ctx, "c")
	require.NoError(t, err)
	require.Equal(t, session.StatusWorking, other.Status)
}

func TestSessionPurgeOlderThan(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour)
	newTestSession(t, db, &session.Session{PublicID: "stale", CreatedAt: old, LastActivity: old})
	newTestSession(t, db, &session.Session{PublicID: "fresh"})

	count, err := repo.PurgeOlderThan(ctx, time.Now().UTC().Add(-24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	_, err = repo.GetByPublicID(ctx, "stale")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionPurgeStalePending(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSessionRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	newTestSession(t, db, &session.Session{PendingID: "stale-pending", Project: "/p", CreatedAt: old, LastActivity: old})
	newTestSession(t, db, &session.Session{PendingID: "fresh-pending", Project: "/p"})
	// Promoted sessions are never purged even if old.
	newTestSession(t, db, &session.Session{PublicID: "promoted", PendingID: "was-pending", Project: "/p", CreatedAt: old, LastActivity: old})

	require.NoError(t, repo.PurgeStalePending(ctx, "/p", time.Now().UTC().Add(-15*time.Minute)))

	_, err := repo.GetByPendingID(ctx, "stale-pending")
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetByPendingID(ctx, "fresh-pending")
	require.NoError(t, err)

	_, err = repo.GetByPublicID(ctx, "promoted")
	require.NoError(t, err)
}
