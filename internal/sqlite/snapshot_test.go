package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

func TestSnapshotCreateAndLatest(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSnapshotRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Create(ctx, &session.Snapshot{
		SessionPK: pk,
		LastUser:  "please fix the bug",
		Mode:      session.SnapshotRaw,
		CreatedAt: base,
	}))
	require.NoError(t, repo.Create(ctx, &session.Snapshot{
		SessionPK:     pk,
		LastUser:      "now add tests",
		LastAssistant: "done, running them",
		Summary:       map[string]any{"current_task": "adding tests", "mode": "ai"},
		Mode:          session.SnapshotAI,
		CreatedAt:     base.Add(time.Minute),
	}))

	got, err := repo.Latest(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, "now add tests", got.LastUser)
	require.Equal(t, session.SnapshotAI, got.Mode)
	require.Equal(t, "adding tests", got.Summary["current_task"])
}

func TestSnapshotLatestMissing(t *testing.T) {
	db := NewTestDB(t)
	repo := NewSnapshotRepository(db)

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	_, err := repo.Latest(context.Background(), pk)
	require.ErrorIs(t, err, repository.ErrNotFound)
}
