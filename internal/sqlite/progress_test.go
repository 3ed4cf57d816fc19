package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

func TestProgressUpsertOverwrites(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProgressRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Upsert(ctx, &session.Progress{
		SessionPK:      pk,
		Todos:          []session.Todo{{Content: "write schema", Status: "completed"}, {Content: "write repo", Status: "in_progress"}},
		CompletedCount: 1,
		TotalCount:     2,
		UpdatedAt:      now,
	}))

	got, err := repo.Get(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, 1, got.CompletedCount)
	require.Len(t, got.Todos, 2)

	// Second upsert replaces the snapshot wholesale.
	require.NoError(t, repo.Upsert(ctx, &session.Progress{
		SessionPK:      pk,
		Todos:          []session.Todo{{Content: "write schema", Status: "completed"}, {Content: "write repo", Status: "completed"}, {Content: "write tests", Status: "pending"}},
		CompletedCount: 2,
		TotalCount:     3,
		UpdatedAt:      now.Add(time.Minute),
	}))

	got, err = repo.Get(ctx, pk)
	require.NoError(t, err)
	require.Equal(t, 2, got.CompletedCount)
	require.Equal(t, 3, got.TotalCount)
	require.Len(t, got.Todos, 3)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM progress WHERE session_pk = ?`, pk).Scan(&count))
	require.Equal(t, 1, count, "one progress row per session")
}

func TestProgressGetMissing(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProgressRepository(db)

	_, err := repo.Get(context.Background(), 9999)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProgressUpsertRequiresSession(t *testing.T) {
	db := NewTestDB(t)
	repo := NewProgressRepository(db)

	err := repo.Upsert(context.Background(), &session.Progress{SessionPK: 9999, UpdatedAt: time.Now().UTC()})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}
