package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
)

func TestDecisionLifecycle(t *testing.T) {
	db := NewTestDB(t)
	repo := NewDecisionRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	base := time.Now().UTC().Truncate(time.Second)
	first, err := repo.Create(ctx, &session.Decision{
		SessionPK: pk,
		Question:  "Use Postgres or SQLite?",
		Options:   []string{"postgres", "sqlite"},
		Context:   "storage layer decision",
		CreatedAt: base,
	})
	require.NoError(t, err)
	require.Greater(t, first, int64(0))

	_, err = repo.Create(ctx, &session.Decision{
		SessionPK: pk,
		Question:  "Delete the old migration?",
		CreatedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)

	unresolved, err := repo.Unresolved(ctx, pk)
	require.NoError(t, err)
	require.Len(t, unresolved, 2)
	require.Equal(t, "Delete the old migration?", unresolved[0].Question, "newest first")
	require.Equal(t, []string{"postgres", "sqlite"}, unresolved[1].Options)
	require.False(t, unresolved[0].Resolved)
	require.Nil(t, unresolved[0].ResolvedAt)

	count, err := repo.ResolveAll(ctx, pk, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	unresolved, err = repo.Unresolved(ctx, pk)
	require.NoError(t, err)
	require.Empty(t, unresolved)

	// Resolving again is a no-op.
	count, err = repo.ResolveAll(ctx, pk, base.Add(3*time.Minute))
	require.NoError(t, err)
	require.Zero(t, count)
}
