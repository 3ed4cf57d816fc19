package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/repository"
)

func TestTimelineAppendAndList(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	base := time.Now().UTC().Truncate(time.Second)
	events := []*session.Event{
		{SessionPK: pk, Type: session.EventGoalSet, Content: "build the parser", Timestamp: base},
		{SessionPK: pk, Type: session.EventStatusChange, Content: "working", Timestamp: base.Add(time.Minute)},
		{SessionPK: pk, Type: session.EventProgressUpdate, Metadata: map[string]any{"completed": 1, "total": 3}, Timestamp: base.Add(2 * time.Minute)},
	}
	for _, event := range events {
		require.NoError(t, repo.Append(ctx, event))
		require.Greater(t, event.ID, int64(0))
	}

	got, err := repo.ListBySession(ctx, pk, 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, session.EventGoalSet, got[0].Type, "oldest first")
	require.Equal(t, "build the parser", got[0].Content)
	require.Equal(t, float64(3), got[2].Metadata["total"], "metadata numbers decode as float64")

	// A positive limit trims the oldest events, keeping ascending order.
	limited, err := repo.ListBySession(ctx, pk, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	require.Equal(t, session.EventStatusChange, limited[0].Type)
	require.Equal(t, session.EventProgressUpdate, limited[1].Type)
}

func TestTimelineAppendRequiresSession(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTimelineRepository(db)

	err := repo.Append(context.Background(), &session.Event{
		SessionPK: 9999,
		Type:      session.EventGoalSet,
		Timestamp: time.Now().UTC(),
	})
	require.ErrorIs(t, err, repository.ErrForeignKeyViolation)
}

func TestTimelineMalformedMetadataDegrades(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	_, err := db.ExecContext(ctx, `
		INSERT INTO timeline (session_pk, event_type, content, metadata_json, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		pk, "progress_update", "", "{not json", time.Now().UTC())
	require.NoError(t, err)

	events, err := repo.ListBySession(ctx, pk, 0)
	require.NoError(t, err, "a corrupt row must not fail the read")
	require.Len(t, events, 1)
	require.Nil(t, events[0].Metadata)
}

func TestTimelineCountByTypes(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	now := time.Now().UTC()
	for _, eventType := range []session.EventType{
		session.EventGoalSet, session.EventUserInput, session.EventUserInput, session.EventStatusChange,
	} {
		require.NoError(t, repo.Append(ctx, &session.Event{SessionPK: pk, Type: eventType, Timestamp: now}))
		now = now.Add(time.Second)
	}

	count, err := repo.CountByTypes(ctx, pk, []session.EventType{session.EventGoalSet, session.EventUserInput})
	require.NoError(t, err)
	require.Equal(t, 3, count)

	count, err = repo.CountByTypes(ctx, pk, nil)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestTimelineLatestContentByTypes(t *testing.T) {
	db := NewTestDB(t)
	repo := NewTimelineRepository(db)
	ctx := context.Background()

	pk := newTestSession(t, db, &session.Session{PublicID: "s1"})

	base := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, repo.Append(ctx, &session.Event{SessionPK: pk, Type: session.EventGoalSet, Content: "first goal", Timestamp: base}))
	require.NoError(t, repo.Append(ctx, &session.Event{SessionPK: pk, Type: session.EventUserInput, Content: "follow-up question", Timestamp: base.Add(time.Minute)}))
	require.NoError(t, repo.Append(ctx, &session.Event{SessionPK: pk, Type: session.EventStatusChange, Content: "idle", Timestamp: base.Add(2 * time.Minute)}))

	content, err := repo.LatestContentByTypes(ctx, pk, []session.EventType{session.EventGoalSet, session.EventUserInput})
	require.NoError(t, err)
	require.Equal(t, "follow-up question", content)

	_, err = repo.LatestContentByTypes(ctx, pk, []session.EventType{session.EventAISummary})
	require.ErrorIs(t, err, repository.ErrNotFound)
}
