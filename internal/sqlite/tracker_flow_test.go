package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/domain/timeline"
)

// Drives a typical working session through the tracker against real
// repositories and checks what the display view derives from it.
func TestTrackerEndToEndTimeline(t *testing.T) {
	db := NewTestDB(t)
	tracker := session.NewTracker(
		NewSessionRepository(db),
		NewTimelineRepository(db),
		NewProgressRepository(db),
		NewDecisionRepository(db),
		NewSnapshotRepository(db),
		nil,
	)
	ctx := context.Background()

	_, err := tracker.Create(ctx, session.CreateRequest{
		PublicID: "sess-1",
		Project:  "/work/auth",
		Goal:     "Refactor auth module",
	})
	require.NoError(t, err)
	require.NoError(t, tracker.UpdateStatus(ctx, "sess-1", session.StatusWorking))

	todos := []session.Todo{
		{Content: "audit handlers", Status: "completed"},
		{Content: "extract middleware", Status: "completed"},
		{Content: "rewrite token refresh", Status: "in_progress"},
		{Content: "migrate tests", Status: "pending"},
		{Content: "update docs", Status: "pending"},
	}
	require.NoError(t, tracker.UpsertProgress(ctx, "sess-1", todos))
	require.NoError(t, tracker.UpdateStatus(ctx, "sess-1", session.StatusWaitingForUser))

	events, err := tracker.Events(ctx, "sess-1", 0)
	require.NoError(t, err)

	nodes := timeline.Reconstruct(events, 0)
	require.Len(t, nodes, 3)
	require.Equal(t, timeline.NodeStart, nodes[0].Type)
	require.Equal(t, timeline.NodeProgress, nodes[1].Type)
	require.Equal(t, "Completed 2/5 items", nodes[1].Description)
	require.Equal(t, timeline.NodeWaiting, nodes[2].Type)
	require.Equal(t, timeline.DisplayCurrent, nodes[2].Status)

	overall := tracker.Overall(ctx)
	require.Equal(t, session.StatusWaitingForUser, overall.Status)
	require.Equal(t, 1, overall.Count)
}
