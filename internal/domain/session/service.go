package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/licycle/sessionwatch/internal/repository"
)

// pendingMaxAge bounds how long a never-promoted pending session may linger
// before a new pending create for the same project purges it.
const pendingMaxAge = 15 * time.Minute

// pendingGoalPlaceholder is shown for sessions awaiting their first prompt.
const pendingGoalPlaceholder = "Waiting for input..."

// Tracker handles all event-store operations. Producers are independent
// one-shot processes, so every method performs one logical write (or read)
// against the repositories and returns; cross-process coordination is left
// entirely to the storage engine.
type Tracker struct {
	sessions  SessionRepository
	timeline  TimelineRepository
	progress  ProgressRepository
	decisions DecisionRepository
	snapshots SnapshotRepository
	logger    *slog.Logger
	now       func() time.Time
}

// NewTracker creates a new Tracker service.
func NewTracker(
	sessions SessionRepository,
	timelineRepo TimelineRepository,
	progress ProgressRepository,
	decisions DecisionRepository,
	snapshots SnapshotRepository,
	logger *slog.Logger,
) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		sessions:  sessions,
		timeline:  timelineRepo,
		progress:  progress,
		decisions: decisions,
		snapshots: snapshots,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateRequest describes a new session.
type CreateRequest struct {
	PublicID      string
	Project       string
	Goal          string
	AccountAlias  string
	Target        Target
	InitialStatus Status
}

// Create creates a session with a public id, records the goal_set event and
// initializes an empty progress row.
func (t *Tracker) Create(ctx context.Context, req CreateRequest) (int64, error) {
	if req.PublicID == "" || req.Project == "" {
		return 0, ErrInvalidInput
	}
	status := req.InitialStatus
	if status == "" {
		status = StatusWorking
	}
	alias := req.AccountAlias
	if alias == "" {
		alias = "default"
	}

	now := t.now()
	sess := &Session{
		PublicID:     req.PublicID,
		Project:      req.Project,
		Goal:         req.Goal,
		Status:       status,
		CreatedAt:    now,
		LastActivity: now,
		AccountAlias: alias,
		Target:       req.Target,
	}
	pk, err := t.sessions.Create(ctx, sess)
	if err != nil {
		return 0, fmt.Errorf("creating session: %w", err)
	}

	if err := t.timeline.Append(ctx, &Event{
		SessionPK: pk,
		Type:      EventGoalSet,
		Content:   req.Goal,
		Timestamp: now,
	}); err != nil {
		return 0, fmt.Errorf("recording goal: %w", err)
	}
	if err := t.progress.Upsert(ctx, &Progress{SessionPK: pk, UpdatedAt: now}); err != nil {
		return 0, fmt.Errorf("initializing progress: %w", err)
	}

	return pk, nil
}

// PendingRequest describes a session created before the first prompt.
type PendingRequest struct {
	PendingID    string
	Project      string
	AccountAlias string
	Target       Target
}

// CreatePending creates an idle session identified only by a pending id, so
// status surfaces can show the session the moment the assistant starts.
// Stale pending rows for the same project are purged first.
func (t *Tracker) CreatePending(ctx context.Context, req PendingRequest) (int64, string, error) {
	if req.Project == "" {
		return 0, "", ErrInvalidInput
	}
	pendingID := req.PendingID
	if pendingID == "" {
		pendingID = uuid.NewString()
	}
	alias := req.AccountAlias
	if alias == "" {
		alias = "default"
	}

	now := t.now()
	if err := t.sessions.PurgeStalePending(ctx, req.Project, now.Add(-pendingMaxAge)); err != nil {
		t.logger.Warn("purge stale pending failed", "project", req.Project, "error", err)
	}

	sess := &Session{
		PendingID:    pendingID,
		Project:      req.Project,
		Goal:         pendingGoalPlaceholder,
		Status:       StatusIdle,
		CreatedAt:    now,
		LastActivity: now,
		AccountAlias: alias,
		Target:       req.Target,
	}
	pk, err := t.sessions.Create(ctx, sess)
	if err != nil {
		return 0, "", fmt.Errorf("creating pending session: %w", err)
	}
	if err := t.progress.Upsert(ctx, &Progress{SessionPK: pk, UpdatedAt: now}); err != nil {
		return 0, "", fmt.Errorf("initializing progress: %w", err)
	}

	return pk, pendingID, nil
}

// LinkPending attaches the real public id to a pending session without
// creating a new record, optionally setting the goal from the first prompt.
func (t *Tracker) LinkPending(ctx context.Context, pendingID, publicID, goal string) (int64, error) {
	if pendingID == "" || publicID == "" {
		return 0, ErrInvalidInput
	}

	now := t.now()
	pk, err := t.sessions.AttachPublicID(ctx, pendingID, publicID, goal, now)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrSessionNotFound
		}
		return 0, fmt.Errorf("linking pending session: %w", err)
	}

	if goal != "" {
		if err := t.timeline.Append(ctx, &Event{
			SessionPK: pk,
			Type:      EventGoalSet,
			Content:   goal,
			Timestamp: now,
		}); err != nil {
			return 0, fmt.Errorf("recording goal: %w", err)
		}
	}
	return pk, nil
}

// Get returns a session by public id, falling back to pending id.
func (t *Tracker) Get(ctx context.Context, ref string) (*Session, error) {
	if ref == "" {
		return nil, ErrInvalidInput
	}
	sess, err := t.sessions.GetByPublicID(ctx, ref)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	sess, err = t.sessions.GetByPendingID(ctx, ref)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return sess, nil
}

// Resolve returns a session's current status.
func (t *Tracker) Resolve(ctx context.Context, ref string) (Status, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return "", err
	}
	return sess.Status, nil
}

// AppendEvent appends a timeline event and bumps session activity.
func (t *Tracker) AppendEvent(ctx context.Context, ref string, eventType EventType, content string, metadata map[string]any) error {
	if eventType == "" {
		return ErrInvalidInput
	}
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}

	now := t.now()
	if err := t.timeline.Append(ctx, &Event{
		SessionPK: sess.PK,
		Type:      eventType,
		Content:   content,
		Metadata:  metadata,
		Timestamp: now,
	}); err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	if err := t.sessions.TouchActivity(ctx, sess.PK, now); err != nil {
		t.logger.Warn("touch activity failed", "session", ref, "error", err)
	}
	return nil
}

// UpdateStatus sets the session status and records the status_change event.
func (t *Tracker) UpdateStatus(ctx context.Context, ref string, status Status) error {
	if status == "" {
		return ErrInvalidInput
	}
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}

	now := t.now()
	if err := t.sessions.UpdateStatus(ctx, sess.PK, status, now); err != nil {
		return fmt.Errorf("updating status: %w", err)
	}
	if err := t.timeline.Append(ctx, &Event{
		SessionPK: sess.PK,
		Type:      EventStatusChange,
		Content:   string(status),
		Timestamp: now,
	}); err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}
	return nil
}

// UpsertProgress overwrites the session's todo snapshot and records a
// progress_update event carrying the completed/total counts.
func (t *Tracker) UpsertProgress(ctx context.Context, ref string, todos []Todo) error {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}

	completed := 0
	for _, todo := range todos {
		if todo.Status == "completed" {
			completed++
		}
	}

	now := t.now()
	if err := t.progress.Upsert(ctx, &Progress{
		SessionPK:      sess.PK,
		Todos:          todos,
		CompletedCount: completed,
		TotalCount:     len(todos),
		UpdatedAt:      now,
	}); err != nil {
		return fmt.Errorf("upserting progress: %w", err)
	}
	if err := t.sessions.TouchActivity(ctx, sess.PK, now); err != nil {
		t.logger.Warn("touch activity failed", "session", ref, "error", err)
	}
	if err := t.timeline.Append(ctx, &Event{
		SessionPK: sess.PK,
		Type:      EventProgressUpdate,
		Metadata:  map[string]any{"completed": completed, "total": len(todos)},
		Timestamp: now,
	}); err != nil {
		return fmt.Errorf("recording progress event: %w", err)
	}
	return nil
}

// Progress returns the latest todo snapshot, or nil when none exists.
func (t *Tracker) Progress(ctx context.Context, ref string) (*Progress, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	progress, err := t.progress.Get(ctx, sess.PK)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading progress: %w", err)
	}
	return progress, nil
}

// RaiseDecision records an unresolved question posed to the user.
func (t *Tracker) RaiseDecision(ctx context.Context, ref, question string, options []string, contextText string) (int64, error) {
	if question == "" {
		return 0, ErrInvalidInput
	}
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return 0, err
	}

	now := t.now()
	id, err := t.decisions.Create(ctx, &Decision{
		SessionPK: sess.PK,
		Question:  question,
		Options:   options,
		Context:   contextText,
		CreatedAt: now,
	})
	if err != nil {
		return 0, fmt.Errorf("raising decision: %w", err)
	}
	if err := t.sessions.TouchActivity(ctx, sess.PK, now); err != nil {
		t.logger.Warn("touch activity failed", "session", ref, "error", err)
	}
	return id, nil
}

// ResolveDecisions marks all unresolved decisions for a session as resolved.
func (t *Tracker) ResolveDecisions(ctx context.Context, ref string) (int64, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return 0, err
	}
	count, err := t.decisions.ResolveAll(ctx, sess.PK, t.now())
	if err != nil {
		return 0, fmt.Errorf("resolving decisions: %w", err)
	}
	return count, nil
}

// PendingDecisions returns the unresolved decisions for a session, newest first.
func (t *Tracker) PendingDecisions(ctx context.Context, ref string) ([]Decision, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	decisions, err := t.decisions.Unresolved(ctx, sess.PK)
	if err != nil {
		return nil, fmt.Errorf("loading decisions: %w", err)
	}
	return decisions, nil
}

// WriteSnapshot stores a point-in-time summary of a session.
func (t *Tracker) WriteSnapshot(ctx context.Context, ref, lastUser, lastAssistant string, summary map[string]any, mode SnapshotMode) error {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}
	if mode == "" {
		mode = SnapshotRaw
	}
	if err := t.snapshots.Create(ctx, &Snapshot{
		SessionPK:     sess.PK,
		LastUser:      lastUser,
		LastAssistant: lastAssistant,
		Summary:       summary,
		Mode:          mode,
		CreatedAt:     t.now(),
	}); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LatestSnapshot returns the most recent snapshot, or nil when none exists.
func (t *Tracker) LatestSnapshot(ctx context.Context, ref string) (*Snapshot, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	snap, err := t.snapshots.Latest(ctx, sess.PK)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	return snap, nil
}

// List returns sessions matching the filter. A storage failure degrades to
// an empty result: the monitor surface must never fail because the store is
// unavailable.
func (t *Tracker) List(ctx context.Context, filter ListFilter) []Session {
	sessions, err := t.sessions.List(ctx, filter)
	if err != nil {
		t.logger.Error("listing sessions failed", "error", err)
		return nil
	}
	return sessions
}

// Events returns a session's raw event log, oldest first.
func (t *Tracker) Events(ctx context.Context, ref string, limit int) ([]Event, error) {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	events, err := t.timeline.ListBySession(ctx, sess.PK, limit)
	if err != nil {
		return nil, fmt.Errorf("loading timeline: %w", err)
	}
	return events, nil
}

// Overall summarizes all non-terminal sessions: the highest-priority status
// present and the number of sessions sharing it. With no live sessions it
// reports idle with count zero. Storage failure degrades the same way.
func (t *Tracker) Overall(ctx context.Context) OverallStatus {
	counts, err := t.sessions.StatusCounts(ctx)
	if err != nil {
		t.logger.Error("status rollup failed", "error", err)
		return OverallStatus{Status: StatusIdle}
	}

	best := OverallStatus{Status: StatusIdle}
	bestPriority := -1
	for status, count := range counts {
		if status.Terminal() || count == 0 {
			continue
		}
		if bestPriority == -1 || status.Priority() < bestPriority {
			best = OverallStatus{Status: status, Count: count}
			bestPriority = status.Priority()
		}
	}
	return best
}

// Delete removes a session and all dependent rows.
func (t *Tracker) Delete(ctx context.Context, ref string) error {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return err
	}
	if err := t.sessions.Delete(ctx, sess.PK); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// MarkCompleted transitions a session to the terminal status.
func (t *Tracker) MarkCompleted(ctx context.Context, ref string) error {
	return t.UpdateStatus(ctx, ref, StatusCompleted)
}

// MarkCompletedByShellPID completes every live session owned by a shell pid.
// Called when a new assistant instance starts in the same shell, so stale
// sessions don't linger as working.
func (t *Tracker) MarkCompletedByShellPID(ctx context.Context, shellPID int) (int64, error) {
	if shellPID <= 0 {
		return 0, ErrInvalidInput
	}
	count, err := t.sessions.MarkCompletedByShellPID(ctx, shellPID, t.now())
	if err != nil {
		return 0, fmt.Errorf("completing sessions by shell pid: %w", err)
	}
	return count, nil
}

// PurgeOlderThan deletes sessions whose last activity predates the given age.
func (t *Tracker) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	count, err := t.sessions.PurgeOlderThan(ctx, t.now().Add(-age))
	if err != nil {
		return 0, fmt.Errorf("purging old sessions: %w", err)
	}
	return count, nil
}

// RoundCount reports how many user input rounds a session has seen
// (goal_set plus user_input events).
func (t *Tracker) RoundCount(ctx context.Context, ref string) int {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return 0
	}
	count, err := t.timeline.CountByTypes(ctx, sess.PK, []EventType{EventGoalSet, EventUserInput})
	if err != nil {
		t.logger.Warn("round count failed", "session", ref, "error", err)
		return 0
	}
	return count
}

// LatestUserInput returns the most recent user-authored content.
func (t *Tracker) LatestUserInput(ctx context.Context, ref string) string {
	sess, err := t.Get(ctx, ref)
	if err != nil {
		return ""
	}
	content, err := t.timeline.LatestContentByTypes(ctx, sess.PK, []EventType{EventGoalSet, EventUserInput})
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		t.logger.Warn("latest input lookup failed", "session", ref, "error", err)
	}
	return content
}
