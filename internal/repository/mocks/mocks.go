// Package mocks provides testify mocks for the session repository interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for session.SessionRepository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session) (int64, error) {
	args := m.Called(ctx, sess)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) GetByPK(ctx context.Context, pk int64) (*session.Session, error) {
	args := m.Called(ctx, pk)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) GetByPublicID(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) GetByPendingID(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) AttachPublicID(ctx context.Context, pendingID, publicID, goal string, now time.Time) (int64, error) {
	args := m.Called(ctx, pendingID, publicID, goal, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) UpdateStatus(ctx context.Context, pk int64, status session.Status, now time.Time) error {
	args := m.Called(ctx, pk, status, now)
	return args.Error(0)
}

func (m *SessionRepository) TouchActivity(ctx context.Context, pk int64, now time.Time) error {
	args := m.Called(ctx, pk, now)
	return args.Error(0)
}

func (m *SessionRepository) List(ctx context.Context, filter session.ListFilter) ([]session.Session, error) {
	args := m.Called(ctx, filter)
	if list, ok := args.Get(0).([]session.Session); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Delete(ctx context.Context, pk int64) error {
	args := m.Called(ctx, pk)
	return args.Error(0)
}

func (m *SessionRepository) StatusCounts(ctx context.Context) (map[session.Status]int, error) {
	args := m.Called(ctx)
	if counts, ok := args.Get(0).(map[session.Status]int); ok {
		return counts, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) MarkCompletedByShellPID(ctx context.Context, shellPID int, now time.Time) (int64, error) {
	args := m.Called(ctx, shellPID, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SessionRepository) PurgeStalePending(ctx context.Context, project string, cutoff time.Time) error {
	args := m.Called(ctx, project, cutoff)
	return args.Error(0)
}

// TimelineRepository is a mock for session.TimelineRepository.
type TimelineRepository struct {
	mock.Mock
}

func (m *TimelineRepository) Append(ctx context.Context, event *session.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *TimelineRepository) ListBySession(ctx context.Context, sessionPK int64, limit int) ([]session.Event, error) {
	args := m.Called(ctx, sessionPK, limit)
	if list, ok := args.Get(0).([]session.Event); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TimelineRepository) CountByTypes(ctx context.Context, sessionPK int64, types []session.EventType) (int, error) {
	args := m.Called(ctx, sessionPK, types)
	return args.Int(0), args.Error(1)
}

func (m *TimelineRepository) LatestContentByTypes(ctx context.Context, sessionPK int64, types []session.EventType) (string, error) {
	args := m.Called(ctx, sessionPK, types)
	return args.String(0), args.Error(1)
}

// ProgressRepository is a mock for session.ProgressRepository.
type ProgressRepository struct {
	mock.Mock
}

func (m *ProgressRepository) Upsert(ctx context.Context, progress *session.Progress) error {
	args := m.Called(ctx, progress)
	return args.Error(0)
}

func (m *ProgressRepository) Get(ctx context.Context, sessionPK int64) (*session.Progress, error) {
	args := m.Called(ctx, sessionPK)
	if progress, ok := args.Get(0).(*session.Progress); ok {
		return progress, args.Error(1)
	}
	return nil, args.Error(1)
}

// DecisionRepository is a mock for session.DecisionRepository.
type DecisionRepository struct {
	mock.Mock
}

func (m *DecisionRepository) Create(ctx context.Context, decision *session.Decision) (int64, error) {
	args := m.Called(ctx, decision)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DecisionRepository) ResolveAll(ctx context.Context, sessionPK int64, now time.Time) (int64, error) {
	args := m.Called(ctx, sessionPK, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *DecisionRepository) Unresolved(ctx context.Context, sessionPK int64) ([]session.Decision, error) {
	args := m.Called(ctx, sessionPK)
	if list, ok := args.Get(0).([]session.Decision); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SnapshotRepository is a mock for session.SnapshotRepository.
type SnapshotRepository struct {
	mock.Mock
}

func (m *SnapshotRepository) Create(ctx context.Context, snapshot *session.Snapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *SnapshotRepository) Latest(ctx context.Context, sessionPK int64) (*session.Snapshot, error) {
	args := m.Called(ctx, sessionPK)
	if snapshot, ok := args.Get(0).(*session.Snapshot); ok {
		return snapshot, args.Error(1)
	}
	return nil, args.Error(1)
}
