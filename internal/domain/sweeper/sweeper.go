// Package sweeper closes sessions whose owning shell process has died.
package sweeper

import (
	"context"
	"log/slog"

	"github.com/licycle/sessionwatch/internal/domain/session"
)

// ProbeResult is the outcome of a liveness probe.
type ProbeResult int

const (
	// ProbeAlive means the process exists and is reachable.
	ProbeAlive ProbeResult = iota
	// ProbeDead means the process does not exist.
	ProbeDead
	// ProbeUnknown means the probe was denied; the process may belong to
	// another principal and could still be legitimately active.
	ProbeUnknown
)

// Prober checks whether a process is alive without disturbing it.
type Prober interface {
	Probe(pid int) ProbeResult
}

// Tracker is the slice of the session service the sweeper needs.
type Tracker interface {
	List(ctx context.Context, filter session.ListFilter) []session.Session
	MarkCompleted(ctx context.Context, ref string) error
}

// Sweeper force-completes sessions whose shell process is gone. A sweep is
// idempotent and safe to run concurrently with ordinary reads and writes.
type Sweeper struct {
	tracker Tracker
	prober  Prober
	logger  *slog.Logger
}

// New creates a Sweeper.
func New(tracker Tracker, prober Prober, logger *slog.Logger) *Sweeper {
	if prober == nil {
		prober = SignalProber{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{tracker: tracker, prober: prober, logger: logger}
}

// Sweep probes every live session that recorded a shell pid and completes
// the ones whose process no longer exists. Denied probes leave the session
// untouched. Returns the number of sessions cleaned.
func (s *Sweeper) Sweep(ctx context.Context) int {
	cleaned := 0
	for _, sess := range s.tracker.List(ctx, session.ListFilter{ActiveOnly: true}) {
		pid := sess.Target.ShellPID
		if pid <= 0 {
			continue
		}

		switch s.prober.Probe(pid) {
		case ProbeDead:
			if err := s.tracker.MarkCompleted(ctx, sess.Ref()); err != nil {
				s.logger.Warn("failed to complete dead session", "session", sess.Ref(), "error", err)
				continue
			}
			s.logger.Info("completed dead session", "session", sess.Ref(), "shell_pid", pid)
			cleaned++
		case ProbeUnknown:
			s.logger.Debug("liveness probe denied, leaving session", "session", sess.Ref(), "shell_pid", pid)
		}
	}
	return cleaned
}
