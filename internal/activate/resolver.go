// Package activate restores the terminal window a session started in. The
// target may have been minimized, hidden, or closed since the descriptor was
// captured, so resolution walks an ordered chain of tiers of decreasing
// precision and stops at the first structural match. Every side effect is
// idempotent and the whole operation is best-effort: failures log and fall
// through, never propagate.
package activate

import (
	"context"
	"log/slog"
	"time"
)

// Descriptor identifies a window with decreasing precision: exact window id,
// owning process, application identity. All fields are optional.
type Descriptor struct {
	BundleID string `json:"bundle_id,omitempty"`
	PID      int    `json:"pid,omitempty"`
	WindowID int    `json:"window_id,omitempty"`
}

// Window is one window owned by a process.
type Window struct {
	ID        int
	Title     string
	Minimized bool
}

// Driver abstracts the OS window/automation calls each tier needs. All calls
// must be safe to repeat on an already-visible, already-frontmost window.
type Driver interface {
	ProcessExists(ctx context.Context, pid int) bool
	ListWindows(ctx context.Context, pid int) ([]Window, error)
	UnminimizeWindow(ctx context.Context, pid, windowID int) error
	RaiseWindow(ctx context.Context, pid, windowID int) error
	UnminimizeAll(ctx context.Context, pid int) error
	UnhideProcess(ctx context.Context, pid int) error
	ActivateProcess(ctx context.Context, pid int) error
	UnhideApp(ctx context.Context, bundleID string) error
	LaunchApp(ctx context.Context, bundleID string) error
}

// settleDelay gives the window manager time to apply an unminimize before
// ordering is requested; without it the raise can land on the old layout.
const settleDelay = 300 * time.Millisecond

// Resolver walks the resolution chain against a Driver.
type Resolver struct {
	driver Driver
	logger *slog.Logger
	sleep  func(context.Context, time.Duration)
}

// NewResolver creates a Resolver.
func NewResolver(driver Driver, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		driver: driver,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Activate brings the described window to the foreground, best effort.
// Tier order: exact window id, owning process, application identity. Only
// the window tier can discriminate between windows of one process; only the
// app tier can resurrect an application that has fully quit.
func (r *Resolver) Activate(ctx context.Context, target Descriptor) {
	if target.PID > 0 && r.driver.ProcessExists(ctx, target.PID) {
		if target.WindowID > 0 && r.raiseExactWindow(ctx, target) {
			return
		}
		r.bringProcessForward(ctx, target)
		return
	}
	r.reopenApp(ctx, target)
}

// raiseExactWindow reports whether the precise window was found and raised.
func (r *Resolver) raiseExactWindow(ctx context.Context, target Descriptor) bool {
	windows, err := r.driver.ListWindows(ctx, target.PID)
	if err != nil {
		r.logger.Warn("window enumeration failed", "pid", target.PID, "error", err)
		return false
	}

	for _, window := range windows {
		if window.ID != target.WindowID {
			continue
		}
		if window.Minimized {
			if err := r.driver.UnminimizeWindow(ctx, target.PID, target.WindowID); err != nil {
				r.logger.Warn("unminimize failed", "window", target.WindowID, "error", err)
			}
			r.sleep(ctx, settleDelay)
		}
		if err := r.driver.RaiseWindow(ctx, target.PID, target.WindowID); err != nil {
			r.logger.Warn("raise failed", "window", target.WindowID, "error", err)
			return false
		}
		if err := r.driver.ActivateProcess(ctx, target.PID); err != nil {
			r.logger.Warn("activate failed", "pid", target.PID, "error", err)
		}
		r.logger.Info("activated window", "pid", target.PID, "window", target.WindowID)
		return true
	}

	r.logger.Debug("window id not found, falling back to process", "pid", target.PID, "window", target.WindowID)
	return false
}

func (r *Resolver) bringProcessForward(ctx context.Context, target Descriptor) {
	if err := r.driver.UnhideProcess(ctx, target.PID); err != nil {
		r.logger.Warn("unhide failed", "pid", target.PID, "error", err)
	}
	if target.WindowID > 0 {
		// The requested window was not found; it may have been recreated
		// with a new id, so unminimize everything this process owns.
		if err := r.driver.UnminimizeAll(ctx, target.PID); err != nil {
			r.logger.Warn("unminimize all failed", "pid", target.PID, "error", err)
		}
	}
	if err := r.driver.ActivateProcess(ctx, target.PID); err != nil {
		r.logger.Warn("process activation failed, falling back to app", "pid", target.PID, "error", err)
		r.reopenApp(ctx, target)
		return
	}
	r.logger.Info("activated process", "pid", target.PID)
}

func (r *Resolver) reopenApp(ctx context.Context, target Descriptor) {
	if target.BundleID == "" {
		r.logger.Warn("no usable target, giving up", "pid", target.PID, "window", target.WindowID)
		return
	}
	if err := r.driver.UnhideApp(ctx, target.BundleID); err != nil {
		r.logger.Warn("unhide app failed", "bundle", target.BundleID, "error", err)
	}
	if err := r.driver.LaunchApp(ctx, target.BundleID); err != nil {
		r.logger.Warn("app activation failed", "bundle", target.BundleID, "error", err)
		return
	}
	r.logger.Info("activated app", "bundle", target.BundleID)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
