// Command hook is the one-shot lifecycle-event producer. The shell wrapper
// and upstream hook events invoke it once per trigger; it opens the store,
// performs one logical write, and exits. Storage failures degrade to a log
// line and a zero exit so the wrapped assistant session is never blocked.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/licycle/sessionwatch/internal/activate"
	"github.com/licycle/sessionwatch/internal/config"
	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/domain/sweeper"
	"github.com/licycle/sessionwatch/internal/notify"
	"github.com/licycle/sessionwatch/internal/sqlite"
)

const (
	hookTimeout    = 15 * time.Second
	maxPromptBytes = 500
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: hook <init|goal|status|progress|input|decision|resolve|snapshot|cleanup|sweep|activate|notify> [args]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(0)
	}

	// Stdout carries the hook response; logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()

	app := &hookApp{cfg: cfg, logger: logger}
	app.run(ctx, os.Args[1], os.Args[2:])

	// Producers never fail the caller.
	os.Exit(0)
}

type hookApp struct {
	cfg    config.Config
	logger *slog.Logger
}

// hookInput is the superset of stdin payloads across subcommands. Fields not
// used by a given subcommand are simply ignored.
type hookInput struct {
	SessionID      string          `json:"session_id"`
	Prompt         string          `json:"prompt,omitempty"`
	CWD            string          `json:"cwd,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Message        string          `json:"message,omitempty"`
	Todos          []session.Todo  `json:"todos,omitempty"`
	Question       string          `json:"question,omitempty"`
	Options        []string        `json:"options,omitempty"`
	Context        string          `json:"context,omitempty"`
	LastUser       string          `json:"last_user_message,omitempty"`
	LastAssistant  string          `json:"last_assistant_message,omitempty"`
	Summary        map[string]any  `json:"summary,omitempty"`
	Mode           string          `json:"mode,omitempty"`
	Type           string          `json:"notification_type,omitempty"`
	Action         string          `json:"action,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
}

func (a *hookApp) run(ctx context.Context, cmd string, args []string) {
	switch cmd {
	case "activate":
		// Needs no store: the payload carries the full target descriptor.
		a.activateCmd(ctx)
		return
	}

	tracker, cleanup, ok := a.openTracker()
	if !ok {
		writeHookOutput()
		return
	}
	defer cleanup()

	switch cmd {
	case "init":
		a.initCmd(ctx, tracker)
	case "goal":
		a.goalCmd(ctx, tracker)
	case "status":
		a.statusCmd(ctx, tracker, args)
	case "progress":
		a.progressCmd(ctx, tracker)
	case "input":
		a.inputCmd(ctx, tracker)
	case "decision":
		a.decisionCmd(ctx, tracker)
	case "resolve":
		a.resolveCmd(ctx, tracker)
	case "snapshot":
		a.snapshotCmd(ctx, tracker)
	case "cleanup":
		a.cleanupCmd(ctx, tracker)
	case "sweep":
		cleaned := sweeper.New(tracker, nil, a.logger).Sweep(ctx)
		a.logger.Info("sweep finished", "cleaned", cleaned)
	case "notify":
		a.notifyCmd(ctx, tracker)
	default:
		a.logger.Error("unknown subcommand", "cmd", cmd)
	}

	writeHookOutput()
}

// openTracker opens the store and builds the session service. A failure here
// means the producer has nothing to write to; it logs and gives up.
func (a *hookApp) openTracker() (*session.Tracker, func(), bool) {
	if err := ensureDBDir(a.cfg.DB.Path); err != nil {
		a.logger.Error("failed to prepare database path", "error", err)
		return nil, nil, false
	}
	db, err := sqlite.New(a.cfg.DB.Path)
	if err != nil {
		a.logger.Error("failed to open database", "error", err)
		return nil, nil, false
	}
	if err := db.RunMigrations(); err != nil {
		a.logger.Error("failed to run migrations", "error", err)
		db.Close()
		return nil, nil, false
	}

	tracker := session.NewTracker(
		sqlite.NewSessionRepository(db),
		sqlite.NewTimelineRepository(db),
		sqlite.NewProgressRepository(db),
		sqlite.NewDecisionRepository(db),
		sqlite.NewSnapshotRepository(db),
		a.logger,
	)
	return tracker, func() { db.Close() }, true
}

// initCmd creates a pending session before the first prompt so status
// surfaces can show the session immediately. Leftover sessions from a
// previous run of the same shell are completed first.
func (a *hookApp) initCmd(ctx context.Context, tracker *session.Tracker) {
	target := targetFromEnv()
	project := os.Getenv("PWD")
	if project == "" {
		project, _ = os.Getwd()
	}

	if target.ShellPID > 0 {
		if cleaned, err := tracker.MarkCompletedByShellPID(ctx, target.ShellPID); err != nil {
			a.logger.Warn("shell cleanup failed", "shell_pid", target.ShellPID, "error", err)
		} else if cleaned > 0 {
			a.logger.Info("completed stale shell sessions", "shell_pid", target.ShellPID, "count", cleaned)
		}
	}

	_, pendingID, err := tracker.CreatePending(ctx, session.PendingRequest{
		PendingID:    os.Getenv("CLAUDE_PENDING_SESSION_ID"),
		Project:      project,
		AccountAlias: a.cfg.Account.Alias,
		Target:       target,
	})
	if err != nil {
		a.logger.Error("pending session create failed", "error", err)
		return
	}
	a.logger.Info("pending session created", "pending_id", pendingID, "project", project)
}

// goalCmd handles the first-prompt event. A brand new session id either
// promotes the shell's pending session or creates a fresh one; a known
// session records the prompt as another round of user input.
func (a *hookApp) goalCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" || input.Prompt == "" {
		return
	}

	if _, err := tracker.Get(ctx, input.SessionID); err == nil {
		if _, err := tracker.ResolveDecisions(ctx, input.SessionID); err != nil {
			a.logger.Warn("resolving decisions failed", "session", input.SessionID, "error", err)
		}
		if err := tracker.AppendEvent(ctx, input.SessionID, session.EventUserInput, truncate(input.Prompt, maxPromptBytes), nil); err != nil {
			a.logger.Error("recording user input failed", "session", input.SessionID, "error", err)
		}
		return
	}

	if pendingID := os.Getenv("CLAUDE_PENDING_SESSION_ID"); pendingID != "" {
		if _, err := tracker.LinkPending(ctx, pendingID, input.SessionID, input.Prompt); err == nil {
			a.logger.Info("pending session promoted", "session", input.SessionID)
			return
		} else if !errors.Is(err, session.ErrSessionNotFound) {
			a.logger.Warn("pending promotion failed", "pending_id", pendingID, "error", err)
		}
	}

	_, err := tracker.Create(ctx, session.CreateRequest{
		PublicID:     input.SessionID,
		Project:      input.CWD,
		Goal:         input.Prompt,
		AccountAlias: a.cfg.Account.Alias,
		Target:       targetFromEnv(),
	})
	if err != nil {
		a.logger.Error("session create failed", "session", input.SessionID, "error", err)
		return
	}
	a.logger.Info("session created", "session", input.SessionID)
}

// statusCmd sets the session status given as the first argument. When the
// payload names a transcript, its tail is scanned for rate-limit markers
// which override the requested status.
func (a *hookApp) statusCmd(ctx context.Context, tracker *session.Tracker, args []string) {
	if len(args) < 1 {
		a.logger.Error("status subcommand requires a status value")
		return
	}
	status := session.Status(args[0])
	input := a.readInput()
	if input.SessionID == "" {
		return
	}

	if input.TranscriptPath != "" {
		if keyword, found := detectRateLimit(input.TranscriptPath); found {
			a.logger.Info("rate limit detected", "session", input.SessionID, "keyword", keyword)
			status = session.StatusRateLimited
			a.sendRateLimitNotification(ctx, tracker, input.SessionID, keyword)
		}
	}

	if err := tracker.UpdateStatus(ctx, input.SessionID, status); err != nil {
		a.logger.Error("status update failed", "session", input.SessionID, "status", status, "error", err)
	}
}

func (a *hookApp) progressCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" {
		return
	}
	if err := tracker.UpsertProgress(ctx, input.SessionID, input.Todos); err != nil {
		a.logger.Error("progress update failed", "session", input.SessionID, "error", err)
	}
}

func (a *hookApp) inputCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" || input.Prompt == "" {
		return
	}
	if _, err := tracker.ResolveDecisions(ctx, input.SessionID); err != nil {
		a.logger.Warn("resolving decisions failed", "session", input.SessionID, "error", err)
	}
	if err := tracker.AppendEvent(ctx, input.SessionID, session.EventUserInput, truncate(input.Prompt, maxPromptBytes), nil); err != nil {
		a.logger.Error("recording user input failed", "session", input.SessionID, "error", err)
	}
}

func (a *hookApp) decisionCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" || input.Question == "" {
		return
	}
	if _, err := tracker.RaiseDecision(ctx, input.SessionID, input.Question, input.Options, input.Context); err != nil {
		a.logger.Error("raising decision failed", "session", input.SessionID, "error", err)
		return
	}
	if err := tracker.UpdateStatus(ctx, input.SessionID, session.StatusWaitingForUser); err != nil {
		a.logger.Warn("status update failed", "session", input.SessionID, "error", err)
	}
}

func (a *hookApp) resolveCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" {
		return
	}
	if _, err := tracker.ResolveDecisions(ctx, input.SessionID); err != nil {
		a.logger.Error("resolving decisions failed", "session", input.SessionID, "error", err)
	}
}

func (a *hookApp) snapshotCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" {
		return
	}
	mode := session.SnapshotMode(input.Mode)
	if mode == "" {
		mode = session.SnapshotRaw
	}
	if err := tracker.WriteSnapshot(ctx, input.SessionID, input.LastUser, input.LastAssistant, input.Summary, mode); err != nil {
		a.logger.Error("snapshot write failed", "session", input.SessionID, "error", err)
	}
}

// cleanupCmd runs when the wrapped assistant exits. Sessions owned by this
// shell are completed; without a shell pid the payload's session is used.
func (a *hookApp) cleanupCmd(ctx context.Context, tracker *session.Tracker) {
	target := targetFromEnv()
	if target.ShellPID > 0 {
		cleaned, err := tracker.MarkCompletedByShellPID(ctx, target.ShellPID)
		if err != nil {
			a.logger.Error("shell cleanup failed", "shell_pid", target.ShellPID, "error", err)
			return
		}
		a.logger.Info("cleanup finished", "shell_pid", target.ShellPID, "cleaned", cleaned)
		return
	}

	input := a.readInput()
	if input.SessionID == "" {
		return
	}
	if err := tracker.MarkCompleted(ctx, input.SessionID); err != nil {
		a.logger.Error("cleanup failed", "session", input.SessionID, "error", err)
	}
}

// activateCmd forwards a helper action back into the target resolver.
func (a *hookApp) activateCmd(ctx context.Context) {
	input := a.readInput()
	action := input.Action
	if action == "" {
		action = "open"
	}
	payload := []byte(input.Payload)
	if len(payload) == 0 {
		// Without a payload, fall back to the environment descriptor.
		target := targetFromEnv()
		encoded, err := notify.EncodeTarget(activate.Descriptor{
			BundleID: target.BundleID,
			PID:      target.TerminalPID,
			WindowID: target.WindowID,
		})
		if err != nil {
			a.logger.Error("target encode failed", "error", err)
			return
		}
		payload = encoded
	}

	resolver := activate.NewResolver(activate.NewDriver(), a.logger)
	if err := notify.HandleAction(ctx, action, payload, resolver, a.logger); err != nil {
		a.logger.Error("activation failed", "action", action, "error", err)
	}
}

// notifyCmd emits a desktop notification for the session named on stdin,
// enriched with round count and any unresolved question from the store.
func (a *hookApp) notifyCmd(ctx context.Context, tracker *session.Tracker) {
	input := a.readInput()
	if input.SessionID == "" {
		return
	}

	in := notify.Input{
		Kind:            notify.Kind(input.Type),
		SessionID:       input.SessionID,
		AccountAlias:    a.cfg.Account.Alias,
		Message:         input.Message,
		PendingQuestion: input.Question,
		Summary:         summaryFromMap(input.Summary),
	}
	target := targetFromEnv()

	if sess, err := tracker.Get(ctx, input.SessionID); err == nil {
		in.ProjectName = filepath.Base(sess.Project)
		in.OriginalGoal = sess.Goal
		if sess.AccountAlias != "" {
			in.AccountAlias = sess.AccountAlias
		}
		if sess.Target.TerminalPID > 0 || sess.Target.BundleID != "" {
			target = sess.Target
		}
	} else {
		a.logger.Warn("session lookup for notification failed", "session", input.SessionID, "error", err)
	}

	in.RoundCount = tracker.RoundCount(ctx, input.SessionID)
	if in.PendingQuestion == "" {
		if decisions, err := tracker.PendingDecisions(ctx, input.SessionID); err == nil && len(decisions) > 0 {
			in.PendingQuestion = decisions[0].Question
		}
	}
	if in.CurrentTask == "" && in.Summary != nil {
		in.CurrentTask = in.Summary.CurrentTask
	}
	if in.CurrentTask == "" {
		in.CurrentTask = input.Message
	}

	dispatcher := notify.NewDispatcher(a.cfg.Notify.HelperPath, a.logger)
	if err := dispatcher.Send(ctx, in, activate.Descriptor{
		BundleID: target.BundleID,
		PID:      target.TerminalPID,
		WindowID: target.WindowID,
	}); err != nil {
		a.logger.Error("notification failed", "session", input.SessionID, "error", err)
	}
}

func (a *hookApp) sendRateLimitNotification(ctx context.Context, tracker *session.Tracker, ref, keyword string) {
	in := notify.Input{
		Kind:         notify.KindRateLimited,
		SessionID:    ref,
		AccountAlias: a.cfg.Account.Alias,
		Message:      fmt.Sprintf("API rate limit detected (%s)", keyword),
	}
	target := targetFromEnv()
	if sess, err := tracker.Get(ctx, ref); err == nil {
		in.OriginalGoal = sess.Goal
		in.ProjectName = filepath.Base(sess.Project)
		if sess.Target.TerminalPID > 0 || sess.Target.BundleID != "" {
			target = sess.Target
		}
	}

	dispatcher := notify.NewDispatcher(a.cfg.Notify.HelperPath, a.logger)
	if err := dispatcher.Send(ctx, in, activate.Descriptor{
		BundleID: target.BundleID,
		PID:      target.TerminalPID,
		WindowID: target.WindowID,
	}); err != nil {
		a.logger.Error("rate limit notification failed", "session", ref, "error", err)
	}
}

func (a *hookApp) readInput() hookInput {
	var input hookInput
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		a.logger.Warn("reading stdin failed", "error", err)
		return input
	}
	if len(data) == 0 {
		return input
	}
	if err := json.Unmarshal(data, &input); err != nil {
		a.logger.Warn("parsing hook input failed", "error", err)
	}
	return input
}

// writeHookOutput emits the response the hook protocol expects. Suppressing
// output keeps the event invisible in the wrapped session.
func writeHookOutput() {
	fmt.Println(`{"continue":true,"suppressOutput":true}`)
}

// targetFromEnv captures the terminal window descriptor the shell wrapper
// exports before launching the assistant.
func targetFromEnv() session.Target {
	bundleID := os.Getenv("CLAUDE_TERM_BUNDLE_ID")
	if bundleID == "" {
		bundleID = "com.apple.Terminal"
	}
	return session.Target{
		BundleID:    bundleID,
		TerminalPID: envInt("CLAUDE_TERM_PID"),
		ShellPID:    envInt("CLAUDE_SHELL_PID"),
		WindowID:    envInt("CLAUDE_CG_WINDOW_ID"),
	}
}

func envInt(key string) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return value
}

func summaryFromMap(raw map[string]any) *notify.Summary {
	if len(raw) == 0 {
		return nil
	}
	return &notify.Summary{
		Mode:            stringField(raw, "mode"),
		UserPrompt:      stringField(raw, "user_prompt"),
		CurrentTask:     stringField(raw, "current_task"),
		AISummary:       stringField(raw, "ai_summary"),
		PendingQuestion: stringField(raw, "pending_question"),
	}
}

func stringField(m map[string]any, key string) string {
	if value, ok := m[key].(string); ok {
		return value
	}
	return ""
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
