// Package notify formats and dispatches desktop notifications for session
// state changes. Formatting is pure so it can be tested without a helper
// binary; dispatching shells out to the configured helper and degrades to
// osascript when the helper is missing.
package notify

import (
	"fmt"
	"strings"
)

// Kind classifies a notification. It is coarser than session status: several
// statuses collapse into one kind and the kind drives emoji, wording, and
// the action category the helper attaches.
type Kind string

const (
	KindDecisionNeeded   Kind = "decision_needed"
	KindIdle             Kind = "idle"
	KindPermissionNeeded Kind = "permission_needed"
	KindCompleted        Kind = "completed"
	KindWorking          Kind = "working"
	KindRateLimited      Kind = "rate_limited"
	KindProgress         Kind = "progress"
)

var kindEmoji = map[Kind]string{
	KindDecisionNeeded:   "⚠️",
	KindIdle:             "\U0001f4a4",
	KindPermissionNeeded: "\U0001f510",
	KindCompleted:        "✅",
	KindWorking:          "\U0001f504",
	KindRateLimited:      "⏱️",
	KindProgress:         "\U0001f4c8",
}

var kindText = map[Kind]string{
	KindDecisionNeeded:   "Decision Needed",
	KindIdle:             "Idle",
	KindPermissionNeeded: "Permission",
	KindCompleted:        "Completed",
	KindWorking:          "Working",
	KindRateLimited:      "Rate Limited",
	KindProgress:         "Progress",
}

// Category returns the action-category identifier the helper app uses to
// decide which buttons the notification carries.
func (k Kind) Category() string {
	switch k {
	case KindDecisionNeeded:
		return "DECISION_NEEDED"
	case KindPermissionNeeded:
		return "PERMISSION_NEEDED"
	default:
		return "TASK_STATUS"
	}
}

// Sound returns the helper sound name for this kind.
func (k Kind) Sound() string {
	switch k {
	case KindDecisionNeeded, KindPermissionNeeded:
		return "Sosumi"
	case KindCompleted:
		return "Hero"
	case KindProgress:
		return "Pop"
	default:
		return "Glass"
	}
}

// Summary carries the latest conversation snapshot, either AI-condensed or
// raw transcript excerpts.
type Summary struct {
	Mode            string
	UserPrompt      string
	CurrentTask     string
	AISummary       string
	PendingQuestion string
}

// Input is everything the formatter may draw from. Zero values are skipped.
type Input struct {
	Kind            Kind
	SessionID       string
	AccountAlias    string
	RoundCount      int
	CurrentTask     string
	ProjectName     string
	OriginalGoal    string
	Message         string
	PendingQuestion string
	Summary         *Summary
}

// Content is a fully formatted notification.
type Content struct {
	Title    string
	Subtitle string
	Body     string
}

// Format renders a notification. Raw-mode summaries get the transcript
// excerpt layout; otherwise the condensed layout is used, tagged [AI] only
// when an AI summary actually exists.
func Format(in Input) Content {
	if in.Summary != nil && in.Summary.Mode == "raw" {
		return formatRaw(in)
	}

	mode := ""
	if in.Summary != nil && in.Summary.Mode == "ai" && in.Summary.AISummary != "" {
		mode = "ai"
	}
	return Content{
		Title:    formatTitle(in),
		Subtitle: formatSubtitle(in.CurrentTask, in.ProjectName, mode),
		Body:     formatBody(in),
	}
}

// formatTitle renders "{emoji} {status} [{account}][{sid4}] R{round}".
// The default account carries no tag and a zero round is omitted.
func formatTitle(in Input) string {
	var b strings.Builder
	b.WriteString(kindEmoji[in.Kind])
	b.WriteString(" ")
	if text, ok := kindText[in.Kind]; ok {
		b.WriteString(text)
	} else {
		b.WriteString("Notification")
	}
	b.WriteString(" ")

	if in.AccountAlias != "" && in.AccountAlias != "default" {
		fmt.Fprintf(&b, "[%s]", clip(in.AccountAlias, 8))
	}
	if in.SessionID != "" {
		fmt.Fprintf(&b, "[%s]", clip(in.SessionID, 4))
	}
	if in.RoundCount > 0 {
		fmt.Fprintf(&b, " R%d", in.RoundCount)
	}
	return strings.TrimSpace(b.String())
}

func formatSubtitle(currentTask, projectName, mode string) string {
	maxLen := 35
	tag := ""
	if mode != "" {
		tag = "[" + strings.ToUpper(mode) + "] "
		maxLen = 30
	}
	task := currentTask
	if task == "" {
		task = projectName
	}
	return tag + ellipsize(task, maxLen)
}

func formatBody(in Input) string {
	if in.Kind == KindCompleted {
		return "All steps completed"
	}
	if in.Kind == KindPermissionNeeded && in.Message != "" {
		return "Request: " + clip(in.Message, 70)
	}
	if in.PendingQuestion != "" {
		return ellipsize(in.PendingQuestion, 80)
	}
	if in.OriginalGoal != "" {
		return ellipsize(in.OriginalGoal, 80)
	}
	if in.Message != "" {
		return ellipsize(in.Message, 80)
	}
	return ""
}

func formatRaw(in Input) Content {
	summary := in.Summary

	task := strings.TrimSpace(strings.ReplaceAll(summary.UserPrompt, "\n", " "))
	if task == "" {
		task = in.ProjectName
	}

	body := ""
	switch {
	case summary.PendingQuestion != "":
		body = "AI needs input: " + clip(summary.PendingQuestion, 60)
	case summary.CurrentTask != "":
		body = clip(summary.CurrentTask, 80)
	case in.OriginalGoal != "":
		body = clip(in.OriginalGoal, 80)
	}

	return Content{
		Title:    formatTitle(in),
		Subtitle: "[RAW] " + ellipsize(task, 25),
		Body:     body,
	}
}

// clip hard-truncates s to max runes.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ellipsize truncates s to max runes, replacing the tail with "..." when cut.
func ellipsize(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
