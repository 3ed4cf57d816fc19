package session

import "time"

// Status represents the most recent status a producer asserted for a session.
// The store never computes it; producers write it via status_change events.
type Status string

const (
	StatusWorking         Status = "working"
	StatusIdle            Status = "idle"
	StatusWaitingForUser  Status = "waiting_for_user"
	StatusWaitingPerm     Status = "waiting_permission"
	StatusRateLimited     Status = "rate_limited"
	StatusExecutingTool   Status = "executing_tool"
	StatusSubagentWorking Status = "subagent_working"
	StatusCompleted       Status = "completed"
)

// Terminal reports whether the status ends a session's lifecycle.
func (s Status) Terminal() bool {
	return s == StatusCompleted
}

// statusPriority orders statuses for the overall-status rollup. Lower is more
// urgent. Urgency tiers come first; among the rest, activity outranks
// idleness so the headline reflects what is actually happening.
var statusPriority = map[Status]int{
	StatusWaitingForUser:  0,
	StatusWaitingPerm:     1,
	StatusRateLimited:     2,
	StatusWorking:         3,
	StatusExecutingTool:   4,
	StatusSubagentWorking: 5,
	StatusIdle:            6,
	StatusCompleted:       7,
}

// Priority returns the rollup rank of a status. Unknown statuses sort last.
func (s Status) Priority() int {
	if p, ok := statusPriority[s]; ok {
		return p
	}
	return len(statusPriority)
}

// Target identifies the terminal window a session started in. Captured once
// at session start and echoed through notifications so a click can restore
// the originating window. All fields are optional.
type Target struct {
	BundleID    string `json:"bundle_id,omitempty"`
	TerminalPID int    `json:"terminal_pid,omitempty"`
	ShellPID    int    `json:"shell_pid,omitempty"`
	WindowID    int    `json:"window_id,omitempty"`
}

// Session is one tracked unit of assistant work. PK is the immutable internal
// identity used by all joins; PublicID is a renamable alias that may be empty
// while the session is still pending (identified by PendingID instead).
type Session struct {
	PK           int64     `json:"pk"`
	PublicID     string    `json:"session_id,omitempty"`
	PendingID    string    `json:"pending_id,omitempty"`
	Project      string    `json:"project"`
	Goal         string    `json:"original_goal"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	AccountAlias string    `json:"account_alias"`
	Target       Target    `json:"target"`
}

// Ref returns the public id when present, otherwise the pending id.
func (s *Session) Ref() string {
	if s.PublicID != "" {
		return s.PublicID
	}
	return s.PendingID
}

// EventType classifies timeline events.
type EventType string

const (
	EventGoalSet        EventType = "goal_set"
	EventStatusChange   EventType = "status_change"
	EventProgressUpdate EventType = "progress_update"
	EventUserInput      EventType = "user_input"
	EventAISummary      EventType = "ai_summary"
)

// Event is one immutable, timestamped fact appended to a session's history.
type Event struct {
	ID        int64          `json:"id"`
	SessionPK int64          `json:"session_pk"`
	Type      EventType      `json:"event_type"`
	Content   string         `json:"content,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Todo is one item of a session's todo list.
type Todo struct {
	Content    string `json:"content"`
	Status     string `json:"status"`
	ActiveForm string `json:"activeForm,omitempty"`
}

// Progress is the latest todo-list snapshot for a session. Overwritten
// wholesale on each update.
type Progress struct {
	SessionPK      int64     `json:"session_pk"`
	Todos          []Todo    `json:"todos,omitempty"`
	CompletedCount int       `json:"completed_count"`
	TotalCount     int       `json:"total_count"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Decision is a yet-unresolved question posed to the user.
type Decision struct {
	ID         int64      `json:"id"`
	SessionPK  int64      `json:"session_pk"`
	Question   string     `json:"question"`
	Options    []string   `json:"options,omitempty"`
	Context    string     `json:"context,omitempty"`
	Resolved   bool       `json:"resolved"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// SnapshotMode tags a snapshot as raw extraction or AI-annotated.
type SnapshotMode string

const (
	SnapshotRaw SnapshotMode = "raw"
	SnapshotAI  SnapshotMode = "ai"
)

// Snapshot is a point-in-time textual summary of a session.
type Snapshot struct {
	ID            int64          `json:"id"`
	SessionPK     int64          `json:"session_pk"`
	LastUser      string         `json:"last_user_message,omitempty"`
	LastAssistant string         `json:"last_assistant_message,omitempty"`
	Summary       map[string]any `json:"summary,omitempty"`
	Mode          SnapshotMode   `json:"mode"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ListFilter narrows ListSessions results. Zero value lists everything.
type ListFilter struct {
	Statuses     []Status
	AccountAlias string
	Since        *time.Time
	Until        *time.Time
	Query        string // free-text match over public id, goal and project
	ActiveOnly   bool   // exclude terminal sessions
}

// OverallStatus summarizes all non-terminal sessions: the highest-priority
// status present and how many sessions share it.
type OverallStatus struct {
	Status Status `json:"status"`
	Count  int    `json:"count"`
}
