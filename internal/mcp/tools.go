package mcp

import (
	"context"
	"time"

	"github.com/licycle/sessionwatch/internal/activate"
	"github.com/licycle/sessionwatch/internal/domain/session"
	"github.com/licycle/sessionwatch/internal/domain/timeline"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ListSessionsParams are the arguments for list_sessions.
type ListSessionsParams struct {
	Statuses     []string `json:"statuses,omitempty" jsonschema:"filter by status values"`
	AccountAlias string   `json:"account_alias,omitempty" jsonschema:"filter by account alias"`
	Query        string   `json:"query,omitempty" jsonschema:"free-text match over session id, goal and project"`
	Since        string   `json:"since,omitempty" jsonschema:"RFC 3339 lower bound on last activity"`
	Until        string   `json:"until,omitempty" jsonschema:"RFC 3339 upper bound on last activity"`
	ActiveOnly   bool     `json:"active_only,omitempty" jsonschema:"exclude completed sessions"`
}

// ListSessionsResult is the response for list_sessions.
type ListSessionsResult struct {
	Sessions []session.Session `json:"sessions"`
	Count    int               `json:"count"`
}

// SessionRefParams identify one session by public or pending id.
type SessionRefParams struct {
	Ref string `json:"ref" jsonschema:"public session id, or pending id for sessions awaiting their first prompt"`
}

// GetSessionResult is the response for get_session.
type GetSessionResult struct {
	Session   session.Session    `json:"session"`
	Progress  *session.Progress  `json:"progress,omitempty"`
	Decisions []session.Decision `json:"pending_decisions,omitempty"`
}

// GetTimelineParams are the arguments for get_timeline.
type GetTimelineParams struct {
	Ref      string `json:"ref" jsonschema:"public session id or pending id"`
	MaxNodes int    `json:"max_nodes,omitempty" jsonschema:"maximum condensed nodes to return, default 10"`
}

// GetTimelineResult is the response for get_timeline.
type GetTimelineResult struct {
	Nodes []timeline.Node `json:"nodes"`
	Count int             `json:"count"`
}

// SweepResult is the response for sweep_dead_sessions.
type SweepResult struct {
	Cleaned int `json:"cleaned"`
}

// AckResult acknowledges a mutation with no other payload.
type AckResult struct {
	OK bool `json:"ok"`
}

// ActivateTargetParams are the arguments for activate_target.
type ActivateTargetParams struct {
	Ref string `json:"ref" jsonschema:"public session id or pending id"`
}

func registerTools(server *sdkmcp.Server, services Services) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "list_sessions",
		Description: "List tracked sessions, optionally filtered by status, account, time window, or free text",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params ListSessionsParams) (*sdkmcp.CallToolResult, ListSessionsResult, error) {
		filter := session.ListFilter{
			AccountAlias: params.AccountAlias,
			Query:        params.Query,
			ActiveOnly:   params.ActiveOnly,
		}
		for _, status := range params.Statuses {
			filter.Statuses = append(filter.Statuses, session.Status(status))
		}
		since, err := parseTimeParam(params.Since)
		if err != nil {
			return nil, ListSessionsResult{}, &APIError{Code: "INVALID_INPUT", Message: "invalid since timestamp", RecoveryHint: "Use RFC 3339"}
		}
		filter.Since = since
		until, err := parseTimeParam(params.Until)
		if err != nil {
			return nil, ListSessionsResult{}, &APIError{Code: "INVALID_INPUT", Message: "invalid until timestamp", RecoveryHint: "Use RFC 3339"}
		}
		filter.Until = until

		sessions := services.Tracker.List(ctx, filter)
		return nil, ListSessionsResult{Sessions: sessions, Count: len(sessions)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_session",
		Description: "Get one session with its current progress and unresolved questions",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params SessionRefParams) (*sdkmcp.CallToolResult, GetSessionResult, error) {
		sess, err := services.Tracker.Get(ctx, params.Ref)
		if err != nil {
			return nil, GetSessionResult{}, MapError(err)
		}
		result := GetSessionResult{Session: *sess}
		// Progress and decisions are best-effort detail; a read failure on
		// either should not hide the session itself.
		if progress, err := services.Tracker.Progress(ctx, params.Ref); err == nil {
			result.Progress = progress
		}
		if decisions, err := services.Tracker.PendingDecisions(ctx, params.Ref); err == nil {
			result.Decisions = decisions
		}
		return nil, result, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_timeline",
		Description: "Get a session's condensed timeline of lifecycle events",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params GetTimelineParams) (*sdkmcp.CallToolResult, GetTimelineResult, error) {
		events, err := services.Tracker.Events(ctx, params.Ref, 0)
		if err != nil {
			return nil, GetTimelineResult{}, MapError(err)
		}
		nodes := timeline.Reconstruct(events, params.MaxNodes)
		return nil, GetTimelineResult{Nodes: nodes, Count: len(nodes)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "get_overall_status",
		Description: "Get the highest-priority status across all non-completed sessions",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, session.OverallStatus, error) {
		return nil, services.Tracker.Overall(ctx), nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "sweep_dead_sessions",
		Description: "Mark sessions whose shell process has exited as completed; returns how many were cleaned",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ struct{}) (*sdkmcp.CallToolResult, SweepResult, error) {
		return nil, SweepResult{Cleaned: services.Sweeper.Sweep(ctx)}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "mark_completed",
		Description: "Mark a session as completed",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params SessionRefParams) (*sdkmcp.CallToolResult, AckResult, error) {
		if err := services.Tracker.MarkCompleted(ctx, params.Ref); err != nil {
			return nil, AckResult{}, MapError(err)
		}
		return nil, AckResult{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "delete_session",
		Description: "Delete a session and all of its history",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params SessionRefParams) (*sdkmcp.CallToolResult, AckResult, error) {
		if err := services.Tracker.Delete(ctx, params.Ref); err != nil {
			return nil, AckResult{}, MapError(err)
		}
		return nil, AckResult{OK: true}, nil
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        "activate_target",
		Description: "Bring a session's terminal window to the foreground",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, params ActivateTargetParams) (*sdkmcp.CallToolResult, AckResult, error) {
		sess, err := services.Tracker.Get(ctx, params.Ref)
		if err != nil {
			return nil, AckResult{}, MapError(err)
		}
		services.Activator.Activate(ctx, activate.Descriptor{
			BundleID: sess.Target.BundleID,
			PID:      sess.Target.TerminalPID,
			WindowID: sess.Target.WindowID,
		})
		return nil, AckResult{OK: true}, nil
	})
}

func parseTimeParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
