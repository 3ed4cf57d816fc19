// Package mcp exposes the session read model and maintenance operations as
// MCP tools, over stdio or streamable HTTP.
package mcp

import (
	"context"
	"log/slog"

	"github.com/licycle/sessionwatch/internal/activate"
	"github.com/licycle/sessionwatch/internal/domain/session"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// TrackerService defines session operations needed by MCP.
type TrackerService interface {
	Get(ctx context.Context, ref string) (*session.Session, error)
	List(ctx context.Context, filter session.ListFilter) []session.Session
	Events(ctx context.Context, ref string, limit int) ([]session.Event, error)
	Progress(ctx context.Context, ref string) (*session.Progress, error)
	PendingDecisions(ctx context.Context, ref string) ([]session.Decision, error)
	Overall(ctx context.Context) session.OverallStatus
	MarkCompleted(ctx context.Context, ref string) error
	Delete(ctx context.Context, ref string) error
}

// SweeperService defines the on-demand liveness sweep.
type SweeperService interface {
	Sweep(ctx context.Context) int
}

// ActivatorService brings a session's terminal window to the foreground.
type ActivatorService interface {
	Activate(ctx context.Context, target activate.Descriptor)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Tracker   TrackerService
	Sweeper   SweeperService
	Activator ActivatorService
}

// Config contains server configuration.
type Config struct {
	Services Services
	Logger   *slog.Logger
}

const serverInstructions = `sessionwatch tracks long-running assistant terminal sessions.

Each session records its goal, current status, a timeline of lifecycle
events, task progress, unresolved questions, and the terminal window it
started in.

Typical flow:
1) list_sessions to see what is running (active_only=true skips completed).
2) get_session / get_timeline for one session's detail. Timeline output is
   already condensed; raise max_nodes if you need more history.
3) get_overall_status for a one-line rollup across all sessions.
4) sweep_dead_sessions to reap sessions whose shell process has exited.
5) activate_target to bring a session's terminal window to the foreground.

Session refs accept the public session id or, for sessions still waiting on
their first prompt, the pending id.`

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "sessionwatch",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
