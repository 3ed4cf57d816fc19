// Package timeline derives display-ready nodes from a session's raw event
// log. The derivation is pure: the same event sequence always produces the
// same nodes, independent of wall-clock time.
package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/licycle/sessionwatch/internal/domain/session"
)

// NodeType classifies a display node.
type NodeType string

const (
	NodeStart      NodeType = "start"
	NodeWaiting    NodeType = "waiting"
	NodePermission NodeType = "permission"
	NodeProgress   NodeType = "progress"
	NodeComplete   NodeType = "complete"
	NodeInput      NodeType = "input"
	NodeSummary    NodeType = "summary"
)

// DisplayStatus is the visual state of a node in the timeline view.
type DisplayStatus string

const (
	DisplayCompleted DisplayStatus = "completed"
	DisplayCurrent   DisplayStatus = "current"
	DisplayPending   DisplayStatus = "pending"
)

// Node is one derived timeline item. Never persisted.
type Node struct {
	Time        string        `json:"time"`
	Type        NodeType      `json:"type"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Detail      string        `json:"detail,omitempty"`
	Status      DisplayStatus `json:"status"`
	Timestamp   time.Time     `json:"-"`
}

const (
	// DefaultMaxNodes bounds how much history the display view returns.
	DefaultMaxNodes = 10

	// suppressionWindow drops status changes arriving too close to the
	// previously emitted status node, so flapping status doesn't storm the
	// view. It is measured against status nodes only: a status change right
	// after a progress or input node is still news worth showing.
	suppressionWindow = 10 * time.Second

	// summaryBudget caps the short description of text-bearing nodes. The
	// full text stays in Detail for the detail view.
	summaryBudget = 50
)

// statusTitles names the transitions worth a node of their own. Routine
// working/idle/rate_limited chatter stays in the raw event log; only the
// states that ask something of the user, plus completion, surface here.
var statusTitles = map[session.Status]struct {
	nodeType NodeType
	title    string
	desc     string
}{
	session.StatusWaitingForUser: {NodeWaiting, "Awaiting decision", "Needs user input"},
	session.StatusWaitingPerm:    {NodePermission, "Awaiting permission", "Needs permission approval"},
	session.StatusCompleted:      {NodeComplete, "Task completed", "All steps finished"},
}

// Reconstruct derives at most maxNodes display nodes from an ordered event
// log. maxNodes <= 0 selects DefaultMaxNodes. Events with malformed or
// missing metadata are skipped where metadata is required; reconstruction
// always continues.
func Reconstruct(events []session.Event, maxNodes int) []Node {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxNodes
	}

	var nodes []Node
	var lastStatusEmitted time.Time
	var haveStatusNode bool
	var lastStatus string
	lastCompleted := 0

	for _, event := range events {
		var node *Node

		switch event.Type {
		case session.EventGoalSet:
			node = goalNode(event)

		case session.EventStatusChange:
			if haveStatusNode && event.Timestamp.Sub(lastStatusEmitted) < suppressionWindow {
				continue
			}
			if event.Content == lastStatus {
				continue
			}
			lastStatus = event.Content
			if node = statusNode(event); node != nil {
				lastStatusEmitted = event.Timestamp
				haveStatusNode = true
			}

		case session.EventProgressUpdate:
			completed, total, ok := progressCounts(event.Metadata)
			if !ok {
				continue
			}
			if completed > lastCompleted {
				node = progressNode(event, completed, total)
			}
			lastCompleted = completed

		case session.EventUserInput:
			node = inputNode(event)

		case session.EventAISummary:
			node = summaryNode(event)
		}

		if node != nil {
			nodes = append(nodes, *node)
		}
	}

	// The tip of an unfinished timeline is always the current node, whatever
	// display status it was assigned above.
	if len(nodes) > 0 && nodes[len(nodes)-1].Type != NodeComplete {
		nodes[len(nodes)-1].Status = DisplayCurrent
	}

	if len(nodes) > maxNodes {
		nodes = nodes[len(nodes)-maxNodes:]
	}
	return nodes
}

func goalNode(event session.Event) *Node {
	desc := truncate(event.Content, summaryBudget)
	if desc == "" {
		desc = "Task started"
	}
	return &Node{
		Time:        timeLabel(event.Timestamp),
		Type:        NodeStart,
		Title:       "Task started",
		Description: desc,
		Detail:      event.Content,
		Status:      DisplayCompleted,
		Timestamp:   event.Timestamp,
	}
}

func statusNode(event session.Event) *Node {
	entry, ok := statusTitles[session.Status(event.Content)]
	if !ok {
		return nil
	}
	status := DisplayCompleted
	if entry.nodeType == NodeWaiting || entry.nodeType == NodePermission {
		status = DisplayCurrent
	}
	return &Node{
		Time:        timeLabel(event.Timestamp),
		Type:        entry.nodeType,
		Title:       entry.title,
		Description: entry.desc,
		Status:      status,
		Timestamp:   event.Timestamp,
	}
}

func progressNode(event session.Event, completed, total int) *Node {
	if completed == total && total > 0 {
		return &Node{
			Time:        timeLabel(event.Timestamp),
			Type:        NodeComplete,
			Title:       "All todos complete",
			Description: fmt.Sprintf("Finished all %d items", total),
			Status:      DisplayCompleted,
			Timestamp:   event.Timestamp,
		}
	}
	return &Node{
		Time:        timeLabel(event.Timestamp),
		Type:        NodeProgress,
		Title:       "Progress",
		Description: fmt.Sprintf("Completed %d/%d items", completed, total),
		Status:      DisplayCompleted,
		Timestamp:   event.Timestamp,
	}
}

func inputNode(event session.Event) *Node {
	desc := truncate(event.Content, summaryBudget)
	if desc == "" {
		desc = "User input"
	}
	return &Node{
		Time:        timeLabel(event.Timestamp),
		Type:        NodeInput,
		Title:       "User input",
		Description: desc,
		Detail:      event.Content,
		Status:      DisplayCompleted,
		Timestamp:   event.Timestamp,
	}
}

// summaryNode joins the structured snapshot fields, one per line, so the
// detail view reads as a small status card.
func summaryNode(event session.Event) *Node {
	var lines []string
	for _, field := range []struct{ key, label string }{
		{"current_task", "Task"},
		{"progress_summary", "Progress"},
		{"next_step", "Next"},
		{"pending_decision", "Pending"},
	} {
		if value, ok := event.Metadata[field.key].(string); ok && value != "" {
			lines = append(lines, field.label+": "+value)
		}
	}

	detail := strings.Join(lines, "\n")
	desc := truncate(event.Content, summaryBudget)
	if desc == "" && len(lines) > 0 {
		desc = truncate(lines[0], summaryBudget)
	}
	if desc == "" {
		desc = "Summary updated"
	}
	return &Node{
		Time:        timeLabel(event.Timestamp),
		Type:        NodeSummary,
		Title:       "Summary",
		Description: desc,
		Detail:      detail,
		Status:      DisplayCompleted,
		Timestamp:   event.Timestamp,
	}
}

func progressCounts(metadata map[string]any) (completed, total int, ok bool) {
	completed, okC := intField(metadata, "completed")
	total, okT := intField(metadata, "total")
	return completed, total, okC && okT
}

// intField tolerates the numeric types JSON decoding produces.
func intField(metadata map[string]any, key string) (int, bool) {
	switch v := metadata[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func timeLabel(t time.Time) string {
	return t.Format("15:04")
}

func truncate(s string, budget int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= budget {
		return string(runes)
	}
	return string(runes[:budget-3]) + "..."
}
