package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/licycle/sessionwatch/internal/activate"
)

// Activator is the slice of the target resolver the action handler needs.
type Activator interface {
	Activate(ctx context.Context, target activate.Descriptor)
}

// EncodeTarget serializes a target descriptor into the opaque payload carried
// through the notification round trip.
func EncodeTarget(target activate.Descriptor) ([]byte, error) {
	data, err := json.Marshal(target)
	if err != nil {
		return nil, fmt.Errorf("encode target payload: %w", err)
	}
	return data, nil
}

// HandleAction reacts to a user interaction reported by the helper. The
// payload is the descriptor emitted with the original notification, passed
// back verbatim. "open" and "view" activate the target window; "dismiss" and
// unknown verbs are no-ops.
func HandleAction(ctx context.Context, action string, payload []byte, activator Activator, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	switch action {
	case "open", "view":
		var target activate.Descriptor
		if err := json.Unmarshal(payload, &target); err != nil {
			return fmt.Errorf("decode target payload: %w", err)
		}
		activator.Activate(ctx, target)
		return nil
	case "dismiss", "":
		return nil
	default:
		logger.Debug("ignoring unknown notification action", "action", action)
		return nil
	}
}
