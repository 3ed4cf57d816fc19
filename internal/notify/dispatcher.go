package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/licycle/sessionwatch/internal/activate"
)

const helperTimeout = 10 * time.Second

// runner executes the helper invocation. Split out so tests can capture the
// argv without a real binary on disk.
type runner func(ctx context.Context, name string, args ...string) error

// Dispatcher sends notifications through the helper binary, falling back to
// a plain osascript banner when no helper is configured or the binary is
// missing. Sending is best-effort: callers never fail on a lost notification.
type Dispatcher struct {
	helperPath string
	logger     *slog.Logger
	run        runner
}

// NewDispatcher creates a Dispatcher. helperPath may be empty.
func NewDispatcher(helperPath string, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		helperPath: helperPath,
		logger:     logger,
		run:        runCommand,
	}
}

// Send formats and emits a notification for the given target window. The
// target rides along so the helper can activate the right window when the
// user clicks the banner.
func (d *Dispatcher) Send(ctx context.Context, in Input, target activate.Descriptor) error {
	content := Format(in)

	if d.helperPath == "" {
		return d.sendOsascript(ctx, content)
	}

	// Args: notify <title> <body> <subtitle> <sound> <category> <bundle_id> <pid> <window_id>
	args := []string{
		"notify",
		content.Title,
		content.Body,
		content.Subtitle,
		in.Kind.Sound(),
		in.Kind.Category(),
		target.BundleID,
		strconv.Itoa(target.PID),
		strconv.Itoa(target.WindowID),
	}

	ctx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	if err := d.run(ctx, d.helperPath, args...); err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			d.logger.Warn("notify helper missing, falling back to osascript", "helper", d.helperPath)
			return d.sendOsascript(ctx, content)
		}
		d.logger.Error("notify helper failed", "helper", d.helperPath, "error", err)
		return fmt.Errorf("notify helper: %w", err)
	}

	d.logger.Debug("notification sent", "title", content.Title)
	return nil
}

// sendOsascript shows a plain banner without actions or subtitle.
func (d *Dispatcher) sendOsascript(ctx context.Context, content Content) error {
	script := fmt.Sprintf("display notification %q with title %q sound name \"Glass\"",
		content.Body, content.Title)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := d.run(ctx, "osascript", "-e", script); err != nil {
		d.logger.Error("osascript notification failed", "error", err)
		return fmt.Errorf("osascript notification: %w", err)
	}
	return nil
}

func runCommand(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
