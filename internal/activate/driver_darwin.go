//go:build darwin

package activate

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// OsascriptDriver drives the macOS window manager through System Events,
// the same path the shell wrapper uses for notifications. Accessibility
// permission is required; calls fail cleanly without it.
type OsascriptDriver struct{}

// NewDriver returns the platform window driver.
func NewDriver() Driver {
	return OsascriptDriver{}
}

func (OsascriptDriver) ProcessExists(_ context.Context, pid int) bool {
	err := unix.Kill(pid, 0)
	return err == nil || errors.Is(err, unix.EPERM)
}

func (d OsascriptDriver) ListWindows(ctx context.Context, pid int) ([]Window, error) {
	script := fmt.Sprintf(`
tell application "System Events"
	set out to ""
	tell (first process whose unix id is %d)
		repeat with w in windows
			try
				set wid to id of w
			on error
				set wid to -1
			end try
			set mini to value of attribute "AXMinimized" of w
			set out to out & wid & tab & mini & tab & (name of w) & linefeed
		end repeat
	end tell
	return out
end tell`, pid)

	output, err := runOsascript(ctx, script)
	if err != nil {
		return nil, err
	}

	var windows []Window
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), "\t", 3)
		if len(fields) < 2 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(fields[0]))
		if err != nil {
			continue
		}
		window := Window{ID: id, Minimized: strings.TrimSpace(fields[1]) == "true"}
		if len(fields) == 3 {
			window.Title = fields[2]
		}
		windows = append(windows, window)
	}
	return windows, nil
}

func (d OsascriptDriver) UnminimizeWindow(ctx context.Context, pid, windowID int) error {
	script := fmt.Sprintf(`
tell application "System Events"
	tell (first process whose unix id is %d)
		set value of attribute "AXMinimized" of (first window whose id is %d) to false
	end tell
end tell`, pid, windowID)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) RaiseWindow(ctx context.Context, pid, windowID int) error {
	script := fmt.Sprintf(`
tell application "System Events"
	tell (first process whose unix id is %d)
		perform action "AXRaise" of (first window whose id is %d)
	end tell
end tell`, pid, windowID)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) UnminimizeAll(ctx context.Context, pid int) error {
	script := fmt.Sprintf(`
tell application "System Events"
	tell (first process whose unix id is %d)
		set value of attribute "AXMinimized" of every window to false
	end tell
end tell`, pid)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) UnhideProcess(ctx context.Context, pid int) error {
	script := fmt.Sprintf(`
tell application "System Events"
	set visible of (first process whose unix id is %d) to true
end tell`, pid)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) ActivateProcess(ctx context.Context, pid int) error {
	script := fmt.Sprintf(`
tell application "System Events"
	set frontmost of (first process whose unix id is %d) to true
end tell`, pid)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) UnhideApp(ctx context.Context, bundleID string) error {
	script := fmt.Sprintf(`
tell application "System Events"
	if exists (first process whose bundle identifier is %q) then
		set visible of (first process whose bundle identifier is %q) to true
	end if
end tell`, bundleID, bundleID)
	_, err := runOsascript(ctx, script)
	return err
}

func (d OsascriptDriver) LaunchApp(ctx context.Context, bundleID string) error {
	_, err := runOsascript(ctx, fmt.Sprintf(`tell application id %q to activate`, bundleID))
	return err
}

func runOsascript(ctx context.Context, script string) (string, error) {
	cmd := exec.CommandContext(ctx, "osascript", "-e", script)
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("osascript: %s", strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("osascript: %w", err)
	}
	return string(output), nil
}
