//go:build !darwin

package activate

import (
	"context"
	"errors"
)

var errUnsupported = errors.New("window activation not supported on this platform")

// NoopDriver is used on platforms without a window automation backend. Every
// call fails, which the resolver already treats as a logged no-op.
type NoopDriver struct{}

// NewDriver returns the platform window driver.
func NewDriver() Driver {
	return NoopDriver{}
}

func (NoopDriver) ProcessExists(context.Context, int) bool { return false }

func (NoopDriver) ListWindows(context.Context, int) ([]Window, error) { return nil, errUnsupported }

func (NoopDriver) UnminimizeWindow(context.Context, int, int) error { return errUnsupported }

func (NoopDriver) RaiseWindow(context.Context, int, int) error { return errUnsupported }

func (NoopDriver) UnminimizeAll(context.Context, int) error { return errUnsupported }

func (NoopDriver) UnhideProcess(context.Context, int) error { return errUnsupported }

func (NoopDriver) ActivateProcess(context.Context, int) error { return errUnsupported }

func (NoopDriver) UnhideApp(context.Context, string) error { return errUnsupported }

func (NoopDriver) LaunchApp(context.Context, string) error { return errUnsupported }
