//go:build unix

package sweeper

import (
	"errors"

	"golang.org/x/sys/unix"
)

// SignalProber probes liveness with signal zero: delivery is never attempted,
// only the permission and existence checks run.
type SignalProber struct{}

// Probe reports whether pid is alive. EPERM means the process exists but
// belongs to another principal, which the sweep treats as unknown.
func (SignalProber) Probe(pid int) ProbeResult {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil:
		return ProbeAlive
	case errors.Is(err, unix.ESRCH):
		return ProbeDead
	case errors.Is(err, unix.EPERM):
		return ProbeUnknown
	default:
		return ProbeUnknown
	}
}
