//go:build !unix

package sweeper

import "os"

// SignalProber approximates a liveness probe on platforms without signals.
type SignalProber struct{}

// Probe reports whether pid is alive.
func (SignalProber) Probe(pid int) ProbeResult {
	if _, err := os.FindProcess(pid); err != nil {
		return ProbeDead
	}
	return ProbeAlive
}
