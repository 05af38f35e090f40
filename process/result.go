package process

import "time"

// Result holds the status of a terminated subprocess.
type Result struct {
	// ExitCode is the process exit code. A process killed by a signal
	// reports 128 plus the signal number, as a shell would.
	ExitCode int
	// Signaled is true when the process was terminated by a signal.
	Signaled bool
	// Duration is how long the process ran.
	Duration time.Duration
}
