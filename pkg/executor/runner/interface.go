package runner

import (
	"context"
	"time"
)

// Result captures the outcome of one subprocess.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error // set when the process failed to start or did not exit cleanly
}

// Failed reports whether the process did not exit with status zero.
func (r Result) Failed() bool {
	return r.ExitCode != 0 || r.Error != nil
}

// JobRunner executes a single external command to completion.
type JobRunner interface {
	// Run blocks until the command exits and returns its exit code and output.
	Run(ctx context.Context, cmd string, args []string) Result
}
