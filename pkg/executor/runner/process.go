package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// waitDelay bounds how long Run waits for output pipes after the process
// group was killed.
const waitDelay = 2 * time.Second

// ProcessRunner runs commands directly with os/exec, without a shell.
type ProcessRunner struct {
	// Dir is the working directory; empty means the current one.
	Dir string
}

func NewProcessRunner() *ProcessRunner {
	return &ProcessRunner{}
}

func (p *ProcessRunner) Run(ctx context.Context, name string, args []string) Result {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = p.Dir

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	// Own process group so a kernel spawned by the child is not left
	// attached to our terminal.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	// On cancellation kill the whole group; a kernel left behind would keep
	// the pipes open and Run would not return.
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	cmd.WaitDelay = waitDelay

	err := cmd.Run()

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
		}
	}
	if ctx.Err() == context.DeadlineExceeded && exitCode == 0 {
		exitCode = -1
	}

	return Result{
		ExitCode: exitCode,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: time.Since(start),
		Error:    err,
	}
}
