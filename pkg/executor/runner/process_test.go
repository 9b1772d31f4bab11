package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProcessRunner_CapturesOutputAndExitCode(t *testing.T) {
	r := NewProcessRunner()

	res := r.Run(context.Background(), "sh", []string{"-c", "echo out; echo err >&2; exit 3"})

	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.True(t, res.Failed())
}

func TestProcessRunner_Success(t *testing.T) {
	res := NewProcessRunner().Run(context.Background(), "sh", []string{"-c", "true"})

	assert.Equal(t, 0, res.ExitCode)
	assert.NoError(t, res.Error)
	assert.False(t, res.Failed())
}

func TestProcessRunner_MissingBinary(t *testing.T) {
	res := NewProcessRunner().Run(context.Background(), "nbrunner-definitely-not-installed", nil)

	assert.Equal(t, -1, res.ExitCode)
	assert.Error(t, res.Error)
	assert.True(t, res.Failed())
}

func TestProcessRunner_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := NewProcessRunner().Run(ctx, "sleep", []string{"5"})

	assert.True(t, res.Failed())
	assert.Less(t, res.Duration, 5*time.Second)
}

func TestProcessRunner_WorkingDir(t *testing.T) {
	dir := t.TempDir()
	r := &ProcessRunner{Dir: dir}

	res := r.Run(context.Background(), "pwd", nil)

	assert.Equal(t, 0, res.ExitCode)
	assert.Contains(t, res.Stdout, dir)
}

func TestProcessRunner_TimeoutKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	// The background sleep holds stdout/stderr like a kernel spawned by papermill.
	res := NewProcessRunner().Run(ctx, "sh", []string{"-c", "sleep 8 & sleep 8"})

	assert.True(t, res.Failed())
	assert.Equal(t, -1, res.ExitCode)
	assert.Less(t, res.Duration, 5*time.Second)
}
