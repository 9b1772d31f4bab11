package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"nbrunner/pkg/executor/runner"
)

// ErrExecutionFailed wraps every failure of the notebook executor.
var ErrExecutionFailed = errors.New("notebook execution failed")

// Request describes one notebook run.
type Request struct {
	InputPath  string
	OutputPath string
	KernelName string // empty lets the executor pick
	Parameters string // formatted JSON, empty for none
}

// Delegate runs a notebook to completion.
type Delegate interface {
	Execute(ctx context.Context, req Request) error
}

// Papermill runs notebooks through the papermill CLI.
type Papermill struct {
	Bin string

	// TempDir holds the staged parameters file; empty means os.TempDir.
	TempDir string

	// Timeout bounds a single run; zero leaves it to papermill.
	Timeout time.Duration

	runner runner.JobRunner
	log    *zap.Logger
}

var _ Delegate = (*Papermill)(nil)

func NewPapermill(bin string, r runner.JobRunner, log *zap.Logger) *Papermill {
	if bin == "" {
		bin = "papermill"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Papermill{Bin: bin, runner: r, log: log}
}

// Execute invokes papermill and maps a non-zero exit to ErrExecutionFailed
// carrying papermill's stderr. A staged parameters file never outlives the call.
func (p *Papermill) Execute(ctx context.Context, req Request) error {
	args := []string{req.InputPath, req.OutputPath}
	if req.KernelName != "" {
		args = append(args, "--kernel", req.KernelName)
	}

	if req.Parameters != "" {
		paramFile, err := p.stageParameters(req.Parameters)
		if err != nil {
			return fmt.Errorf("%w: staging parameters: %v", ErrExecutionFailed, err)
		}
		defer p.removeParameters(paramFile)
		args = append(args, "-f", paramFile)
	}

	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}

	p.log.Debug("Starting papermill", zap.String("bin", p.Bin), zap.Strings("args", args))
	res := p.runner.Run(ctx, p.Bin, args)
	p.log.Info("Papermill finished",
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("duration", res.Duration),
	)

	if res.Failed() {
		return fmt.Errorf("%w: %s", ErrExecutionFailed, diagnostic(res))
	}
	return nil
}

func (p *Papermill) stageParameters(params string) (string, error) {
	f, err := os.CreateTemp(p.TempDir, "nbrunner-params-*.json")
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(params); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func (p *Papermill) removeParameters(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		p.log.Warn("Failed to remove parameters file", zap.String("path", path), zap.Error(err))
	}
}

// diagnostic prefers the executor's own stderr, falling back to the
// process error when nothing was written (e.g. binary not found).
func diagnostic(res runner.Result) string {
	if msg := strings.TrimSpace(res.Stderr); msg != "" {
		return res.Stderr
	}
	if res.Error != nil {
		return res.Error.Error()
	}
	return fmt.Sprintf("exit code %d", res.ExitCode)
}
