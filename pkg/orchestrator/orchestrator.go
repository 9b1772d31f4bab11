// Package orchestrator runs one notebook job from download to notification.
package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	config "nbrunner/configs"
	"nbrunner/pkg/executor"
	"nbrunner/pkg/metrics"
	"nbrunner/pkg/models"
	tracing "nbrunner/pkg/observability"
	"nbrunner/pkg/params"
	"nbrunner/pkg/storage"
)

const (
	notebookFile = "notebook.ipynb"
	outputFile   = "output.ipynb"
)

// Step names, used for spans and metrics.
const (
	StepFetch   = "fetch"
	StepKernel  = "resolve_kernel"
	StepFormat  = "format_parameters"
	StepExecute = "execute"
	StepPublish = "publish"
)

type Fetcher interface {
	Fetch(ctx context.Context, uri, dest string) error
}

type KernelResolver interface {
	Resolve(ctx context.Context, version string) (string, error)
}

// Notifier reports the outcome. It has no error result on purpose: a
// failed notification must not alter the job outcome.
type Notifier interface {
	Notify(ctx context.Context, outcome models.Outcome)
}

type Publisher interface {
	Publish(ctx context.Context, localPath, dest string) (string, error)
}

type Options struct {
	Fetcher   Fetcher
	Resolver  KernelResolver
	Delegate  executor.Delegate
	Notifier  Notifier
	Publisher Publisher

	// WorkspaceRoot is where the per-job directory is created; empty means os.TempDir.
	WorkspaceRoot string

	Tracer trace.Tracer
	Logger *zap.Logger
}

type Orchestrator struct {
	fetcher       Fetcher
	resolver      KernelResolver
	delegate      executor.Delegate
	notifier      Notifier
	publisher     Publisher
	workspaceRoot string
	tracer        trace.Tracer
	log           *zap.Logger
}

func New(opts Options) *Orchestrator {
	o := &Orchestrator{
		fetcher:       opts.Fetcher,
		resolver:      opts.Resolver,
		delegate:      opts.Delegate,
		notifier:      opts.Notifier,
		publisher:     opts.Publisher,
		workspaceRoot: opts.WorkspaceRoot,
		tracer:        opts.Tracer,
		log:           opts.Logger,
	}
	if o.publisher == nil {
		o.publisher = storage.NewPublisher(nil)
	}
	if o.tracer == nil {
		o.tracer = otel.Tracer("nbrunner")
	}
	if o.log == nil {
		o.log = zap.NewNop()
	}
	return o
}

// Run executes the job described by req and returns its single outcome.
// The notifier is called exactly once, whatever step failed, and the
// workspace is gone by the time Run returns. The logger is expected to be
// scoped to the job already.
func (o *Orchestrator) Run(ctx context.Context, req models.JobRequest) models.Outcome {
	start := time.Now()
	ctx, span := o.tracer.Start(ctx, "job.run",
		trace.WithAttributes(tracing.JobAttributes(req.ID, req.NotebookURI, req.PythonVersion)...))

	workspace, err := o.acquire(req)
	if err == nil {
		// Released after the notification, the last thing the job does.
		defer o.release(workspace)
		err = o.run(ctx, req, workspace)
	}

	var outcome models.Outcome
	if err != nil {
		o.log.Error("Notebook job failed", zap.Error(err))
		outcome = models.Failed(err)
	} else {
		o.log.Info(models.SuccessMessage)
		outcome = models.Succeeded(models.SuccessMessage)
	}

	o.notify(ctx, outcome)

	metrics.RecordJob(string(outcome.Status), time.Since(start).Seconds())
	tracing.End(span, err)
	return outcome
}

// acquire checks that there is something to run and creates the job workspace.
func (o *Orchestrator) acquire(req models.JobRequest) (string, error) {
	if req.NotebookURI == "" {
		return "", config.ErrMissingNotebook
	}
	workspace, err := os.MkdirTemp(o.workspaceRoot, "nbrunner-*")
	if err != nil {
		return "", fmt.Errorf("failed to create workspace: %w", err)
	}
	return workspace, nil
}

func (o *Orchestrator) run(ctx context.Context, req models.JobRequest, workspace string) error {
	notebookPath := filepath.Join(workspace, notebookFile)
	outputPath := filepath.Join(workspace, outputFile)

	o.log.Info("Downloading notebook", zap.String("url", req.NotebookURI))
	err := o.step(ctx, StepFetch, func(ctx context.Context) error {
		return o.fetcher.Fetch(ctx, req.NotebookURI, notebookPath)
	})
	if err != nil {
		return err
	}

	o.log.Info("Checking available kernels", zap.String("python_version", req.PythonVersion))
	var kernelName string
	err = o.step(ctx, StepKernel, func(ctx context.Context) error {
		var err error
		kernelName, err = o.resolver.Resolve(ctx, req.PythonVersion)
		return err
	})
	if err != nil {
		return err
	}
	o.log.Info("Using kernel", zap.String("kernel", kernelName))

	var formatted string
	if req.HasParameters() {
		o.log.Info("Executing notebook with parameters")
		err = o.step(ctx, StepFormat, func(context.Context) error {
			var err error
			formatted, err = params.Format(req.Parameters)
			return err
		})
		if err != nil {
			return err
		}
		o.log.Info("Formatted parameters", zap.String("parameters", formatted))
	} else {
		o.log.Info("Executing notebook without parameters")
	}

	err = o.step(ctx, StepExecute, func(ctx context.Context) error {
		return o.delegate.Execute(ctx, executor.Request{
			InputPath:  notebookPath,
			OutputPath: outputPath,
			KernelName: kernelName,
			Parameters: formatted,
		})
	})
	if err != nil {
		return err
	}

	if req.OutputURI != "" {
		return o.step(ctx, StepPublish, func(ctx context.Context) error {
			location, err := o.publisher.Publish(ctx, outputPath, req.OutputURI)
			if err == nil {
				o.log.Info("Published output notebook", zap.String("location", location))
			}
			return err
		})
	}
	return nil
}

// step runs fn inside its own span and records its duration.
func (o *Orchestrator) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := o.tracer.Start(ctx, "job."+name)
	start := time.Now()

	err := fn(ctx)

	metrics.RecordStep(name, err, time.Since(start).Seconds())
	tracing.End(span, err)
	return err
}

func (o *Orchestrator) notify(ctx context.Context, outcome models.Outcome) {
	if o.notifier == nil {
		return
	}
	ctx, span := o.tracer.Start(ctx, "job.notify")
	defer span.End()
	o.notifier.Notify(ctx, outcome)
}

func (o *Orchestrator) release(workspace string) {
	if err := os.RemoveAll(workspace); err != nil {
		o.log.Warn("Failed to remove workspace", zap.String("path", workspace), zap.Error(err))
	}
}
