package main

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"go.uber.org/zap"

	config "nbrunner/configs"
	"nbrunner/pkg/executor"
	"nbrunner/pkg/executor/runner"
	"nbrunner/pkg/fetch"
	"nbrunner/pkg/kernel"
	"nbrunner/pkg/logger"
	"nbrunner/pkg/metrics"
	"nbrunner/pkg/notify"
	tracing "nbrunner/pkg/observability"
	"nbrunner/pkg/orchestrator"
	"nbrunner/pkg/storage"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()

	log, err := logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
		Service:    "nbrunner",
	})
	if err != nil {
		log = logger.Get()
		log.Warn("Failed to configure logger, using defaults", zap.Error(err))
	}
	defer logger.Sync()

	log = log.With(zap.String("job_id", cfg.Job.ID))
	log.Info("[nbrunner] Starting up...",
		zap.Int("cpus", runtime.NumCPU()),
		zap.Uint64("memory_mb", detectTotalMemory(log)),
	)

	ctx := context.Background()

	traceCfg := tracing.DefaultConfig("nbrunner")
	traceCfg.Enabled = cfg.OTelEnabled
	traceCfg.Endpoint = cfg.OTelEndpoint
	traceCfg.SamplingRate = cfg.OTelSamplingRate
	tp, err := tracing.Init(ctx, traceCfg)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		tp, _ = tracing.Init(ctx, tracing.DefaultConfig("nbrunner"))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("Failed to flush traces", zap.Error(err))
		}
	}()

	objects := storage.LazyS3(storage.S3Config{
		Region:          cfg.S3Region,
		Endpoint:        cfg.S3Endpoint,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	proc := runner.NewProcessRunner()

	papermill := executor.NewPapermill(cfg.PapermillBin, proc, log)
	papermill.Timeout = cfg.ExecutionTimeout

	orch := orchestrator.New(orchestrator.Options{
		Fetcher:       fetch.NewFetcher(&http.Client{Timeout: cfg.HTTPTimeout}, objects),
		Resolver:      kernel.NewResolver(kernel.NewJupyterRegistry(cfg.JupyterBin, proc), cfg.KernelFamily, log),
		Delegate:      papermill,
		Notifier:      notify.NewWebhook(cfg.Job.WebhookURL, cfg.Job.WebhookSecret, cfg.HTTPTimeout, log),
		Publisher:     storage.NewPublisher(objects),
		WorkspaceRoot: cfg.WorkspaceDir,
		Tracer:        tp.Tracer(),
		Logger:        log,
	})

	outcome := orch.Run(ctx, cfg.Job)

	if cfg.PushgatewayURL != "" {
		if err := metrics.Push(cfg.PushgatewayURL, cfg.Job.ID, nil); err != nil {
			log.Warn("Failed to push metrics", zap.Error(err))
		}
	}

	return outcome.ExitCode()
}

func detectTotalMemory(log *zap.Logger) uint64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		log.Warn("Failed to detect memory", zap.Error(err))
		return 0
	}
	return v.Total / 1024 / 1024
}
