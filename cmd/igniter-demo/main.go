// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ignitehq/igniter-jobs/internal/backend"
	"github.com/ignitehq/igniter-jobs/internal/config"
	"github.com/ignitehq/igniter-jobs/internal/membackend"
	"github.com/ignitehq/igniter-jobs/internal/queuedef"
	"github.com/ignitehq/igniter-jobs/internal/redisbackend"
	"github.com/ignitehq/igniter-jobs/internal/redisclient"
	"github.com/ignitehq/igniter-jobs/internal/runtime"
	"github.com/ignitehq/igniter-jobs/internal/telemetry"
)

// startMetricsServer exposes /metrics on cfg.Observability.MetricsPort,
// mirroring the teacher's obs.StartHTTPServer.
func startMetricsServer(port int, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}

// demoQueue wires one job, "sendWelcomeEmail", which sleeps briefly
// and echoes its input back as the result.
func demoQueue() (queuedef.Definition, error) {
	return queuedef.Create("emails").
		AddJob("sendWelcomeEmail", queuedef.JobSpec{
			Handler: func(ctx context.Context, execCtx backend.ExecutionContext) (any, error) {
				select {
				case <-time.After(50 * time.Millisecond):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				return map[string]any{"sent": true, "input": execCtx.Input}, nil
			},
			Attempts: 3,
		}).
		Build()
}

func main() {
	var backendKind string
	var configPath string
	var role string
	var dispatchCount int
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&backendKind, "backend", "", "Backend to use: memory|redis (overrides config)")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.StringVar(&role, "role", "all", "Role to run: producer|worker|all")
	fs.IntVar(&dispatchCount, "count", 5, "Number of demo jobs to dispatch (producer/all roles)")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if backendKind != "" {
		cfg.Backend.Kind = backendKind
		if err := config.Validate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
			os.Exit(1)
		}
	}

	logger, err := telemetry.NewZapLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}

	var adapter backend.Backend
	switch cfg.Backend.Kind {
	case "redis":
		rdb := redisclient.New(cfg)
		defer rdb.Close()
		adapter = redisbackend.New(rdb)
	default:
		adapter = membackend.New()
	}

	queue, err := demoQueue()
	if err != nil {
		logger.Error("failed to build demo queue", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(reg)
	metricsSrv := startMetricsServer(cfg.Observability.MetricsPort, reg)
	defer metricsSrv.Shutdown(context.Background())

	rt, err := runtime.Create().
		WithAdapter(adapter).
		WithService(cfg.Service).
		WithEnvironment(cfg.Environment).
		WithContext(func(ctx context.Context) (any, error) { return nil, nil }).
		WithLogger(logger).
		WithTelemetry(telemetry.NewOTelTelemetry(cfg.Service, cfg.Environment)).
		WithMetrics(metrics).
		WithWorkerDefaults(runtime.WorkerDefaults{Concurrency: cfg.Worker.DefaultConcurrency}).
		AddQueue(queue).
		Build(ctx)
	if err != nil {
		logger.Error("failed to build runtime", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer rt.Shutdown(context.Background())

	unsubscribe, err := rt.Subscribe(ctx, func(event backend.LifecycleEvent) {
		fmt.Printf("[%s] %s %v\n", event.Timestamp.Format(time.RFC3339), event.Type, event.Data)
	})
	if err != nil {
		logger.Error("failed to subscribe", map[string]any{"error": err.Error()})
	} else {
		defer unsubscribe()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Success("signal received, shutting down", nil)
		cancel()
	}()

	switch role {
	case "producer":
		runProducer(ctx, rt, dispatchCount, logger)
	case "worker":
		runWorker(ctx, rt, logger)
	case "all":
		runProducer(ctx, rt, dispatchCount, logger)
		runWorker(ctx, rt, logger)
	default:
		logger.Error("unknown role", map[string]any{"role": role})
		os.Exit(1)
	}
}

func runProducer(ctx context.Context, rt *runtime.Runtime, count int, logger telemetry.Logger) {
	for i := 0; i < count; i++ {
		id, err := rt.Queue("emails").Job("sendWelcomeEmail").Dispatch(ctx, map[string]any{"recipient": fmt.Sprintf("user-%d@example.com", i)}, runtime.DispatchOptions{})
		if err != nil {
			logger.Error("dispatch failed", map[string]any{"error": err.Error()})
			continue
		}
		logger.Success("dispatched job", map[string]any{"id": id})
	}
}

func runWorker(ctx context.Context, rt *runtime.Runtime, logger telemetry.Logger) {
	handle, err := rt.Worker().
		AddQueue("emails").
		OnSuccess(func(_ context.Context, rec backend.Record) {
			logger.Success("job completed", map[string]any{"id": rec.ID})
		}).
		OnFailure(func(_ context.Context, rec backend.Record, jobErr error) {
			logger.Error("job failed", map[string]any{"id": rec.ID, "error": jobErr.Error()})
		}).
		Start(ctx)
	if err != nil {
		logger.Error("failed to start worker", map[string]any{"error": err.Error()})
		return
	}

	<-ctx.Done()
	_ = handle.Close(context.Background())
}
