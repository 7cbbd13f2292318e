// Package main is Blaze's entry point: resolve config, wire the
// processor, run the pipeline, report process stats.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/thushan/blaze/internal/config"
	"github.com/thushan/blaze/internal/domain"
	"github.com/thushan/blaze/internal/logger"
	"github.com/thushan/blaze/internal/processor"
	"github.com/thushan/blaze/internal/util"
	"github.com/thushan/blaze/internal/version"
	"github.com/thushan/blaze/pkg/format"
	"github.com/thushan/blaze/pkg/nerdstats"
)

const (
	exitOK            = 0
	exitConfigInvalid = 1
	exitRunFailed     = 2
	exitInterrupted   = 130
)

func main() {
	startTime := time.Now()
	vlog := log.New(log.Writer(), "", 0)

	fs := pflag.NewFlagSet("blaze", pflag.ContinueOnError)
	config.RegisterFlags(fs)
	fs.Bool("version", false, "print version and exit")
	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitConfigInvalid)
	}

	showVersion, _ := fs.GetBool("version")
	if showVersion {
		version.PrintVersionInfo(true, vlog)
		os.Exit(exitOK)
	}
	version.PrintVersionInfo(false, vlog)

	cfg, err := config.Load(fs, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to resolve configuration:", err)
		os.Exit(exitConfigInvalid)
	}

	logInstance, styledLogger, cleanup, err := logger.NewWithTheme(buildLoggerConfig(cfg))
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialise logger:", err)
		os.Exit(exitConfigInvalid)
	}
	defer cleanup()
	slog.SetDefault(logInstance)

	styledLogger.Info("Initialising", "version", version.Version, "pid", os.Getpid(), "run_id", util.GenerateRunID())

	if err := config.Validate(cfg); err != nil {
		logger.FatalWithLogger(logInstance, "invalid configuration", "error", err)
	}

	endpoints, err := config.BuildEndpointSpecs(cfg)
	if err != nil {
		logger.FatalWithLogger(logInstance, "invalid endpoint configuration", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		styledLogger.Info("shutdown signal received", "signal", sig.String())
		cancel()
	}()

	proc, err := processor.New(processor.Config{
		Input:           cfg.Input,
		Output:          cfg.Output,
		Errors:          cfg.Errors,
		Endpoints:       endpoints,
		Strategy:        cfg.Strategy,
		Retry:           config.BuildRetryPolicy(cfg),
		Rate:            cfg.Rate,
		Workers:         cfg.Workers,
		Timeout:         config.RequestTimeout(cfg),
		NoProgress:      cfg.NoProgress,
		ProgressRefresh: cfg.ProgressRefresh,
		DryRun:          cfg.DryRun,
	}, styledLogger)
	if err != nil {
		logger.FatalWithLogger(logInstance, "failed to initialise processor", "error", err)
	}

	if cfg.DryRun {
		printDryRun(styledLogger, cfg, endpoints)
		os.Exit(exitOK)
	}

	result, runErr := proc.Run(ctx)

	reportProcessStats(styledLogger, startTime)

	if runErr != nil {
		if ctx.Err() != nil {
			styledLogger.Warn("run interrupted", "error", runErr)
			os.Exit(exitInterrupted)
		}
		styledLogger.Error("run failed", "error", runErr)
		os.Exit(exitRunFailed)
	}

	styledLogger.Info("run complete",
		"records_read", result.RecordsRead,
		"successes", result.Successes,
		"errors", result.Errors,
		"retries", result.Retries,
		"wall_time", format.Duration(result.WallTime),
		"p50_ms", result.P50Ms,
		"p95_ms", result.P95Ms,
		"p99_ms", result.P99Ms,
	)

	if ctx.Err() != nil {
		os.Exit(exitInterrupted)
	}
	os.Exit(exitOK)
}

func printDryRun(slog *logger.StyledLogger, cfg *config.Config, endpoints []*domain.EndpointSpec) {
	slog.Info("dry run: configuration resolved successfully",
		"input", cfg.Input, "output", cfg.Output, "errors", cfg.Errors,
		"rate", cfg.Rate, "workers", cfg.Workers, "max_attempts", cfg.MaxAttempts,
	)
	slog.InfoWithCount("endpoints resolved", len(endpoints))
	for _, ep := range endpoints {
		slog.InfoWithEndpoint("endpoint configured", ep.URL.String(),
			"model", ep.Model, "weight", ep.Weight, "max_concurrent", ep.MaxConcurrent)
	}
}

func reportProcessStats(lg *logger.StyledLogger, startTime time.Time) {
	runtime.GC()

	stats := nerdstats.Snapshot(startTime)

	lg.Info("Process Memory Stats",
		"heap_alloc", format.Bytes(stats.HeapAlloc),
		"heap_sys", format.Bytes(stats.HeapSys),
		"heap_inuse", format.Bytes(stats.HeapInuse),
		"heap_released", format.Bytes(stats.HeapReleased),
		"stack_inuse", format.Bytes(stats.StackInuse),
		"total_alloc", format.Bytes(stats.TotalAlloc),
		"memory_pressure", stats.GetMemoryPressure(),
	)

	lg.Info("Process Allocation Stats",
		"total_mallocs", stats.Mallocs,
		"total_frees", stats.Frees,
		"net_objects", util.SafeInt64Diff(stats.Mallocs, stats.Frees),
	)

	if stats.NumGC > 0 {
		lg.Info("Garbage Collection Stats",
			"num_gc_cycles", stats.NumGC,
			"last_gc", stats.LastGC.Format(time.RFC3339),
			"total_gc_time", format.Duration(stats.TotalGCTime),
			"gc_cpu_fraction", fmt.Sprintf("%.4f%%", stats.GCCPUFraction*100),
		)
	}

	lg.Info("Goroutine Stats",
		"num_goroutines", stats.NumGoroutines,
		"goroutine_health", stats.GetGoroutineHealthStatus(),
		"num_cgo_calls", stats.NumCgoCall,
	)

	lg.Info("Runtime Stats",
		"uptime", format.Duration(stats.Uptime),
		"go_version", stats.GoVersion,
		"num_cpu", stats.NumCPU,
		"gomaxprocs", stats.GOMAXPROCS,
	)

	if buildInfo := stats.GetBuildInfoSummary(); len(buildInfo) > 0 {
		var buildArgs []any
		for key, value := range buildInfo {
			buildArgs = append(buildArgs, key, value)
		}
		lg.Info("Build Info", buildArgs...)
	}

	lg.Info("Process Health Summary",
		"memory_pressure", stats.GetMemoryPressure(),
		"goroutine_status", stats.GetGoroutineHealthStatus(),
		"uptime", format.Duration(stats.Uptime),
		"avg_gc_pause", nerdstats.CalculateAverageGCPause(stats),
	)
}

func buildLoggerConfig(cfg *config.Config) *logger.Config {
	return &logger.Config{
		Level:      cfg.LogLevel,
		FileOutput: cfg.LogFileOutput,
		LogDir:     cfg.LogDir,
		MaxSize:    100,
		MaxBackups: 5,
		MaxAge:     30,
		Theme:      cfg.Theme,
		PrettyLogs: !cfg.JSONLogs,
	}
}
