package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/crimson-sun/launchpad/internal/config"
	"github.com/crimson-sun/launchpad/internal/logging"
	"github.com/crimson-sun/launchpad/internal/output"
	"github.com/crimson-sun/launchpad/internal/output/async"
	"github.com/crimson-sun/launchpad/internal/output/dedup"
	outmetered "github.com/crimson-sun/launchpad/internal/output/metered"
	"github.com/crimson-sun/launchpad/internal/output/multi"
	"github.com/crimson-sun/launchpad/internal/relay"
	"github.com/crimson-sun/launchpad/internal/tracking"
	trackmetered "github.com/crimson-sun/launchpad/internal/tracking/metered"
	"github.com/crimson-sun/launchpad/pkg/analytics"
	"github.com/crimson-sun/launchpad/pkg/logger"

	// Register log sink implementations.
	_ "github.com/crimson-sun/launchpad/internal/output/console"
	_ "github.com/crimson-sun/launchpad/internal/output/file"
	_ "github.com/crimson-sun/launchpad/internal/output/logrussink"
	_ "github.com/crimson-sun/launchpad/internal/output/slogsink"
	_ "github.com/crimson-sun/launchpad/internal/output/stdout"
	_ "github.com/crimson-sun/launchpad/internal/output/webhook"
	_ "github.com/crimson-sun/launchpad/internal/output/zerologsink"

	// Register analytics sink implementations.
	_ "github.com/crimson-sun/launchpad/internal/tracking/logsink"
	_ "github.com/crimson-sun/launchpad/internal/tracking/sqlite"
	_ "github.com/crimson-sun/launchpad/internal/tracking/webhook"
)

func main() {
	if err := run(); err != nil {
		slog.Error("launchpad: fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()
	logging.Init(os.Stderr, cfg.RecordsOnStdout(), logging.ParseLevel(cfg.DiagLevel))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	facade, err := buildLogger(cfg, reg)
	if err != nil {
		return err
	}
	defer facade.Close()

	reporter, err := buildReporter(cfg, reg, facade)
	if err != nil {
		return err
	}
	defer reporter.Close()

	// Set up graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           newRouter(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			slog.Info("metrics server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
	}

	slog.Info("launchpad: starting", "log_sinks", cfg.Log.Sinks, "analytics_sinks", cfg.Analytics.Sinks)

	type result struct {
		stats relay.Stats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := relay.New(facade, reporter).Run(ctx, os.Stdin)
		done <- result{stats, err}
	}()

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal, closing sinks")
		return nil
	case res := <-done:
		slog.Info("launchpad: input drained",
			"lines", res.stats.Lines,
			"records", res.stats.Records,
			"events", res.stats.Events,
			"malformed", res.stats.Malformed,
		)
		if res.err != nil && !errors.Is(res.err, context.Canceled) {
			return res.err
		}
		return nil
	}
}

// buildLogger assembles the configured sinks into one facade:
// multi -> optional dedup -> metered -> optional async.
func buildLogger(cfg config.Config, reg prometheus.Registerer) (*logger.Facade, error) {
	sinks, err := output.Build(cfg.Log.Sinks, output.Config{
		MinSeverity:  cfg.Log.MinSeverity,
		Pretty:       cfg.Log.Pretty,
		FilePath:     cfg.Log.FilePath,
		MaxSize:      cfg.Log.MaxSize,
		WebhookURL:   cfg.Log.WebhookURL,
		WebhookToken: cfg.Log.WebhookToken,
		Gzip:         cfg.Log.Gzip,
		Source:       cfg.Log.Source,
	})
	if err != nil {
		return nil, fmt.Errorf("build log sinks: %w", err)
	}

	var sink logger.Sink = multi.New(sinks...)
	if cfg.Log.DedupWindow > 0 {
		sink = dedup.New(sink, cfg.Log.DedupWindow)
	}
	sink = outmetered.New(sink, outmetered.NewMetrics(reg))
	if cfg.Log.Async {
		opts := []async.Option{async.WithBufferSize(cfg.Log.BufferSize)}
		if cfg.Log.DropOnFull {
			opts = append(opts, async.WithDropOnFull())
		}
		sink = async.New(sink, opts...)
	}

	return logger.New(sink, logger.WithOnError(func(err error) {
		slog.Warn("log sink failed", "error", err)
	})), nil
}

func buildReporter(cfg config.Config, reg prometheus.Registerer, l logger.Logger) (*analytics.Reporter, error) {
	sinks, err := tracking.Build(cfg.Analytics.Sinks, tracking.Config{
		Logger: l,
		DBPath: cfg.Analytics.DBPath,
		URL:    cfg.Analytics.URL,
		Token:  cfg.Analytics.Token,
		Gzip:   cfg.Analytics.Gzip,
	})
	if err != nil {
		return nil, fmt.Errorf("build analytics sinks: %w", err)
	}

	sink := trackmetered.New(sinks, trackmetered.NewMetrics(reg))
	return analytics.NewReporter(sink, analytics.WithOnError(func(err error) {
		slog.Warn("analytics sink failed", "error", err)
	})), nil
}
