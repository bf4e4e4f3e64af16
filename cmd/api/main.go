// Package main implements the pulsewire API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/PulsewireAI/pulsewire-mvp/engine/fetch"
	"github.com/PulsewireAI/pulsewire-mvp/engine/intake"
	"github.com/PulsewireAI/pulsewire-mvp/engine/score"
	"github.com/PulsewireAI/pulsewire-mvp/engine/store"
	"github.com/PulsewireAI/pulsewire-mvp/engine/task"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/config"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/metrics"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/mid"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	pm := metrics.NewPipeline(reg)

	results, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer results.Close()

	// NATS is optional here: only the nats scoring provider and the
	// completed events need it.
	var nc *nats.Conn
	if cfg.Scoring.Provider == "nats" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("pulsewire-api"))
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer nc.Close()
	}

	strategy, err := score.ForProvider(score.ProviderSettings{
		Provider: cfg.Scoring.Provider,
		Model:    cfg.Scoring.Model,
		BaseURL:  cfg.Scoring.BaseURL,
		APIKey:   cfg.Scoring.APIKey,
		Breaker:  cfg.Scoring.Breaker,
	}, nc)
	if err != nil {
		return err
	}

	client := fetch.NewClient(cfg.Reddit.BaseURL, cfg.Reddit.UserAgent)
	fopts := fetch.DefaultFetcherOpts
	fopts.Workers = cfg.Fetch.Workers
	fopts.BatchSize = cfg.Fetch.BatchSize
	fetcher := fetch.NewFetcher(client, client, fopts, pm)

	sopts := score.DefaultScorerOpts
	sopts.Workers = cfg.Score.Workers
	sopts.BatchSize = cfg.Score.BatchSize
	sopts.CallSize = cfg.Score.CallSize
	if strategy.Name() == "local" {
		// Pacing only applies to remote backends.
		sopts.CallDelay, sopts.BatchDelay = 0, 0
	}
	scorer := score.NewScorer(strategy, sopts, pm)

	tasks := task.NewStore()
	coord := task.NewCoordinator(tasks, fetcher, scorer, results, pm)
	if nc != nil {
		coord.OnCompleted(intake.PublishCompleted(nc))
	}

	if err := startRetentionLoop(ctx, results, cfg.Store.CleanupSchedule, cfg.Store.RetentionDays); err != nil {
		return err
	}

	a := &api{
		baseCtx: ctx,
		tasks:   tasks,
		coord:   coord,
		results: results,
		metrics: reg.Handler(),
	}
	handler := mid.Chain(a.routes(),
		mid.RequestID(),
		mid.Logger(logger),
		mid.Recover(logger),
		mid.CORS(cfg.Server.CORSOrigins),
		mid.OTel("pulsewire-api"),
	)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", cfg.Server.Addr, "provider", strategy.Name())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}
