// Package main implements the pulsewire analysis worker. It consumes
// submissions from NATS, runs the pipeline for each one and serves the
// batch scoring subject for remote scorers.
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
	"github.com/PulsewireAI/pulsewire-mvp/pkg/natsutil"
)

const scoreQueueGroup = "pulsewire-scorers"

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker answers the nats scoring subject, so its own backend
	// must be a concrete one.
	if cfg.Scoring.Provider == "nats" {
		return fmt.Errorf("worker needs a concrete scoring provider, got %q", cfg.Scoring.Provider)
	}

	reg := metrics.New()
	pm := metrics.NewPipeline(reg)

	results, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer results.Close()

	nc, err := nats.Connect(cfg.NATS.URL, nats.Name("pulsewire-worker"))
	if err != nil {
		return fmt.Errorf("connect nats: %w", err)
	}
	defer nc.Close()

	strategy, err := score.ForProvider(score.ProviderSettings{
		Provider: cfg.Scoring.Provider,
		Model:    cfg.Scoring.Model,
		BaseURL:  cfg.Scoring.BaseURL,
		APIKey:   cfg.Scoring.APIKey,
		Breaker:  cfg.Scoring.Breaker,
	}, nil)
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
		sopts.CallDelay, sopts.BatchDelay = 0, 0
	}
	scorer := score.NewScorer(strategy, sopts, pm)

	tasks := task.NewStore()
	coord := task.NewCoordinator(tasks, fetcher, scorer, results, pm)
	coord.OnCompleted(intake.PublishCompleted(nc))

	consumer := intake.NewConsumer(nc, coord)
	submitSub, err := consumer.Start(ctx)
	if err != nil {
		return fmt.Errorf("subscribe submit: %w", err)
	}

	scoreSub, err := natsutil.Serve(nc, score.SubjectScoreBatch, scoreQueueGroup, score.ServeBatch(strategy))
	if err != nil {
		return fmt.Errorf("subscribe scoring: %w", err)
	}

	msrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: reg.Handler()}
	go func() {
		logger.Info("metrics listening", "addr", cfg.Server.MetricsAddr)
		if err := msrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", "err", err)
		}
	}()

	logger.Info("worker running", "provider", strategy.Name(), "nats", cfg.NATS.URL)
	<-ctx.Done()
	logger.Info("shutdown signal received")

	if err := submitSub.Drain(); err != nil {
		logger.Warn("submit drain failed", "err", err)
	}
	if err := scoreSub.Drain(); err != nil {
		logger.Warn("scoring drain failed", "err", err)
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return msrv.Shutdown(shutCtx)
}
