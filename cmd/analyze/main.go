// Package main implements a one-shot analysis run: fetch, score,
// aggregate, then the report as JSON on stdout or to a file.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/fetch"
	"github.com/PulsewireAI/pulsewire-mvp/engine/score"
	"github.com/PulsewireAI/pulsewire-mvp/engine/store"
	"github.com/PulsewireAI/pulsewire-mvp/engine/task"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/config"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/metrics"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file path")
		query      = flag.String("query", "", "search query (required)")
		limit      = flag.Int("limit", 0, "max posts to fetch")
		subreddits = flag.String("subreddits", "", "comma-separated subreddits, empty searches all")
		timeFilter = flag.String("time", "", "time filter: hour, day, week, month, year or all")
		sortType   = flag.String("sort", "", "sort order: relevance, hot, top or new")
		outPath    = flag.String("out", "", "write the report here instead of stdout")
		full       = flag.Bool("full", false, "emit the full result, posts included")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	// Logs go to stderr so stdout stays valid JSON.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	req := domain.AnalysisRequest{
		Query:      *query,
		Limit:      *limit,
		TimeFilter: *timeFilter,
		SortType:   *sortType,
	}
	if *subreddits != "" {
		req.Subreddits = strings.Split(*subreddits, ",")
	}
	req.Normalize()
	if err := domain.ValidateRequest(req); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(cfg, req, *outPath, *full); err != nil {
		logger.Error("analysis failed", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, req domain.AnalysisRequest, outPath string, full bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.New()
	pm := metrics.NewPipeline(reg)

	results, err := store.Open(cfg.Store.Path)
	if err != nil {
		return err
	}
	defer results.Close()

	var nc *nats.Conn
	if cfg.Scoring.Provider == "nats" {
		nc, err = nats.Connect(cfg.NATS.URL, nats.Name("pulsewire-analyze"))
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
		sopts.CallDelay, sopts.BatchDelay = 0, 0
	}
	scorer := score.NewScorer(strategy, sopts, pm)

	tasks := task.NewStore()
	coord := task.NewCoordinator(tasks, fetcher, scorer, results, pm)

	created := coord.Start(ctx, req)

	last := created
	for !last.Status.Terminal() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
		t, err := tasks.Get(created.ID)
		if err != nil {
			return err
		}
		if t.Progress != last.Progress || t.Message != last.Message {
			slog.Info("progress", "pct", t.Progress, "message", t.Message)
		}
		last = t
	}
	if last.Status == domain.StatusFailed {
		return errors.New(last.Error)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if full {
		res, err := results.GetResult(ctx, created.ID)
		if err != nil {
			return err
		}
		return enc.Encode(res)
	}
	rep, err := results.GetReport(ctx, created.ID)
	if err != nil {
		return err
	}
	return enc.Encode(rep)
}
