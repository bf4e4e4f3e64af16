package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/PulsewireAI/pulsewire-mvp/engine/store"
)

// startRetentionLoop schedules the results cleanup sweep. The schedule
// is a standard 5-field cron expression. Non-positive retention keeps
// results forever and starts nothing.
func startRetentionLoop(ctx context.Context, results *store.Store, schedule string, days int) error {
	if days <= 0 {
		slog.Info("retention cleanup disabled")
		return nil
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		return fmt.Errorf("parse cleanup schedule %q: %w", schedule, err)
	}
	slog.Info("retention cleanup scheduled", "schedule", schedule, "retention_days", days)

	go func() {
		for {
			next := sched.Next(time.Now())
			timer := time.NewTimer(time.Until(next))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			sweepCtx, cancel := context.WithTimeout(ctx, time.Minute)
			removed, err := results.CleanupOlderThan(sweepCtx, days)
			cancel()
			if err != nil {
				slog.Error("retention cleanup failed", "error", err)
				continue
			}
			slog.Info("retention cleanup ran", "removed", removed)
		}
	}()
	return nil
}
