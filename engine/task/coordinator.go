package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/report"
	"github.com/PulsewireAI/pulsewire-mvp/engine/store"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/metrics"
)

var tracer = otel.Tracer("engine/task")

// Progress slices per phase. Each phase reports its own 0-100 progress,
// rescaled linearly into its slice of the task bar.
const (
	phaseFetchStart = 10
	phaseFetchEnd   = 40
	phaseScoreEnd   = 80

	progressBuffer = 16
)

// Fetcher resolves a request into hydrated posts.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.AnalysisRequest, progress chan<- int) ([]domain.Post, error)
}

// Scorer enriches posts with sentiment and engagement.
type Scorer interface {
	ScorePosts(ctx context.Context, posts []domain.Post, progress chan<- int) []domain.ScoredPost
}

// Saver persists completed results.
type Saver interface {
	SaveResult(ctx context.Context, res store.AnalysisResult) error
}

// CompletedEvent summarizes a finished run for downstream consumers.
type CompletedEvent struct {
	TaskID        string  `json:"task_id"`
	Query         string  `json:"query"`
	TotalPosts    int     `json:"total_posts"`
	TotalComments int     `json:"total_comments"`
	Duration      float64 `json:"analysis_duration"`
}

// Coordinator runs one pipeline per task: fetch, score, aggregate,
// persist. Task state lives in the Store; results go to the Saver.
type Coordinator struct {
	tasks   *Store
	fetcher Fetcher
	scorer  Scorer
	saver   Saver
	pm      *metrics.Pipeline

	onCompleted func(CompletedEvent)
}

func NewCoordinator(tasks *Store, fetcher Fetcher, scorer Scorer, saver Saver, pm *metrics.Pipeline) *Coordinator {
	return &Coordinator{tasks: tasks, fetcher: fetcher, scorer: scorer, saver: saver, pm: pm}
}

// OnCompleted sets a hook fired after a result is persisted. Set it
// before the first Start; it runs on the task goroutine.
func (c *Coordinator) OnCompleted(fn func(CompletedEvent)) {
	c.onCompleted = fn
}

// Inflight reports how many runs are currently processing.
func (c *Coordinator) Inflight() int {
	return int(c.pm.TasksInflight.Value())
}

// Start registers a task for req and launches its run in the background.
// The returned snapshot is the task in pending state. The request must
// already be normalized and validated; ctx bounds the whole run, so pass
// a long-lived context rather than a per-request one.
func (c *Coordinator) Start(ctx context.Context, req domain.AnalysisRequest) domain.Task {
	t := c.tasks.Create(req.Query)
	go c.run(ctx, t.ID, req)
	return t
}

func (c *Coordinator) run(ctx context.Context, taskID string, req domain.AnalysisRequest) {
	start := time.Now()
	c.pm.TasksInflight.Inc()
	defer c.pm.TasksInflight.Dec()
	defer c.pm.TaskSeconds.Since(start)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("analysis run panicked", "task_id", taskID, "panic", r)
			c.finishFailed(taskID, fmt.Errorf("internal error: %v", r))
		}
	}()

	c.tasks.startProcessing(taskID)
	slog.Info("analysis started", "task_id", taskID, "query", req.Query, "limit", req.Limit)

	posts, err := c.fetchPhase(ctx, taskID, req)
	if err != nil {
		c.finishFailed(taskID, err)
		return
	}
	if len(posts) == 0 {
		c.finishFailed(taskID, domain.ErrNoPosts)
		return
	}

	c.tasks.setProgress(taskID, phaseFetchEnd, "Analyzing sentiment...")
	scored := c.scorePhase(ctx, taskID, posts)

	c.tasks.setProgress(taskID, phaseScoreEnd, "Generating analytics...")
	rep := c.aggregatePhase(ctx, scored)

	res := store.AnalysisResult{
		TaskID:        taskID,
		Query:         req.Query,
		TotalPosts:    len(scored),
		TotalComments: countComments(scored),
		Duration:      time.Since(start).Seconds(),
		CreatedAt:     time.Now().UTC(),
		Posts:         scored,
		Analytics:     rep,
	}
	if err := c.persist(ctx, res); err != nil {
		c.finishFailed(taskID, fmt.Errorf("save result: %w", err))
		return
	}

	if !c.tasks.complete(taskID) {
		return
	}
	c.pm.TaskFinished("completed")
	if c.onCompleted != nil {
		c.onCompleted(CompletedEvent{
			TaskID:        taskID,
			Query:         req.Query,
			TotalPosts:    res.TotalPosts,
			TotalComments: res.TotalComments,
			Duration:      res.Duration,
		})
	}
	slog.Info("analysis completed", "task_id", taskID,
		"posts", res.TotalPosts, "comments", res.TotalComments,
		"duration_s", res.Duration)
}

func (c *Coordinator) finishFailed(taskID string, err error) {
	if !c.tasks.fail(taskID, err) {
		return
	}
	c.pm.TaskFinished("failed")
	slog.Error("analysis failed", "task_id", taskID, "error", err)
}

func (c *Coordinator) fetchPhase(ctx context.Context, taskID string, req domain.AnalysisRequest) ([]domain.Post, error) {
	ctx, span := tracer.Start(ctx, "pipeline.fetch")
	defer span.End()

	progress := make(chan int, progressBuffer)
	done := c.pump(taskID, progress, phaseFetchStart, phaseFetchEnd, "Fetching posts...")
	posts, err := c.fetcher.Fetch(ctx, req, progress)
	close(progress)
	<-done
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return posts, err
}

func (c *Coordinator) scorePhase(ctx context.Context, taskID string, posts []domain.Post) []domain.ScoredPost {
	ctx, span := tracer.Start(ctx, "pipeline.score")
	defer span.End()

	progress := make(chan int, progressBuffer)
	done := c.pump(taskID, progress, phaseFetchEnd, phaseScoreEnd, "Analyzing sentiment...")
	scored := c.scorer.ScorePosts(ctx, posts, progress)
	close(progress)
	<-done
	return scored
}

func (c *Coordinator) aggregatePhase(ctx context.Context, scored []domain.ScoredPost) report.Report {
	_, span := tracer.Start(ctx, "pipeline.aggregate")
	defer span.End()
	return report.Aggregate(scored)
}

func (c *Coordinator) persist(ctx context.Context, res store.AnalysisResult) error {
	ctx, span := tracer.Start(ctx, "pipeline.persist")
	defer span.End()
	if err := c.saver.SaveResult(ctx, res); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// pump drains a phase progress channel until it closes, mapping each
// phase-local value into [lo, hi] on the task bar.
func (c *Coordinator) pump(taskID string, progress <-chan int, lo, hi int, message string) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for p := range progress {
			if p < 0 {
				p = 0
			}
			if p > 100 {
				p = 100
			}
			c.tasks.setProgress(taskID, lo+p*(hi-lo)/100, message)
		}
	}()
	return done
}

func countComments(posts []domain.ScoredPost) int {
	n := 0
	for _, p := range posts {
		n += len(p.Comments)
	}
	return n
}
