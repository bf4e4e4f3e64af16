package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/fn"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/metrics"
)

// FetcherOpts tunes the hydration pool.
type FetcherOpts struct {
	// Workers bounds concurrent hydrations.
	Workers int
	// BatchSize is how many stubs hydrate per batch.
	BatchSize int
	// UnitDelay paces hydration dispatch. Zero disables pacing.
	UnitDelay time.Duration
	// BatchDelay is the pause between hydration batches. Zero disables it.
	BatchDelay time.Duration
	// UnitTimeout bounds one hydration; an expired unit is dropped and
	// logged, never retried. Zero means no bound.
	UnitTimeout time.Duration
}

// DefaultFetcherOpts match the tuned production pacing.
var DefaultFetcherOpts = FetcherOpts{
	Workers:     20,
	BatchSize:   50,
	UnitDelay:   100 * time.Millisecond,
	BatchDelay:  500 * time.Millisecond,
	UnitTimeout: 30 * time.Second,
}

// Fetcher pulls raw posts for an analysis request. Explicit subreddits
// go through the Source, one goroutine each with failures isolated; an
// empty list consumes the global Lister and hydrates stubs in paced
// batches.
type Fetcher struct {
	source  Source
	lister  Lister
	opts    FetcherOpts
	limiter *rate.Limiter
	pm      *metrics.Pipeline
}

// NewFetcher builds a Fetcher. Non-positive pool sizes take the
// defaults; zero durations stay zero so tests run unpaced.
func NewFetcher(source Source, lister Lister, opts FetcherOpts, pm *metrics.Pipeline) *Fetcher {
	if opts.Workers <= 0 {
		opts.Workers = DefaultFetcherOpts.Workers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultFetcherOpts.BatchSize
	}
	limit := rate.Inf
	if opts.UnitDelay > 0 {
		limit = rate.Every(opts.UnitDelay)
	}
	return &Fetcher{
		source:  source,
		lister:  lister,
		opts:    opts,
		limiter: rate.NewLimiter(limit, 1),
		pm:      pm,
	}
}

// Fetch pulls posts for the request. Phase progress (0-100) lands on
// the progress channel via non-blocking sends when one is supplied.
func (f *Fetcher) Fetch(ctx context.Context, req domain.AnalysisRequest, progress chan<- int) ([]domain.Post, error) {
	var posts []domain.Post
	if len(req.Subreddits) > 0 {
		posts = f.fetchSources(ctx, req, progress)
	} else {
		var err error
		posts, err = f.fetchListing(ctx, req, progress)
		if err != nil {
			return nil, err
		}
	}
	f.pm.PostsFetched.Add(int64(len(posts)))
	report(progress, 100)
	slog.Info("fetch complete", "posts", len(posts), "query", req.Query)
	return posts, nil
}

// fetchSources queries each named subreddit concurrently, splitting the
// limit evenly. A failed source contributes zero posts and a warning,
// never an aborted fetch.
func (f *Fetcher) fetchSources(ctx context.Context, req domain.AnalysisRequest, progress chan<- int) []domain.Post {
	perSource := req.Limit / len(req.Subreddits)
	if perSource < 1 {
		perSource = 1
	}

	var done atomic.Int64
	results := fn.ParMap(req.Subreddits, len(req.Subreddits), func(sub string) []domain.Post {
		posts, err := f.source.Search(ctx, SearchParams{
			Query:      req.Query,
			Subreddit:  sub,
			Limit:      perSource,
			TimeFilter: req.TimeFilter,
			Sort:       req.SortType,
		})
		report(progress, int(done.Add(1))*100/len(req.Subreddits))
		if err != nil {
			slog.Warn("source fetch failed", "subreddit", sub, "error", err)
			return nil
		}
		return posts
	})

	var posts []domain.Post
	for _, r := range results {
		posts = append(posts, r...)
	}
	return posts
}

// fetchListing consumes the global listing and hydrates stubs in
// batches through the bounded pool.
func (f *Fetcher) fetchListing(ctx context.Context, req domain.AnalysisRequest, progress chan<- int) ([]domain.Post, error) {
	stubs, err := f.lister.List(ctx, SearchParams{
		Query:      req.Query,
		Limit:      req.Limit,
		TimeFilter: req.TimeFilter,
		Sort:       req.SortType,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if len(stubs) > req.Limit {
		stubs = stubs[:req.Limit]
	}
	if len(stubs) == 0 {
		return []domain.Post{}, nil
	}

	posts := make([]domain.Post, 0, len(stubs))
	batches := fn.Chunk(stubs, f.opts.BatchSize)
	processed := 0
	for i, batch := range batches {
		t0 := time.Now()
		results := fn.ParMapResult(batch, f.opts.Workers, func(stub Stub) fn.Result[domain.Post] {
			return f.hydrate(ctx, stub)
		})
		f.pm.FetchBatchSeconds.Since(t0)

		for j, r := range results {
			post, err := r.Unwrap()
			if err != nil {
				f.pm.PostsDropped.Inc()
				slog.Warn("post hydration dropped", "post_id", batch[j].ID, "error", err)
				continue
			}
			posts = append(posts, post)
		}

		processed += len(batch)
		report(progress, processed*100/req.Limit)

		if i < len(batches)-1 && f.opts.BatchDelay > 0 {
			select {
			case <-time.After(f.opts.BatchDelay):
			case <-ctx.Done():
			}
		}
	}
	return posts, nil
}

func (f *Fetcher) hydrate(ctx context.Context, stub Stub) fn.Result[domain.Post] {
	if err := f.limiter.Wait(ctx); err != nil {
		return fn.Err[domain.Post](err)
	}
	if f.opts.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.UnitTimeout)
		defer cancel()
	}
	post, err := f.lister.Hydrate(ctx, stub)
	if err != nil {
		return fn.Errf[domain.Post]("hydrate %s: %w", stub.ID, err)
	}
	return fn.Ok(post)
}

func report(progress chan<- int, pct int) {
	if progress == nil {
		return
	}
	if pct > 100 {
		pct = 100
	}
	select {
	case progress <- pct:
	default:
	}
}
