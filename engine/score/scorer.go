package score

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/fn"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/metrics"
)

// Text budgets sent to the backend, in runes.
const (
	ownTextLimit     = 1000
	commentTextLimit = 500
)

// ScorerOpts tunes the scoring pool.
type ScorerOpts struct {
	// Workers is how many posts score in parallel within a batch.
	Workers int
	// BatchSize is how many posts form one outer batch.
	BatchSize int
	// CallSize caps the texts sent in a single backend call.
	CallSize int
	// CallDelay is the minimum spacing between backend calls across all
	// workers. Zero disables pacing.
	CallDelay time.Duration
	// BatchDelay is the pause between outer batches. Zero disables it.
	BatchDelay time.Duration
	// PostTimeout bounds the backend budget for a single post; once it
	// expires remaining texts score through the local estimator. Zero
	// means no bound.
	PostTimeout time.Duration
}

// DefaultScorerOpts match the tuned production pacing.
var DefaultScorerOpts = ScorerOpts{
	Workers:     5,
	BatchSize:   20,
	CallSize:    10,
	CallDelay:   time.Second,
	BatchDelay:  2 * time.Second,
	PostTimeout: 60 * time.Second,
}

// Scorer enriches posts with sentiment. Every post that goes in comes
// out scored: backend failures degrade to the local estimator and a
// panicking record degrades to a neutral result, never to a dropped one.
type Scorer struct {
	strategy Strategy
	local    Local
	opts     ScorerOpts
	limiter  *rate.Limiter
	pm       *metrics.Pipeline
}

// NewScorer builds a Scorer. Non-positive pool sizes take the defaults;
// zero durations stay zero so tests and the local provider run unpaced.
func NewScorer(strategy Strategy, opts ScorerOpts, pm *metrics.Pipeline) *Scorer {
	if opts.Workers <= 0 {
		opts.Workers = DefaultScorerOpts.Workers
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultScorerOpts.BatchSize
	}
	if opts.CallSize <= 0 {
		opts.CallSize = DefaultScorerOpts.CallSize
	}
	limit := rate.Inf
	if opts.CallDelay > 0 {
		limit = rate.Every(opts.CallDelay)
	}
	return &Scorer{
		strategy: strategy,
		opts:     opts,
		limiter:  rate.NewLimiter(limit, 1),
		pm:       pm,
	}
}

// ScorePosts scores posts in batches, preserving input order. Phase
// progress (0-100) lands on the progress channel after each batch via
// non-blocking sends when one is supplied. The returned slice always
// has len(posts) entries.
func (s *Scorer) ScorePosts(ctx context.Context, posts []domain.Post, progress chan<- int) []domain.ScoredPost {
	scored := make([]domain.ScoredPost, 0, len(posts))
	chunks := fn.Chunk(posts, s.opts.BatchSize)
	done := 0
	for i, chunk := range chunks {
		batch := fn.ParMap(chunk, s.opts.Workers, func(p domain.Post) domain.ScoredPost {
			return s.scoreOne(ctx, p)
		})
		scored = append(scored, batch...)
		s.pm.PostsScored.Add(int64(len(batch)))

		done += len(chunk)
		if progress != nil {
			select {
			case progress <- done * 100 / len(posts):
			default:
			}
		}
		if i < len(chunks)-1 && s.opts.BatchDelay > 0 {
			select {
			case <-time.After(s.opts.BatchDelay):
			case <-ctx.Done():
			}
		}
	}
	slog.Info("sentiment scoring complete", "posts", len(scored), "strategy", s.strategy.Name())
	return scored
}

// scoreOne enriches a single post. A panic anywhere inside degrades to
// the neutral fallback result.
func (s *Scorer) scoreOne(ctx context.Context, post domain.Post) (sp domain.ScoredPost) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("post scoring panicked", "post_id", post.ID, "panic", r)
			s.pm.ScoreFallback("panic")
			sp = fallbackResult(post)
		}
	}()

	if s.opts.PostTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.PostTimeout)
		defer cancel()
	}

	own := s.scoreTexts(ctx, []string{prepareText(post.Title+" "+post.SelfText, ownTextLimit)})[0]

	scored := make([]domain.ScoredComment, 0, len(post.Comments))
	var dist domain.Distribution
	var sum float64
	for _, chunk := range fn.Chunk(post.Comments, s.opts.CallSize) {
		texts := fn.Map(chunk, func(c domain.Comment) string {
			return prepareText(c.Body, commentTextLimit)
		})
		scores := s.scoreTexts(ctx, texts)
		for i, c := range chunk {
			sc := domain.ScoredComment{Comment: c, Sentiment: scores[i], Label: domain.LabelFor(scores[i])}
			dist.Add(sc.Label)
			sum += sc.Sentiment
			scored = append(scored, sc)
		}
	}

	// Overall sentiment weighs the post's own text at 30% and the mean
	// comment sentiment at 70%; with no comments the own score stands.
	overall := own
	if len(scored) > 0 {
		overall = own*0.3 + (sum/float64(len(scored)))*0.7
	}

	return domain.ScoredPost{
		Post:          post,
		Comments:      scored,
		PostSentiment: own,
		PostLabel:     domain.LabelFor(own),
		Sentiment:     overall,
		Label:         domain.LabelFor(overall),
		Engagement:    engagementScore(post, len(scored)),
		Distribution:  dist,
	}
}

// scoreTexts returns exactly one clamped score per text. Empty texts
// score neutral zero without touching the backend.
func (s *Scorer) scoreTexts(ctx context.Context, texts []string) []float64 {
	scores := make([]float64, len(texts))
	var idx []int
	for i, t := range texts {
		if t != "" {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		return scores
	}
	subset := make([]string, len(idx))
	for i, j := range idx {
		subset[i] = texts[j]
	}
	got := s.callStrategy(ctx, subset)
	for i, j := range idx {
		scores[j] = got[i]
	}
	return scores
}

// callStrategy runs one paced backend call and applies the policy:
// errors fall back to the local estimator for the whole call, short
// responses pad with neutral zeros, long ones truncate.
func (s *Scorer) callStrategy(ctx context.Context, texts []string) []float64 {
	scores, err := s.callBackend(ctx, texts)
	if err != nil {
		reason := "error"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "timeout"
		}
		slog.Warn("scoring call failed, falling back to local estimator",
			"strategy", s.strategy.Name(), "reason", reason, "error", err)
		s.pm.ScoreFallback(reason)
		scores, _ = s.local.ScoreBatch(ctx, texts)
		return scores
	}

	if len(scores) > len(texts) {
		scores = scores[:len(texts)]
	}
	if len(scores) < len(texts) {
		s.pm.ScoreFallback("short")
		padded := make([]float64, len(texts))
		copy(padded, scores)
		scores = padded
	}
	for i := range scores {
		scores[i] = domain.Clamp(scores[i])
	}
	return scores
}

func (s *Scorer) callBackend(ctx context.Context, texts []string) ([]float64, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	start := time.Now()
	defer s.pm.ScoreCallSeconds.Since(start)
	return s.strategy.ScoreBatch(ctx, texts)
}

// engagementScore is the weighted engagement heuristic: vote score and
// comment volume normalised into [0,1] plus the upvote ratio, rounded to
// three decimals. A zero ratio counts as the 0.5 unknown default.
func engagementScore(post domain.Post, comments int) float64 {
	scoreComp := float64(post.Score) / 1000
	if scoreComp > 1 {
		scoreComp = 1
	}
	if scoreComp < 0 {
		scoreComp = 0
	}
	commentComp := float64(comments) / 100
	if commentComp > 1 {
		commentComp = 1
	}
	ratio := post.UpvoteRatio
	if ratio == 0 {
		ratio = 0.5
	}
	e := scoreComp*0.4 + commentComp*0.4 + ratio*0.2
	return math.Round(e*1000) / 1000
}

// fallbackResult keeps the raw post visible with neutral sentiment when
// scoring fails outright. Comments survive unscored.
func fallbackResult(post domain.Post) domain.ScoredPost {
	comments := make([]domain.ScoredComment, len(post.Comments))
	for i, c := range post.Comments {
		comments[i] = domain.ScoredComment{Comment: c, Label: domain.LabelNeutral}
	}
	return domain.ScoredPost{
		Post:      post,
		Comments:  comments,
		PostLabel: domain.LabelNeutral,
		Label:     domain.LabelNeutral,
	}
}

// prepareText flattens newlines, trims and truncates to limit runes.
func prepareText(s string, limit int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > limit {
		s = string(runes[:limit])
	}
	return s
}
