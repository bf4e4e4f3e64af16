package score

import (
	"context"

	"github.com/PulsewireAI/pulsewire-mvp/pkg/resilience"
)

// BreakerStrategy wraps another strategy with a circuit breaker, so a
// dead backend fails fast instead of eating the per-post budget on every
// call. The Scorer treats ErrCircuitOpen like any other backend error
// and falls back to the local estimator.
type BreakerStrategy struct {
	inner Strategy
	br    *resilience.Breaker
}

// WithBreaker wraps inner. Zero fields in opts take the defaults.
func WithBreaker(inner Strategy, opts resilience.BreakerOpts) *BreakerStrategy {
	return &BreakerStrategy{inner: inner, br: resilience.NewBreaker(opts)}
}

func (b *BreakerStrategy) Name() string { return b.inner.Name() }

// State exposes the breaker state for logging and metrics.
func (b *BreakerStrategy) State() resilience.State { return b.br.State() }

func (b *BreakerStrategy) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	var scores []float64
	err := b.br.Call(ctx, func(ctx context.Context) error {
		var err error
		scores, err = b.inner.ScoreBatch(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}
