package score

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/PulsewireAI/pulsewire-mvp/pkg/resilience"
)

func TestBreakerStrategy_TripsFast(t *testing.T) {
	inner := &stubStrategy{name: "flaky", fn: func(context.Context, []string) ([]float64, error) {
		return nil, errors.New("backend down")
	}}
	b := WithBreaker(inner, resilience.BreakerOpts{FailThreshold: 2, Timeout: time.Hour})

	texts := []string{"a"}
	if _, err := b.ScoreBatch(context.Background(), texts); err == nil {
		t.Fatal("expected inner error")
	}
	if _, err := b.ScoreBatch(context.Background(), texts); err == nil {
		t.Fatal("expected inner error")
	}
	// Threshold reached: calls now fail without touching the backend.
	_, err := b.ScoreBatch(context.Background(), texts)
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if b.State() != resilience.StateOpen {
		t.Errorf("state = %s, want open", b.State())
	}
	if b.Name() != "flaky" {
		t.Errorf("name = %s", b.Name())
	}
}

func TestBreakerStrategy_PassesThrough(t *testing.T) {
	inner := &stubStrategy{name: "ok", fn: func(_ context.Context, texts []string) ([]float64, error) {
		return make([]float64, len(texts)), nil
	}}
	b := WithBreaker(inner, resilience.BreakerOpts{})

	scores, err := b.ScoreBatch(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(scores) != 2 {
		t.Errorf("scores = %v", scores)
	}
	if b.State() != resilience.StateClosed {
		t.Errorf("state = %s, want closed", b.State())
	}
}
