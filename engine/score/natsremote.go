package score

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/PulsewireAI/pulsewire-mvp/pkg/natsutil"
)

// SubjectScoreBatch is the request/reply subject scoring workers serve.
const SubjectScoreBatch = "pulsewire.score.batch"

// ScoreRequest is the wire form of a batch scoring request.
type ScoreRequest struct {
	Texts []string `json:"texts"`
}

// ScoreResponse carries the scores or the remote error.
type ScoreResponse struct {
	Scores []float64 `json:"scores"`
	Error  string    `json:"error,omitempty"`
}

// Remote delegates scoring to a worker over NATS request/reply. Trace
// context rides along in the message headers.
type Remote struct {
	nc *nats.Conn
}

func NewRemote(nc *nats.Conn) *Remote {
	return &Remote{nc: nc}
}

func (r *Remote) Name() string { return "nats" }

func (r *Remote) ScoreBatch(ctx context.Context, texts []string) ([]float64, error) {
	resp, err := natsutil.Request[ScoreRequest, ScoreResponse](ctx, r.nc, SubjectScoreBatch, ScoreRequest{Texts: texts})
	if err != nil {
		return nil, fmt.Errorf("score request: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("remote scorer: %s", resp.Error)
	}
	return resp.Scores, nil
}

// ServeBatch adapts a Strategy into the handler a scoring worker mounts
// on SubjectScoreBatch.
func ServeBatch(strategy Strategy) func(context.Context, ScoreRequest) ScoreResponse {
	return func(ctx context.Context, req ScoreRequest) ScoreResponse {
		scores, err := strategy.ScoreBatch(ctx, req.Texts)
		if err != nil {
			return ScoreResponse{Error: err.Error()}
		}
		return ScoreResponse{Scores: scores}
	}
}
