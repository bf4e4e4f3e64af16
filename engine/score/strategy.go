// Package score turns raw posts into scored ones. A Strategy talks to a
// sentiment backend; the Scorer batches posts, paces the calls and owns
// the fallback policy so no record is ever dropped.
package score

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
)

// Strategy scores a batch of prepared texts, one score per text in order.
// Implementations may return short or long lists; the Scorer owns padding,
// truncation and fallback.
type Strategy interface {
	Name() string
	ScoreBatch(ctx context.Context, texts []string) ([]float64, error)
}

const scoreTemperature = 0.3

// maxTokensFor sizes the completion budget: a lone text needs one number,
// a batch needs the whole list.
func maxTokensFor(n int) int {
	if n == 1 {
		return 50
	}
	return 200
}

// batchPrompt asks the model for one score per text, comma separated.
func batchPrompt(texts []string) string {
	if len(texts) == 1 {
		return "Analyze the sentiment of the following text and return a single numerical score " +
			"between -1.0 (extremely negative) and 1.0 (extremely positive). " +
			"Return ONLY the numerical score, no other text.\n\n" +
			"Text: " + texts[0] + "\n\nSentiment score:"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Analyze the sentiment of the following %d comments. ", len(texts))
	b.WriteString("Rate each comment's sentiment on a scale from -1.0 to 1.0, where:\n")
	b.WriteString("- -1.0 = extremely negative\n")
	b.WriteString("- 0.0 = neutral\n")
	b.WriteString("- 1.0 = extremely positive\n\n")
	b.WriteString("Return ONLY a comma-separated list of numerical scores (no text, no explanations).\n")
	b.WriteString("Example format: 0.8, -0.3, 0.1, 0.9\n\n")
	b.WriteString("Comments to analyze:\n")
	for i, t := range texts {
		if i > 0 {
			b.WriteString("\n---\n")
		}
		fmt.Fprintf(&b, "Comment %d: %s", i+1, t)
	}
	b.WriteString("\n\nSentiment scores:")
	return b.String()
}

// parseScores extracts the comma-separated score list from a model reply.
// Anything that is not a plain number list is an error; the caller decides
// what to do about it.
func parseScores(reply string) ([]float64, error) {
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return nil, fmt.Errorf("empty scoring response")
	}
	parts := strings.Split(reply, ",")
	scores := make([]float64, 0, len(parts))
	for _, part := range parts {
		clean := strings.Trim(strings.TrimSpace(part), `"'`)
		v, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return nil, fmt.Errorf("parse score %q: %w", clean, err)
		}
		scores = append(scores, domain.Clamp(v))
	}
	return scores, nil
}
