package score

import (
	"context"
	"strings"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
)

// valence maps sentiment-bearing words to scores in [-1, 1].
var valence = map[string]float64{
	"love": 0.9, "excellent": 0.9, "amazing": 0.9, "awesome": 0.9,
	"fantastic": 0.9, "perfect": 0.9, "incredible": 0.8, "great": 0.8,
	"wonderful": 0.8, "best": 0.8, "impressive": 0.7, "happy": 0.7,
	"beautiful": 0.7, "bullish": 0.7, "enjoy": 0.6, "good": 0.6,
	"nice": 0.6, "helpful": 0.6, "glad": 0.6, "win": 0.6, "winning": 0.6,
	"fun": 0.6, "recommend": 0.6, "promising": 0.6, "solid": 0.5,
	"useful": 0.5, "cool": 0.5, "thanks": 0.5, "thank": 0.5,
	"gain": 0.5, "gains": 0.5, "like": 0.4,

	"hate": -0.9, "terrible": -0.9, "awful": -0.9, "horrible": -0.9,
	"worst": -0.9, "garbage": -0.8, "trash": -0.8, "scam": -0.8,
	"disappointed": -0.7, "disappointing": -0.7, "useless": -0.7,
	"angry": -0.7, "fail": -0.7, "failed": -0.7, "failure": -0.7,
	"bearish": -0.7, "broken": -0.6, "bad": -0.6, "crash": -0.6,
	"crashed": -0.6, "annoying": -0.6, "poor": -0.5, "sad": -0.5,
	"ugly": -0.5, "fear": -0.5, "worried": -0.5, "worry": -0.5,
	"loss": -0.5, "losses": -0.5, "bug": -0.4, "bugs": -0.4,
	"wrong": -0.4, "problem": -0.4, "problems": -0.4,
}

// negators flip the valence of the word that follows them.
var negators = map[string]bool{
	"not": true, "no": true, "never": true, "neither": true,
	"dont": true, "don't": true, "cant": true, "can't": true,
	"wont": true, "won't": true, "isnt": true, "isn't": true,
	"wasnt": true, "wasn't": true, "hardly": true,
}

// Local is a deterministic lexicon estimator. It backs every other
// strategy as the fallback and can run the whole pipeline offline; it
// never returns an error.
type Local struct{}

func (Local) Name() string { return "local" }

// ScoreBatch averages the valence of recognised words per text. A word
// preceded by a negator contributes its inverse. Texts without any
// recognised word score neutral zero.
func (Local) ScoreBatch(_ context.Context, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	for i, text := range texts {
		scores[i] = lexiconScore(text)
	}
	return scores, nil
}

func lexiconScore(text string) float64 {
	var sum float64
	var hits int
	prevNegated := false
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:'\"()-")
		if v, ok := valence[word]; ok {
			if prevNegated {
				v = -v
			}
			sum += v
			hits++
		}
		prevNegated = negators[word]
	}
	if hits == 0 {
		return 0
	}
	return domain.Clamp(sum / float64(hits))
}
