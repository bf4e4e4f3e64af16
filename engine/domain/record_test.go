package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestLabelFor(t *testing.T) {
	cases := []struct {
		score float64
		want  SentimentLabel
	}{
		{0.8, LabelPositive},
		{0.31, LabelPositive},
		{0.3, LabelNeutral},
		{0.0, LabelNeutral},
		{-0.3, LabelNeutral},
		{-0.31, LabelNegative},
		{-1.0, LabelNegative},
	}
	for _, tc := range cases {
		if got := LabelFor(tc.score); got != tc.want {
			t.Errorf("LabelFor(%v) = %s, want %s", tc.score, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{2.5, 1}, {1, 1}, {0.4, 0.4}, {-1, -1}, {-7, -1},
	}
	for _, tc := range cases {
		if got := Clamp(tc.in); got != tc.want {
			t.Errorf("Clamp(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestDistribution_Add(t *testing.T) {
	var d Distribution
	d.Add(LabelPositive)
	d.Add(LabelPositive)
	d.Add(LabelNegative)
	d.Add(LabelNeutral)
	d.Add(SentimentLabel("bogus")) // unknown labels count as neutral
	if d.Positive != 2 || d.Negative != 1 || d.Neutral != 2 {
		t.Errorf("unexpected distribution: %+v", d)
	}
}

func TestPost_CreatedTime(t *testing.T) {
	p := Post{CreatedUTC: 1700000000.5}
	got := p.CreatedTime()
	want := time.Unix(1700000000, 500000000).UTC()
	if !got.Equal(want) {
		t.Errorf("CreatedTime = %v, want %v", got, want)
	}
}

// The scored form shadows the raw post's comments; the marshalled JSON
// must carry the scored comments and the sentiment fields alongside the
// raw post fields.
func TestScoredPost_JSONShape(t *testing.T) {
	sp := ScoredPost{
		Post: Post{
			ID:        "abc",
			Title:     "hello",
			Subreddit: "golang",
			Score:     42,
			Comments:  []Comment{{ID: "raw", Body: "unscored"}},
		},
		Comments: []ScoredComment{
			{Comment: Comment{ID: "c1", Body: "nice"}, Sentiment: 0.5, Label: LabelPositive},
		},
		PostSentiment: 0.8,
		PostLabel:     LabelPositive,
		Sentiment:     0.31,
		Label:         LabelPositive,
		Engagement:    0.4,
		Distribution:  Distribution{Positive: 1},
	}

	raw, err := json.Marshal(sp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if m["id"] != "abc" || m["subreddit"] != "golang" {
		t.Errorf("raw post fields missing: %v", m)
	}
	if m["overall_sentiment"] != 0.31 || m["sentiment_label"] != "positive" {
		t.Errorf("sentiment fields wrong: %v", m)
	}
	comments, ok := m["comments"].([]any)
	if !ok || len(comments) != 1 {
		t.Fatalf("comments not shadowed: %v", m["comments"])
	}
	first := comments[0].(map[string]any)
	if first["id"] != "c1" || first["sentiment_score"] != 0.5 {
		t.Errorf("scored comment not serialised: %v", first)
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Error("live statuses must not be terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Error("completed and failed must be terminal")
	}
}
