package store

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/report"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "results.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleResult(taskID string, createdAt time.Time) AnalysisResult {
	post := domain.ScoredPost{
		Post: domain.Post{
			ID:          "p-" + taskID,
			Title:       "a title",
			SelfText:    "a body",
			Author:      "alice",
			Subreddit:   "golang",
			Score:       42,
			UpvoteRatio: 0.9,
			NumComments: 1,
			CreatedUTC:  1700000000,
			URL:         "https://example.com",
		},
		Comments: []domain.ScoredComment{
			{
				Comment:   domain.Comment{ID: "c-" + taskID, Author: "bob", Body: "nice", Score: 3, CreatedUTC: 1700000100},
				Sentiment: 0.5,
				Label:     domain.LabelPositive,
			},
		},
		Sentiment:  0.4,
		Label:      domain.LabelPositive,
		Engagement: 0.25,
	}
	return AnalysisResult{
		TaskID:        taskID,
		Query:         "golang",
		TotalPosts:    1,
		TotalComments: 1,
		Duration:      2.5,
		CreatedAt:     createdAt,
		Posts:         []domain.ScoredPost{post},
		Analytics:     report.Aggregate([]domain.ScoredPost{post}),
	}
}

func TestStore_SaveAndGetResult(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	want := sampleResult("t1", time.Now().UTC())

	if err := s.SaveResult(ctx, want); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	got, err := s.GetResult(ctx, "t1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.TaskID != "t1" || got.Query != "golang" || got.TotalPosts != 1 {
		t.Errorf("result header = %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	if len(got.Posts) != 1 || got.Posts[0].ID != "p-t1" || got.Posts[0].Sentiment != 0.4 {
		t.Fatalf("posts = %+v", got.Posts)
	}
	if len(got.Posts[0].Comments) != 1 || got.Posts[0].Comments[0].Label != domain.LabelPositive {
		t.Errorf("comments = %+v", got.Posts[0].Comments)
	}
	if got.Analytics.BasicStats.TotalPosts != 1 {
		t.Errorf("analytics = %+v", got.Analytics.BasicStats)
	}
}

func TestStore_GetResultNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetResult(context.Background(), "missing"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("err = %v, want ErrResultNotFound", err)
	}
	if _, err := s.GetReport(context.Background(), "missing"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("report err = %v, want ErrResultNotFound", err)
	}
}

func TestStore_GetReport(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	res := sampleResult("t1", time.Now().UTC())
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	rep, err := s.GetReport(ctx, "t1")
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if rep.BasicStats.TotalPosts != 1 || rep.BasicStats.TotalComments != 1 {
		t.Errorf("report = %+v", rep.BasicStats)
	}
}

func TestStore_HistoryOrderAndLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	for i, id := range []string{"old", "mid", "new"} {
		res := sampleResult(id, now.Add(time.Duration(i-2)*time.Hour))
		if err := s.SaveResult(ctx, res); err != nil {
			t.Fatalf("SaveResult %s: %v", id, err)
		}
	}
	entries, err := s.History(ctx, 2)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].TaskID != "new" || entries[1].TaskID != "mid" {
		t.Errorf("order = %s, %s", entries[0].TaskID, entries[1].TaskID)
	}
}

func TestStore_DeleteCascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.SaveResult(ctx, sampleResult("t1", time.Now().UTC())); err != nil {
		t.Fatalf("SaveResult: %v", err)
	}
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetResult(ctx, "t1"); !errors.Is(err, domain.ErrResultNotFound) {
		t.Errorf("result still present: %v", err)
	}
	var posts, comments int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts`).Scan(&posts); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM comments`).Scan(&comments); err != nil {
		t.Fatal(err)
	}
	if posts != 0 || comments != 0 {
		t.Errorf("orphaned rows: %d posts, %d comments", posts, comments)
	}
	// Deleting again is fine.
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestStore_SentimentTrends(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	fresh := sampleResult("fresh", time.Now().UTC())
	fresh.Posts[0].Sentiment = 0.5
	extra := fresh.Posts[0]
	extra.ID = "p-extra"
	extra.Sentiment = -0.1
	extra.Comments = nil
	fresh.Posts = append(fresh.Posts, extra)
	if err := s.SaveResult(ctx, fresh); err != nil {
		t.Fatalf("save fresh: %v", err)
	}

	stale := sampleResult("stale", time.Now().UTC().AddDate(0, 0, -40))
	if err := s.SaveResult(ctx, stale); err != nil {
		t.Fatalf("save stale: %v", err)
	}

	trends, err := s.SentimentTrends(ctx, 30)
	if err != nil {
		t.Fatalf("SentimentTrends: %v", err)
	}
	if len(trends) != 1 {
		t.Fatalf("got %d points, want 1 (stale excluded): %+v", len(trends), trends)
	}
	if trends[0].PostCount != 2 {
		t.Errorf("post count = %d", trends[0].PostCount)
	}
	if math.Abs(trends[0].AvgSentiment-0.2) > 1e-9 {
		t.Errorf("avg sentiment = %v, want 0.2", trends[0].AvgSentiment)
	}
}

func TestStore_CleanupOlderThan(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.SaveResult(ctx, sampleResult("fresh", time.Now().UTC())); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	if err := s.SaveResult(ctx, sampleResult("stale", time.Now().UTC().AddDate(0, 0, -40))); err != nil {
		t.Fatalf("save stale: %v", err)
	}

	removed, err := s.CleanupOlderThan(ctx, 30)
	if err != nil {
		t.Fatalf("CleanupOlderThan: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	entries, err := s.History(ctx, 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 || entries[0].TaskID != "fresh" {
		t.Errorf("history after cleanup = %+v", entries)
	}
	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM posts WHERE task_id = 'stale'`).Scan(&orphans); err != nil {
		t.Fatal(err)
	}
	if orphans != 0 {
		t.Errorf("stale posts left: %d", orphans)
	}
}

func TestStore_SaveReplacesExisting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	res := sampleResult("t1", time.Now().UTC())
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("first save: %v", err)
	}
	res.Query = "rust"
	if err := s.SaveResult(ctx, res); err != nil {
		t.Fatalf("second save: %v", err)
	}
	got, err := s.GetResult(ctx, "t1")
	if err != nil {
		t.Fatalf("GetResult: %v", err)
	}
	if got.Query != "rust" {
		t.Errorf("query = %s, want rust", got.Query)
	}
	entries, _ := s.History(ctx, 10)
	if len(entries) != 1 {
		t.Errorf("history = %d entries, want 1", len(entries))
	}
}
