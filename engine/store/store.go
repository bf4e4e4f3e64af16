// Package store persists completed analysis results in SQLite. The full
// result is kept as JSON alongside relational post and comment rows so
// trend queries can aggregate across runs.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/engine/report"
)

// AnalysisResult is the persisted output of one completed analysis run.
type AnalysisResult struct {
	TaskID        string              `json:"task_id"`
	Query         string              `json:"query"`
	TotalPosts    int                 `json:"total_posts"`
	TotalComments int                 `json:"total_comments"`
	Duration      float64             `json:"analysis_duration"`
	CreatedAt     time.Time           `json:"created_at"`
	Posts         []domain.ScoredPost `json:"posts"`
	Analytics     report.Report       `json:"analytics"`
}

// HistoryEntry is one line of the analysis history listing.
type HistoryEntry struct {
	TaskID        string    `json:"task_id"`
	Query         string    `json:"query"`
	TotalPosts    int       `json:"total_posts"`
	TotalComments int       `json:"total_comments"`
	Duration      float64   `json:"analysis_duration"`
	CreatedAt     time.Time `json:"created_at"`
}

// TrendPoint is one day of the cross-run sentiment trend series.
type TrendPoint struct {
	Date         string  `json:"date"`
	AvgSentiment float64 `json:"avg_sentiment"`
	PostCount    int     `json:"post_count"`
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_results (
	task_id           TEXT PRIMARY KEY,
	query             TEXT NOT NULL,
	total_posts       INTEGER,
	total_comments    INTEGER,
	analysis_duration REAL,
	created_at        TIMESTAMP,
	result_data       TEXT,
	analytics_data    TEXT
);
CREATE INDEX IF NOT EXISTS idx_analysis_created_at ON analysis_results(created_at);

CREATE TABLE IF NOT EXISTS posts (
	id                TEXT PRIMARY KEY,
	task_id           TEXT,
	title             TEXT,
	selftext          TEXT,
	author            TEXT,
	subreddit         TEXT,
	score             INTEGER,
	upvote_ratio      REAL,
	num_comments      INTEGER,
	created_utc       REAL,
	url               TEXT,
	overall_sentiment REAL,
	sentiment_label   TEXT,
	engagement_score  REAL,
	FOREIGN KEY (task_id) REFERENCES analysis_results (task_id)
);
CREATE INDEX IF NOT EXISTS idx_posts_task_id ON posts(task_id);
CREATE INDEX IF NOT EXISTS idx_posts_created_utc ON posts(created_utc);

CREATE TABLE IF NOT EXISTS comments (
	id              TEXT PRIMARY KEY,
	post_id         TEXT,
	author          TEXT,
	body            TEXT,
	score           INTEGER,
	created_utc     REAL,
	sentiment_score REAL,
	sentiment_label TEXT,
	FOREIGN KEY (post_id) REFERENCES posts (id)
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
`

// Store wraps the results database.
type Store struct {
	db *sql.DB
}

// Open opens the database at path, creating the schema if needed.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// SaveResult writes a completed result and its post and comment rows in
// one transaction. Saving the same task again replaces the prior rows.
func (s *Store) SaveResult(ctx context.Context, res AnalysisResult) error {
	res.CreatedAt = res.CreatedAt.UTC()

	resultData, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	analyticsData, err := json.Marshal(res.Analytics)
	if err != nil {
		return fmt.Errorf("marshal analytics: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO analysis_results
		 (task_id, query, total_posts, total_comments, analysis_duration, created_at, result_data, analytics_data)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.TaskID, res.Query, res.TotalPosts, res.TotalComments,
		res.Duration, res.CreatedAt, string(resultData), string(analyticsData),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	postStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO posts
		 (id, task_id, title, selftext, author, subreddit, score, upvote_ratio,
		  num_comments, created_utc, url, overall_sentiment, sentiment_label, engagement_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer postStmt.Close()

	commentStmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO comments
		 (id, post_id, author, body, score, created_utc, sentiment_score, sentiment_label)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer commentStmt.Close()

	for _, p := range res.Posts {
		_, err := postStmt.ExecContext(ctx,
			p.ID, res.TaskID, p.Title, p.SelfText, p.Author, p.Subreddit,
			p.Score, p.UpvoteRatio, p.NumComments, p.CreatedUTC, p.URL,
			p.Sentiment, string(p.Label), p.Engagement,
		)
		if err != nil {
			return fmt.Errorf("insert post %s: %w", p.ID, err)
		}
		for _, c := range p.Comments {
			_, err := commentStmt.ExecContext(ctx,
				c.ID, p.ID, c.Author, c.Body, c.Score, c.CreatedUTC,
				c.Sentiment, string(c.Label),
			)
			if err != nil {
				return fmt.Errorf("insert comment %s: %w", c.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("analysis result saved", "task_id", res.TaskID, "posts", len(res.Posts))
	return nil
}

// GetResult loads the full result for a task.
func (s *Store) GetResult(ctx context.Context, taskID string) (AnalysisResult, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT result_data FROM analysis_results WHERE task_id = ?`, taskID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisResult{}, domain.ErrResultNotFound
	}
	if err != nil {
		return AnalysisResult{}, err
	}
	var res AnalysisResult
	if err := json.Unmarshal([]byte(data), &res); err != nil {
		return AnalysisResult{}, fmt.Errorf("unmarshal result %s: %w", taskID, err)
	}
	return res, nil
}

// GetReport loads only the analytics report for a task.
func (s *Store) GetReport(ctx context.Context, taskID string) (report.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT analytics_data FROM analysis_results WHERE task_id = ?`, taskID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return report.Report{}, domain.ErrResultNotFound
	}
	if err != nil {
		return report.Report{}, err
	}
	var rep report.Report
	if err := json.Unmarshal([]byte(data), &rep); err != nil {
		return report.Report{}, fmt.Errorf("unmarshal analytics %s: %w", taskID, err)
	}
	return rep, nil
}

// History lists stored results, most recent first.
func (s *Store) History(ctx context.Context, limit int) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT task_id, query, total_posts, total_comments, analysis_duration, created_at
		 FROM analysis_results
		 ORDER BY created_at DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []HistoryEntry{}
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.TaskID, &e.Query, &e.TotalPosts, &e.TotalComments, &e.Duration, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes a result and its post and comment rows. Deleting a
// missing task is not an error.
func (s *Store) Delete(ctx context.Context, taskID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Comments first, then posts, then the result row.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM comments WHERE post_id IN (SELECT id FROM posts WHERE task_id = ?)`, taskID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM analysis_results WHERE task_id = ?`, taskID); err != nil {
		return err
	}
	return tx.Commit()
}

// SentimentTrends aggregates mean post sentiment per day over the last
// days days, across all stored results.
func (s *Store) SentimentTrends(ctx context.Context, days int) ([]TrendPoint, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx,
		`SELECT DATE(ar.created_at) AS date,
		        AVG(p.overall_sentiment) AS avg_sentiment,
		        COUNT(*) AS post_count
		 FROM analysis_results ar
		 JOIN posts p ON ar.task_id = p.task_id
		 WHERE ar.created_at >= ?
		 GROUP BY DATE(ar.created_at)
		 ORDER BY date`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	trends := []TrendPoint{}
	for rows.Next() {
		var t TrendPoint
		if err := rows.Scan(&t.Date, &t.AvgSentiment, &t.PostCount); err != nil {
			return nil, err
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}

// CleanupOlderThan removes results older than the retention window and
// returns how many were removed.
func (s *Store) CleanupOlderThan(ctx context.Context, days int) (int, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM comments WHERE post_id IN (
			SELECT id FROM posts WHERE task_id IN (
				SELECT task_id FROM analysis_results WHERE created_at < ?))`, cutoff); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM posts WHERE task_id IN (
			SELECT task_id FROM analysis_results WHERE created_at < ?)`, cutoff); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM analysis_results WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if removed > 0 {
		slog.Info("old analysis results removed", "count", removed, "retention_days", days)
	}
	return int(removed), nil
}
