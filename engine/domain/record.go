// Package domain defines the core record, task and request types for the
// pulsewire pipeline. It acts as the validation gate at pipeline entry points.
package domain

import "time"

// SentimentLabel buckets a sentiment score into positive, neutral or negative.
type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNeutral  SentimentLabel = "neutral"
	LabelNegative SentimentLabel = "negative"
)

// Clamp forces a raw sentiment score into [-1, 1].
func Clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}

// LabelFor maps a sentiment score onto its label. Scores above 0.3 are
// positive, below -0.3 negative, everything in between neutral.
func LabelFor(score float64) SentimentLabel {
	switch {
	case score > 0.3:
		return LabelPositive
	case score < -0.3:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Comment is a single reply attached to a Post.
type Comment struct {
	ID         string  `json:"id"`
	Author     string  `json:"author"`
	Body       string  `json:"body"`
	Score      int     `json:"score"`
	CreatedUTC float64 `json:"created_utc"`
	Permalink  string  `json:"permalink"`
}

// Post is a raw fetched submission before scoring. Comments belong to the
// post exclusively and are never shared between posts.
type Post struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	SelfText    string    `json:"selftext"`
	Author      string    `json:"author"`
	Subreddit   string    `json:"subreddit"`
	Score       int       `json:"score"`
	UpvoteRatio float64   `json:"upvote_ratio"`
	NumComments int       `json:"num_comments"`
	CreatedUTC  float64   `json:"created_utc"`
	URL         string    `json:"url"`
	IsVideo     bool      `json:"is_video"`
	Over18      bool      `json:"over_18"`
	Permalink   string    `json:"permalink"`
	Comments    []Comment `json:"comments"`
}

// CreatedTime converts the epoch timestamp into UTC wall time.
func (p Post) CreatedTime() time.Time {
	sec := int64(p.CreatedUTC)
	nsec := int64((p.CreatedUTC - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC()
}

// Distribution counts scored comments per sentiment label.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Add records one labelled comment.
func (d *Distribution) Add(l SentimentLabel) {
	switch l {
	case LabelPositive:
		d.Positive++
	case LabelNegative:
		d.Negative++
	default:
		d.Neutral++
	}
}

// ScoredComment is a Comment with its sentiment attached.
type ScoredComment struct {
	Comment
	Sentiment float64        `json:"sentiment_score"`
	Label     SentimentLabel `json:"sentiment_label"`
}

// ScoredPost is the enriched form of a Post. It embeds the raw post
// unchanged and shadows Comments with their scored counterparts, so the
// JSON shape is the post plus the sentiment fields.
type ScoredPost struct {
	Post
	Comments      []ScoredComment `json:"comments"`
	PostSentiment float64         `json:"post_sentiment_score"`
	PostLabel     SentimentLabel  `json:"post_sentiment_label"`
	Sentiment     float64         `json:"overall_sentiment"`
	Label         SentimentLabel  `json:"sentiment_label"`
	Engagement    float64         `json:"engagement_score"`
	Distribution  Distribution    `json:"sentiment_distribution"`
}
