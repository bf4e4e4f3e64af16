// Package report aggregates scored posts into a multi-section analytics
// report. Sections are computed independently so one bad section never
// takes down the rest of the report.
package report

// Report is the full analytics output for one analysis run. Section
// names match the JSON the API serves.
type Report struct {
	BasicStats     BasicStats          `json:"basic_stats"`
	Sentiment      SentimentAnalysis   `json:"sentiment_analysis"`
	Temporal       TemporalAnalysis    `json:"temporal_analysis"`
	Engagement     EngagementAnalysis  `json:"engagement_analysis"`
	Content        ContentAnalysis     `json:"content_analysis"`
	Subreddits     SubredditAnalysis   `json:"subreddit_analysis"`
	UserBehavior   UserBehavior        `json:"user_behavior"`
	Topics         TopicModeling       `json:"topic_modeling"`
	Correlations   CorrelationAnalysis `json:"correlation_analysis"`
	Trend          TrendAnalysis       `json:"trend_analysis"`
	Visualizations Visualizations      `json:"visualizations"`
}

// NamedCount pairs a name with an occurrence count.
type NamedCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// NamedValue pairs a name with a numeric value.
type NamedValue struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// BasicStats summarizes counts and score ranges across the result set.
type BasicStats struct {
	TotalPosts         int     `json:"total_posts"`
	TotalComments      int     `json:"total_comments"`
	AvgCommentsPerPost float64 `json:"average_comments_per_post"`
	AvgPostScore       float64 `json:"average_post_score"`
	MedianPostScore    float64 `json:"median_post_score"`
	MaxPostScore       int     `json:"max_post_score"`
	MinPostScore       int     `json:"min_post_score"`
	AvgEngagement      float64 `json:"average_engagement"`
	PostsWithComments  int     `json:"posts_with_comments"`
	NSFWPosts          int     `json:"nsfw_posts"`
}

// SentimentAnalysis summarizes sentiment across posts and comments.
type SentimentAnalysis struct {
	OverallScore   float64               `json:"overall_sentiment_score"`
	Distribution   SentimentDistribution `json:"sentiment_distribution"`
	Volatility     float64               `json:"sentiment_volatility"`
	MostPositive   float64               `json:"most_positive_sentiment"`
	MostNegative   float64               `json:"most_negative_sentiment"`
	CommentAvg     float64               `json:"comment_sentiment_avg"`
	AboveThreshold ThresholdCounts       `json:"posts_above_threshold"`
}

// SentimentDistribution buckets posts by label with percentages.
type SentimentDistribution struct {
	Positive           int     `json:"positive"`
	Negative           int     `json:"negative"`
	Neutral            int     `json:"neutral"`
	PositivePercentage float64 `json:"positive_percentage"`
	NegativePercentage float64 `json:"negative_percentage"`
	NeutralPercentage  float64 `json:"neutral_percentage"`
}

// ThresholdCounts counts posts beyond the strong-sentiment thresholds.
type ThresholdCounts struct {
	VeryPositive int `json:"very_positive"`
	VeryNegative int `json:"very_negative"`
}

// TemporalAnalysis describes when the posts were created.
type TemporalAnalysis struct {
	TimeRange       TimeRange       `json:"time_range"`
	PostingPatterns PostingPatterns `json:"posting_patterns"`
	Activity        ActivityMetrics `json:"activity_metrics"`
}

// TimeRange is the span covered by the result set.
type TimeRange struct {
	Start     string  `json:"start"`
	End       string  `json:"end"`
	SpanHours float64 `json:"span_hours"`
}

// PostingPatterns holds hour-of-day and weekday histograms.
type PostingPatterns struct {
	PeakHour           int            `json:"peak_hour"`
	PeakDay            string         `json:"peak_day"`
	HourlyDistribution map[int]int    `json:"hourly_distribution"`
	DailyDistribution  map[string]int `json:"daily_distribution"`
}

// ActivityMetrics measures posting rate over the covered span.
type ActivityMetrics struct {
	PostsPerHour         float64 `json:"posts_per_hour"`
	MostActiveHourCount  int     `json:"most_active_hour_count"`
	LeastActiveHourCount int     `json:"least_active_hour_count"`
}

// EngagementAnalysis summarizes how the audience interacted with posts.
type EngagementAnalysis struct {
	AvgEngagement float64           `json:"average_engagement"`
	Distribution  EngagementTiers   `json:"engagement_distribution"`
	Upvotes       UpvoteMetrics     `json:"upvote_metrics"`
	Comments      CommentEngagement `json:"comment_engagement"`
	Scores        ScoreMetrics      `json:"score_metrics"`
}

// EngagementTiers buckets posts by engagement score.
type EngagementTiers struct {
	High   int `json:"high"`   // > 0.7
	Medium int `json:"medium"` // (0.3, 0.7]
	Low    int `json:"low"`    // <= 0.3
}

// UpvoteMetrics summarizes upvote ratios.
type UpvoteMetrics struct {
	AverageRatio  float64 `json:"average_ratio"`
	HighlyUpvoted int     `json:"highly_upvoted"` // ratio > 0.9
}

// CommentEngagement summarizes comment volume per post.
type CommentEngagement struct {
	AverageComments       float64 `json:"average_comments"`
	MaxComments           int     `json:"max_comments"`
	PostsWithManyComments int     `json:"posts_with_many_comments"` // > 50 comments
}

// ScoreMetrics summarizes raw post scores.
type ScoreMetrics struct {
	AverageScore       float64 `json:"average_score"`
	ViralPosts         int     `json:"viral_posts"`         // score > 1000
	ControversialPosts int     `json:"controversial_posts"` // ratio < 0.6
}

// ContentAnalysis describes the text itself.
type ContentAnalysis struct {
	TextMetrics  TextMetrics  `json:"text_metrics"`
	ContentTypes ContentTypes `json:"content_types"`
	Keywords     KeywordStats `json:"keywords"`
}

// TextMetrics holds length statistics over titles and bodies.
type TextMetrics struct {
	AvgTitleLength    float64 `json:"average_title_length"`
	AvgSelfTextLength float64 `json:"average_selftext_length"`
	LongestTitle      int     `json:"longest_title"`
	LongestSelfText   int     `json:"longest_selftext"`
}

// ContentTypes splits posts into self-text and link posts.
type ContentTypes struct {
	TextPosts          int     `json:"text_posts"`
	LinkPosts          int     `json:"link_posts"`
	TextPostPercentage float64 `json:"text_post_percentage"`
}

// KeywordStats holds word frequencies over titles and comment bodies.
type KeywordStats struct {
	TopTitleWords      map[string]int `json:"top_title_words"`
	TopCommentWords    map[string]int `json:"top_comment_words"`
	UniqueTitleWords   int            `json:"unique_title_words"`
	UniqueCommentWords int            `json:"unique_comment_words"`
}

// SubredditAnalysis groups results by subreddit.
type SubredditAnalysis struct {
	Distribution    map[string]int     `json:"subreddit_distribution"`
	TotalSubreddits int                `json:"total_subreddits"`
	TopSubreddit    NamedCount         `json:"top_subreddit"`
	Sentiment       map[string]float64 `json:"subreddit_sentiment"`
	MostPositive    NamedValue         `json:"most_positive_subreddit"`
	MostNegative    NamedValue         `json:"most_negative_subreddit"`
}

// UserBehavior describes posting and commenting activity per author.
type UserBehavior struct {
	ActiveUsers   ActiveUsers       `json:"active_users"`
	Participation UserParticipation `json:"user_participation"`
}

// ActiveUsers counts and ranks known authors. Deleted and unknown
// authors are excluded.
type ActiveUsers struct {
	TotalPostAuthors    int            `json:"total_post_authors"`
	TotalCommentAuthors int            `json:"total_comment_authors"`
	TopPosters          map[string]int `json:"top_posters"`
	TopCommenters       map[string]int `json:"top_commenters"`
}

// UserParticipation measures how concentrated the posting activity is.
type UserParticipation struct {
	MultiPostUsers   int        `json:"users_with_multiple_posts"`
	AvgPostsPerUser  float64    `json:"average_posts_per_user"`
	MostActivePoster NamedCount `json:"most_active_poster"`
}

// TopicModeling extracts the dominant keywords from titles and bodies.
type TopicModeling struct {
	TopKeywords      map[string]int `json:"top_keywords"`
	TotalUniqueWords int            `json:"total_unique_words"`
	MostCommonWord   NamedCount     `json:"most_common_word"`
	WordDiversity    float64        `json:"word_diversity"`
}

// CorrelationAnalysis holds Pearson correlations between post metrics.
type CorrelationAnalysis struct {
	Correlations      map[string]float64 `json:"correlations"`
	StrongestPositive NamedValue         `json:"strongest_positive_correlation"`
	StrongestNegative NamedValue         `json:"strongest_negative_correlation"`
}

// TrendAnalysis compares early and late sentiment in the covered span.
type TrendAnalysis struct {
	SentimentTrend  string  `json:"sentiment_trend"`
	SentimentChange float64 `json:"sentiment_change"`
	TrendStrength   float64 `json:"trend_strength"`
	DataPoints      int     `json:"data_points"`
}

// Visualizations are chart-ready projections of the report. They add no
// computation of their own.
type Visualizations struct {
	SentimentTimeline  []TimelinePoint  `json:"sentiment_timeline"`
	SubredditSentiment []SubredditPoint `json:"subreddit_sentiment"`
	EngagementScatter  []ScatterPoint   `json:"engagement_sentiment_scatter"`
	HourlyActivity     []HourlyPoint    `json:"hourly_activity"`
}

// TimelinePoint is one post on the sentiment-over-time chart.
type TimelinePoint struct {
	Date      string  `json:"date"`
	Sentiment float64 `json:"sentiment"`
	Title     string  `json:"title"`
}

// SubredditPoint is one subreddit on the per-subreddit sentiment chart.
type SubredditPoint struct {
	Subreddit string  `json:"subreddit"`
	Sentiment float64 `json:"sentiment"`
	PostCount int     `json:"post_count"`
}

// ScatterPoint is one post on the engagement-vs-sentiment scatter.
type ScatterPoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Size      float64 `json:"size"`
	Title     string  `json:"title"`
	Subreddit string  `json:"subreddit"`
}

// HourlyPoint is one bar of the hourly activity series.
type HourlyPoint struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}
