package report

import (
	"log/slog"
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/fn"
)

const (
	topKeywordCount   = 20
	topSubredditCount = 20
	topSentimentCount = 10
	topUserCount      = 10
	titleTruncateLen  = 50
)

var (
	wordRe    = regexp.MustCompile(`\b\w+\b`)
	keywordRe = regexp.MustCompile(`\b[a-zA-Z]{4,}\b`)
)

// stopWords are excluded from topic keyword extraction.
var stopWords = map[string]bool{
	"that": true, "this": true, "with": true, "have": true, "will": true,
	"from": true, "they": true, "been": true, "were": true, "said": true,
	"each": true, "which": true, "their": true, "time": true, "more": true,
	"very": true, "what": true, "know": true, "just": true, "first": true,
	"into": true, "over": true, "think": true, "also": true, "make": true,
	"only": true, "come": true, "could": true, "other": true, "after": true,
	"would": true, "when": true,
}

var dayNames = [...]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// Aggregate computes the analytics report for a set of scored posts.
// It is pure: identical input yields identical output and the input is
// never mutated. Empty input yields the zero Report. Each section runs
// under a panic guard, so a failing section yields its zero value while
// the others are unaffected.
func Aggregate(posts []domain.ScoredPost) Report {
	if len(posts) == 0 {
		return Report{}
	}
	var r Report
	r.BasicStats = section("basic_stats", func() BasicStats { return basicStats(posts) })
	r.Sentiment = section("sentiment_analysis", func() SentimentAnalysis { return sentimentAnalysis(posts) })
	r.Temporal = section("temporal_analysis", func() TemporalAnalysis { return temporalAnalysis(posts) })
	r.Engagement = section("engagement_analysis", func() EngagementAnalysis { return engagementAnalysis(posts) })
	r.Content = section("content_analysis", func() ContentAnalysis { return contentAnalysis(posts) })
	r.Subreddits = section("subreddit_analysis", func() SubredditAnalysis { return subredditAnalysis(posts) })
	r.UserBehavior = section("user_behavior", func() UserBehavior { return userBehavior(posts) })
	r.Topics = section("topic_modeling", func() TopicModeling { return topicModeling(posts) })
	r.Correlations = section("correlation_analysis", func() CorrelationAnalysis { return correlationAnalysis(posts) })
	r.Trend = section("trend_analysis", func() TrendAnalysis { return trendAnalysis(posts) })
	// Visualizations project already-computed sections, so they go last.
	r.Visualizations = section("visualizations", func() Visualizations { return visualizations(posts, r) })
	return r
}

// section runs one section computation, converting a panic into that
// section's zero value.
func section[T any](name string, compute func() T) (out T) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("analytics section failed", "section", name, "panic", rec)
		}
	}()
	return compute()
}

func basicStats(posts []domain.ScoredPost) BasicStats {
	scores := make([]float64, len(posts))
	engagements := make([]float64, len(posts))
	totalComments, withComments, nsfw := 0, 0, 0
	maxScore, minScore := posts[0].Score, posts[0].Score
	for i, p := range posts {
		scores[i] = float64(p.Score)
		engagements[i] = p.Engagement
		totalComments += len(p.Comments)
		if len(p.Comments) > 0 {
			withComments++
		}
		if p.Over18 {
			nsfw++
		}
		if p.Score > maxScore {
			maxScore = p.Score
		}
		if p.Score < minScore {
			minScore = p.Score
		}
	}
	return BasicStats{
		TotalPosts:         len(posts),
		TotalComments:      totalComments,
		AvgCommentsPerPost: float64(totalComments) / float64(len(posts)),
		AvgPostScore:       mean(scores),
		MedianPostScore:    median(scores),
		MaxPostScore:       maxScore,
		MinPostScore:       minScore,
		AvgEngagement:      mean(engagements),
		PostsWithComments:  withComments,
		NSFWPosts:          nsfw,
	}
}

func sentimentAnalysis(posts []domain.ScoredPost) SentimentAnalysis {
	sentiments := make([]float64, len(posts))
	pos, neg, veryPos, veryNeg := 0, 0, 0, 0
	for i, p := range posts {
		s := p.Sentiment
		sentiments[i] = s
		switch domain.LabelFor(s) {
		case domain.LabelPositive:
			pos++
		case domain.LabelNegative:
			neg++
		}
		if s > 0.7 {
			veryPos++
		}
		if s < -0.7 {
			veryNeg++
		}
	}
	commentSentiments := fn.FlatMap(posts, func(p domain.ScoredPost) []float64 {
		return fn.Map(p.Comments, func(c domain.ScoredComment) float64 { return c.Sentiment })
	})
	neu := len(posts) - pos - neg
	n := float64(len(posts))
	maxS, minS := sentiments[0], sentiments[0]
	for _, s := range sentiments[1:] {
		if s > maxS {
			maxS = s
		}
		if s < minS {
			minS = s
		}
	}
	return SentimentAnalysis{
		OverallScore: mean(sentiments),
		Distribution: SentimentDistribution{
			Positive:           pos,
			Negative:           neg,
			Neutral:            neu,
			PositivePercentage: float64(pos) / n * 100,
			NegativePercentage: float64(neg) / n * 100,
			NeutralPercentage:  float64(neu) / n * 100,
		},
		Volatility:     stddev(sentiments),
		MostPositive:   maxS,
		MostNegative:   minS,
		CommentAvg:     mean(commentSentiments),
		AboveThreshold: ThresholdCounts{VeryPositive: veryPos, VeryNegative: veryNeg},
	}
}

func temporalAnalysis(posts []domain.ScoredPost) TemporalAnalysis {
	times := make([]time.Time, 0, len(posts))
	for _, p := range posts {
		if p.CreatedUTC == 0 {
			continue
		}
		times = append(times, p.CreatedTime())
	}
	if len(times) == 0 {
		return TemporalAnalysis{}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	hourCounts := make(map[int]int)
	dayCounts := make(map[int]int)
	for _, t := range times {
		hourCounts[t.Hour()]++
		dayCounts[mondayIndex(t.Weekday())]++
	}

	daily := make(map[string]int, len(dayCounts))
	for d, n := range dayCounts {
		daily[dayNames[d]] = n
	}

	mostActive, leastActive := 0, math.MaxInt
	for _, n := range hourCounts {
		if n > mostActive {
			mostActive = n
		}
		if n < leastActive {
			leastActive = n
		}
	}

	span := times[len(times)-1].Sub(times[0]).Hours()
	return TemporalAnalysis{
		TimeRange: TimeRange{
			Start:     times[0].Format(time.RFC3339),
			End:       times[len(times)-1].Format(time.RFC3339),
			SpanHours: span,
		},
		PostingPatterns: PostingPatterns{
			PeakHour:           peakKey(hourCounts),
			PeakDay:            dayNames[peakKey(dayCounts)],
			HourlyDistribution: hourCounts,
			DailyDistribution:  daily,
		},
		Activity: ActivityMetrics{
			PostsPerHour:         float64(len(posts)) / math.Max(span, 1),
			MostActiveHourCount:  mostActive,
			LeastActiveHourCount: leastActive,
		},
	}
}

// mondayIndex converts Go's Sunday-based weekday to the Monday-based
// index the report uses.
func mondayIndex(d time.Weekday) int {
	return (int(d) + 6) % 7
}

// peakKey returns the key with the highest count; ties go to the
// smallest key so the result is deterministic.
func peakKey(counts map[int]int) int {
	best, bestN := 0, -1
	for k, n := range counts {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func engagementAnalysis(posts []domain.ScoredPost) EngagementAnalysis {
	engagements := make([]float64, len(posts))
	ratios := make([]float64, len(posts))
	counts := make([]float64, len(posts))
	scores := make([]float64, len(posts))
	var high, medium, low int
	var highlyUpvoted, controversial, many, viral, maxComments int
	for i, p := range posts {
		engagements[i] = p.Engagement
		switch {
		case p.Engagement > 0.7:
			high++
		case p.Engagement > 0.3:
			medium++
		default:
			low++
		}
		ratios[i] = p.UpvoteRatio
		if p.UpvoteRatio > 0.9 {
			highlyUpvoted++
		}
		if p.UpvoteRatio < 0.6 {
			controversial++
		}
		n := len(p.Comments)
		counts[i] = float64(n)
		if n > maxComments {
			maxComments = n
		}
		if n > 50 {
			many++
		}
		scores[i] = float64(p.Score)
		if p.Score > 1000 {
			viral++
		}
	}
	return EngagementAnalysis{
		AvgEngagement: mean(engagements),
		Distribution:  EngagementTiers{High: high, Medium: medium, Low: low},
		Upvotes:       UpvoteMetrics{AverageRatio: mean(ratios), HighlyUpvoted: highlyUpvoted},
		Comments: CommentEngagement{
			AverageComments:       mean(counts),
			MaxComments:           maxComments,
			PostsWithManyComments: many,
		},
		Scores: ScoreMetrics{
			AverageScore:       mean(scores),
			ViralPosts:         viral,
			ControversialPosts: controversial,
		},
	}
}

func contentAnalysis(posts []domain.ScoredPost) ContentAnalysis {
	titleLens := make([]float64, len(posts))
	bodyLens := make([]float64, len(posts))
	var longestTitle, longestBody, textPosts, linkPosts int
	var titles, comments strings.Builder
	for i, p := range posts {
		tl := utf8.RuneCountInString(p.Title)
		bl := utf8.RuneCountInString(p.SelfText)
		titleLens[i] = float64(tl)
		bodyLens[i] = float64(bl)
		if tl > longestTitle {
			longestTitle = tl
		}
		if bl > longestBody {
			longestBody = bl
		}
		if strings.TrimSpace(p.SelfText) != "" {
			textPosts++
		} else if p.URL != "" {
			linkPosts++
		}
		titles.WriteString(p.Title)
		titles.WriteByte(' ')
		for _, c := range p.Comments {
			comments.WriteString(c.Body)
			comments.WriteByte(' ')
		}
	}
	titleFreq := wordFrequencies(titles.String())
	commentFreq := wordFrequencies(comments.String())
	return ContentAnalysis{
		TextMetrics: TextMetrics{
			AvgTitleLength:    mean(titleLens),
			AvgSelfTextLength: mean(bodyLens),
			LongestTitle:      longestTitle,
			LongestSelfText:   longestBody,
		},
		ContentTypes: ContentTypes{
			TextPosts:          textPosts,
			LinkPosts:          linkPosts,
			TextPostPercentage: float64(textPosts) / float64(len(posts)) * 100,
		},
		Keywords: KeywordStats{
			TopTitleWords:      topCounts(titleFreq, topKeywordCount),
			TopCommentWords:    topCounts(commentFreq, topKeywordCount),
			UniqueTitleWords:   len(titleFreq),
			UniqueCommentWords: len(commentFreq),
		},
	}
}

// wordFrequencies counts lower-cased words longer than three
// characters.
func wordFrequencies(text string) map[string]int {
	freq := make(map[string]int)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if len(w) > 3 {
			freq[w]++
		}
	}
	return freq
}

func subredditAnalysis(posts []domain.ScoredPost) SubredditAnalysis {
	bySub := fn.GroupBy(posts, func(p domain.ScoredPost) string { return p.Subreddit })
	counts := make(map[string]int, len(bySub))
	avg := make(map[string]float64, len(bySub))
	for sub, group := range bySub {
		counts[sub] = len(group)
		avg[sub] = mean(fn.Map(group, func(p domain.ScoredPost) float64 { return p.Sentiment }))
	}
	rankedAvg := rankedValues(avg)

	var top NamedCount
	if ranked := rankedCounts(counts); len(ranked) > 0 {
		top = ranked[0]
	}
	return SubredditAnalysis{
		Distribution:    topCounts(counts, topSubredditCount),
		TotalSubreddits: len(counts),
		TopSubreddit:    top,
		Sentiment:       topValues(avg, topSentimentCount),
		MostPositive:    rankedAvg[0],
		MostNegative:    minValue(rankedAvg),
	}
}

func userBehavior(posts []domain.ScoredPost) UserBehavior {
	postAuthors := make(map[string]int)
	commentAuthors := make(map[string]int)
	for _, p := range posts {
		if knownAuthor(p.Author) {
			postAuthors[p.Author]++
		}
		for _, c := range p.Comments {
			if knownAuthor(c.Author) {
				commentAuthors[c.Author]++
			}
		}
	}
	multi := 0
	perUser := make([]float64, 0, len(postAuthors))
	for _, n := range postAuthors {
		perUser = append(perUser, float64(n))
		if n > 1 {
			multi++
		}
	}
	var mostActive NamedCount
	if ranked := rankedCounts(postAuthors); len(ranked) > 0 {
		mostActive = ranked[0]
	}
	return UserBehavior{
		ActiveUsers: ActiveUsers{
			TotalPostAuthors:    len(postAuthors),
			TotalCommentAuthors: len(commentAuthors),
			TopPosters:          topCounts(postAuthors, topUserCount),
			TopCommenters:       topCounts(commentAuthors, topUserCount),
		},
		Participation: UserParticipation{
			MultiPostUsers:   multi,
			AvgPostsPerUser:  mean(perUser),
			MostActivePoster: mostActive,
		},
	}
}

func knownAuthor(author string) bool {
	return author != "" && author != "Unknown"
}

func topicModeling(posts []domain.ScoredPost) TopicModeling {
	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(p.Title)
		sb.WriteByte(' ')
		sb.WriteString(p.SelfText)
		sb.WriteByte(' ')
	}
	words := keywordRe.FindAllString(strings.ToLower(sb.String()), -1)
	freq := make(map[string]int)
	for _, w := range words {
		if !stopWords[w] {
			freq[w]++
		}
	}
	var mostCommon NamedCount
	if ranked := rankedCounts(freq); len(ranked) > 0 {
		mostCommon = ranked[0]
	}
	diversity := 0.0
	if len(words) > 0 {
		diversity = float64(len(freq)) / float64(len(words))
	}
	return TopicModeling{
		TopKeywords:      topCounts(freq, topKeywordCount),
		TotalUniqueWords: len(freq),
		MostCommonWord:   mostCommon,
		WordDiversity:    diversity,
	}
}

func correlationAnalysis(posts []domain.ScoredPost) CorrelationAnalysis {
	if len(posts) < 2 {
		return CorrelationAnalysis{}
	}
	sentiments := make([]float64, len(posts))
	scores := make([]float64, len(posts))
	engagements := make([]float64, len(posts))
	comments := make([]float64, len(posts))
	for i, p := range posts {
		sentiments[i] = p.Sentiment
		scores[i] = float64(p.Score)
		engagements[i] = p.Engagement
		comments[i] = float64(len(p.Comments))
	}
	correlations := map[string]float64{
		"sentiment_score":      pearson(sentiments, scores),
		"sentiment_engagement": pearson(sentiments, engagements),
		"score_comments":       pearson(scores, comments),
		"engagement_comments":  pearson(engagements, comments),
	}
	ranked := rankedValues(correlations)
	return CorrelationAnalysis{
		Correlations:      correlations,
		StrongestPositive: ranked[0],
		StrongestNegative: minValue(ranked),
	}
}

func trendAnalysis(posts []domain.ScoredPost) TrendAnalysis {
	if len(posts) < 3 {
		return TrendAnalysis{}
	}
	type point struct {
		at        float64
		sentiment float64
	}
	pts := make([]point, len(posts))
	for i, p := range posts {
		pts[i] = point{at: p.CreatedUTC, sentiment: p.Sentiment}
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].at < pts[j].at })

	sentiments := make([]float64, len(pts))
	for i, p := range pts {
		sentiments[i] = p.sentiment
	}
	half := len(sentiments) / 2
	change := mean(sentiments[half:]) - mean(sentiments[:half])
	trend := "decreasing"
	if change > 0 {
		trend = "increasing"
	}
	return TrendAnalysis{
		SentimentTrend:  trend,
		SentimentChange: change,
		TrendStrength:   math.Abs(change),
		DataPoints:      len(pts),
	}
}

func visualizations(posts []domain.ScoredPost, r Report) Visualizations {
	ordered := make([]domain.ScoredPost, len(posts))
	copy(ordered, posts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].CreatedUTC < ordered[j].CreatedUTC })

	timeline := make([]TimelinePoint, 0, len(ordered))
	for _, p := range ordered {
		timeline = append(timeline, TimelinePoint{
			Date:      p.CreatedTime().Format(time.RFC3339),
			Sentiment: p.Sentiment,
			Title:     truncate(p.Title, titleTruncateLen),
		})
	}

	counts := make(map[string]int)
	for _, p := range posts {
		counts[p.Subreddit]++
	}
	subs := make([]SubredditPoint, 0, len(r.Subreddits.Sentiment))
	for _, e := range rankedValues(r.Subreddits.Sentiment) {
		subs = append(subs, SubredditPoint{Subreddit: e.Name, Sentiment: e.Value, PostCount: counts[e.Name]})
	}

	scatter := make([]ScatterPoint, 0, len(posts))
	for _, p := range posts {
		scatter = append(scatter, ScatterPoint{
			X:         p.Engagement,
			Y:         p.Sentiment,
			Size:      math.Min(float64(p.Score)/10, 100),
			Title:     truncate(p.Title, titleTruncateLen),
			Subreddit: p.Subreddit,
		})
	}

	hours := make([]HourlyPoint, 0, len(r.Temporal.PostingPatterns.HourlyDistribution))
	for h, n := range r.Temporal.PostingPatterns.HourlyDistribution {
		hours = append(hours, HourlyPoint{Hour: h, Count: n})
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Hour < hours[j].Hour })

	return Visualizations{
		SentimentTimeline:  timeline,
		SubredditSentiment: subs,
		EngagementScatter:  scatter,
		HourlyActivity:     hours,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
