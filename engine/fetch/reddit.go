package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
	"github.com/PulsewireAI/pulsewire-mvp/pkg/fn"
)

// Comment hydration rules.
const (
	keptCommentLimit = 20 // top comments retained per post
	minCommentRunes  = 10 // shorter bodies carry no signal
	pageLimit        = 100
)

// Client fetches posts and comments from Reddit's public JSON API. It
// implements both Source and Lister.
type Client struct {
	baseURL   string
	userAgent string
	httpc     *http.Client
}

// NewClient creates a Client. Empty arguments take the public defaults.
func NewClient(baseURL, userAgent string) *Client {
	if baseURL == "" {
		baseURL = "https://www.reddit.com"
	}
	if userAgent == "" {
		userAgent = "pulsewire/0.1 (sentiment pipeline)"
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// List searches across all of Reddit and returns unhydrated stubs.
func (c *Client) List(ctx context.Context, p SearchParams) ([]Stub, error) {
	data, err := c.searchPages(ctx, c.baseURL+"/search.json", p, false)
	if err != nil {
		return nil, fmt.Errorf("global search: %w", err)
	}
	return fn.Map(data, func(d listingData) Stub { return Stub(postFrom(d)) }), nil
}

// Search returns complete posts for one subreddit. A failed comment
// hydration keeps the post with empty comments rather than losing it.
func (c *Client) Search(ctx context.Context, p SearchParams) ([]domain.Post, error) {
	endpoint := fmt.Sprintf("%s/r/%s/search.json", c.baseURL, url.PathEscape(p.Subreddit))
	data, err := c.searchPages(ctx, endpoint, p, true)
	if err != nil {
		return nil, fmt.Errorf("r/%s search: %w", p.Subreddit, err)
	}
	posts := make([]domain.Post, 0, len(data))
	for _, d := range data {
		stub := Stub(postFrom(d))
		post, err := c.Hydrate(ctx, stub)
		if err != nil {
			slog.Warn("comment hydration failed", "post_id", stub.ID, "error", err)
			post = domain.Post(stub)
			post.Comments = []domain.Comment{}
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// Hydrate fetches the comment tree for a stub and returns the complete
// post. The canonical post payload in the reply refreshes the stub's
// fields; comments are filtered and capped to the top scorers.
func (c *Client) Hydrate(ctx context.Context, stub Stub) (domain.Post, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(pageLimit))
	q.Set("sort", "top")
	q.Set("raw_json", "1")
	u := fmt.Sprintf("%s/comments/%s.json?%s", c.baseURL, url.PathEscape(stub.ID), q.Encode())

	body, err := c.httpGet(ctx, u)
	if err != nil {
		return domain.Post{}, err
	}
	defer body.Close()

	// Reddit returns [postListing, commentListing].
	var listings []listingResponse
	if err := json.NewDecoder(body).Decode(&listings); err != nil {
		return domain.Post{}, fmt.Errorf("decode comments: %w", err)
	}

	post := domain.Post(stub)
	if len(listings) > 0 && len(listings[0].Data.Children) > 0 {
		post = postFrom(listings[0].Data.Children[0].Data)
	}
	post.Comments = []domain.Comment{}
	if len(listings) < 2 {
		return post, nil
	}

	comments := fn.FilterMap(listings[1].Data.Children, func(child listingChild) (domain.Comment, bool) {
		d := child.Data
		if child.Kind != "t1" || d.Body == "[removed]" || d.Body == "[deleted]" {
			return domain.Comment{}, false
		}
		if utf8.RuneCountInString(d.Body) <= minCommentRunes {
			return domain.Comment{}, false
		}
		return domain.Comment{
			ID:         d.ID,
			Author:     authorOr(d.Author),
			Body:       d.Body,
			Score:      d.Score,
			CreatedUTC: d.CreatedUTC,
			Permalink:  "https://reddit.com" + d.Permalink,
		}, true
	})
	sort.Slice(comments, func(i, j int) bool { return comments[i].Score > comments[j].Score })
	if len(comments) > keptCommentLimit {
		comments = comments[:keptCommentLimit]
	}
	if len(comments) > 0 {
		post.Comments = comments
	}
	return post, nil
}

// searchPages walks the listing cursor until limit posts are collected
// or the cursor runs out.
func (c *Client) searchPages(ctx context.Context, endpoint string, p SearchParams, restrict bool) ([]listingData, error) {
	var collected []listingData
	after := ""
	remaining := p.Limit
	for remaining > 0 {
		page := remaining
		if page > pageLimit {
			page = pageLimit
		}

		q := url.Values{}
		q.Set("q", p.Query)
		q.Set("limit", strconv.Itoa(page))
		q.Set("raw_json", "1")
		if p.TimeFilter != "" {
			q.Set("t", p.TimeFilter)
		}
		if p.Sort != "" {
			q.Set("sort", p.Sort)
		}
		if restrict {
			q.Set("restrict_sr", "1")
		}
		if after != "" {
			q.Set("after", after)
		}

		body, err := c.httpGet(ctx, endpoint+"?"+q.Encode())
		if err != nil {
			return collected, err
		}
		var resp listingResponse
		err = json.NewDecoder(body).Decode(&resp)
		body.Close()
		if err != nil {
			return collected, fmt.Errorf("decode listing: %w", err)
		}

		for _, child := range resp.Data.Children {
			if child.Kind != "t3" {
				continue
			}
			collected = append(collected, child.Data)
			remaining--
			if remaining == 0 {
				break
			}
		}
		after = resp.Data.After
		if after == "" || len(resp.Data.Children) == 0 {
			break
		}
	}
	return collected, nil
}

func (c *Client) httpGet(ctx context.Context, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("http %d from %s", resp.StatusCode, u)
	}
	return resp.Body, nil
}

func postFrom(d listingData) domain.Post {
	return domain.Post{
		ID:          d.ID,
		Title:       d.Title,
		SelfText:    d.SelfText,
		Author:      authorOr(d.Author),
		Subreddit:   d.Subreddit,
		Score:       d.Score,
		UpvoteRatio: d.UpvoteRatio,
		NumComments: d.NumComments,
		CreatedUTC:  d.CreatedUTC,
		URL:         d.URL,
		IsVideo:     d.IsVideo,
		Over18:      d.Over18,
		Permalink:   "https://reddit.com" + d.Permalink,
	}
}

func authorOr(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}

// Reddit JSON API response types.

type listingResponse struct {
	Data struct {
		Children []listingChild `json:"children"`
		After    string         `json:"after"`
	} `json:"data"`
}

type listingChild struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

type listingData struct {
	ID          string  `json:"id"`
	Subreddit   string  `json:"subreddit"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	SelfText    string  `json:"selftext"`
	Body        string  `json:"body"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	IsVideo     bool    `json:"is_video"`
	Over18      bool    `json:"over_18"`
}
