package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const searchPage = `{"data":{"after":"","children":[
	{"kind":"t3","data":{"id":"p1","subreddit":"golang","title":"Go release",
		"selftext":"notes","author":"gopher","score":420,"upvote_ratio":0.93,
		"num_comments":2,"created_utc":1700000000,"url":"https://example.com/x",
		"permalink":"/r/golang/comments/p1/go_release/","is_video":false,"over_18":false}},
	{"kind":"t5","data":{"id":"not-a-post"}}
]}}`

const commentsPage = `[
	{"data":{"children":[{"kind":"t3","data":{"id":"p1","subreddit":"golang",
		"title":"Go release","selftext":"notes","author":"gopher","score":421,
		"upvote_ratio":0.93,"num_comments":2,"created_utc":1700000000,
		"url":"https://example.com/x","permalink":"/r/golang/comments/p1/go_release/"}}]}},
	{"data":{"children":[
		{"kind":"t1","data":{"id":"c1","author":"alice","body":"this is a long enough comment","score":10,"created_utc":1700000100,"permalink":"/r/golang/comments/p1/c1/"}},
		{"kind":"t1","data":{"id":"c2","author":"bob","body":"short","score":99}},
		{"kind":"t1","data":{"id":"c3","author":"eve","body":"[removed]","score":50}},
		{"kind":"t1","data":{"id":"c4","author":"carol","body":"another sufficiently long comment body","score":25}},
		{"kind":"more","data":{"id":"m1"}}
	]}}
]`

func TestClient_ListMapsStubs(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		q := r.URL.Query()
		if q.Get("q") != "generics" || q.Get("t") != "week" || q.Get("sort") != "relevance" {
			t.Errorf("query params = %v", q)
		}
		fmt.Fprint(w, searchPage)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	stubs, err := c.List(context.Background(), SearchParams{Query: "generics", Limit: 10, TimeFilter: "week", Sort: "relevance"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stubs) != 1 {
		t.Fatalf("got %d stubs, want 1 (non-t3 children skipped)", len(stubs))
	}
	s := stubs[0]
	if s.ID != "p1" || s.Subreddit != "golang" || s.Score != 420 || s.UpvoteRatio != 0.93 {
		t.Errorf("stub = %+v", s)
	}
	if s.Permalink != "https://reddit.com/r/golang/comments/p1/go_release/" {
		t.Errorf("permalink = %s", s.Permalink)
	}
}

func TestClient_HydrateFiltersComments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/comments/p1.json" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.URL.Query().Get("sort") != "top" {
			t.Errorf("sort = %s", r.URL.Query().Get("sort"))
		}
		fmt.Fprint(w, commentsPage)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	post, err := c.Hydrate(context.Background(), Stub{ID: "p1"})
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	// Canonical payload refreshes the stub fields.
	if post.Score != 421 || post.Title != "Go release" {
		t.Errorf("post not refreshed: %+v", post)
	}
	// Short, [removed] and non-comment children are gone; survivors are
	// ordered by score.
	if len(post.Comments) != 2 {
		t.Fatalf("got %d comments, want 2", len(post.Comments))
	}
	if post.Comments[0].ID != "c4" || post.Comments[1].ID != "c1" {
		t.Errorf("comment order = %s, %s", post.Comments[0].ID, post.Comments[1].ID)
	}
}

func TestClient_HydrateCapsTopComments(t *testing.T) {
	var children []string
	for i := 1; i <= 30; i++ {
		children = append(children, fmt.Sprintf(
			`{"kind":"t1","data":{"id":"c%d","author":"u","body":"a comment body long enough to keep","score":%d}}`, i, i))
	}
	reply := fmt.Sprintf(`[{"data":{"children":[]}},{"data":{"children":[%s]}}]`, strings.Join(children, ","))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reply)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	post, err := c.Hydrate(context.Background(), Stub{ID: "p1", Title: "kept"})
	if err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	if post.Title != "kept" {
		t.Errorf("empty canonical payload must keep stub fields, got %+v", post)
	}
	if len(post.Comments) != keptCommentLimit {
		t.Fatalf("got %d comments, want %d", len(post.Comments), keptCommentLimit)
	}
	if post.Comments[0].Score != 30 || post.Comments[keptCommentLimit-1].Score != 11 {
		t.Errorf("cap kept scores %d..%d", post.Comments[0].Score, post.Comments[keptCommentLimit-1].Score)
	}
}

func TestClient_SearchRestrictsSubreddit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/r/golang/search.json":
			if r.URL.Query().Get("restrict_sr") != "1" {
				t.Error("restrict_sr missing")
			}
			fmt.Fprint(w, searchPage)
		case r.URL.Path == "/comments/p1.json":
			fmt.Fprint(w, commentsPage)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	posts, err := c.Search(context.Background(), SearchParams{Query: "generics", Subreddit: "golang", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(posts) != 1 || len(posts[0].Comments) != 2 {
		t.Errorf("posts = %+v", posts)
	}
}

func TestClient_ListPaginates(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		after := r.URL.Query().Get("after")
		page := map[string]any{"data": map[string]any{}}
		switch after {
		case "":
			page["data"] = map[string]any{
				"after": "t3_p2",
				"children": []map[string]any{
					{"kind": "t3", "data": map[string]any{"id": "p1"}},
					{"kind": "t3", "data": map[string]any{"id": "p2"}},
				},
			}
		case "t3_p2":
			page["data"] = map[string]any{
				"after": "",
				"children": []map[string]any{
					{"kind": "t3", "data": map[string]any{"id": "p3"}},
				},
			}
		default:
			t.Errorf("unexpected cursor %q", after)
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	stubs, err := c.List(context.Background(), SearchParams{Query: "q", Limit: 150})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stubs) != 3 {
		t.Errorf("got %d stubs, want 3", len(stubs))
	}
	if requests != 2 {
		t.Errorf("made %d requests, want 2", requests)
	}
}

func TestClient_ListStopsAtLimit(t *testing.T) {
	var requests int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		fmt.Fprint(w, `{"data":{"after":"t3_next","children":[
			{"kind":"t3","data":{"id":"p1"}},
			{"kind":"t3","data":{"id":"p2"}}
		]}}`)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	stubs, err := c.List(context.Background(), SearchParams{Query: "q", Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(stubs) != 2 || requests != 1 {
		t.Errorf("got %d stubs from %d requests, want 2 from 1", len(stubs), requests)
	}
}

func TestClient_HTTPErrorSurfaces(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "test-agent")
	if _, err := c.List(context.Background(), SearchParams{Query: "q", Limit: 5}); err == nil {
		t.Fatal("expected http error")
	}
}
