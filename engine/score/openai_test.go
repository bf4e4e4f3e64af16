package score

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOpenAI_ScoreBatch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("auth header = %q", got)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" {
			t.Errorf("model = %s", req.Model)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		if !strings.Contains(req.Messages[0].Content, "Comment 2: b") {
			t.Errorf("prompt missing texts: %q", req.Messages[0].Content)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"content":"0.8, -0.3, 2.5"}}]}`)
	}))
	defer ts.Close()

	o := NewOpenAI(ts.URL, "sk-test", "test-model")
	scores, err := o.ScoreBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("ScoreBatch: %v", err)
	}
	if len(scores) != 3 || scores[0] != 0.8 || scores[1] != -0.3 || scores[2] != 1 {
		t.Errorf("scores = %v", scores)
	}
}

func TestOpenAI_APIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"quota exceeded"}}`)
	}))
	defer ts.Close()

	o := NewOpenAI(ts.URL, "sk-test", "")
	if _, err := o.ScoreBatch(context.Background(), []string{"a"}); err == nil || !strings.Contains(err.Error(), "quota exceeded") {
		t.Errorf("expected quota error, got %v", err)
	}
}

func TestOpenAI_NoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	}))
	defer ts.Close()

	o := NewOpenAI(ts.URL, "sk-test", "")
	if _, err := o.ScoreBatch(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error for empty response")
	}
}

func TestOpenAI_Defaults(t *testing.T) {
	o := NewOpenAI("", "key", "")
	if o.baseURL != "https://api.openai.com/v1" || o.model != defaultOpenAIModel {
		t.Errorf("defaults = %s, %s", o.baseURL, o.model)
	}
	if o.Name() != "openai" {
		t.Errorf("name = %s", o.Name())
	}
}
