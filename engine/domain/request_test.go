package domain

import (
	"errors"
	"testing"
)

func TestNormalize_Defaults(t *testing.T) {
	r := AnalysisRequest{Query: "  bitcoin  "}
	r.Normalize()
	if r.Query != "bitcoin" {
		t.Errorf("query not trimmed: %q", r.Query)
	}
	if r.Limit != DefaultLimit {
		t.Errorf("limit = %d, want %d", r.Limit, DefaultLimit)
	}
	if r.TimeFilter != "week" || r.SortType != "relevance" {
		t.Errorf("defaults not applied: %+v", r)
	}
}

func TestNormalize_Subreddits(t *testing.T) {
	r := AnalysisRequest{
		Query:      "q",
		Subreddits: []string{" r/golang ", "rust", "", "r/"},
	}
	r.Normalize()
	if len(r.Subreddits) != 2 || r.Subreddits[0] != "golang" || r.Subreddits[1] != "rust" {
		t.Errorf("subreddits = %v", r.Subreddits)
	}
}

func TestValidateRequest_Valid(t *testing.T) {
	cases := []AnalysisRequest{
		{Query: "bitcoin", Limit: 100, TimeFilter: "week", SortType: "relevance"},
		{Query: "ai", Limit: 1, TimeFilter: "all", SortType: "new", Subreddits: []string{"technology"}},
		{Query: "rates", Limit: 1000, TimeFilter: "hour", SortType: "top"},
	}
	for _, r := range cases {
		if err := ValidateRequest(r); err != nil {
			t.Errorf("expected valid for %+v, got %v", r, err)
		}
	}
}

func TestValidateRequest_EmptyQuery(t *testing.T) {
	r := AnalysisRequest{Limit: 100, TimeFilter: "week", SortType: "relevance"}
	if !errors.Is(ValidateRequest(r), ErrQueryEmpty) {
		t.Error("expected ErrQueryEmpty")
	}
}

func TestValidateRequest_LimitOutOfRange(t *testing.T) {
	for _, limit := range []int{-1, 0, MaxLimit + 1} {
		r := AnalysisRequest{Query: "q", Limit: limit, TimeFilter: "week", SortType: "relevance"}
		if !errors.Is(ValidateRequest(r), ErrLimitOutOfRange) {
			t.Errorf("expected ErrLimitOutOfRange for limit=%d", limit)
		}
	}
}

func TestValidateRequest_BadEnums(t *testing.T) {
	r := AnalysisRequest{Query: "q", Limit: 10, TimeFilter: "decade", SortType: "relevance"}
	if !errors.Is(ValidateRequest(r), ErrInvalidTimeFilter) {
		t.Error("expected ErrInvalidTimeFilter")
	}
	r = AnalysisRequest{Query: "q", Limit: 10, TimeFilter: "week", SortType: "controversial"}
	if !errors.Is(ValidateRequest(r), ErrInvalidSortType) {
		t.Error("expected ErrInvalidSortType")
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	ve := NewValidationError("query", "", ErrQueryEmpty)
	if !errors.Is(ve, ErrQueryEmpty) {
		t.Error("Unwrap should expose ErrQueryEmpty")
	}
	var target *ValidationError
	if !errors.As(ve, &target) {
		t.Fatal("errors.As should work for *ValidationError")
	}
	if target.Field != "query" {
		t.Errorf("expected field=query, got %s", target.Field)
	}
}
