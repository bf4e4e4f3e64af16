package domain

import (
	"fmt"
	"strings"
)

// Request defaults and bounds.
const (
	DefaultLimit      = 100
	MaxLimit          = 1000
	DefaultTimeFilter = "week"
	DefaultSortType   = "relevance"
)

// ValidTimeFilters is the set of accepted search windows.
var ValidTimeFilters = map[string]bool{
	"all": true, "hour": true, "day": true,
	"week": true, "month": true, "year": true,
}

// ValidSortTypes is the set of accepted search orderings.
var ValidSortTypes = map[string]bool{
	"relevance": true, "hot": true, "top": true, "new": true,
}

// AnalysisRequest is the payload accepted by the analyze endpoint and the
// intake subject. Zero-valued optional fields take defaults in Normalize.
type AnalysisRequest struct {
	Query      string   `json:"query"`
	Limit      int      `json:"limit"`
	Subreddits []string `json:"subreddits,omitempty"`
	TimeFilter string   `json:"time_filter,omitempty"`
	SortType   string   `json:"sort_type,omitempty"`
}

// Normalize trims fields and fills defaults. Call before Validate.
func (r *AnalysisRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	if r.Limit == 0 {
		r.Limit = DefaultLimit
	}
	if r.TimeFilter == "" {
		r.TimeFilter = DefaultTimeFilter
	}
	if r.SortType == "" {
		r.SortType = DefaultSortType
	}
	cleaned := r.Subreddits[:0]
	for _, sub := range r.Subreddits {
		sub = strings.TrimSpace(sub)
		sub = strings.TrimPrefix(sub, "r/")
		if sub != "" {
			cleaned = append(cleaned, sub)
		}
	}
	r.Subreddits = cleaned
}

// ValidateRequest checks a normalized AnalysisRequest.
func ValidateRequest(r AnalysisRequest) error {
	if r.Query == "" {
		return NewValidationError("query", r.Query, ErrQueryEmpty)
	}
	if r.Limit < 1 || r.Limit > MaxLimit {
		return NewValidationError("limit", fmt.Sprintf("%d", r.Limit), ErrLimitOutOfRange)
	}
	if !ValidTimeFilters[r.TimeFilter] {
		return NewValidationError("time_filter", r.TimeFilter, ErrInvalidTimeFilter)
	}
	if !ValidSortTypes[r.SortType] {
		return NewValidationError("sort_type", r.SortType, ErrInvalidSortType)
	}
	for _, sub := range r.Subreddits {
		if strings.TrimSpace(sub) == "" {
			return NewValidationError("subreddits", sub, ErrEmptySubreddit)
		}
	}
	return nil
}
