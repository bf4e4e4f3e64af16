// Package fetch pulls raw posts for an analysis request. Named
// subreddits fetch through a Source, one goroutine each; without them a
// global listing is consumed and hydrated by a bounded worker pool.
package fetch

import (
	"context"

	"github.com/PulsewireAI/pulsewire-mvp/engine/domain"
)

// SearchParams carries one search to a source.
type SearchParams struct {
	Query      string
	Subreddit  string // empty on the global listing path
	Limit      int
	TimeFilter string
	Sort       string
}

// Stub is a listed post whose comments have not been fetched yet.
type Stub domain.Post

// Source returns complete posts, comments included, for one named
// community. Failures are isolated by the Fetcher.
type Source interface {
	Search(ctx context.Context, p SearchParams) ([]domain.Post, error)
}

// Lister serves the global listing path: cheap stubs first, hydrated on
// demand by the Fetcher's pool.
type Lister interface {
	List(ctx context.Context, p SearchParams) ([]Stub, error)
	Hydrate(ctx context.Context, stub Stub) (domain.Post, error)
}
