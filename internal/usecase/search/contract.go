package search

import (
	"context"

	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
)

// Searcher runs an assembled query against the search service.
type Searcher interface {
	Query(ctx context.Context, p domsearch.Params) (domsearch.Result, error)
}
