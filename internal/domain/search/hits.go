package search

import "github.com/kailas-cloud/docchat/internal/domain/passage"

// Result is the raw outcome of one search-service query.
type Result struct {
	// MatchingResults is the service-side total, not len(Hits).
	MatchingResults int
	Hits            []passage.Hit
}
