package search

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docchat/internal/domain/passage"
	domsearch "github.com/kailas-cloud/docchat/internal/domain/search"
	"github.com/kailas-cloud/docchat/internal/logger"
)

// Service runs natural-language queries and formats the passages.
type Service struct {
	builder  *domsearch.Builder
	searcher Searcher
	logger   *zap.Logger
}

// New creates a search service. Every query is pinned to the builder's identity.
func New(builder *domsearch.Builder, searcher Searcher, l *zap.Logger) *Service {
	if l == nil {
		l = zap.NewNop()
	}
	return &Service{builder: builder, searcher: searcher, logger: l}
}

// PageSize returns the count applied when the caller sets none.
func (s *Service) PageSize() int { return s.builder.PageSize() }

// Query runs one search. Only text hits become passages.
func (s *Service) Query(ctx context.Context, o domsearch.Overrides) (passage.Collection, error) {
	p, err := s.builder.Build(o)
	if err != nil {
		return passage.Collection{}, fmt.Errorf("search: %w", err)
	}

	logger.FromContext(ctx, s.logger).Debug("search params",
		zap.String("query", p.NaturalLanguageQuery),
		zap.Int("count", p.Count),
		zap.Int("passages_count", p.PassagesCount),
		zap.Int("offset", p.Offset),
		zap.Int("extra_flags", len(p.Extra)),
	)

	res, err := s.searcher.Query(ctx, p)
	if err != nil {
		return passage.Collection{}, fmt.Errorf("search: %w", err)
	}

	c := passage.Format(res.Hits)
	logger.FromContext(ctx, s.logger).Debug("search done",
		zap.Int("matching_results", res.MatchingResults),
		zap.Int("hits", len(res.Hits)),
		zap.Int("passages", c.Len()),
	)
	return c, nil
}
