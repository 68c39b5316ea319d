// Package index is the vector index adapter: every backend failure leaves it as ErrIndexUnavailable.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
)

// UpsertResult reports what an upsert wrote. Embedded counts vectors computed
// during the call, Fallbacks how many of those are zero vectors.
type UpsertResult struct {
	Written   int
	Embedded  int
	Fallbacks int
}

// Service wraps a Repository with embedding, dimensionality checks and error classification.
type Service struct {
	repo     Repository
	embedder Embedder
	dims     int
	logger   *zap.Logger
}

// New creates the adapter. Every stored vector must have embedder.Dimensions() components.
func New(repo Repository, embedder Embedder, logger *zap.Logger) *Service {
	return &Service{repo: repo, embedder: embedder, dims: embedder.Dimensions(), logger: logger}
}

// Dimensions returns the index dimensionality.
func (s *Service) Dimensions() int { return s.dims }

// EnsureIndex prepares the backend for writes.
func (s *Service) EnsureIndex(ctx context.Context) error {
	if err := s.repo.EnsureIndex(ctx); err != nil {
		return unavailable("ensure index", err)
	}
	return nil
}

// Upsert embeds entries lacking a vector and writes all of them. Either every
// entry is written or an error is returned; partial success is never reported.
func (s *Service) Upsert(ctx context.Context, entries []catalog.Entry) (UpsertResult, error) {
	if len(entries) == 0 {
		return UpsertResult{}, nil
	}

	batch := make([]catalog.Entry, len(entries))
	copy(batch, entries)

	var res UpsertResult
	var missing []int
	for i := range batch {
		if batch[i].Embedding == nil {
			missing = append(missing, i)
		}
	}

	if len(missing) > 0 {
		texts := make([]string, len(missing))
		for j, i := range missing {
			texts[j] = batch[i].DocumentText
		}
		for j, o := range s.embedder.EmbedBatch(ctx, texts) {
			batch[missing[j]].Embedding = o.Vector
			if o.Degraded() {
				res.Fallbacks++
			}
		}
		res.Embedded = len(missing)
	}

	for i := range batch {
		if len(batch[i].Embedding) != s.dims {
			return UpsertResult{}, unavailable("upsert", fmt.Errorf("%w: entry %s has %d dimensions, want %d",
				domain.ErrDimensionMismatch, batch[i].ID, len(batch[i].Embedding), s.dims))
		}
	}

	if err := s.repo.Upsert(ctx, batch); err != nil {
		return UpsertResult{}, unavailable("upsert", err)
	}

	res.Written = len(batch)
	s.logger.Debug("Upserted entries",
		zap.Int("written", res.Written),
		zap.Int("embedded", res.Embedded),
		zap.Int("fallbacks", res.Fallbacks),
	)
	return res, nil
}

// SimilaritySearch returns at most limit entries matching pred, closest first.
// An empty predicate is unconstrained.
func (s *Service) SimilaritySearch(
	ctx context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	if limit <= 0 {
		return nil, nil
	}
	if len(vector) != s.dims {
		return nil, unavailable("search", fmt.Errorf("%w: query has %d dimensions, want %d",
			domain.ErrDimensionMismatch, len(vector), s.dims))
	}

	cs, err := s.repo.Search(ctx, vector, pred, limit)
	if err != nil {
		return nil, unavailable("search", err)
	}
	return result.Limit(result.Sanitize(cs), limit), nil
}

// Count returns the number of indexed entries.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, unavailable("count", err)
	}
	return n, nil
}

// DeleteAll removes every entry. Deleting an empty index succeeds.
func (s *Service) DeleteAll(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return unavailable("delete all", err)
	}
	s.logger.Info("Vector index cleared")
	return nil
}

// Ping checks backend connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
