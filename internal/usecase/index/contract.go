package index

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
	"github.com/kailas-cloud/catalograg/internal/usecase/embedding"
)

// Repository is the storage backend of the vector index (Redis/Valkey, PostgreSQL or local).
type Repository interface {
	EnsureIndex(ctx context.Context) error
	Upsert(ctx context.Context, entries []catalog.Entry) error
	Search(ctx context.Context, vector []float32, pred filter.Predicate, limit int) ([]result.Candidate, error)
	Count(ctx context.Context) (int, error)
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}

// Embedder fills in embeddings for entries written without one.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) []embedding.Outcome
	Dimensions() int
}
