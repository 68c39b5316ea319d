package retrieval

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
	"github.com/kailas-cloud/catalograg/internal/usecase/embedding"
	"github.com/kailas-cloud/catalograg/internal/usecase/intent"
)

// IntentExtractor resolves the structured intent of a query. It never fails.
type IntentExtractor interface {
	Extract(ctx context.Context, query string) intent.Result
}

// QueryEmbedder embeds a query, falling back to the zero vector.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) embedding.Outcome
}

// Searcher is the read side of the vector index.
type Searcher interface {
	SimilaritySearch(ctx context.Context, vector []float32, pred filter.Predicate, limit int) ([]result.Candidate, error)
	Count(ctx context.Context) (int, error)
}
