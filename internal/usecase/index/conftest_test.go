package index

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
	"github.com/kailas-cloud/catalograg/internal/usecase/embedding"
)

type mockRepo struct {
	ensureFn    func(ctx context.Context) error
	upsertFn    func(ctx context.Context, entries []catalog.Entry) error
	searchFn    func(ctx context.Context, vector []float32, pred filter.Predicate, limit int) ([]result.Candidate, error)
	countFn     func(ctx context.Context) (int, error)
	deleteAllFn func(ctx context.Context) error
	pingFn      func(ctx context.Context) error
}

func (m *mockRepo) EnsureIndex(ctx context.Context) error {
	if m.ensureFn != nil {
		return m.ensureFn(ctx)
	}
	return nil
}

func (m *mockRepo) Upsert(ctx context.Context, entries []catalog.Entry) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entries)
	}
	return nil
}

func (m *mockRepo) Search(
	ctx context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, vector, pred, limit)
	}
	return nil, nil
}

func (m *mockRepo) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

func (m *mockRepo) DeleteAll(ctx context.Context) error {
	if m.deleteAllFn != nil {
		return m.deleteAllFn(ctx)
	}
	return nil
}

func (m *mockRepo) Ping(ctx context.Context) error {
	if m.pingFn != nil {
		return m.pingFn(ctx)
	}
	return nil
}

// stubEmbedder returns a constant vector, or the zero vector for texts in fail.
type stubEmbedder struct {
	dims  int
	fail  map[string]bool
	calls int
}

func (s *stubEmbedder) Dimensions() int { return s.dims }

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) []embedding.Outcome {
	s.calls++
	out := make([]embedding.Outcome, len(texts))
	for i, text := range texts {
		if s.fail[text] {
			out[i] = embedding.Outcome{
				Vector:   domain.ZeroVector(s.dims),
				Fallback: embedding.ReasonProviderError,
				Err:      domain.ErrEmbeddingUnavailable,
			}
			continue
		}
		v := make([]float32, s.dims)
		v[0] = 1
		out[i] = embedding.Outcome{Vector: v}
	}
	return out
}
