package retrieval

import (
	"context"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
	domintent "github.com/kailas-cloud/catalograg/internal/domain/intent"
	"github.com/kailas-cloud/catalograg/internal/domain/search/filter"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
	"github.com/kailas-cloud/catalograg/internal/usecase/embedding"
	"github.com/kailas-cloud/catalograg/internal/usecase/intent"
)

type mockIntents struct {
	extractFn func(ctx context.Context, query string) intent.Result
}

func (m *mockIntents) Extract(ctx context.Context, query string) intent.Result {
	if m.extractFn != nil {
		return m.extractFn(ctx, query)
	}
	return intent.Result{Intent: domintent.Fallback()}
}

type mockEmbedder struct {
	embedFn func(ctx context.Context, text string) embedding.Outcome
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) embedding.Outcome {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return embedding.Outcome{Vector: []float32{1, 0}}
}

type mockSearcher struct {
	searchFn func(ctx context.Context, vector []float32, pred filter.Predicate, limit int) ([]result.Candidate, error)
	countFn  func(ctx context.Context) (int, error)
}

func (m *mockSearcher) SimilaritySearch(
	ctx context.Context, vector []float32, pred filter.Predicate, limit int,
) ([]result.Candidate, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, vector, pred, limit)
	}
	return nil, nil
}

func (m *mockSearcher) Count(ctx context.Context) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx)
	}
	return 0, nil
}

// scriptedCompleter answers intent prompts and response prompts separately.
type scriptedCompleter struct {
	intentOut   string
	intentErr   error
	responseOut string
	responseErr error
	prompts     []string
}

func (m *scriptedCompleter) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	m.prompts = append(m.prompts, req.Prompt)
	if strings.HasPrefix(req.Prompt, "Analyze the following user query") {
		return m.intentOut, m.intentErr
	}
	return m.responseOut, m.responseErr
}

func (m *scriptedCompleter) lastPrompt() string {
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func ptr[T any](v T) *T { return &v }
