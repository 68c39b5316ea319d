package domain

import (
	"context"
	"fmt"
)

// Embedder turns one text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder turns many texts into vectors with one provider call.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker is implemented by providers that can check their upstream.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult is one vector plus the tokens it cost. Cached marks a cache hit.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
	Cached       bool
}

// BatchEmbeddingResult holds vectors in input order and the summed usage.
type BatchEmbeddingResult struct {
	Embeddings   [][]float32
	PromptTokens int
	TotalTokens  int
}

// EmbedMany embeds texts through e, using its batch call when it has one.
// The result always has exactly one vector per text.
func EmbedMany(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return BatchEmbeddingResult{}, nil
	}

	if be, ok := e.(BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return BatchEmbeddingResult{}, err
		}
		if len(res.Embeddings) != len(texts) {
			return BatchEmbeddingResult{}, fmt.Errorf("%w: %d vectors for %d texts",
				ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
		}
		return res, nil
	}

	out := BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for i, text := range texts {
		res, err := e.Embed(ctx, text)
		if err != nil {
			return BatchEmbeddingResult{}, fmt.Errorf("text %d: %w", i, err)
		}
		out.Embeddings = append(out.Embeddings, res.Embedding)
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}
	return out, nil
}

// WithPrefix returns an Embedder that prepends prefix to every text,
// e.g. "passage: " for rows and "query: " for questions. An empty prefix returns inner.
// The result implements BatchEmbedder only when inner does.
func WithPrefix(inner Embedder, prefix string) Embedder {
	if prefix == "" {
		return inner
	}
	p := &prefixEmbedder{inner: inner, prefix: prefix}
	if be, ok := inner.(BatchEmbedder); ok {
		return &prefixBatchEmbedder{prefixEmbedder: p, batch: be}
	}
	return p
}

type prefixEmbedder struct {
	inner  Embedder
	prefix string
}

func (p *prefixEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return p.inner.Embed(ctx, p.prefix+text)
}

type prefixBatchEmbedder struct {
	*prefixEmbedder
	batch BatchEmbedder
}

func (p *prefixBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	prefixed := make([]string, len(texts))
	for i := range texts {
		prefixed[i] = p.prefix + texts[i]
	}
	return p.batch.BatchEmbed(ctx, prefixed)
}

// ZeroVector is the placeholder stored for a text that could not be embedded.
func ZeroVector(dims int) []float32 {
	return make([]float32, dims)
}

// IsZeroVector reports whether v has no non-zero component.
func IsZeroVector(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
