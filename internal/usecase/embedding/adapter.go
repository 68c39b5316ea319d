// Package embedding turns text into fixed-length vectors and owns the zero-vector fallback.
package embedding

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// DefaultBatchSize is the number of texts sent per provider call.
const DefaultBatchSize = 32

// FallbackReason explains why an outcome carries the zero vector.
type FallbackReason string

// Fallback reasons, also used as metric labels.
const (
	ReasonProviderError     FallbackReason = "provider_error"
	ReasonParseError        FallbackReason = "parse_error"
	ReasonDimensionMismatch FallbackReason = "dimension_mismatch"
)

// Outcome is the result of embedding one text. Fallback is empty when the
// provider produced the vector; otherwise Vector is the zero vector and Err
// holds the cause.
type Outcome struct {
	Vector   []float32
	Fallback FallbackReason
	Err      error
	Cached   bool
}

// Degraded reports whether the vector is a fallback.
func (o Outcome) Degraded() bool { return o.Fallback != "" }

// Adapter is total over its input: every text gets a vector of the configured dimensionality.
type Adapter struct {
	inner     domain.Embedder
	dims      int
	batchSize int
	logger    *zap.Logger
}

// NewAdapter wraps an embedder chain. Non-positive sizes take the defaults.
func NewAdapter(inner domain.Embedder, dims, batchSize int, logger *zap.Logger) *Adapter {
	if dims <= 0 {
		dims = domain.DefaultDimensions
	}
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Adapter{inner: inner, dims: dims, batchSize: batchSize, logger: logger}
}

// Dimensions returns the length of every vector the adapter produces.
func (a *Adapter) Dimensions() int { return a.dims }

// Embed embeds one text, substituting the zero vector on any failure.
func (a *Adapter) Embed(ctx context.Context, text string) Outcome {
	res, err := a.inner.Embed(ctx, text)
	if err != nil {
		return a.fallback(classify(err), err)
	}
	return a.accept(res.Embedding, res.Cached)
}

// EmbedBatch embeds texts in chunks of the batch size, preserving order and length.
// A failed chunk is retried item by item so one bad text cannot zero its neighbours.
func (a *Adapter) EmbedBatch(ctx context.Context, texts []string) []Outcome {
	out := make([]Outcome, 0, len(texts))
	be, batched := a.inner.(domain.BatchEmbedder)

	for offset := 0; offset < len(texts); offset += a.batchSize {
		end := min(offset+a.batchSize, len(texts))
		chunk := texts[offset:end]

		if batched {
			res, err := be.BatchEmbed(ctx, chunk)
			if err == nil && len(res.Embeddings) == len(chunk) {
				for _, vec := range res.Embeddings {
					out = append(out, a.accept(vec, false))
				}
				continue
			}
			if err == nil {
				err = fmt.Errorf("got %d vectors for %d texts", len(res.Embeddings), len(chunk))
			}
			a.logger.Warn("Embedding chunk failed, embedding items individually",
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
		}

		for _, text := range chunk {
			out = append(out, a.Embed(ctx, text))
		}
	}

	return out
}

func (a *Adapter) accept(vec []float32, cached bool) Outcome {
	if len(vec) != a.dims {
		return a.fallback(ReasonDimensionMismatch, fmt.Errorf("%w: got %d, want %d",
			domain.ErrDimensionMismatch, len(vec), a.dims))
	}
	return Outcome{Vector: vec, Cached: cached}
}

func (a *Adapter) fallback(reason FallbackReason, err error) Outcome {
	metrics.EmbeddingFallbacksTotal.WithLabelValues(string(reason)).Inc()
	a.logger.Warn("Embedding fell back to zero vector",
		zap.String("reason", string(reason)),
		zap.Error(err),
	)
	return Outcome{
		Vector:   domain.ZeroVector(a.dims),
		Fallback: reason,
		Err:      fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err),
	}
}

func classify(err error) FallbackReason {
	if errors.Is(err, ErrUnparsableVector) {
		return ReasonParseError
	}
	return ReasonProviderError
}
