package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

// ErrUnparsableVector signals model output that is not a JSON array of numbers.
var ErrUnparsableVector = errors.New("unparsable embedding vector")

const completionEmbeddingMaxTokens = 2000

// CompletionEmbedder asks a chat model to print an embedding vector.
// It exists for providers without an embeddings endpoint.
type CompletionEmbedder struct {
	completer domain.Completer
	dims      int
}

// NewCompletionEmbedder creates an embedder backed by text completion.
func NewCompletionEmbedder(c domain.Completer, dims int) *CompletionEmbedder {
	return &CompletionEmbedder{completer: c, dims: dims}
}

// Embed implements domain.Embedder.
func (e *CompletionEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	prompt := fmt.Sprintf(
		"Generate a %d-dimensional numerical embedding vector for the following text. "+
			"Return only a JSON array of %d numbers and nothing else: %s",
		e.dims, e.dims, text,
	)

	out, err := e.completer.Complete(ctx, domain.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   completionEmbeddingMaxTokens,
		Temperature: domain.Temperature(0),
	})
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("complete embedding: %w", err)
	}

	vec, err := ParseVector(out)
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

// ParseVector decodes the single JSON number array in s. Surrounding prose is
// ignored; anything else, including non-finite values, is rejected.
func ParseVector(s string) ([]float32, error) {
	start := strings.IndexByte(s, '[')
	end := strings.LastIndexByte(s, ']')
	if start < 0 || end < start {
		return nil, fmt.Errorf("%w: no array in output", ErrUnparsableVector)
	}

	var raw []float64
	if err := json.Unmarshal([]byte(s[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnparsableVector, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty array", ErrUnparsableVector)
	}

	vec := make([]float32, len(raw))
	for i, f := range raw {
		if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > math.MaxFloat32 {
			return nil, fmt.Errorf("%w: element %d out of range", ErrUnparsableVector, i)
		}
		vec[i] = float32(f)
	}
	return vec, nil
}
