package embcache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/domain"
)

// textEmbedder derives a 3-dim vector from the text and records what it was asked to embed.
type textEmbedder struct {
	err   error
	zero  string // texts containing this substring embed to the zero vector
	calls [][]string
}

func (e *textEmbedder) vector(text string) []float32 {
	if e.zero != "" && strings.Contains(text, e.zero) {
		return domain.ZeroVector(3)
	}
	return []float32{float32(len(text)), 1, 0}
}

func (e *textEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{Embedding: res.Embeddings[0], PromptTokens: res.PromptTokens, TotalTokens: res.TotalTokens}, nil
}

func (e *textEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	e.calls = append(e.calls, texts)
	if e.err != nil {
		return domain.BatchEmbeddingResult{}, e.err
	}
	out := domain.BatchEmbeddingResult{PromptTokens: 5 * len(texts), TotalTokens: 5 * len(texts)}
	for _, t := range texts {
		out.Embeddings = append(out.Embeddings, e.vector(t))
	}
	return out, nil
}

// singleEmbedder has no batch call.
type singleEmbedder struct {
	calls int
}

func (e *singleEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	e.calls++
	return domain.EmbeddingResult{Embedding: []float32{float32(len(text)), 1, 0}}, nil
}

// memKV is an in-memory kv with injectable read failures.
type memKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	ttls    map[string]time.Duration
	readErr error
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte), ttls: make(map[string]time.Duration)}
}

func (m *memKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memKV) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *memKV) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
