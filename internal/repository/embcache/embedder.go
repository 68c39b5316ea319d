// Package embcache memoizes embeddings in the Redis-family key-value store.
package embcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/db"
	"github.com/kailas-cloud/catalograg/internal/db/redis"
	"github.com/kailas-cloud/catalograg/internal/domain"
)

var keyPrefix = domain.KeyPrefix + "emb_cache:"

type kv interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config selects what a cached vector is keyed on and how long it lives.
// Lookups is a counter vec labelled "result" (hit, miss); nil disables it.
type Config struct {
	Model      string
	Dimensions int
	TTL        time.Duration
	Lookups    *prometheus.CounterVec
}

// Embedder serves vectors from the cache and forwards misses to inner.
type Embedder struct {
	inner  domain.Embedder
	kv     kv
	cfg    Config
	logger *zap.Logger
}

// New wraps inner with a cache in kv.
// The result implements domain.BatchEmbedder only when inner does.
func New(inner domain.Embedder, kv kv, cfg Config, logger *zap.Logger) domain.Embedder {
	e := newEmbedder(inner, kv, cfg, logger)
	if _, ok := inner.(domain.BatchEmbedder); ok {
		return &batchEmbedder{e}
	}
	return e
}

func newEmbedder(inner domain.Embedder, kv kv, cfg Config, logger *zap.Logger) *Embedder {
	return &Embedder{inner: inner, kv: kv, cfg: cfg, logger: logger}
}

type batchEmbedder struct {
	*Embedder
}

// Embed looks text up and embeds it on a miss. A hit costs zero tokens.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, hits, err := e.embed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
		Cached:       hits == 1,
	}, nil
}

// BatchEmbed answers hits from the cache and embeds only the misses, in one inner call.
func (e *batchEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, _, err := e.embed(ctx, texts)
	return res, err
}

func (e *Embedder) embed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, int, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, 0, nil
	}

	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var pending []int
	for i, text := range texts {
		keys[i] = e.key(text)
		if vec, ok := e.lookup(ctx, keys[i]); ok {
			out[i] = vec
			continue
		}
		pending = append(pending, i)
	}
	e.count("hit", len(texts)-len(pending))
	e.count("miss", len(pending))

	if len(pending) == 0 {
		return domain.BatchEmbeddingResult{Embeddings: out}, len(texts), nil
	}

	misses := make([]string, len(pending))
	for j, i := range pending {
		misses[j] = texts[i]
	}
	res, err := domain.EmbedMany(ctx, e.inner, misses)
	if err != nil {
		return domain.BatchEmbeddingResult{}, 0, fmt.Errorf("embed %d cache misses: %w", len(misses), err)
	}

	for j, i := range pending {
		out[i] = res.Embeddings[j]
		e.store(ctx, keys[i], res.Embeddings[j])
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   out,
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, len(texts) - len(pending), nil
}

// key hashes model, dimensions and text so a model or size change never reuses vectors.
func (e *Embedder) key(text string) string {
	h := sha256.New()
	h.Write([]byte(e.cfg.Model))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(e.cfg.Dimensions)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

func (e *Embedder) lookup(ctx context.Context, key string) ([]float32, bool) {
	data, err := e.kv.Get(ctx, key)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		return nil, false
	case err != nil:
		e.logger.Warn("Embedding cache read failed", zap.String("key", key), zap.Error(err))
		return nil, false
	case len(data) == 0:
		return nil, false
	}

	vec, err := redis.BytesToVector(string(data))
	if err != nil {
		e.logger.Warn("Discarding corrupt cached embedding", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	if e.cfg.Dimensions > 0 && len(vec) != e.cfg.Dimensions {
		return nil, false
	}
	return vec, true
}

// store skips zero vectors; they are placeholders for failed texts.
func (e *Embedder) store(ctx context.Context, key string, vec []float32) {
	if len(vec) == 0 || domain.IsZeroVector(vec) {
		return
	}
	if err := e.kv.SetWithTTL(ctx, key, []byte(redis.VectorToBytes(vec)), e.cfg.TTL); err != nil {
		e.logger.Warn("Embedding cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (e *Embedder) count(result string, n int) {
	if e.cfg.Lookups != nil && n > 0 {
		e.cfg.Lookups.WithLabelValues(result).Add(float64(n))
	}
}
