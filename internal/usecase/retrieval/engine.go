// Package retrieval answers catalog questions: intent, filtered similarity search, grounded completion.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/answer"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
	"github.com/kailas-cloud/catalograg/internal/logger"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// DefaultTopK is the number of candidates retrieved per query.
const DefaultTopK = 5

// ResponsePrompt grounds the answer in the retrieved products.
const ResponsePrompt = `Based on the following product catalog data:
{context}

User Query: {query}

Please provide a helpful response that:
1. Directly answers the user's question
2. Includes specific product details
3. Mentions prices and availability
4. Suggests related items if relevant`

// Config tunes the engine. Zero values select defaults; a zero Timeout means no deadline.
type Config struct {
	TopK    int
	Timeout time.Duration
}

// Stats summarizes the index and the query history.
type Stats struct {
	Documents       int `json:"documents"`
	Queries         int `json:"queries"`
	DegradedQueries int `json:"degraded_queries"`
}

// Engine answers queries and owns their history.
type Engine struct {
	intents  IntentExtractor
	embedder QueryEmbedder
	index    Searcher
	llm      domain.Completer
	history  *History
	topK     int
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates an engine appending to history.
func NewEngine(
	intents IntentExtractor,
	embedder QueryEmbedder,
	index Searcher,
	llm domain.Completer,
	history *History,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultTopK
	}
	return &Engine{
		intents:  intents,
		embedder: embedder,
		index:    index,
		llm:      llm,
		history:  history,
		topK:     cfg.TopK,
		timeout:  cfg.Timeout,
		logger:   logger,
		now:      time.Now,
	}
}

// History returns the engine's query history.
func (e *Engine) History() *History { return e.history }

// Answer runs one query through every stage in order. Stage failures degrade
// to their defaults; anything else, panics included, yields an error record
// instead of an error. Only non-error records are appended to the history.
func (e *Engine) Answer(ctx context.Context, query string) (rec answer.Record) {
	start := time.Now()
	id := uuid.NewString()
	log := logger.From(ctx, e.logger).With(zap.String("query_id", id))

	defer func() {
		if p := recover(); p != nil {
			rec = e.fail(log, id, query, fmt.Errorf("panic: %v", p))
		}
		metrics.QueryDuration.Observe(time.Since(start).Seconds())
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	rec, err := e.answer(ctx, log, id, query)
	if err != nil {
		return e.fail(log, id, query, err)
	}

	e.history.Append(rec)

	outcome := "ok"
	if rec.Degraded() {
		outcome = "degraded"
		for _, d := range rec.Degradations {
			metrics.QueryDegradationsTotal.WithLabelValues(string(d)).Inc()
		}
	}
	metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	log.Info("Query answered",
		zap.Int("products_found", rec.ProductsFound),
		zap.Any("degradations", rec.Degradations),
		zap.Duration("duration", time.Since(start)),
	)
	return rec
}

func (e *Engine) answer(ctx context.Context, log *zap.Logger, id, query string) (answer.Record, error) {
	rec := answer.Record{ID: id, Query: query}

	ir := e.intents.Extract(ctx, query)
	if ir.Degraded() {
		rec.Degradations.Add(domain.DegradedIntent)
	}
	in := ir.Intent
	rec.Intent = &in

	pred, err := in.Filters.Predicate()
	if err != nil {
		return answer.Record{}, fmt.Errorf("build predicate: %w", err)
	}

	qv := e.embedder.Embed(ctx, query)
	if qv.Degraded() {
		rec.Degradations.Add(domain.DegradedEmbedding)
	}

	candidates, err := e.index.SimilaritySearch(ctx, qv.Vector, pred, e.topK)
	switch {
	case errors.Is(err, domain.ErrIndexUnavailable):
		log.Warn("Index unavailable, answering without products", zap.Error(err))
		rec.Degradations.Add(domain.DegradedIndex)
		candidates = nil
	case err != nil:
		return answer.Record{}, fmt.Errorf("similarity search: %w", err)
	}
	log.Debug("Candidates retrieved", zap.Stringer("predicate", pred), zap.Int("count", len(candidates)))

	rec.Products = candidates
	rec.ProductsFound = len(candidates)

	resp, err := e.llm.Complete(ctx, domain.CompletionRequest{Prompt: BuildResponsePrompt(query, candidates)})
	if err != nil {
		log.Warn("Response generation failed, using fallback",
			zap.Error(fmt.Errorf("%w: %w", domain.ErrResponseGeneration, err)))
		rec.Degradations.Add(domain.DegradedResponse)
		resp = answer.ResponseFallback
	}
	rec.Response = resp
	rec.CreatedAt = e.now()
	return rec, nil
}

func (e *Engine) fail(log *zap.Logger, id, query string, err error) answer.Record {
	log.Error("Query processing failed", zap.Error(err))
	metrics.QueriesTotal.WithLabelValues("error").Inc()
	return answer.NewError(id, query, err, e.now())
}

// Stats counts indexed documents and answered queries.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	n, err := e.index.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count documents: %w", err)
	}
	return Stats{
		Documents:       n,
		Queries:         e.history.Len(),
		DegradedQueries: e.history.Degraded(),
	}, nil
}

// BuildResponsePrompt fills the formatted candidates and the query into ResponsePrompt.
func BuildResponsePrompt(query string, candidates []result.Candidate) string {
	return strings.NewReplacer("{context}", FormatContext(candidates), "{query}", query).Replace(ResponsePrompt)
}

// FormatContext renders candidates in ranked order as blank-line separated blocks.
func FormatContext(candidates []result.Candidate) string {
	blocks := make([]string, len(candidates))
	for i, c := range candidates {
		blocks[i] = fmt.Sprintf("Product: %s\nCategory: %s\nPrice: $%.2f\nBrand: %s\nLikes: %d",
			orNA(c.Name), orNA(c.Metadata.Category), c.Metadata.Price, orNA(c.Metadata.Brand), c.Metadata.LikesCount)
	}
	return strings.Join(blocks, "\n\n")
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
