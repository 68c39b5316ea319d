// Package intent extracts a structured query intent with the language model.
package intent

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/catalograg/internal/domain"
	domintent "github.com/kailas-cloud/catalograg/internal/domain/intent"
)

// Prompt asks for a single JSON object describing the query.
const Prompt = `Analyze the following user query and extract the intent and parameters:
Query: {query}

Respond with a single JSON object and nothing else:
{
    "type": "search" | "compare" | "analyze" | "general",
    "filters": {
        "category": string or null,
        "price_range": [min, max] or null,
        "brand": string or null
    },
    "sort": string or null
}
Use null for any price_range side that the query does not bound.`

const maxIntentTokens = 512

// Result is an extracted intent. Err is set when Intent is the fallback.
type Result struct {
	Intent domintent.Intent
	Err    error
}

// Degraded reports whether the fallback intent was used.
func (r Result) Degraded() bool { return r.Err != nil }

// Extractor turns a free-text query into an intent with one completion call.
type Extractor struct {
	llm    domain.Completer
	logger *zap.Logger
}

// NewExtractor creates an intent extractor.
func NewExtractor(llm domain.Completer, logger *zap.Logger) *Extractor {
	return &Extractor{llm: llm, logger: logger}
}

// Extract never fails: a provider error or unparsable output yields the
// general fallback intent immediately, without retrying.
func (e *Extractor) Extract(ctx context.Context, query string) Result {
	out, err := e.llm.Complete(ctx, domain.CompletionRequest{
		Prompt:      BuildPrompt(query),
		MaxTokens:   maxIntentTokens,
		Temperature: domain.Temperature(0),
	})
	if err != nil {
		e.logger.Warn("Intent extraction failed, using fallback", zap.Error(err))
		return Result{Intent: domintent.Fallback(), Err: err}
	}

	in, err := domintent.Parse(out)
	if err != nil {
		e.logger.Warn("Intent output unparsable, using fallback", zap.Error(err))
		return Result{Intent: domintent.Fallback(), Err: err}
	}
	return Result{Intent: in}
}

// BuildPrompt fills the query into Prompt.
func BuildPrompt(query string) string {
	return strings.Replace(Prompt, "{query}", query, 1)
}
