package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput signals a request the caller must fix.
	ErrInvalidInput = errors.New("invalid input")
	// ErrMalformedField signals a row field that could not be coerced to its type.
	ErrMalformedField = errors.New("malformed field")
	// ErrDimensionMismatch signals an embedding whose length differs from the index dimensionality.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexUnavailable signals a failed vector index operation.
	ErrIndexUnavailable = errors.New("index unavailable")
	// ErrEmbeddingUnavailable signals that an embedding could not be produced.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrIntentParse signals model output that is not a valid query intent.
	ErrIntentParse = errors.New("intent parse failure")
	// ErrResponseGeneration signals a failed answer completion.
	ErrResponseGeneration = errors.New("response generation failure")

	// ErrCompletionProvider signals a language model provider failure.
	ErrCompletionProvider = errors.New("completion provider error")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnsupportedFormat signals a table file with an unknown extension.
	ErrUnsupportedFormat = errors.New("unsupported table format")
)

// TableError ties an ingestion failure to the source table that produced it.
type TableError struct {
	Source string
	Err    error
}

func (e *TableError) Error() string {
	return fmt.Sprintf("table %s: %v", e.Source, e.Err)
}

func (e *TableError) Unwrap() error { return e.Err }

// NewTableError creates a table-scoped ingestion error.
func NewTableError(source string, err error) error {
	return &TableError{Source: source, Err: err}
}
