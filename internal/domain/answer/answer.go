// Package answer holds the record produced for every answered query.
package answer

import (
	"time"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/intent"
	"github.com/kailas-cloud/catalograg/internal/domain/search/result"
)

// Fixed responses substituted for failed stages.
const (
	ResponseFallback   = "I apologize, but I encountered an error while generating the response."
	ProcessingFallback = "I apologize, but I encountered an error while processing your query."
)

// Record is one answered query. Error is set only for catastrophic failures,
// in which case Intent is nil and Response is ProcessingFallback.
type Record struct {
	ID            string              `json:"id"`
	Query         string              `json:"query"`
	Intent        *intent.Intent      `json:"intent,omitempty"`
	ProductsFound int                 `json:"products_found"`
	Products      []result.Candidate  `json:"products,omitempty"`
	Response      string              `json:"response"`
	Degradations  domain.Degradations `json:"degradations,omitempty"`
	Error         string              `json:"error,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

// NewError creates the structured record returned for an unanticipated failure.
func NewError(id, query string, err error, at time.Time) Record {
	return Record{
		ID:        id,
		Query:     query,
		Error:     err.Error(),
		Response:  ProcessingFallback,
		CreatedAt: at,
	}
}

// IsError reports whether the record describes a catastrophic failure.
func (r Record) IsError() bool { return r.Error != "" }

// Degraded reports whether any stage fell back to a default.
func (r Record) Degraded() bool { return len(r.Degradations) > 0 }
