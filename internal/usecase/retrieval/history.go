package retrieval

import (
	"sync"

	"github.com/kailas-cloud/catalograg/internal/domain/answer"
)

// History is the in-process log of answered queries. Appends are serialized;
// readers get copies. A positive limit keeps only the most recent records.
type History struct {
	mu      sync.RWMutex
	records []answer.Record
	limit   int
}

// NewHistory creates a history. limit <= 0 means unbounded.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Append adds r after every previously appended record.
func (h *History) Append(r answer.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, r)
	if h.limit > 0 && len(h.records) > h.limit {
		drop := len(h.records) - h.limit
		h.records = append(h.records[:0:0], h.records[drop:]...)
	}
}

// List returns a copy of the records in append order.
func (h *History) List() []answer.Record {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]answer.Record, len(h.records))
	copy(out, h.records)
	return out
}

// Len returns the number of retained records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Degraded returns how many retained records took at least one fallback.
func (h *History) Degraded() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, r := range h.records {
		if r.Degraded() {
			n++
		}
	}
	return n
}
