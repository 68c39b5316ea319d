// Package ingest holds per-table ingestion outcomes and their aggregate statistics.
package ingest

// Status is the processing outcome of a single table.
type Status string

// Table status values.
const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// TableResult is the outcome of ingesting one table.
type TableResult struct {
	Source              string `json:"source"`
	FileName            string `json:"file_name,omitempty"`
	Status              Status `json:"status"`
	RowsProcessed       int    `json:"rows_processed"`
	EmbeddingsGenerated int    `json:"embeddings_generated"`
	EmbeddingFallbacks  int    `json:"embedding_fallbacks,omitempty"`
	MalformedFields     int    `json:"malformed_fields,omitempty"`
	Error               string `json:"error,omitempty"`
}

// NewOK creates a successful table result.
func NewOK(source string, rows, embeddings int) TableResult {
	return TableResult{Source: source, Status: StatusOK, RowsProcessed: rows, EmbeddingsGenerated: embeddings}
}

// NewError creates a failed table result. Failed tables commit nothing.
func NewError(source string, err error) TableResult {
	return TableResult{Source: source, Status: StatusError, Error: err.Error()}
}

// OK reports whether the table was committed.
func (r TableResult) OK() bool { return r.Status == StatusOK }

// Statistics aggregates a set of table results.
type Statistics struct {
	TotalFilesProcessed      int           `json:"total_files_processed"`
	TotalFilesFailed         int           `json:"total_files_failed"`
	TotalRowsProcessed       int           `json:"total_rows_processed"`
	TotalEmbeddingsGenerated int           `json:"total_embeddings_generated"`
	FilesSummary             []TableResult `json:"files_summary"`
}

// Summarize totals successful tables and counts failed ones.
func Summarize(results []TableResult) Statistics {
	stats := Statistics{FilesSummary: results}
	if stats.FilesSummary == nil {
		stats.FilesSummary = []TableResult{}
	}
	for _, r := range results {
		if !r.OK() {
			stats.TotalFilesFailed++
			continue
		}
		stats.TotalFilesProcessed++
		stats.TotalRowsProcessed += r.RowsProcessed
		stats.TotalEmbeddingsGenerated += r.EmbeddingsGenerated
	}
	return stats
}
