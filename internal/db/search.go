package db

import "github.com/kailas-cloud/catalograg/internal/domain/search/filter"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Predicate    filter.Predicate
	Vector       []float32
	K            int
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hash hit. Distance is the raw cosine distance.
type SearchEntry struct {
	Key      string
	Distance float64
	Fields   map[string]string
}
