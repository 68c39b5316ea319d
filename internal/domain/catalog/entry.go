package catalog

// Entry is a record as persisted in the vector index. A nil Embedding asks
// the index to embed DocumentText before writing.
type Entry struct {
	Record
	Embedding []float32 `json:"embedding,omitempty"`
}

// NewEntry wraps a record without an embedding.
func NewEntry(r Record) Entry { return Entry{Record: r} }
