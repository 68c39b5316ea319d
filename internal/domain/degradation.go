package domain

// Degradation names a stage that fell back to its default instead of producing a real result.
type Degradation string

const (
	// DegradedEmbedding means a zero vector replaced a failed embedding.
	DegradedEmbedding Degradation = "embedding_fallback"
	// DegradedIntent means the fallback general intent replaced a failed extraction.
	DegradedIntent Degradation = "intent_fallback"
	// DegradedIndex means an unavailable index was treated as zero candidates.
	DegradedIndex Degradation = "index_unavailable"
	// DegradedResponse means the apology string replaced a failed answer completion.
	DegradedResponse Degradation = "response_fallback"
	// DegradedDescription means an LLM column or schema description was left empty.
	DegradedDescription Degradation = "description_fallback"
)

// Degradations is an ordered, duplicate-free set of fallbacks taken by one operation.
type Degradations []Degradation

// Add records d once.
func (ds *Degradations) Add(d Degradation) {
	for _, existing := range *ds {
		if existing == d {
			return
		}
	}
	*ds = append(*ds, d)
}

// Has reports whether d was recorded.
func (ds Degradations) Has(d Degradation) bool {
	for _, existing := range ds {
		if existing == d {
			return true
		}
	}
	return false
}
