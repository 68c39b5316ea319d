package domain

// DefaultDimensions is the embedding dimensionality used when nothing else is configured.
const DefaultDimensions = 384

// DefaultCollection is the vector index collection holding catalog entries.
const DefaultCollection = "product_catalog"

// KeyPrefix namespaces every key written by this service.
const KeyPrefix = "catalog:"

// IndexConfig holds vector index settings, not exposed to clients.
type IndexConfig struct {
	Collection     string
	Dimensions     int
	DistanceMetric string
	Algorithm      string
	HNSWM          int
	HNSWEFConstr   int
}

// DefaultIndexConfig returns the cosine HNSW layout for 384-dimensional embeddings.
func DefaultIndexConfig() IndexConfig {
	return IndexConfig{
		Collection:     DefaultCollection,
		Dimensions:     DefaultDimensions,
		DistanceMetric: "cosine",
		Algorithm:      "hnsw",
		HNSWM:          16,
		HNSWEFConstr:   200,
	}
}
