package ingest

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/usecase/index"
)

// Indexer embeds and writes entries into the vector index. It must be safe for concurrent use.
type Indexer interface {
	Upsert(ctx context.Context, entries []catalog.Entry) (index.UpsertResult, error)
}
