package chi

import (
	"context"
	"io"

	"github.com/kailas-cloud/catalograg/internal/domain/answer"
	doming "github.com/kailas-cloud/catalograg/internal/domain/ingest"
	healthuc "github.com/kailas-cloud/catalograg/internal/usecase/health"
	"github.com/kailas-cloud/catalograg/internal/usecase/ingest"
	"github.com/kailas-cloud/catalograg/internal/usecase/retrieval"
	"github.com/kailas-cloud/catalograg/internal/usecase/schema"
)

// QueryEngine answers queries and reports on them.
type QueryEngine interface {
	Answer(ctx context.Context, query string) answer.Record
	Stats(ctx context.Context) (retrieval.Stats, error)
	History() *retrieval.History
}

// Ingester loads tables into the vector index.
type Ingester interface {
	IngestReader(ctx context.Context, r io.Reader, name string) (doming.TableResult, error)
	IngestDirectory(ctx context.Context, dir string) ([]doming.TableResult, error)
}

// SchemaAnalyzer profiles uploaded tables.
type SchemaAnalyzer interface {
	AnalyzeTable(ctx context.Context, t ingest.Table) schema.TableProfile
}

// IndexAdmin administers the vector index.
type IndexAdmin interface {
	DeleteAll(ctx context.Context) error
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
