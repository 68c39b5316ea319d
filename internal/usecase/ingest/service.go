// Package ingest turns catalog tables into vector index entries.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/catalograg/internal/domain"
	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	doming "github.com/kailas-cloud/catalograg/internal/domain/ingest"
	"github.com/kailas-cloud/catalograg/internal/metrics"
)

// DefaultWorkers is the number of tables ingested concurrently by IngestDirectory.
const DefaultWorkers = 4

// Service is the ingestion pipeline.
type Service struct {
	idx     Indexer
	workers int
	logger  *zap.Logger
}

// New creates an ingestion service. Non-positive workers means DefaultWorkers.
func New(idx Indexer, workers int, logger *zap.Logger) *Service {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Service{idx: idx, workers: workers, logger: logger}
}

// IngestTable normalizes rows in order, assigns ids "{source}_{row}" and
// upserts the whole table in one call. Row normalization never fails; an
// index failure fails the table and nothing is reported as written.
func (s *Service) IngestTable(ctx context.Context, source string, rows []catalog.Row) (doming.TableResult, error) {
	entries := make([]catalog.Entry, len(rows))
	malformed := 0
	for i, row := range rows {
		rec, issues := catalog.Normalize(catalog.EntryID(source, i), row)
		malformed += len(issues)
		for _, issue := range issues {
			s.logger.Debug("Field replaced by default", zap.String("id", rec.ID), zap.Error(issue))
		}
		entries[i] = catalog.NewEntry(rec)
	}

	res := doming.NewOK(source, len(rows), 0)
	res.MalformedFields = malformed
	if len(entries) == 0 {
		return res, nil
	}

	up, err := s.idx.Upsert(ctx, entries)
	if err != nil {
		return doming.NewError(source, err), domain.NewTableError(source, err)
	}

	res.EmbeddingsGenerated = up.Embedded
	res.EmbeddingFallbacks = up.Fallbacks
	return res, nil
}

// IngestFile reads and ingests one table file; the source id is the file stem.
// The returned result is always populated, with Status error on failure.
func (s *Service) IngestFile(ctx context.Context, path string) (doming.TableResult, error) {
	name := filepath.Base(path)
	t, err := ReadFile(path)
	if err != nil {
		return s.finish(name, doming.NewError(SourceID(name), err), domain.NewTableError(SourceID(name), err))
	}
	res, err := s.IngestTable(ctx, t.Source(), t.Rows)
	return s.finish(name, res, err)
}

// IngestReader ingests a table streamed from r, such as an upload. name picks the format and source id.
func (s *Service) IngestReader(ctx context.Context, r io.Reader, name string) (doming.TableResult, error) {
	name = filepath.Base(name)
	t, err := ReadTable(r, name)
	if err != nil {
		return s.finish(name, doming.NewError(SourceID(name), err), domain.NewTableError(SourceID(name), err))
	}
	res, err := s.IngestTable(ctx, t.Source(), t.Rows)
	return s.finish(name, res, err)
}

// IngestDirectory ingests every table file in dir with a bounded worker pool.
// A failing table never cancels its siblings; results follow file name order.
func (s *Service) IngestDirectory(ctx context.Context, dir string) ([]doming.TableResult, error) {
	files, err := TableFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		s.logger.Warn("No table files found", zap.String("dir", dir))
		return []doming.TableResult{}, nil
	}

	results := make([]doming.TableResult, len(files))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, path := range files {
		g.Go(func() error {
			results[i], _ = s.IngestFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	stats := doming.Summarize(results)
	s.logger.Info("Directory ingested",
		zap.String("dir", dir),
		zap.Int("files", len(files)),
		zap.Int("failed", stats.TotalFilesFailed),
		zap.Int("rows", stats.TotalRowsProcessed),
	)
	return results, nil
}

// TableFiles lists the .csv and .parquet files directly inside dir, sorted by name.
func TableFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsTableFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func (s *Service) finish(name string, res doming.TableResult, err error) (doming.TableResult, error) {
	res.FileName = name
	metrics.IngestTablesTotal.WithLabelValues(string(res.Status)).Inc()
	if err != nil {
		s.logger.Error("Table ingestion failed", zap.String("file", name), zap.Error(err))
		return res, err
	}
	metrics.IngestRowsTotal.Add(float64(res.RowsProcessed))
	metrics.IngestMalformedFieldsTotal.Add(float64(res.MalformedFields))
	s.logger.Info("Table ingested",
		zap.String("file", name),
		zap.Int("rows", res.RowsProcessed),
		zap.Int("embeddings", res.EmbeddingsGenerated),
		zap.Int("fallbacks", res.EmbeddingFallbacks),
	)
	return res, nil
}
