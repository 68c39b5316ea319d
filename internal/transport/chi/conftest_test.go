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

type mockEngine struct {
	answerFn func(ctx context.Context, query string) answer.Record
	statsFn  func(ctx context.Context) (retrieval.Stats, error)
	history  *retrieval.History
}

func (m *mockEngine) Answer(ctx context.Context, query string) answer.Record {
	if m.answerFn != nil {
		return m.answerFn(ctx, query)
	}
	return answer.Record{Query: query, Response: "ok"}
}

func (m *mockEngine) Stats(ctx context.Context) (retrieval.Stats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return retrieval.Stats{}, nil
}

func (m *mockEngine) History() *retrieval.History {
	if m.history == nil {
		m.history = retrieval.NewHistory(0)
	}
	return m.history
}

type mockIngester struct {
	readerFn func(ctx context.Context, r io.Reader, name string) (doming.TableResult, error)
	dirFn    func(ctx context.Context, dir string) ([]doming.TableResult, error)
}

func (m *mockIngester) IngestReader(ctx context.Context, r io.Reader, name string) (doming.TableResult, error) {
	if m.readerFn != nil {
		return m.readerFn(ctx, r, name)
	}
	return doming.NewOK(ingest.SourceID(name), 0, 0), nil
}

func (m *mockIngester) IngestDirectory(ctx context.Context, dir string) ([]doming.TableResult, error) {
	if m.dirFn != nil {
		return m.dirFn(ctx, dir)
	}
	return nil, nil
}

type mockAnalyzer struct{}

func (mockAnalyzer) AnalyzeTable(_ context.Context, t ingest.Table) schema.TableProfile {
	return schema.TableProfile{FileName: t.Name, TotalRows: len(t.Rows), TotalColumns: len(t.Columns)}
}

type mockIndexAdmin struct {
	err   error
	calls int
}

func (m *mockIndexAdmin) DeleteAll(context.Context) error {
	m.calls++
	return m.err
}

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

type fixture struct {
	engine   *mockEngine
	ingester *mockIngester
	index    *mockIndexAdmin
	health   *mockHealth
}

func newFixture() *fixture {
	return &fixture{
		engine:   &mockEngine{},
		ingester: &mockIngester{},
		index:    &mockIndexAdmin{},
		health:   &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
}
