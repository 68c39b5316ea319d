package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kailas-cloud/catalograg/internal/domain/catalog"
	"github.com/kailas-cloud/catalograg/internal/usecase/index"
)

type mockIndexer struct {
	mu       sync.Mutex
	upsertFn func(ctx context.Context, entries []catalog.Entry) (index.UpsertResult, error)
	calls    [][]catalog.Entry
}

func (m *mockIndexer) Upsert(ctx context.Context, entries []catalog.Entry) (index.UpsertResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, entries)
	m.mu.Unlock()
	if m.upsertFn != nil {
		return m.upsertFn(ctx, entries)
	}
	return index.UpsertResult{Written: len(entries), Embedded: len(entries)}, nil
}

func (m *mockIndexer) written() map[string]catalog.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]catalog.Entry)
	for _, call := range m.calls {
		for _, e := range call {
			out[e.ID] = e
		}
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
