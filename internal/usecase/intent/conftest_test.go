package intent

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req domain.CompletionRequest) (string, error)
	calls      int
	last       domain.CompletionRequest
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	m.calls++
	m.last = req
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return "", nil
}
