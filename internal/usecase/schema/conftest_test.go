package schema

import (
	"context"

	"github.com/kailas-cloud/catalograg/internal/domain"
)

type mockCompleter struct {
	completeFn func(ctx context.Context, req domain.CompletionRequest) (string, error)
	prompts    []string
}

func (m *mockCompleter) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	m.prompts = append(m.prompts, req.Prompt)
	if m.completeFn != nil {
		return m.completeFn(ctx, req)
	}
	return "description", nil
}
