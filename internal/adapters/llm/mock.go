package llm

import (
	"context"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// MockFallback returns a fixed answer, or "no answer" when empty. Used in
// local mode and tests.
type MockFallback struct {
	Answer string
}

func NewMockFallback() *MockFallback {
	return &MockFallback{}
}

func (m *MockFallback) Ask(ctx context.Context, text string, cctx domain.CustomerContext) (string, error) {
	return m.Answer, nil
}
