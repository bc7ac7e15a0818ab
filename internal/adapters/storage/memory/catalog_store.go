package memory

import (
	"sync"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// CatalogStore keeps the catalog snapshot in memory. Replace swaps the
// whole snapshot (bulk write) and signals invalidation; there are no
// partial writes.
type CatalogStore struct {
	mu         sync.RWMutex
	catalog    *domain.Catalog
	invalidate chan struct{}
}

func NewCatalogStore(initial *domain.Catalog) *CatalogStore {
	if initial == nil {
		initial = &domain.Catalog{}
	}
	return &CatalogStore{
		catalog:    initial,
		invalidate: make(chan struct{}, 1),
	}
}

func (s *CatalogStore) Snapshot() (*domain.Catalog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

// Replace publishes a new snapshot. The invalidation send is
// non-blocking: one pending signal is enough, rebuilds always read the
// latest snapshot anyway.
func (s *CatalogStore) Replace(c *domain.Catalog) {
	if c == nil {
		c = &domain.Catalog{}
	}
	s.mu.Lock()
	s.catalog = c
	s.mu.Unlock()

	select {
	case s.invalidate <- struct{}{}:
	default:
	}
}

func (s *CatalogStore) Invalidations() <-chan struct{} {
	return s.invalidate
}
