package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// OrderStore is the in-memory order sink used for dev and tests. One
// mutex serializes id assignment, persistence and aggregate updates, so
// the three are observably atomic per order.
type OrderStore struct {
	mu        sync.Mutex
	seq       int
	orders    []*domain.Order
	customers map[domain.CustomerID]*domain.CustomerStats
}

func NewOrderStore() *OrderStore {
	return &OrderStore{
		customers: make(map[domain.CustomerID]*domain.CustomerStats),
	}
}

func (s *OrderStore) CreateOrder(ctx context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	order.ID = fmt.Sprintf("PED-%04d", s.seq)

	stored := *order
	s.orders = append(s.orders, &stored)

	stats, ok := s.customers[order.CustomerID]
	if !ok {
		stats = &domain.CustomerStats{CustomerID: order.CustomerID}
		s.customers[order.CustomerID] = stats
	}
	stats.Name = order.CustomerName
	stats.OrderCount++
	stats.TotalSpent += order.Total
	stats.LastOrderAt = order.CreatedAt

	return nil
}

func (s *OrderStore) GetCustomerStats(ctx context.Context, id domain.CustomerID) (*domain.CustomerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats, ok := s.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	copied := *stats
	return &copied, nil
}

func (s *OrderStore) ListOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Order, 0, len(s.orders))
	// newest first
	for i := len(s.orders) - 1; i >= 0; i-- {
		out = append(out, s.orders[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
