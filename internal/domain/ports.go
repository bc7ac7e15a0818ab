package domain

import (
	"context"
	"errors"
)

var ErrCustomerNotFound = errors.New("customer not found")

// CatalogStore exposes the merchant's categorized products. Writes go
// through the external collaborator; the engine only reads snapshots
// and listens for invalidations.
type CatalogStore interface {
	Snapshot() (*Catalog, error)
	// Invalidations signals that the snapshot changed and derived
	// structures must rebuild. The channel never closes while the
	// store is alive; sends may be dropped if nobody is listening.
	Invalidations() <-chan struct{}
}

// OrderStore is the order sink. CreateOrder must, as one atomic unit:
// assign the next sequential human-readable id (filled into
// order.ID), persist the order, and update the customer's lifetime
// aggregates. Ids are strictly monotonic and never duplicated under
// concurrent checkouts.
type OrderStore interface {
	CreateOrder(ctx context.Context, order *Order) error
	GetCustomerStats(ctx context.Context, id CustomerID) (*CustomerStats, error)
	ListOrders(ctx context.Context, limit int) ([]*Order, error)
}

// CustomerContext gives the fallback answerer minimal context about
// who is asking.
type CustomerContext struct {
	CustomerID  CustomerID
	DisplayName string
}

// FallbackClient is the language-model collaborator, invoked only
// when structured intent matching fails. An empty reply or an error
// both mean "no answer".
type FallbackClient interface {
	Ask(ctx context.Context, text string, cctx CustomerContext) (string, error)
}
