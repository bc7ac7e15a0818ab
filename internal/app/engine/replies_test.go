package engine

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/memory"
	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

func TestBulletListTruncatesAtTen(t *testing.T) {
	t.Parallel()

	items := make([]string, 12)
	for i := range items {
		items[i] = fmt.Sprintf("item %02d", i+1)
	}

	out := bulletList(items)
	assert.Equal(t, 10, strings.Count(out, "• "))
	assert.Contains(t, out, "item 10")
	assert.NotContains(t, out, "item 11")
	assert.Contains(t, out, "+2 más")

	out = bulletList(items[:10])
	assert.Equal(t, 10, strings.Count(out, "• "))
	assert.NotContains(t, out, "más")
}

func TestCatalogListingTruncatesLongCatalogs(t *testing.T) {
	t.Parallel()

	products := make([]domain.Product, 12)
	for i := range products {
		products[i] = domain.Product{
			Name:    fmt.Sprintf("producto_%02d", i+1),
			Price:   100,
			InStock: true,
		}
	}
	cat := &domain.Catalog{Categories: []domain.Category{{
		Name: "almacen",
		Subcategories: []domain.Subcategory{{
			Name:     "varios",
			Products: products,
		}},
	}}}

	index, err := catalog.NewIndex(memstore.NewCatalogStore(cat))
	require.NoError(t, err)
	orders := &fakeOrderStore{}
	eng := New(Config{},
		index,
		cartapp.NewWorkflow(cartapp.Config{}, orders),
		NewSessionManager(10*time.Minute),
		orders,
		&fakeFallback{},
	)

	reply, err := eng.HandleMessage(context.Background(), domain.InboundMessage{
		CustomerID: "c1",
		Text:       "ver catalogo",
	})
	require.NoError(t, err)
	assert.Contains(t, reply, "producto 10")
	assert.NotContains(t, reply, "producto 11")
	assert.Contains(t, reply, "+2 más")
}

func TestTurnLocksArePrunedAfterHandling(t *testing.T) {
	t.Parallel()
	f := newFixture(t, cartapp.PricingConfig{})

	f.send(t, "c1", "quiero 2 cuadernos")
	f.send(t, "c2", "hola")

	f.engine.lockMu.Lock()
	defer f.engine.lockMu.Unlock()
	assert.Empty(t, f.engine.locks)
}
