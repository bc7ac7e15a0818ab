package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/memory"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

func testCatalog() *domain.Catalog {
	return &domain.Catalog{Categories: []domain.Category{
		{
			Name: "libreria",
			Subcategories: []domain.Subcategory{
				{Name: "cuadernos", Products: []domain.Product{
					{Name: "cuaderno_a4", Price: 1500, InStock: true, Barcode: "7791234567890"},
				}},
				{Name: "lapiceras", Products: []domain.Product{
					{Name: "lapicera_azul", Price: 800, InStock: true},
					{Name: "lapicera_roja", Price: 800, InStock: false},
				}},
			},
		},
		{
			Name: "almacen",
			Subcategories: []domain.Subcategory{
				{Name: "infusiones", Products: []domain.Product{
					{Name: "yerba_mate", PriceFrom: 2000, InStock: true, Unit: "kg"},
				}},
			},
		},
	}}
}

func newTestIndex(t *testing.T) *catalog.Index {
	t.Helper()
	ix, err := catalog.NewIndex(memstore.NewCatalogStore(testCatalog()))
	require.NoError(t, err)
	return ix
}

func TestSearchExactAndPartialWords(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"full product name", "quiero un cuaderno a4", []string{"cuaderno a4"}},
		{"plural word contains key", "quiero 2 cuadernos", []string{"cuaderno a4"}},
		{"partial word matches key", "tenes lapic?", []string{"lapicera azul", "lapicera roja"}},
		{"shared prefix finds both in catalog order", "3 lapiceras", []string{"lapicera azul", "lapicera roja"}},
		{"subcategory token", "algo de infusiones", []string{"yerba mate"}},
		{"no match", "hola buen dia", nil},
		{"short token only matches exactly", "a4", []string{"cuaderno a4"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			var got []string
			for _, l := range ix.Search(tc.text) {
				got = append(got, l.DisplayName)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSearchProjectsCartLines(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	lines := ix.Search("lapicera roja")
	require.Len(t, lines, 2) // "lapicera" alone still matches both
	roja := lines[1]
	assert.Equal(t, "lapicera roja", roja.DisplayName)
	assert.False(t, roja.InStock)
	assert.Equal(t, 800.0, roja.UnitPrice)
	assert.Equal(t, "libreria", roja.Category)
	assert.Equal(t, "lapiceras", roja.Subcategory)
}

func TestPriceFromUsedAsUnitPrice(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	lines := ix.Search("yerba")
	require.Len(t, lines, 1)
	assert.Equal(t, 2000.0, lines[0].UnitPrice)
}

func TestByBarcode(t *testing.T) {
	t.Parallel()
	ix := newTestIndex(t)

	m, ok := ix.ByBarcode("7791234567890")
	require.True(t, ok)
	assert.Equal(t, "cuaderno a4", m.DisplayName)

	_, ok = ix.ByBarcode("0000000000000")
	assert.False(t, ok)

	// barcode lookup is exact match, not substring
	_, ok = ix.ByBarcode("779123")
	assert.False(t, ok)
}

func TestRebuildSwapsSnapshot(t *testing.T) {
	t.Parallel()
	store := memstore.NewCatalogStore(testCatalog())
	ix, err := catalog.NewIndex(store)
	require.NoError(t, err)
	require.Equal(t, 4, ix.Size())

	store.Replace(&domain.Catalog{Categories: []domain.Category{{
		Name: "libreria",
		Subcategories: []domain.Subcategory{{
			Name: "cuadernos",
			Products: []domain.Product{
				{Name: "cuaderno_a5", Price: 1200, InStock: true},
			},
		}},
	}}})

	// the store signals the change for the background watcher
	select {
	case <-store.Invalidations():
	default:
		t.Fatal("expected an invalidation signal after Replace")
	}

	require.NoError(t, ix.Rebuild())
	assert.Equal(t, 1, ix.Size())
	assert.Empty(t, ix.Search("cuaderno a4"))
	assert.Len(t, ix.Search("cuaderno"), 1)
}
