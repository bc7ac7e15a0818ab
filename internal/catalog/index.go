package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

// Match is one candidate resolved from free text, carrying the product
// identity triple plus the product itself.
type Match struct {
	Category    string
	Subcategory string
	Name        string
	DisplayName string
	Product     domain.Product
}

type entry struct {
	match Match
	keys  []string
}

// snapshot is an immutable build over one catalog snapshot. Entries keep
// catalog iteration order; search results follow it.
type snapshot struct {
	entries   []entry
	byBarcode map[string]int
}

// Index resolves free text to catalog line items. Rebuilds construct a new
// snapshot off to the side and publish it atomically, so readers never see
// a half-built index.
type Index struct {
	store   domain.CatalogStore
	current atomic.Pointer[snapshot]
}

func NewIndex(store domain.CatalogStore) (*Index, error) {
	ix := &Index{store: store}
	if err := ix.Rebuild(); err != nil {
		return nil, fmt.Errorf("initial index build: %w", err)
	}
	return ix, nil
}

// Rebuild reads the current catalog snapshot and swaps in a fresh build.
func (ix *Index) Rebuild() error {
	cat, err := ix.store.Snapshot()
	if err != nil {
		return fmt.Errorf("catalog snapshot: %w", err)
	}
	ix.current.Store(build(cat))
	return nil
}

// Watch consumes invalidation signals until ctx is done. A failed rebuild
// keeps the previous snapshot; the conversation must stay usable.
func (ix *Index) Watch(ctx context.Context) {
	log := observability.Logger()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ix.store.Invalidations():
			if err := ix.Rebuild(); err != nil {
				log.Error("catalog index rebuild failed", "error", err)
				continue
			}
			log.Info("catalog index rebuilt", "products", ix.Size())
		}
	}
}

func build(cat *domain.Catalog) *snapshot {
	snap := &snapshot{byBarcode: make(map[string]int)}
	cat.Walk(func(category, subcategory string, p domain.Product) {
		name := NormalizeKey(p.Name)
		e := entry{
			match: Match{
				Category:    NormalizeKey(category),
				Subcategory: NormalizeKey(subcategory),
				Name:        name,
				DisplayName: DisplayName(name),
				Product:     p,
			},
			keys: searchKeys(category, subcategory, name),
		}
		snap.entries = append(snap.entries, e)
		if p.Barcode != "" {
			snap.byBarcode[p.Barcode] = len(snap.entries) - 1
		}
	})
	return snap
}

// searchKeys derives the lexical keys for one product: the full normalized
// name plus the underscore-split tokens of name, subcategory and category.
func searchKeys(category, subcategory, name string) []string {
	seen := make(map[string]bool)
	var keys []string
	add := func(k string) {
		if k != "" && !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	add(name)
	for _, t := range strings.Split(name, "_") {
		add(t)
	}
	for _, t := range Tokens(subcategory) {
		add(t)
	}
	for _, t := range Tokens(category) {
		add(t)
	}
	return keys
}

// Affixes shorter than this only match by exact token equality, so "a4"
// does not light up inside every message containing those letters.
const minAffixLen = 3

// Search normalizes the text and returns every product with bidirectional
// substring containment between its keys and the text: a key inside the
// text, a text token inside a key, or a key inside a text token. Partial
// words match ("lapic" finds "lapicera"). Results are unranked, in catalog
// order.
func (ix *Index) Search(text string) []domain.CartLine {
	matches := ix.search(text)
	lines := make([]domain.CartLine, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, domain.CartLine{
			DisplayName: m.DisplayName,
			Quantity:    1,
			UnitPrice:   m.Product.UnitPrice(),
			InStock:     m.Product.InStock,
			Category:    m.Category,
			Subcategory: m.Subcategory,
		})
	}
	return lines
}

// Matches is Search without the cart-line projection.
func (ix *Index) Matches(text string) []Match {
	return ix.search(text)
}

func (ix *Index) search(text string) []Match {
	snap := ix.current.Load()
	normText := NormalizeKey(text)
	toks := Tokens(text)

	var out []Match
	for _, e := range snap.entries {
		if entryMatches(e, normText, toks) {
			out = append(out, e.match)
		}
	}
	return out
}

func entryMatches(e entry, normText string, toks []string) bool {
	for _, k := range e.keys {
		if len(k) >= minAffixLen && strings.Contains(normText, k) {
			return true
		}
		for _, t := range toks {
			if t == k {
				return true
			}
			if len(t) < minAffixLen || len(k) < minAffixLen {
				continue
			}
			if strings.Contains(k, t) || strings.Contains(t, k) {
				return true
			}
		}
	}
	return false
}

// All returns every entry in catalog order, for listings.
func (ix *Index) All() []Match {
	snap := ix.current.Load()
	out := make([]Match, 0, len(snap.entries))
	for _, e := range snap.entries {
		out = append(out, e.match)
	}
	return out
}

// ByBarcode is an exact-match lookup, separate from free-text search.
func (ix *Index) ByBarcode(code string) (Match, bool) {
	snap := ix.current.Load()
	i, ok := snap.byBarcode[code]
	if !ok {
		return Match{}, false
	}
	return snap.entries[i].match, true
}

func (ix *Index) Size() int {
	return len(ix.current.Load().entries)
}
