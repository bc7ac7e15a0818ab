package domain

// Product is a single catalog entry. Names are stored normalized
// (lowercased, accents stripped, spaces as underscores); the display
// form is derived, never stored.
//
// Exactly one of Price / PriceFrom is set. PriceFrom means
// "starting at": the listing shows "desde $X" and the cart uses X
// as the unit price.
type Product struct {
	Name      string   `mapstructure:"name"`
	Price     float64  `mapstructure:"price"`
	PriceFrom float64  `mapstructure:"price_from"`
	Unit      string   `mapstructure:"unit"`
	InStock   bool     `mapstructure:"in_stock"`
	Barcode   string   `mapstructure:"barcode"`
	Images    []string `mapstructure:"images"`
}

// UnitPrice returns whichever of the two price fields is set.
func (p Product) UnitPrice() float64 {
	if p.Price > 0 {
		return p.Price
	}
	return p.PriceFrom
}

// HasFixedPrice reports whether the price is exact rather than "desde".
func (p Product) HasFixedPrice() bool {
	return p.Price > 0
}

// Subcategory groups products under a category. Order is insertion
// order from the catalog source and is meaningful: search results
// follow it.
type Subcategory struct {
	Name     string    `mapstructure:"name"`
	Products []Product `mapstructure:"products"`
}

type Category struct {
	Name          string        `mapstructure:"name"`
	Subcategories []Subcategory `mapstructure:"subcategories"`
}

// Catalog is the full snapshot handed out by a CatalogStore. It is
// treated as immutable once published; mutations go through the store,
// which swaps in a fresh snapshot.
type Catalog struct {
	Categories []Category `mapstructure:"categories"`
}

// Walk visits every product in catalog order (category, subcategory,
// name, insertion order).
func (c *Catalog) Walk(fn func(category, subcategory string, p Product)) {
	if c == nil {
		return
	}
	for _, cat := range c.Categories {
		for _, sub := range cat.Subcategories {
			for _, p := range sub.Products {
				fn(cat.Name, sub.Name, p)
			}
		}
	}
}

// Len counts the products in the snapshot.
func (c *Catalog) Len() int {
	n := 0
	c.Walk(func(string, string, Product) { n++ })
	return n
}
