package domain

import "time"

// CartPhase tags which of the optional Cart fields are meaningful.
// The phases are mutually exclusive: Staged is only set in
// CartStaging, Pending only in CartAwaitingSelection, the locked
// totals only in CartAwaitingDelivery.
type CartPhase string

const (
	CartEmpty             CartPhase = "empty"
	CartStaging           CartPhase = "staging"
	CartAwaitingSelection CartPhase = "awaiting_selection"
	CartConfirmed         CartPhase = "confirmed"
	CartAwaitingDelivery  CartPhase = "awaiting_delivery"
)

// CartLine is one line item, staged or confirmed.
type CartLine struct {
	DisplayName string
	Quantity    int
	UnitPrice   float64
	InStock     bool
	Category    string
	Subcategory string
}

func (l CartLine) Total() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Selection holds ambiguous candidates awaiting a disambiguating
// reply, with the quantity already extracted from the triggering
// message.
type Selection struct {
	Candidates []CartLine
	Quantity   int
}

// Cart accumulates a customer's order across turns. Its lifecycle is
// independent from the conversation session: a cart may outlive a
// momentarily expired session and has its own inactivity timer.
type Cart struct {
	Phase     CartPhase
	Confirmed []CartLine
	Staged    []CartLine
	Pending   *Selection

	// Set once checkout starts, so catalog or config changes cannot
	// alter an in-flight order.
	LockedSubtotal        float64
	LockedDiscount        float64
	LockedDiscountPercent float64
	LockedDiscountLabel   string

	// StockWarned marks that the customer was already shown the
	// out-of-stock staged lines; the next "si" confirms only the
	// available ones.
	StockWarned bool

	LastActivity time.Time
}

// ConfirmedSubtotal sums the accepted lines.
func (c *Cart) ConfirmedSubtotal() float64 {
	var total float64
	for _, l := range c.Confirmed {
		total += l.Total()
	}
	return total
}
