package domain

import "time"

// Order is immutable once created. Status fields are updated in place
// later by the operational surface, never by the engine.
type Order struct {
	ID           string
	CustomerID   CustomerID
	CustomerName string
	CreatedAt    time.Time

	Lines []CartLine

	Subtotal        float64
	DiscountAmount  float64
	DiscountPercent float64
	DiscountLabel   string
	DeliveryFee     float64
	Total           float64

	DeliveryMode DeliveryMode
	Fulfillment  FulfillmentStatus
	Payment      PaymentStatus
}

// DiscountTier is one configured discount rule. A tier applies when
// the subtotal reaches Minimum; at most one tier applies per order.
type DiscountTier struct {
	Minimum float64 `mapstructure:"minimum"`
	Percent float64 `mapstructure:"percent"`
	Label   string  `mapstructure:"label"`
}

// CustomerStats are the lifetime aggregates updated atomically with
// each created order.
type CustomerStats struct {
	CustomerID  CustomerID
	Name        string
	OrderCount  int
	TotalSpent  float64
	LastOrderAt time.Time
}
