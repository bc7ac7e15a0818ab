package cart

import (
	"math"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// PricingConfig is the read-only pricing section of the merchant
// configuration.
type PricingConfig struct {
	DiscountsEnabled bool
	Tiers            []domain.DiscountTier

	DeliveryEnabled bool
	DeliveryFee     float64
	FreeDeliveryMin float64
}

// Discount is the applied (or zero) discount for a subtotal.
type Discount struct {
	Amount  float64
	Percent float64
	Label   string
}

// ComputeDiscount picks, among all tiers with minimum <= subtotal, the one
// yielding the largest absolute discount. Amounts are floored to an integer
// before comparing, and ties keep the first tier found in configured order.
func ComputeDiscount(cfg PricingConfig, subtotal float64) Discount {
	if !cfg.DiscountsEnabled {
		return Discount{}
	}
	var best Discount
	for _, t := range cfg.Tiers {
		if subtotal < t.Minimum {
			continue
		}
		amount := math.Floor(subtotal * t.Percent / 100)
		if amount > best.Amount {
			best = Discount{Amount: amount, Percent: t.Percent, Label: t.Label}
		}
	}
	return best
}

// ComputeDeliveryFee returns the flat fee, or zero when delivery is disabled
// or the free-delivery threshold is configured and met.
func ComputeDeliveryFee(cfg PricingConfig, totalAfterDiscount float64) float64 {
	if !cfg.DeliveryEnabled {
		return 0
	}
	if cfg.FreeDeliveryMin > 0 && totalAfterDiscount >= cfg.FreeDeliveryMin {
		return 0
	}
	return cfg.DeliveryFee
}
