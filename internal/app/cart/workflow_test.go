package cart

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// captureStore records created orders and can be told to fail.
type captureStore struct {
	orders []*domain.Order
	fail   bool
}

func (s *captureStore) CreateOrder(_ context.Context, o *domain.Order) error {
	if s.fail {
		return errors.New("sink unavailable")
	}
	o.ID = fmt.Sprintf("PED-%04d", len(s.orders)+1)
	s.orders = append(s.orders, o)
	return nil
}

func (s *captureStore) GetCustomerStats(context.Context, domain.CustomerID) (*domain.CustomerStats, error) {
	return nil, domain.ErrCustomerNotFound
}

func (s *captureStore) ListOrders(context.Context, int) ([]*domain.Order, error) {
	return s.orders, nil
}

func line(name string, price float64, inStock bool) domain.CartLine {
	return domain.CartLine{
		DisplayName: name,
		Quantity:    1,
		UnitPrice:   price,
		InStock:     inStock,
		Category:    "libreria",
		Subcategory: "varios",
	}
}

func newTestWorkflow(store domain.OrderStore, pricing PricingConfig) (*Workflow, *time.Time) {
	w := NewWorkflow(Config{Pricing: pricing, TTL: 15 * time.Minute}, store)
	clock := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return clock }
	return w, &clock
}

const cust = domain.CustomerID("549110001111")

func TestStageSingleCandidate(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})

	res := w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)
	require.Equal(t, StageStaged, res.Outcome)
	require.Len(t, res.Staged, 1)
	assert.Equal(t, 2, res.Staged[0].Quantity)
	assert.Equal(t, domain.CartStaging, w.Phase(cust))
}

func TestRestagingReplacesInsteadOfDuplicating(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})

	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)
	res := w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 3)

	require.Equal(t, StageStaged, res.Outcome)
	require.Len(t, res.Staged, 1)
	assert.Equal(t, 3, res.Staged[0].Quantity)
}

func TestStageSeveralCandidatesAsksForSelection(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})

	res := w.StageDetected(cust, []domain.CartLine{
		line("lapicera azul", 800, true),
		line("lapicera roja", 800, true),
	}, 3)
	require.Equal(t, StageNeedsSelection, res.Outcome)
	assert.Len(t, res.Candidates, 2)
	assert.Equal(t, 3, res.Quantity)
	assert.Equal(t, domain.CartAwaitingSelection, w.Phase(cust))

	pending := w.PendingSelection(cust)
	require.NotNil(t, pending)
	assert.Equal(t, 3, pending.Quantity)
}

func TestResolveSelection(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{
		line("lapicera azul", 800, true),
		line("lapicera roja", 800, true),
	}, 3)

	assert.Equal(t, SelectionInvalid, w.ResolveSelection(cust, 0).Outcome)
	assert.Equal(t, SelectionInvalid, w.ResolveSelection(cust, 3).Outcome)

	res := w.ResolveSelection(cust, 1)
	require.Equal(t, SelectionStaged, res.Outcome)
	require.Len(t, res.Staged, 1)
	assert.Equal(t, "lapicera azul", res.Staged[0].DisplayName)
	assert.Equal(t, 3, res.Staged[0].Quantity)

	// nothing pending anymore
	assert.Equal(t, SelectionNone, w.ResolveSelection(cust, 1).Outcome)
}

func TestConfirmStaged(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)

	res := w.ConfirmStaged(cust)
	require.Equal(t, ConfirmDone, res.Outcome)
	assert.Equal(t, 3000.0, res.Subtotal)
	assert.Equal(t, domain.CartConfirmed, w.Phase(cust))

	// a second confirmation with nothing staged is a no-op
	assert.Equal(t, ConfirmNoStaged, w.ConfirmStaged(cust).Outcome)
}

func TestConfirmStagedOutOfStockNeedsSecondConfirmation(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	require.Equal(t, ConfirmDone, w.ConfirmStaged(cust).Outcome)

	w.StageDetected(cust, []domain.CartLine{line("lapicera roja", 800, false)}, 2)
	first := w.ConfirmStaged(cust)
	require.Equal(t, ConfirmOutOfStock, first.Outcome)
	require.Len(t, first.OutOfStock, 1)
	assert.Equal(t, "lapicera roja", first.OutOfStock[0].DisplayName)

	// confirming again drops the unavailable line; only the previously
	// confirmed items remain
	second := w.ConfirmStaged(cust)
	assert.Equal(t, ConfirmNothingLeft, second.Outcome)

	view, ok := w.View(cust)
	require.True(t, ok)
	assert.Len(t, view.Confirmed, 1)
	assert.Equal(t, 1500.0, view.Subtotal)
	assert.Equal(t, domain.CartConfirmed, view.Phase)
}

func TestConfirmStagedMixedStockKeepsAvailable(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	// stage a mixed-stock set directly; through the public API two distinct
	// names would first go through a selection
	w.mu.Lock()
	c := w.ensureCart(cust)
	c.Phase = domain.CartStaging
	c.Staged = []domain.CartLine{line("lapicera azul", 800, true), line("lapicera roja", 800, false)}
	c.Pending = nil
	w.mu.Unlock()

	require.Equal(t, ConfirmOutOfStock, w.ConfirmStaged(cust).Outcome)
	res := w.ConfirmStaged(cust)
	require.Equal(t, ConfirmDone, res.Outcome)
	require.Len(t, res.Confirmed, 1)
	assert.Equal(t, "lapicera azul", res.Confirmed[0].DisplayName)
	assert.Equal(t, 800.0, res.Subtotal)
}

func TestRejectStagedKeepsConfirmed(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	w.ConfirmStaged(cust)
	w.StageDetected(cust, []domain.CartLine{line("lapicera azul", 800, true)}, 1)

	require.True(t, w.RejectStaged(cust))

	view, _ := w.View(cust)
	assert.Empty(t, view.Staged)
	assert.Len(t, view.Confirmed, 1)
	assert.Equal(t, domain.CartConfirmed, view.Phase)
}

func TestCancelPendingPreservesConfirmed(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	w.ConfirmStaged(cust)
	w.StageDetected(cust, []domain.CartLine{
		line("lapicera azul", 800, true),
		line("lapicera roja", 800, true),
	}, 1)

	w.CancelPending(cust)

	view, _ := w.View(cust)
	assert.Nil(t, view.Pending)
	assert.Empty(t, view.Staged)
	assert.Len(t, view.Confirmed, 1)
	assert.Equal(t, domain.CartConfirmed, view.Phase)
}

func TestCartExpiresAtExactTTL(t *testing.T) {
	t.Parallel()
	w, clock := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	w.ConfirmStaged(cust)

	*clock = clock.Add(15*time.Minute - time.Second)
	assert.Equal(t, domain.CartConfirmed, w.Phase(cust))

	*clock = clock.Add(time.Second) // exactly the TTL: inclusive
	assert.Equal(t, domain.CartEmpty, w.Phase(cust))
	_, ok := w.View(cust)
	assert.False(t, ok)
}

func TestSweepDropsIdleCarts(t *testing.T) {
	t.Parallel()
	w, clock := newTestWorkflow(&captureStore{}, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)

	*clock = clock.Add(time.Hour)
	w.sweep()

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.Empty(t, w.carts)
}

func TestCheckoutPickupImmediateWhenDeliveryDisabled(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	w, _ := newTestWorkflow(store, PricingConfig{
		DiscountsEnabled: true,
		Tiers:            []domain.DiscountTier{{Minimum: 2000, Percent: 10, Label: "10%"}},
	})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)
	w.ConfirmStaged(cust)

	res := w.BeginCheckout(context.Background(), cust, "Ana")
	require.Equal(t, CheckoutCreated, res.Outcome)
	require.NotNil(t, res.Order)

	o := res.Order
	assert.Equal(t, "PED-0001", o.ID)
	assert.Equal(t, 3000.0, o.Subtotal)
	assert.Equal(t, 300.0, o.DiscountAmount)
	assert.Zero(t, o.DeliveryFee)
	assert.Equal(t, 2700.0, o.Total)
	assert.Equal(t, domain.DeliveryPickup, o.DeliveryMode)
	assert.Equal(t, domain.FulfillmentPending, o.Fulfillment)
	assert.Equal(t, domain.PaymentUnpaid, o.Payment)

	// the cart is gone after a successful order
	assert.Equal(t, domain.CartEmpty, w.Phase(cust))
}

func TestCheckoutWithDeliveryChoice(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	w, _ := newTestWorkflow(store, PricingConfig{
		DiscountsEnabled: true,
		Tiers:            []domain.DiscountTier{{Minimum: 2000, Percent: 10, Label: "10%"}},
		DeliveryEnabled:  true,
		DeliveryFee:      500,
		FreeDeliveryMin:  10000,
	})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)
	w.ConfirmStaged(cust)

	res := w.BeginCheckout(context.Background(), cust, "Ana")
	require.Equal(t, CheckoutAwaitDelivery, res.Outcome)
	assert.Equal(t, 3000.0, res.Subtotal)
	assert.Equal(t, 300.0, res.Discount.Amount)
	assert.Equal(t, domain.CartAwaitingDelivery, w.Phase(cust))

	final := w.ResolveDelivery(context.Background(), cust, "Ana", domain.DeliveryShipping)
	require.Equal(t, CheckoutCreated, final.Outcome)
	assert.Equal(t, 500.0, final.Order.DeliveryFee)
	assert.Equal(t, 3200.0, final.Order.Total)
	assert.Equal(t, domain.DeliveryShipping, final.Order.DeliveryMode)
}

func TestCheckoutFreeDeliveryThreshold(t *testing.T) {
	t.Parallel()
	store := &captureStore{}
	w, _ := newTestWorkflow(store, PricingConfig{
		DeliveryEnabled: true,
		DeliveryFee:     500,
		FreeDeliveryMin: 2000,
	})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 2)
	w.ConfirmStaged(cust)

	require.Equal(t, CheckoutAwaitDelivery, w.BeginCheckout(context.Background(), cust, "Ana").Outcome)
	final := w.ResolveDelivery(context.Background(), cust, "Ana", domain.DeliveryShipping)
	require.Equal(t, CheckoutCreated, final.Outcome)
	assert.Zero(t, final.Order.DeliveryFee)
	assert.Equal(t, 3000.0, final.Order.Total)
}

func TestCheckoutPickupNeverChargesDelivery(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{
		DeliveryEnabled: true,
		DeliveryFee:     500,
	})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	w.ConfirmStaged(cust)
	w.BeginCheckout(context.Background(), cust, "Ana")

	final := w.ResolveDelivery(context.Background(), cust, "Ana", domain.DeliveryPickup)
	require.Equal(t, CheckoutCreated, final.Outcome)
	assert.Zero(t, final.Order.DeliveryFee)
	assert.Equal(t, 1500.0, final.Order.Total)
}

func TestCheckoutEmptyCart(t *testing.T) {
	t.Parallel()
	w, _ := newTestWorkflow(&captureStore{}, PricingConfig{})
	assert.Equal(t, CheckoutEmpty, w.BeginCheckout(context.Background(), cust, "Ana").Outcome)
}

func TestCheckoutSinkFailureKeepsCart(t *testing.T) {
	t.Parallel()
	store := &captureStore{fail: true}
	w, _ := newTestWorkflow(store, PricingConfig{})
	w.StageDetected(cust, []domain.CartLine{line("cuaderno a4", 1500, true)}, 1)
	w.ConfirmStaged(cust)

	res := w.BeginCheckout(context.Background(), cust, "Ana")
	require.Equal(t, CheckoutFailed, res.Outcome)

	// cart intact, retry succeeds
	store.fail = false
	res = w.BeginCheckout(context.Background(), cust, "Ana")
	require.Equal(t, CheckoutCreated, res.Outcome)
	assert.Equal(t, "PED-0001", res.Order.ID)
}
