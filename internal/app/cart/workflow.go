package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

// Config for the workflow. TTL is the cart inactivity window, independent
// from the session window.
type Config struct {
	Pricing       PricingConfig
	TTL           time.Duration
	SweepInterval time.Duration
}

// Workflow owns every customer's cart and the checkout path. All carts
// live in one map guarded by a single mutex; per-customer serialization of
// whole turns is the engine's job. Expiry is lazy on read plus a periodic
// sweep, instead of one timer per customer.
type Workflow struct {
	mu     sync.Mutex
	carts  map[domain.CustomerID]*domain.Cart
	cfg    Config
	orders domain.OrderStore
	now    func() time.Time
}

func NewWorkflow(cfg Config, orders domain.OrderStore) *Workflow {
	if cfg.TTL <= 0 {
		cfg.TTL = 15 * time.Minute
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}
	return &Workflow{
		carts:  make(map[domain.CustomerID]*domain.Cart),
		cfg:    cfg,
		orders: orders,
		now:    time.Now,
	}
}

// StartSweeper removes inactive carts in the background until ctx is done.
func (w *Workflow) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.cfg.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep()
			}
		}
	}()
}

func (w *Workflow) sweep() {
	w.mu.Lock()
	defer w.mu.Unlock()
	now := w.now()
	for id, c := range w.carts {
		if now.Sub(c.LastActivity) >= w.cfg.TTL {
			delete(w.carts, id)
		}
	}
}

// liveCart returns the customer's cart, treating one idle for TTL or
// longer as absent. Caller holds w.mu.
func (w *Workflow) liveCart(id domain.CustomerID) *domain.Cart {
	c, ok := w.carts[id]
	if !ok {
		return nil
	}
	if w.now().Sub(c.LastActivity) >= w.cfg.TTL {
		delete(w.carts, id)
		return nil
	}
	return c
}

func (w *Workflow) ensureCart(id domain.CustomerID) *domain.Cart {
	if c := w.liveCart(id); c != nil {
		return c
	}
	c := &domain.Cart{Phase: domain.CartEmpty, LastActivity: w.now()}
	w.carts[id] = c
	return c
}

// Phase reports the current cart phase, CartEmpty when no live cart exists.
func (w *Workflow) Phase(id domain.CustomerID) domain.CartPhase {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil {
		return domain.CartEmpty
	}
	return c.Phase
}

type StageOutcome int

const (
	StageNothing StageOutcome = iota
	StageStaged
	StageNeedsSelection
)

type StageResult struct {
	Outcome    StageOutcome
	Staged     []domain.CartLine
	Candidates []domain.CartLine
	Quantity   int
}

// StageDetected takes the candidates resolved from one message, with the
// extracted quantity. One distinct product name goes straight to staged
// items awaiting yes/no; several become a pending selection. Restaging
// replaces the previous staged set, so repeating a message never
// duplicates lines.
func (w *Workflow) StageDetected(id domain.CustomerID, candidates []domain.CartLine, qty int) StageResult {
	if len(candidates) == 0 {
		return StageResult{Outcome: StageNothing}
	}
	if qty < 1 {
		qty = 1
	}
	distinct := dedupByName(candidates)
	for i := range distinct {
		distinct[i].Quantity = qty
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.ensureCart(id)
	c.LastActivity = w.now()
	c.StockWarned = false

	if len(distinct) > 1 {
		c.Phase = domain.CartAwaitingSelection
		c.Pending = &domain.Selection{Candidates: distinct, Quantity: qty}
		c.Staged = nil
		return StageResult{Outcome: StageNeedsSelection, Candidates: distinct, Quantity: qty}
	}

	c.Phase = domain.CartStaging
	c.Staged = distinct
	c.Pending = nil
	return StageResult{Outcome: StageStaged, Staged: slices.Clone(c.Staged), Quantity: qty}
}

func dedupByName(lines []domain.CartLine) []domain.CartLine {
	seen := make(map[string]bool)
	var out []domain.CartLine
	for _, l := range lines {
		if seen[l.DisplayName] {
			continue
		}
		seen[l.DisplayName] = true
		out = append(out, l)
	}
	return out
}

// PendingSelection exposes the current ambiguous candidates, nil if none.
func (w *Workflow) PendingSelection(id domain.CustomerID) *domain.Selection {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil || c.Phase != domain.CartAwaitingSelection {
		return nil
	}
	return c.Pending
}

type SelectionOutcome int

const (
	SelectionNone SelectionOutcome = iota
	SelectionInvalid
	SelectionStaged
)

type SelectionResult struct {
	Outcome SelectionOutcome
	Staged  []domain.CartLine
}

// ResolveSelection applies a 1-based numeric choice to the pending
// candidates. An out-of-range index leaves everything untouched.
func (w *Workflow) ResolveSelection(id domain.CustomerID, choice int) SelectionResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil || c.Phase != domain.CartAwaitingSelection || c.Pending == nil {
		return SelectionResult{Outcome: SelectionNone}
	}
	if choice < 1 || choice > len(c.Pending.Candidates) {
		return SelectionResult{Outcome: SelectionInvalid}
	}
	line := c.Pending.Candidates[choice-1]
	line.Quantity = c.Pending.Quantity
	c.Phase = domain.CartStaging
	c.Staged = []domain.CartLine{line}
	c.Pending = nil
	c.StockWarned = false
	c.LastActivity = w.now()
	return SelectionResult{Outcome: SelectionStaged, Staged: slices.Clone(c.Staged)}
}

type ConfirmOutcome int

const (
	ConfirmNoStaged ConfirmOutcome = iota
	ConfirmOutOfStock
	ConfirmNothingLeft
	ConfirmDone
)

type ConfirmResult struct {
	Outcome    ConfirmOutcome
	Confirmed  []domain.CartLine
	OutOfStock []domain.CartLine
	Subtotal   float64
}

// ConfirmStaged moves staged lines into the confirmed cart. If any staged
// line is out of stock the first confirmation is rejected with the
// unavailable subset and no change to the confirmed items; a repeated
// confirmation then proceeds with only the in-stock lines.
func (w *Workflow) ConfirmStaged(id domain.CustomerID) ConfirmResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil || len(c.Staged) == 0 {
		return ConfirmResult{Outcome: ConfirmNoStaged}
	}
	c.LastActivity = w.now()

	var unavailable []domain.CartLine
	for _, l := range c.Staged {
		if !l.InStock {
			unavailable = append(unavailable, l)
		}
	}
	if len(unavailable) > 0 && !c.StockWarned {
		c.StockWarned = true
		return ConfirmResult{Outcome: ConfirmOutOfStock, OutOfStock: unavailable}
	}

	var keep []domain.CartLine
	for _, l := range c.Staged {
		if l.InStock {
			keep = append(keep, l)
		}
	}
	c.Staged = nil
	c.StockWarned = false
	if len(keep) == 0 {
		c.Phase = phaseAfterStaging(c)
		return ConfirmResult{Outcome: ConfirmNothingLeft}
	}
	c.Confirmed = append(c.Confirmed, keep...)
	c.Phase = domain.CartConfirmed
	return ConfirmResult{
		Outcome:   ConfirmDone,
		Confirmed: keep,
		Subtotal:  c.ConfirmedSubtotal(),
	}
}

func phaseAfterStaging(c *domain.Cart) domain.CartPhase {
	if len(c.Confirmed) > 0 {
		return domain.CartConfirmed
	}
	return domain.CartEmpty
}

// RejectStaged drops the staged lines ("no" reply). Confirmed items stay.
func (w *Workflow) RejectStaged(id domain.CustomerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil || len(c.Staged) == 0 {
		return false
	}
	c.Staged = nil
	c.StockWarned = false
	c.Phase = phaseAfterStaging(c)
	c.LastActivity = w.now()
	return true
}

// CancelPending clears staged items and pending selection without side
// effects on the confirmed cart. Safe to call in any phase.
func (w *Workflow) CancelPending(id domain.CustomerID) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil {
		return
	}
	c.Staged = nil
	c.Pending = nil
	c.StockWarned = false
	c.Phase = phaseAfterStaging(c)
	c.LastActivity = w.now()
}

// Clear destroys the whole cart (explicit cancellation).
func (w *Workflow) Clear(id domain.CustomerID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.carts[id]
	delete(w.carts, id)
	return ok
}

// View is a read-only snapshot of the cart for the inspection reply,
// with the discount that would apply right now.
type View struct {
	Phase     domain.CartPhase
	Confirmed []domain.CartLine
	Staged    []domain.CartLine
	Pending   *domain.Selection
	Subtotal  float64
	Discount  Discount
}

func (w *Workflow) View(id domain.CustomerID) (View, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	c := w.liveCart(id)
	if c == nil {
		return View{Phase: domain.CartEmpty}, false
	}
	subtotal := c.ConfirmedSubtotal()
	return View{
		Phase:     c.Phase,
		Confirmed: slices.Clone(c.Confirmed),
		Staged:    slices.Clone(c.Staged),
		Pending:   c.Pending,
		Subtotal:  subtotal,
		Discount:  ComputeDiscount(w.cfg.Pricing, subtotal),
	}, true
}

type CheckoutOutcome int

const (
	CheckoutEmpty CheckoutOutcome = iota
	CheckoutAwaitDelivery
	CheckoutNotAwaiting
	CheckoutCreated
	CheckoutFailed
)

type CheckoutResult struct {
	Outcome  CheckoutOutcome
	Subtotal float64
	Discount Discount
	Order    *domain.Order
}

// BeginCheckout computes subtotal and discount once and locks them into
// the cart. With delivery enabled the customer still owes a pickup/ship
// choice, so the fee is not computed yet; otherwise the order is created
// immediately against the pickup path.
func (w *Workflow) BeginCheckout(ctx context.Context, id domain.CustomerID, customerName string) CheckoutResult {
	w.mu.Lock()
	c := w.liveCart(id)
	if c == nil || len(c.Confirmed) == 0 {
		w.mu.Unlock()
		return CheckoutResult{Outcome: CheckoutEmpty}
	}
	subtotal := c.ConfirmedSubtotal()
	d := ComputeDiscount(w.cfg.Pricing, subtotal)
	c.LockedSubtotal = subtotal
	c.LockedDiscount = d.Amount
	c.LockedDiscountPercent = d.Percent
	c.LockedDiscountLabel = d.Label
	c.LastActivity = w.now()

	if w.cfg.Pricing.DeliveryEnabled {
		c.Phase = domain.CartAwaitingDelivery
		c.Staged = nil
		c.Pending = nil
		w.mu.Unlock()
		return CheckoutResult{Outcome: CheckoutAwaitDelivery, Subtotal: subtotal, Discount: d}
	}
	w.mu.Unlock()
	return w.createOrder(ctx, id, customerName, domain.DeliveryPickup)
}

// ResolveDelivery finishes a checkout that was waiting on the
// pickup/delivery choice. Anything but a recognized choice is rejected by
// the caller before reaching here.
func (w *Workflow) ResolveDelivery(ctx context.Context, id domain.CustomerID, customerName string, mode domain.DeliveryMode) CheckoutResult {
	w.mu.Lock()
	c := w.liveCart(id)
	if c == nil || c.Phase != domain.CartAwaitingDelivery {
		w.mu.Unlock()
		return CheckoutResult{Outcome: CheckoutNotAwaiting}
	}
	w.mu.Unlock()
	return w.createOrder(ctx, id, customerName, mode)
}

// createOrder builds the order from the locked values, hands it to the
// order sink (which assigns the sequential id atomically) and destroys the
// cart. On sink failure the cart is kept so the customer can retry.
func (w *Workflow) createOrder(ctx context.Context, id domain.CustomerID, customerName string, mode domain.DeliveryMode) CheckoutResult {
	w.mu.Lock()
	c := w.liveCart(id)
	if c == nil || len(c.Confirmed) == 0 {
		w.mu.Unlock()
		return CheckoutResult{Outcome: CheckoutEmpty}
	}

	discounted := c.LockedSubtotal - c.LockedDiscount
	var fee float64
	if mode == domain.DeliveryShipping {
		fee = ComputeDeliveryFee(w.cfg.Pricing, discounted)
	}

	order := &domain.Order{
		CustomerID:      id,
		CustomerName:    customerName,
		CreatedAt:       w.now(),
		Lines:           slices.Clone(c.Confirmed),
		Subtotal:        c.LockedSubtotal,
		DiscountAmount:  c.LockedDiscount,
		DiscountPercent: c.LockedDiscountPercent,
		DiscountLabel:   c.LockedDiscountLabel,
		DeliveryFee:     fee,
		Total:           discounted + fee,
		DeliveryMode:    mode,
		Fulfillment:     domain.FulfillmentPending,
		Payment:         domain.PaymentUnpaid,
	}
	// Release the map lock for the persistence call; the engine already
	// serializes turns per customer.
	w.mu.Unlock()

	if err := w.orders.CreateOrder(ctx, order); err != nil {
		observability.Logger().Error("order persistence failed",
			"customer_id", id,
			"error", err)
		return CheckoutResult{Outcome: CheckoutFailed}
	}

	w.mu.Lock()
	delete(w.carts, id)
	w.mu.Unlock()

	return CheckoutResult{Outcome: CheckoutCreated, Order: order}
}
