package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"

	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

// intentRule is one step of the classification cascade. Rules are
// evaluated strictly in slice order; the first matching rule handles the
// turn. The order is a documented total priority, exercised by tests.
type intentRule struct {
	name      string
	stateless bool
	match     func(e *Engine, t *turn) bool
	handle    func(ctx context.Context, e *Engine, t *turn) string
}

func cascade() []intentRule {
	return []intentRule{
		{name: "resolver_seleccion", match: matchSelection, handle: handleSelection},
		{name: "si_no_pendiente", match: matchStagedYesNo, handle: handleStagedYesNo},
		{name: "ver_carrito", match: matchCartView, handle: handleCartView},
		{name: "confirmar_pedido", match: matchCheckout, handle: handleCheckout},
		{name: "cancelar", match: matchCancel, handle: handleCancel},
		{name: "eleccion_entrega", match: matchDeliveryChoice, handle: handleDeliveryChoice},
		{name: "ver_catalogo", match: matchBrowse, handle: handleBrowse},
		{name: "saludo", match: matchGreeting, handle: handleGreeting},
		{name: "info", stateless: true, match: matchInfo, handle: handleInfo},
		{name: "codigo_barras", match: matchBarcode, handle: handleBarcode},
		{name: "detectar_productos", match: matchDetect, handle: handleDetect},
		{name: "consulta_stock", stateless: true, match: matchStock, handle: handleStock},
		{name: "fallback", stateless: true, match: matchAlways, handle: handleFallback},
	}
}

// ─────────────────────────────────────────────
// Text helpers
// ─────────────────────────────────────────────

func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func startsWithAny(text string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(text, p) {
			return true
		}
	}
	return false
}

func hasToken(text string, words ...string) bool {
	for _, tok := range catalog.Tokens(text) {
		for _, w := range words {
			if tok == w {
				return true
			}
		}
	}
	return false
}

func isYes(text string) bool {
	return hasToken(text, "si", "dale", "ok", "bueno", "claro", "obvio")
}

func isNo(text string) bool {
	return hasToken(text, "no", "nop")
}

func isCancelWord(text string) bool {
	return containsAny(text, "cancelar", "cancela", "no quiero", "dejalo", "olvidalo")
}

func parseChoice(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, false
	}
	return n, true
}

func isAllDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ─────────────────────────────────────────────
// 1. Pending-selection resolution
// ─────────────────────────────────────────────

func matchSelection(e *Engine, t *turn) bool {
	return e.cart.Phase(t.customer) == domain.CartAwaitingSelection
}

func handleSelection(ctx context.Context, e *Engine, t *turn) string {
	sel := e.cart.PendingSelection(t.customer)
	if sel == nil {
		return e.replyNotUnderstood()
	}
	if isCancelWord(t.text) {
		e.cart.CancelPending(t.customer)
		return e.replyCancelled(true)
	}
	if n, ok := parseChoice(t.text); ok {
		res := e.cart.ResolveSelection(t.customer, n)
		switch res.Outcome {
		case cartapp.SelectionStaged:
			return e.replyStaged(res.Staged)
		default:
			return e.replyInvalidOption(sel)
		}
	}
	// Refinement text: a new product mention replaces the pending set.
	if lines := e.index.Search(t.raw); len(lines) > 0 {
		qty := catalog.ExtractQuantity(t.raw)
		res := e.cart.StageDetected(t.customer, lines, qty)
		switch res.Outcome {
		case cartapp.StageNeedsSelection:
			return e.replySelection(&domain.Selection{Candidates: res.Candidates, Quantity: res.Quantity})
		case cartapp.StageStaged:
			return e.replyStaged(res.Staged)
		}
	}
	return e.replyInvalidOption(sel)
}

// ─────────────────────────────────────────────
// 2. Yes/no on staged items
// ─────────────────────────────────────────────

func matchStagedYesNo(e *Engine, t *turn) bool {
	if e.cart.Phase(t.customer) != domain.CartStaging {
		return false
	}
	return isYes(t.text) || isNo(t.text)
}

func handleStagedYesNo(ctx context.Context, e *Engine, t *turn) string {
	if isNo(t.text) {
		e.cart.RejectStaged(t.customer)
		return e.replyCancelled(true)
	}
	res := e.cart.ConfirmStaged(t.customer)
	switch res.Outcome {
	case cartapp.ConfirmOutOfStock:
		return e.replyOutOfStock(res.OutOfStock)
	case cartapp.ConfirmNothingLeft:
		return "Ninguno de esos productos está disponible ahora mismo. ¿Querés pedir otra cosa?"
	case cartapp.ConfirmDone:
		return e.replyConfirmed(res.Confirmed, res.Subtotal)
	default:
		return e.replyNotUnderstood()
	}
}

// ─────────────────────────────────────────────
// 3. Cart inspection
// ─────────────────────────────────────────────

func matchCartView(e *Engine, t *turn) bool {
	if containsAny(t.text, "cancelar", "vaciar", "borrar") {
		return false
	}
	return containsAny(t.text, "carrito", "mi pedido", "ver pedido", "que llevo", "como va el pedido")
}

func handleCartView(ctx context.Context, e *Engine, t *turn) string {
	v, _ := e.cart.View(t.customer)
	return e.replyCartView(v)
}

// ─────────────────────────────────────────────
// 4. Checkout confirmation
// ─────────────────────────────────────────────

func matchCheckout(e *Engine, t *turn) bool {
	return containsAny(t.text, "confirmar", "confirmo", "finalizar", "cerrar pedido", "comprar")
}

func handleCheckout(ctx context.Context, e *Engine, t *turn) string {
	res := e.cart.BeginCheckout(ctx, t.customer, t.name)
	switch res.Outcome {
	case cartapp.CheckoutEmpty:
		return e.replyEmptyCartCheckout()
	case cartapp.CheckoutAwaitDelivery:
		return e.replyDeliveryChoice(res.Subtotal, res.Discount)
	case cartapp.CheckoutCreated:
		t.endSession = true
		return e.replyOrderCreated(res.Order)
	default:
		return e.replyProcessingFailed()
	}
}

// ─────────────────────────────────────────────
// 5. Cancellation / removal
// ─────────────────────────────────────────────

func matchCancel(e *Engine, t *turn) bool {
	return isCancelWord(t.text) || containsAny(t.text, "vaciar", "borrar pedido", "borrar todo")
}

func handleCancel(ctx context.Context, e *Engine, t *turn) string {
	phase := e.cart.Phase(t.customer)
	wholeCart := containsAny(t.text, "vaciar", "borrar", "pedido", "todo")
	if !wholeCart && (phase == domain.CartStaging || phase == domain.CartAwaitingSelection) {
		e.cart.CancelPending(t.customer)
		return e.replyCancelled(true)
	}
	e.cart.Clear(t.customer)
	t.endSession = true
	return e.replyCancelled(false)
}

// ─────────────────────────────────────────────
// 6. Delivery-mode choice
// ─────────────────────────────────────────────

func matchDeliveryChoice(e *Engine, t *turn) bool {
	if e.cart.Phase(t.customer) != domain.CartAwaitingDelivery {
		return false
	}
	return isAllDigits(t.text) ||
		containsAny(t.text, "retiro", "retirar", "local", "envio", "enviar", "domicilio", "delivery")
}

func handleDeliveryChoice(ctx context.Context, e *Engine, t *turn) string {
	var mode domain.DeliveryMode
	switch {
	case t.text == "1" || containsAny(t.text, "retiro", "retirar", "local"):
		mode = domain.DeliveryPickup
	case t.text == "2" || containsAny(t.text, "envio", "enviar", "domicilio", "delivery"):
		mode = domain.DeliveryShipping
	default:
		return e.replyInvalidDelivery()
	}
	res := e.cart.ResolveDelivery(ctx, t.customer, t.name, mode)
	switch res.Outcome {
	case cartapp.CheckoutCreated:
		t.endSession = true
		return e.replyOrderCreated(res.Order)
	case cartapp.CheckoutNotAwaiting, cartapp.CheckoutEmpty:
		return e.replyEmptyCartCheckout()
	default:
		return e.replyProcessingFailed()
	}
}

// ─────────────────────────────────────────────
// 7. Catalog browsing
// ─────────────────────────────────────────────

func matchBrowse(e *Engine, t *turn) bool {
	return containsAny(t.text, "catalogo", "productos", "precios", "lista de precios", "que vendes", "que tenes", "menu")
}

func handleBrowse(ctx context.Context, e *Engine, t *turn) string {
	var items []catalogItem
	for _, m := range e.index.All() {
		items = append(items, catalogItem{
			display: m.DisplayName,
			price:   e.priceLabel(m.Product),
		})
	}
	return e.replyCatalog(items)
}

// ─────────────────────────────────────────────
// 8. Greeting
// ─────────────────────────────────────────────

func matchGreeting(e *Engine, t *turn) bool {
	return startsWithAny(t.text, "hola", "buenas", "buen dia", "buenos dias", "hey")
}

func handleGreeting(ctx context.Context, e *Engine, t *turn) string {
	stats, err := e.orders.GetCustomerStats(ctx, t.customer)
	if err != nil && !errors.Is(err, domain.ErrCustomerNotFound) {
		observability.LoggerFromContext(ctx).Error("customer stats lookup failed", "error", err)
	}
	return e.replyGreeting(t.name, stats)
}

// ─────────────────────────────────────────────
// 9. Informational intents
// ─────────────────────────────────────────────

func matchInfo(e *Engine, t *turn) bool {
	return infoReply(e, t.text) != ""
}

func handleInfo(ctx context.Context, e *Engine, t *turn) string {
	return infoReply(e, t.text)
}

func infoReply(e *Engine, text string) string {
	switch {
	case containsAny(text, "horario", "abren", "cierran", "abierto"):
		return e.cfg.Merchant.Hours
	case containsAny(text, "direccion", "ubicacion", "donde estan", "donde queda"):
		return e.cfg.Merchant.Address
	case containsAny(text, "medios de pago", "formas de pago", "efectivo", "tarjeta", "transferencia", "mercado pago"):
		return e.cfg.Merchant.Payment
	case containsAny(text, "telefono", "contacto", "whatsapp"):
		return e.cfg.Merchant.Contact
	}
	return ""
}

// ─────────────────────────────────────────────
// 10. Barcode lookup (exact match, separate from free-text search)
// ─────────────────────────────────────────────

func matchBarcode(e *Engine, t *turn) bool {
	return isAllDigits(t.text) && len(t.text) >= 8 && len(t.text) <= 14
}

func handleBarcode(ctx context.Context, e *Engine, t *turn) string {
	m, ok := e.index.ByBarcode(t.text)
	if !ok {
		return "No encontré ningún producto con ese código."
	}
	return "Ese código corresponde a: " + m.DisplayName + " — " + e.priceLabel(m.Product)
}

// ─────────────────────────────────────────────
// 11. Free-text product detection
// ─────────────────────────────────────────────

func matchDetect(e *Engine, t *turn) bool {
	t.detected = e.index.Search(t.raw)
	return len(t.detected) > 0
}

func handleDetect(ctx context.Context, e *Engine, t *turn) string {
	qty := catalog.ExtractQuantity(t.raw)
	res := e.cart.StageDetected(t.customer, t.detected, qty)
	switch res.Outcome {
	case cartapp.StageNeedsSelection:
		return e.replySelection(&domain.Selection{Candidates: res.Candidates, Quantity: res.Quantity})
	case cartapp.StageStaged:
		return e.replyStaged(res.Staged)
	default:
		return e.replyNothingFound()
	}
}

// ─────────────────────────────────────────────
// 12. Stock inquiry (reached only when no product matched)
// ─────────────────────────────────────────────

func matchStock(e *Engine, t *turn) bool {
	return hasToken(t.text, "stock", "hay", "tenes", "tienen", "queda", "quedan")
}

func handleStock(ctx context.Context, e *Engine, t *turn) string {
	return e.replyStock()
}

// ─────────────────────────────────────────────
// 13. Language-model fallback, then the default reply
// ─────────────────────────────────────────────

func matchAlways(e *Engine, t *turn) bool { return true }

func handleFallback(ctx context.Context, e *Engine, t *turn) string {
	if e.fallback == nil {
		return e.replyNotUnderstood()
	}
	askCtx, cancel := context.WithTimeout(ctx, e.cfg.FallbackTimeout)
	defer cancel()

	answer, err := e.fallback.Ask(askCtx, t.raw, domain.CustomerContext{
		CustomerID:  t.customer,
		DisplayName: t.name,
	})
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("fallback unavailable", "error", err)
		return e.replyNotUnderstood()
	}
	if strings.TrimSpace(answer) == "" {
		return e.replyNotUnderstood()
	}
	return answer
}
