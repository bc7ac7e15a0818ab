package engine

import (
	"fmt"
	"math"
	"strings"

	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// Long listings are cut at this many items with a "+N más" suffix, as the
// chat UI expects.
const maxListItems = 10

func (e *Engine) money(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%s%.0f", e.cfg.Currency, v)
	}
	return fmt.Sprintf("%s%.2f", e.cfg.Currency, v)
}

func bulletList(items []string) string {
	shown := items
	extra := 0
	if len(items) > maxListItems {
		shown = items[:maxListItems]
		extra = len(items) - maxListItems
	}
	var b strings.Builder
	for _, it := range shown {
		b.WriteString("• ")
		b.WriteString(it)
		b.WriteString("\n")
	}
	if extra > 0 {
		fmt.Fprintf(&b, "+%d más\n", extra)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) priceLabel(p domain.Product) string {
	price := e.money(p.UnitPrice())
	if !p.HasFixedPrice() {
		price = "desde " + price
	}
	if p.Unit != "" {
		price += " por " + p.Unit
	}
	return price
}

func (e *Engine) replyGreeting(name string, stats *domain.CustomerStats) string {
	who := strings.TrimSpace(name)
	if who == "" {
		who = "¿qué tal?"
	}
	greeting := fmt.Sprintf("¡Hola %s! Soy el asistente de %s.", who, e.cfg.Merchant.Name)
	if stats != nil && stats.OrderCount > 0 {
		greeting = fmt.Sprintf("¡Hola de nuevo, %s! Qué bueno verte otra vez.", who)
	}
	return greeting + "\nContame qué estás buscando, o escribí *catálogo* para ver los productos."
}

func (e *Engine) replyCatalog(snapshot []catalogItem) string {
	if len(snapshot) == 0 {
		return "Por ahora no tenemos productos cargados. ¡Volvé a consultarnos pronto!"
	}
	items := make([]string, 0, len(snapshot))
	for _, it := range snapshot {
		items = append(items, fmt.Sprintf("%s — %s", it.display, it.price))
	}
	return "Esto es lo que tenemos:\n" + bulletList(items) +
		"\n\nDecime qué querés y cuántos, por ejemplo: \"quiero 2 cuadernos\"."
}

type catalogItem struct {
	display string
	price   string
}

func (e *Engine) replyNothingFound() string {
	return "No encontré ese producto en el catálogo. Escribí *catálogo* para ver lo que tenemos."
}

func (e *Engine) replyStaged(lines []domain.CartLine) string {
	items := make([]string, 0, len(lines))
	for _, l := range lines {
		items = append(items, e.lineLabel(l))
	}
	return "Te anoté:\n" + bulletList(items) + "\n\n¿Lo agrego al pedido? Respondé *si* o *no*."
}

func (e *Engine) lineLabel(l domain.CartLine) string {
	label := fmt.Sprintf("%s x%d — %s", l.DisplayName, l.Quantity, e.money(l.Total()))
	if !l.InStock {
		label += " (sin stock)"
	}
	return label
}

func (e *Engine) replySelection(sel *domain.Selection) string {
	items := make([]string, 0, len(sel.Candidates))
	for i, c := range sel.Candidates {
		items = append(items, fmt.Sprintf("%d. %s — %s", i+1, c.DisplayName, e.money(c.UnitPrice)))
	}
	return fmt.Sprintf("Encontré varias opciones (x%d):\n%s\n\nRespondé con el número de la opción, o *cancelar*.",
		sel.Quantity, strings.Join(items, "\n"))
}

func (e *Engine) replyInvalidOption(sel *domain.Selection) string {
	return fmt.Sprintf("Esa opción no es válida. Elegí un número del 1 al %d, o escribí *cancelar*.",
		len(sel.Candidates))
}

func (e *Engine) replyOutOfStock(unavailable []domain.CartLine) string {
	items := make([]string, 0, len(unavailable))
	for _, l := range unavailable {
		items = append(items, l.DisplayName)
	}
	return "Estos productos están sin stock por el momento:\n" + bulletList(items) +
		"\n\n¿Seguimos solo con los disponibles? Respondé *si* para continuar o *no* para descartar."
}

func (e *Engine) replyConfirmed(confirmed []domain.CartLine, subtotal float64) string {
	items := make([]string, 0, len(confirmed))
	for _, l := range confirmed {
		items = append(items, e.lineLabel(l))
	}
	return "¡Listo! Agregué al pedido:\n" + bulletList(items) +
		fmt.Sprintf("\n\nSubtotal: %s.\nPodés seguir pidiendo, ver el *carrito* o *confirmar* el pedido.", e.money(subtotal))
}

func (e *Engine) replyCartView(v cartapp.View) string {
	if len(v.Confirmed) == 0 {
		return "Tu carrito está vacío. Contame qué querés pedir."
	}
	items := make([]string, 0, len(v.Confirmed))
	for _, l := range v.Confirmed {
		items = append(items, e.lineLabel(l))
	}
	msg := "Tu pedido hasta ahora:\n" + bulletList(items) +
		fmt.Sprintf("\n\nSubtotal: %s", e.money(v.Subtotal))
	if v.Discount.Amount > 0 {
		msg += fmt.Sprintf("\nDescuento (%s): -%s", v.Discount.Label, e.money(v.Discount.Amount))
	}
	return msg + "\n\nEscribí *confirmar* para cerrar el pedido o *cancelar* para vaciarlo."
}

func (e *Engine) replyDeliveryChoice(subtotal float64, d cartapp.Discount) string {
	msg := fmt.Sprintf("Subtotal: %s", e.money(subtotal))
	if d.Amount > 0 {
		msg += fmt.Sprintf("\nDescuento (%s): -%s\nTotal con descuento: %s",
			d.Label, e.money(d.Amount), e.money(subtotal-d.Amount))
	}
	return msg + "\n\n¿Cómo lo querés recibir?\n1. Retiro por el local\n2. Envío a domicilio\n\nRespondé *1* o *2*."
}

func (e *Engine) replyInvalidDelivery() string {
	return "No entendí la opción. Respondé *1* para retirar por el local o *2* para envío a domicilio."
}

func (e *Engine) replyOrderCreated(o *domain.Order) string {
	items := make([]string, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, e.lineLabel(l))
	}
	var b strings.Builder
	fmt.Fprintf(&b, "¡Pedido %s confirmado! 🎉\n\n", o.ID)
	b.WriteString(bulletList(items))
	fmt.Fprintf(&b, "\n\nSubtotal: %s", e.money(o.Subtotal))
	if o.DiscountAmount > 0 {
		fmt.Fprintf(&b, "\nDescuento (%s): -%s", o.DiscountLabel, e.money(o.DiscountAmount))
	}
	if o.DeliveryMode == domain.DeliveryShipping {
		if o.DeliveryFee > 0 {
			fmt.Fprintf(&b, "\nEnvío: %s", e.money(o.DeliveryFee))
		} else {
			b.WriteString("\nEnvío: ¡gratis!")
		}
	}
	fmt.Fprintf(&b, "\nTotal: %s\n\n", e.money(o.Total))
	if o.DeliveryMode == domain.DeliveryShipping {
		b.WriteString("En breve coordinamos la entrega. ¡Gracias por tu compra!")
	} else {
		b.WriteString("Te esperamos en el local para retirarlo. ¡Gracias por tu compra!")
	}
	return b.String()
}

func (e *Engine) replyEmptyCartCheckout() string {
	return "Todavía no tenés productos confirmados en el carrito. Contame qué querés pedir."
}

func (e *Engine) replyCancelled(keptConfirmed bool) string {
	if keptConfirmed {
		return "Listo, descarté lo pendiente. Tu pedido confirmado sigue igual; escribí *carrito* para verlo."
	}
	return "Listo, cancelé el pedido. Cuando quieras empezamos de nuevo."
}

func (e *Engine) replyProcessingFailed() string {
	return "Uy, no pudimos procesar tu pedido en este momento. Probá de nuevo en unos minutos."
}

func (e *Engine) replyNotUnderstood() string {
	return "No te entendí 🤔. Podés escribir *catálogo* para ver los productos, *carrito* para ver tu pedido, o preguntarme por horarios, dirección y medios de pago."
}

// replyStock only prompts for a product: a stock question that names one
// is consumed by product detection first, and the staged lines already
// carry their "(sin stock)" marker.
func (e *Engine) replyStock() string {
	return "Decime de qué producto querés saber el stock, por ejemplo: \"¿hay cuadernos?\"."
}
