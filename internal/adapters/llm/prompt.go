package llm

import (
	"fmt"
	"strings"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// PromptConfig carries the merchant facts the fallback is allowed to
// answer with.
type PromptConfig struct {
	MerchantName string
	Hours        string
	Address      string
	Payment      string
	Contact      string
}

const baseSystemPrompt = `
You are the chat assistant of a small retail shop. A customer sent a message
that the structured order flow could not classify.

Your role:
- Answer briefly and helpfully, in the SAME LANGUAGE as the customer (usually Spanish).
- You may only talk about the shop: its products, hours, location, payment methods and how to order.
- If the question is unrelated to the shop, say politely that you can only help with the shop.
- Never invent prices, stock or promotions. If you don't know, say so and suggest writing "catálogo".
- Keep it to 1-3 short sentences. No markdown headings, no lists longer than 3 items.
`

// BuildSystemPrompt appends the merchant facts to the base instructions.
func BuildSystemPrompt(cfg PromptConfig) string {
	var b strings.Builder
	b.WriteString(baseSystemPrompt)
	b.WriteString("\nShop facts you can use:\n")
	if cfg.MerchantName != "" {
		fmt.Fprintf(&b, "- Name: %s\n", cfg.MerchantName)
	}
	if cfg.Hours != "" {
		fmt.Fprintf(&b, "- Hours: %s\n", cfg.Hours)
	}
	if cfg.Address != "" {
		fmt.Fprintf(&b, "- Address: %s\n", cfg.Address)
	}
	if cfg.Payment != "" {
		fmt.Fprintf(&b, "- Payment: %s\n", cfg.Payment)
	}
	if cfg.Contact != "" {
		fmt.Fprintf(&b, "- Contact: %s\n", cfg.Contact)
	}
	return b.String()
}

// BuildUserPrompt wraps the raw customer message with minimal context.
func BuildUserPrompt(text string, cctx domain.CustomerContext) string {
	who := strings.TrimSpace(cctx.DisplayName)
	if who == "" {
		who = "a customer"
	}
	return fmt.Sprintf("Message from %s:\n%s", who, text)
}
