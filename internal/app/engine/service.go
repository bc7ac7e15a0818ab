package engine

import (
	"context"
	"strings"
	"sync"
	"time"

	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

// MerchantInfo holds the fixed texts used by the informational intents.
type MerchantInfo struct {
	Name    string
	Hours   string
	Address string
	Payment string
	Contact string
}

type Config struct {
	Currency        string
	FallbackTimeout time.Duration
	Merchant        MerchantInfo
}

// Engine is the conversational order engine: it classifies each inbound
// message against the session state and a fixed priority cascade of
// intents, and routes it to the matching index or the cart workflow.
type Engine struct {
	cfg      Config
	index    *catalog.Index
	cart     *cartapp.Workflow
	sessions *SessionManager
	orders   domain.OrderStore
	fallback domain.FallbackClient
	rules    []intentRule

	// One mutex per customer so two racing messages from the same
	// contact (duplicate delivery, retried webhook) are serialized.
	// Entries are refcounted and removed once no turn holds or waits
	// for them, so the table only holds in-flight customers.
	lockMu sync.Mutex
	locks  map[domain.CustomerID]*customerLock

	startedAt time.Time
}

type customerLock struct {
	mu   sync.Mutex
	refs int
}

func New(
	cfg Config,
	index *catalog.Index,
	cart *cartapp.Workflow,
	sessions *SessionManager,
	orders domain.OrderStore,
	fallback domain.FallbackClient,
) *Engine {
	if cfg.Currency == "" {
		cfg.Currency = "$"
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 15 * time.Second
	}
	if cfg.Merchant.Name == "" {
		cfg.Merchant.Name = "la tienda"
	}
	e := &Engine{
		cfg:       cfg,
		index:     index,
		cart:      cart,
		sessions:  sessions,
		orders:    orders,
		fallback:  fallback,
		locks:     make(map[domain.CustomerID]*customerLock),
		startedAt: time.Now(),
	}
	e.rules = cascade()
	return e
}

// turn carries one message through the cascade.
type turn struct {
	customer domain.CustomerID
	name     string
	raw      string
	text     string // folded: lowercased, accents stripped

	// set by the detection predicate so the handler doesn't search twice
	detected []domain.CartLine

	// set by handlers that complete a transaction
	endSession bool
}

// HandleMessage runs one customer turn and returns the plain-text reply.
// An empty reply means "send nothing" (stale or empty message).
func (e *Engine) HandleMessage(ctx context.Context, msg domain.InboundMessage) (string, error) {
	lock := e.acquireTurn(msg.CustomerID)
	defer e.releaseTurn(msg.CustomerID, lock)

	log := observability.LoggerFromContext(ctx).With("customer_id", msg.CustomerID)

	// Messages queued from before this process started must not replay
	// into a fresh conversation.
	if !msg.Timestamp.IsZero() && msg.Timestamp.Before(e.startedAt) {
		log.Info("stale message ignored", "message_ts", msg.Timestamp)
		e.sessions.Clear(msg.CustomerID)
		return "", nil
	}

	text := strings.TrimSpace(catalog.Fold(msg.Text))
	if text == "" {
		return "", nil
	}

	t := &turn{
		customer: msg.CustomerID,
		name:     msg.DisplayName,
		raw:      msg.Text,
		text:     text,
	}

	for _, r := range e.rules {
		if !r.match(e, t) {
			continue
		}
		reply := r.handle(ctx, e, t)
		e.refreshSession(t, r.stateless)
		log.Info("intent handled", "intent", r.name)
		return reply, nil
	}

	// The fallback rule matches everything; we only get here if the
	// cascade is misconfigured.
	return e.replyNotUnderstood(), nil
}

func (e *Engine) acquireTurn(id domain.CustomerID) *customerLock {
	e.lockMu.Lock()
	l, ok := e.locks[id]
	if !ok {
		l = &customerLock{}
		e.locks[id] = l
	}
	l.refs++
	e.lockMu.Unlock()

	l.mu.Lock()
	return l
}

// releaseTurn drops the turn lock and prunes the map entry when this was
// the last holder or waiter. Serialization only matters between in-flight
// turns, so an unreferenced entry can always go.
func (e *Engine) releaseTurn(id domain.CustomerID, l *customerLock) {
	l.mu.Unlock()

	e.lockMu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(e.locks, id)
	}
	e.lockMu.Unlock()
}

// refreshSession bumps the session after a resolved intent. Stateless
// intents only refresh an existing record; they never create one.
func (e *Engine) refreshSession(t *turn, stateless bool) {
	if t.endSession {
		e.sessions.Clear(t.customer)
		return
	}
	if stateless {
		e.sessions.TouchExisting(t.customer)
		return
	}
	state := StateBrowsing
	switch e.cart.Phase(t.customer) {
	case domain.CartAwaitingSelection:
		state = StateChoosingCandidates
	case domain.CartStaging, domain.CartConfirmed:
		state = StateSelectingProducts
	case domain.CartAwaitingDelivery:
		state = StateConfirmingCheckout
	}
	e.sessions.Touch(t.customer, state)
}
