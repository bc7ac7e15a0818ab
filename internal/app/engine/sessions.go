package engine

import (
	"context"
	"sync"
	"time"

	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

// SessionState enumerates the conversation states. "idle" is implicit:
// no record means idle.
type SessionState string

const (
	StateBrowsing           SessionState = "browsing"
	StateSelectingProducts  SessionState = "selecting_products"
	StateChoosingCandidates SessionState = "choosing_among_candidates"
	StateConfirmingCheckout SessionState = "confirming_checkout"
)

type sessionRecord struct {
	State        SessionState
	LastActivity time.Time
}

// SessionManager keeps one finite-state record per customer with
// TTL-based expiry. Expiry is lazy on read (inclusive at the boundary)
// plus a periodic sweep; there is no timer per customer.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[domain.CustomerID]*sessionRecord
	ttl      time.Duration
	now      func() time.Time
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &SessionManager{
		sessions: make(map[domain.CustomerID]*sessionRecord),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get returns the current state; an expired record counts as absent.
func (m *SessionManager) Get(id domain.CustomerID) (SessionState, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok {
		return "", false
	}
	if m.now().Sub(rec.LastActivity) >= m.ttl {
		delete(m.sessions, id)
		return "", false
	}
	return rec.State, true
}

// Touch creates or refreshes the record with the given state.
func (m *SessionManager) Touch(id domain.CustomerID, state SessionState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = &sessionRecord{State: state, LastActivity: m.now()}
}

// TouchExisting refreshes only if a live record exists. Stateless
// informational intents use this: they must not create sessions.
func (m *SessionManager) TouchExisting(id domain.CustomerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.sessions[id]
	if !ok || m.now().Sub(rec.LastActivity) >= m.ttl {
		delete(m.sessions, id)
		return
	}
	rec.LastActivity = m.now()
}

func (m *SessionManager) Clear(id domain.CustomerID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// StartSweeper drops expired records in the background until ctx is done.
func (m *SessionManager) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.sweep()
			}
		}
	}()
}

func (m *SessionManager) sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, rec := range m.sessions {
		if now.Sub(rec.LastActivity) >= m.ttl {
			delete(m.sessions, id)
		}
	}
}
