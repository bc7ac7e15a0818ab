package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/pedidosbot/pedidos-agent/internal/app/engine"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
	"github.com/pedidosbot/pedidos-agent/internal/observability"
)

type Server struct {
	engine *engine.Engine
}

// NewServer exposes the engine to the transport collaborator:
// POST /webhook for inbound messages, GET /healthz for probes.
func NewServer(eng *engine.Engine) http.Handler {
	s := &Server{engine: eng}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/webhook", s.handleWebhook)

	return chainMiddlewares(mux, withLogging, withCORS, withRequestID)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type webhookRequest struct {
	CustomerID  string    `json:"customer_id"`
	DisplayName string    `json:"display_name,omitempty"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp,omitempty"`
}

type webhookResponse struct {
	Reply   string `json:"reply"`
	Ignored bool   `json:"ignored,omitempty"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	var req webhookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if req.CustomerID == "" {
		badRequest(w, "customer_id is required")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		badRequest(w, "text is required")
		return
	}
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	reply, err := s.engine.HandleMessage(r.Context(), domain.InboundMessage{
		CustomerID:  domain.CustomerID(req.CustomerID),
		DisplayName: req.DisplayName,
		Text:        req.Text,
		Timestamp:   ts,
	})
	if err != nil {
		observability.LoggerFromContext(r.Context()).Error("handle message failed", "error", err)
		internalError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, webhookResponse{
		Reply:   reply,
		Ignored: reply == "",
	})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
