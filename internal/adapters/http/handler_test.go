package httpadapter

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memstore "github.com/pedidosbot/pedidos-agent/internal/adapters/storage/memory"
	cartapp "github.com/pedidosbot/pedidos-agent/internal/app/cart"
	"github.com/pedidosbot/pedidos-agent/internal/app/engine"
	"github.com/pedidosbot/pedidos-agent/internal/catalog"
	"github.com/pedidosbot/pedidos-agent/internal/domain"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()

	cat := &domain.Catalog{Categories: []domain.Category{{
		Name: "libreria",
		Subcategories: []domain.Subcategory{{
			Name: "cuadernos",
			Products: []domain.Product{
				{Name: "cuaderno_a4", Price: 1500, InStock: true},
			},
		}},
	}}}

	index, err := catalog.NewIndex(memstore.NewCatalogStore(cat))
	require.NoError(t, err)

	orders := memstore.NewOrderStore()
	eng := engine.New(engine.Config{},
		index,
		cartapp.NewWorkflow(cartapp.Config{}, orders),
		engine.NewSessionManager(0),
		orders,
		nil,
	)
	return NewServer(eng)
}

func postJSON(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestHealthzRejectsPost(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestWebhookHappyPath(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec := postJSON(t, h, `{"customer_id":"549110001111","display_name":"Ana","text":"quiero 2 cuadernos"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reply   string `json:"reply"`
		Ignored bool   `json:"ignored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ignored)
	assert.Contains(t, resp.Reply, "cuaderno a4 x2")
}

func TestWebhookValidation(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{"broken json", `{"customer_id":`},
		{"missing customer id", `{"text":"hola"}`},
		{"missing text", `{"customer_id":"549110001111"}`},
		{"blank text", `{"customer_id":"549110001111","text":"   "}`},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			rec := postJSON(t, h, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestWebhookRejectsGet(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStaleTimestampIsIgnored(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	rec := postJSON(t, h, `{"customer_id":"549110001111","text":"hola","timestamp":"2020-01-01T00:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Reply   string `json:"reply"`
		Ignored bool   `json:"ignored"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Ignored)
	assert.Empty(t, resp.Reply)
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()
	h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
