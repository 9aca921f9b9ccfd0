package handlers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gridmarket/backend/services/api-gateway/internal/clients"
	"gridmarket/backend/services/api-gateway/internal/http/handlers"
)

type upstreamCall struct {
	method    string
	path      string
	query     string
	body      string
	requestID string
}

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *[]upstreamCall) {
	t.Helper()
	var calls []upstreamCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		calls = append(calls, upstreamCall{
			method:    r.Method,
			path:      r.URL.Path,
			query:     r.URL.RawQuery,
			body:      string(b),
			requestID: r.Header.Get("X-Request-Id"),
		})
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestProxyStripsPrefixAndRelaysResponse(t *testing.T) {
	upstream, calls := newUpstream(t, http.StatusCreated, `{"id":"prd_1"}`)
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	req := httptest.NewRequest(http.MethodPost, "/api/producers?verbose=1", strings.NewReader(`{"name":"farm"}`))
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	h.Proxy(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"id":"prd_1"}`, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	require.Len(t, *calls, 1)
	got := (*calls)[0]
	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/producers", got.path)
	assert.Equal(t, "verbose=1", got.query)
	assert.Equal(t, `{"name":"farm"}`, got.body)
	assert.Equal(t, "req-42", got.requestID)
}

func TestProxyRelaysNoContent(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusNoContent, "")
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodDelete, "/api/consumers/con_1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestProxyRelaysUpstreamErrors(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusConflict, `{"error":"market: insufficient budget"}`)
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{}`)))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "insufficient budget")
}

func TestProxyUnavailableUpstream(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	h := handlers.NewMarketHandlers(clients.NewMarketClient(url, http.DefaultClient), zaptest.NewLogger(t))
	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodGet, "/api/producers", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.JSONEq(t, `{"error":"market service unavailable"}`, rec.Body.String())
}

func TestProxyRejectsOversizedBody(t *testing.T) {
	upstream, calls := newUpstream(t, http.StatusOK, `{}`)
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	big := strings.Repeat("x", 2<<20)
	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodPost, "/api/producers", strings.NewReader(big)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Empty(t, *calls)
}

func TestHealth(t *testing.T) {
	upstream, _ := newUpstream(t, http.StatusOK, `{"status":"ok"}`)
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","market":"ok"}`, rec.Body.String())

	down, _ := newUpstream(t, http.StatusServiceUnavailable, `{"status":"unavailable"}`)
	h = handlers.NewMarketHandlers(clients.NewMarketClient(down.URL, down.Client()), zaptest.NewLogger(t))

	rec = httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProxyRelaysLargeResponseWhole(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"transactions":[`)
	for i := 0; sb.Len() < 5<<20; i++ {
		if i > 0 {
			sb.WriteString(",")
		}
		sb.WriteString(`{"id":"txn_0000000000000000","energy_amount":"10","total_price":"20"}`)
	}
	sb.WriteString(`]}`)
	payload := sb.String()

	upstream, _ := newUpstream(t, http.StatusOK, payload)
	h := handlers.NewMarketHandlers(clients.NewMarketClient(upstream.URL, upstream.Client()), zaptest.NewLogger(t))

	rec := httptest.NewRecorder()
	h.Proxy(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, len(payload), rec.Body.Len())
	assert.True(t, json.Valid(rec.Body.Bytes()))
}
