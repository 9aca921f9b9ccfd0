package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gridmarket/backend/services/market-service/internal/http/handlers"
	"gridmarket/backend/services/market-service/internal/lock"
	"gridmarket/backend/services/market-service/internal/matcher"
	"gridmarket/backend/services/market-service/internal/metrics"
	"gridmarket/backend/services/market-service/internal/registry"
	"gridmarket/backend/services/market-service/internal/settlement"
	"gridmarket/backend/services/market-service/internal/store/memory"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zaptest.NewLogger(t)
	st := memory.New()
	locks := lock.NewKeyedMutex()
	reg := registry.New(st, locks, logger)
	eng := settlement.New(st, locks, logger)

	return NewRouter(Routes{
		Producers:    handlers.NewProducerHandlers(reg, logger),
		Consumers:    handlers.NewConsumerHandlers(reg, matcher.New(st, logger), logger),
		Transactions: handlers.NewTransactionHandlers(eng, logger),
		Health:       handlers.NewHealthHandler(st, nil, logger),
		Metrics:      metrics.Handler(),
	}, metrics.InstrumentHandler)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestMarketFlow(t *testing.T) {
	h := newTestRouter(t)

	rec, producer := do(t, h, http.MethodPost, "/producers", `{"name":"farm","energy_capacity":"100","price_per_kwh":2}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	producerID := producer["id"].(string)
	assert.Equal(t, "100", producer["available_energy"])

	rec, consumer := do(t, h, http.MethodPost, "/consumers", `{"name":"home","energy_need":"10","budget":"30"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	consumerID := consumer["id"].(string)

	rec, match := do(t, h, http.MethodGet, "/consumers/"+consumerID+"/match", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, producerID, match["producer_id"])

	rec, txn := do(t, h, http.MethodPost, "/transactions", `{"consumer_id":"`+consumerID+`","producer_id":"`+producerID+`"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "20", txn["total_price"])
	txnID := txn["id"].(string)

	rec, got := do(t, h, http.MethodGet, "/transactions/"+txnID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, txnID, got["id"])

	rec, p := do(t, h, http.MethodGet, "/producers/"+producerID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "90", p["available_energy"])

	rec, c := do(t, h, http.MethodGet, "/consumers/"+consumerID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", c["budget"])

	rec, list := do(t, h, http.MethodGet, "/transactions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, list["transactions"], 1)

	rec, body := do(t, h, http.MethodPost, "/transactions", `{"consumer_id":"`+consumerID+`","producer_id":"`+producerID+`"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, body["error"], "insufficient budget")
}

func TestValidationErrorsCarryField(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodPost, "/producers", `{"name":"  ","energy_capacity":"1","price_per_kwh":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name", body["field"])

	rec, body = do(t, h, http.MethodPost, "/consumers", `{"name":"c","energy_need":"-1","budget":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "energy_need", body["field"])

	rec, body = do(t, h, http.MethodPost, "/consumers", `{"name":"c","budget":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "energy_need", body["field"])

	rec, _ = do(t, h, http.MethodPost, "/producers", `{"name":"p","energy_capacity":"abc","price_per_kwh":"1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/producers", `{"name":"p","unknown":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(t, h, http.MethodPost, "/transactions", `{"producer_id":"prd_1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "consumer_id", body["field"])
}

func TestNotFoundAndNoMatch(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodGet, "/producers/prd_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/consumers/con_missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, consumer := do(t, h, http.MethodPost, "/consumers", `{"name":"home","energy_need":"10","budget":"5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	_, _ = do(t, h, http.MethodPost, "/producers", `{"name":"farm","energy_capacity":"100","price_per_kwh":"0.51"}`)

	rec, body := do(t, h, http.MethodGet, "/consumers/"+consumer["id"].(string)+"/match", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, body["error"], "no matching producer")
}

func TestPatchAndDeleteConsumer(t *testing.T) {
	h := newTestRouter(t)

	_, consumer := do(t, h, http.MethodPost, "/consumers", `{"name":"home","energy_need":"10","budget":"30"}`)
	id := consumer["id"].(string)

	rec, updated := do(t, h, http.MethodPatch, "/consumers/"+id, `{"budget":"45.5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "45.5", updated["budget"])
	assert.Equal(t, "10", updated["energy_need"])

	rec, _ = do(t, h, http.MethodDelete, "/consumers/"+id, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, list := do(t, h, http.MethodGet, "/consumers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, list["consumers"])
}

func TestPatchProducerBelowAvailableConflicts(t *testing.T) {
	h := newTestRouter(t)

	_, producer := do(t, h, http.MethodPost, "/producers", `{"name":"farm","energy_capacity":"100","price_per_kwh":"2"}`)
	rec, _ := do(t, h, http.MethodPatch, "/producers/"+producer["id"].(string), `{"energy_capacity":"50"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestRouter(t)

	rec, body := do(t, h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.NotContains(t, body, "feed_subscribers")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gridmarket_http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	h := newTestRouter(t)
	rec, _ := do(t, h, http.MethodPut, "/producers", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
