package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func request(h http.Handler, remote string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/producers", nil)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterRejectsOverBurst(t *testing.T) {
	rl := NewRateLimiter(0.001, 2, zaptest.NewLogger(t))
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, request(h, "10.0.0.1:1002"))

	// other clients keep their own bucket
	assert.Equal(t, http.StatusOK, request(h, "10.0.0.2:1000"))
	assert.Equal(t, 2, rl.tracked())
}

func TestRateLimiterResponseBody(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, zaptest.NewLogger(t))
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))

	request(h, "10.0.0.1:1")
	req := httptest.NewRequest(http.MethodGet, "/api/producers", nil)
	req.RemoteAddr = "10.0.0.1:2"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())
}

func TestSweepDropsIdleClients(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(10, 10, zaptest.NewLogger(t))
	rl.now = func() time.Time { return now }

	rl.limiter("a")
	now = now.Add(5 * time.Minute)
	rl.limiter("b")

	assert.Equal(t, 1, rl.Sweep(time.Minute))
	assert.Equal(t, 1, rl.tracked())
}

func TestClientKeyFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "unix-socket"
	assert.Equal(t, "unix-socket", clientKey(req))
}
