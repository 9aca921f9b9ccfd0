package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gridmarket/backend/services/api-gateway/internal/clients"
)

const (
	apiPrefix    = "/api"
	maxBodyBytes = 1 << 20
)

// MarketForwarder is the upstream used by MarketHandlers.
type MarketForwarder interface {
	Forward(ctx context.Context, method, path, rawQuery string, body []byte, in http.Header) (*http.Response, error)
	Health(ctx context.Context) (*clients.Response, error)
}

// MarketHandlers proxies market-service endpoints.
type MarketHandlers struct {
	client MarketForwarder
	logger *zap.Logger
}

// NewMarketHandlers returns handler.
func NewMarketHandlers(client MarketForwarder, logger *zap.Logger) *MarketHandlers {
	return &MarketHandlers{client: client, logger: logger}
}

// Proxy handles /api/producers, /api/consumers and /api/transactions.
func (h *MarketHandlers) Proxy(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	path := strings.TrimPrefix(r.URL.Path, apiPrefix)
	resp, err := h.client.Forward(r.Context(), r.Method, path, r.URL.RawQuery, body, r.Header)
	if err != nil {
		h.logger.Error("market proxy failed",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Error(err),
		)
		writeError(w, http.StatusBadGateway, "market service unavailable")
		return
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.WriteHeader(resp.StatusCode)
	if n, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Warn("market proxy response cut short",
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int64("bytes", n),
			zap.Error(err),
		)
	}
}

// Health reports gateway health together with market-service reachability.
func (h *MarketHandlers) Health(w http.ResponseWriter, r *http.Request) {
	resp, err := h.client.Health(r.Context())
	if err != nil || resp.Status != http.StatusOK {
		if err != nil {
			h.logger.Warn("market health check failed", zap.Error(err))
		}
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "degraded",
			"market": "unavailable",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"market": "ok",
	})
}
