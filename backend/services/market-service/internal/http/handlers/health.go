package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Pinger reports backend health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SubscriberCounter reports connected ledger feed subscribers.
type SubscriberCounter interface {
	Count() int
}

type healthResponse struct {
	Status          string `json:"status"`
	FeedSubscribers *int   `json:"feed_subscribers,omitempty"`
}

// NewHealthHandler returns GET /health. It fails with 503 when the store is unreachable.
// feed may be nil when the ledger feed is disabled.
func NewHealthHandler(store Pinger, feed SubscriberCounter, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
			return
		}

		resp := healthResponse{Status: "ok"}
		if feed != nil {
			n := feed.Count()
			resp.FeedSubscribers = &n
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
