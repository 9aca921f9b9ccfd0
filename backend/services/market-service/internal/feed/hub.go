// Package feed streams committed ledger entries to websocket subscribers.
package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/metrics"
	"gridmarket/backend/services/market-service/internal/models"
)

// EventTransactionSettled is the only event type the feed emits.
const EventTransactionSettled = "transaction.settled"

// Event is the JSON frame sent to subscribers.
type Event struct {
	Type        string             `json:"type"`
	Transaction models.Transaction `json:"transaction"`
}

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	WriteTimeout time.Duration
	PingInterval time.Duration
	SendBuffer   int
}

// Hub tracks subscriber connections and fans out published transactions.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*client
	opts     Options
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub builds a hub.
func NewHub(opts Options, logger *zap.Logger) *Hub {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 16
	}
	return &Hub{
		clients: make(map[string]*client),
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger,
	}
}

// Publish broadcasts txn to every subscriber. Slow subscribers drop frames instead of blocking.
func (h *Hub) Publish(txn models.Transaction) {
	msg, err := json.Marshal(Event{Type: EventTransactionSettled, Transaction: txn})
	if err != nil {
		h.logger.Error("failed to encode feed event", zap.String("transaction_id", txn.ID), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.enqueue(msg)
	}
}

// HandleWS is the HTTP handler for the feed endpoint.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := newClient(uuid.NewString(), conn, h.opts, h.logger, h.remove)
	h.add(c)
	go c.writePump()
	go c.readPump()
	h.logger.Info("feed subscriber connected", zap.String("subscriber_id", c.id), zap.String("remote_addr", r.RemoteAddr))
}

// Start pings subscribers until ctx is done and then disconnects them all.
func (h *Hub) Start(ctx context.Context) {
	ticker := time.NewTicker(h.opts.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-ticker.C:
			h.mu.RLock()
			for _, c := range h.clients {
				if err := c.ping(); err != nil {
					h.logger.Debug("feed ping failed", zap.String("subscriber_id", c.id), zap.Error(err))
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	metrics.FeedConnected(1)
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return
	}
	delete(h.clients, id)
	metrics.FeedConnected(-1)
}

func (h *Hub) closeAll() {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.close()
	}
}
