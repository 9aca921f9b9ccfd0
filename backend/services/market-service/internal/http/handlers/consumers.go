package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/registry"
)

// ConsumerHandlers serves /consumers.
type ConsumerHandlers struct {
	registry Registry
	matcher  Matcher
	logger   *zap.Logger
}

// NewConsumerHandlers returns handlers.
func NewConsumerHandlers(reg Registry, matcher Matcher, logger *zap.Logger) *ConsumerHandlers {
	return &ConsumerHandlers{registry: reg, matcher: matcher, logger: logger}
}

type createConsumerRequest struct {
	Name       string           `json:"name"`
	EnergyNeed *decimal.Decimal `json:"energy_need"`
	Budget     *decimal.Decimal `json:"budget"`
}

type updateConsumerRequest struct {
	EnergyNeed *decimal.Decimal `json:"energy_need"`
	Budget     *decimal.Decimal `json:"budget"`
}

type matchResponse struct {
	ConsumerID string `json:"consumer_id"`
	ProducerID string `json:"producer_id"`
}

// Create handles POST /consumers.
func (h *ConsumerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createConsumerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.EnergyNeed == nil {
		writeServiceError(w, h.logger, market.InvalidField("energy_need", "is required"))
		return
	}
	if req.Budget == nil {
		writeServiceError(w, h.logger, market.InvalidField("budget", "is required"))
		return
	}

	c, err := h.registry.RegisterConsumer(r.Context(), req.Name, *req.EnergyNeed, *req.Budget)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List handles GET /consumers.
func (h *ConsumerHandlers) List(w http.ResponseWriter, r *http.Request) {
	seq, err := h.registry.ListConsumers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"consumers": collect(seq),
	})
}

// Get handles GET /consumers/{id}.
func (h *ConsumerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.registry.GetConsumer(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update handles PATCH /consumers/{id}.
func (h *ConsumerHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateConsumerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	c, err := h.registry.UpdateConsumer(r.Context(), pathID(r), registry.ConsumerUpdate{
		EnergyNeed: req.EnergyNeed,
		Budget:     req.Budget,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Delete handles DELETE /consumers/{id}.
func (h *ConsumerHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.registry.DeleteConsumer(r.Context(), pathID(r)); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Match handles GET /consumers/{id}/match.
func (h *ConsumerHandlers) Match(w http.ResponseWriter, r *http.Request) {
	consumerID := pathID(r)
	producerID, err := h.matcher.FindMatch(r.Context(), consumerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{ConsumerID: consumerID, ProducerID: producerID})
}
