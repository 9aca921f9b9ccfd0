package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/registry"
)

// ProducerHandlers serves /producers.
type ProducerHandlers struct {
	registry Registry
	logger   *zap.Logger
}

// NewProducerHandlers returns handlers.
func NewProducerHandlers(reg Registry, logger *zap.Logger) *ProducerHandlers {
	return &ProducerHandlers{registry: reg, logger: logger}
}

type createProducerRequest struct {
	Name           string           `json:"name"`
	EnergyCapacity *decimal.Decimal `json:"energy_capacity"`
	PricePerKWh    *decimal.Decimal `json:"price_per_kwh"`
}

type updateProducerRequest struct {
	EnergyCapacity *decimal.Decimal `json:"energy_capacity"`
	PricePerKWh    *decimal.Decimal `json:"price_per_kwh"`
}

// Create handles POST /producers.
func (h *ProducerHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req createProducerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if req.EnergyCapacity == nil {
		writeServiceError(w, h.logger, market.InvalidField("energy_capacity", "is required"))
		return
	}
	if req.PricePerKWh == nil {
		writeServiceError(w, h.logger, market.InvalidField("price_per_kwh", "is required"))
		return
	}

	p, err := h.registry.RegisterProducer(r.Context(), req.Name, *req.EnergyCapacity, *req.PricePerKWh)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /producers.
func (h *ProducerHandlers) List(w http.ResponseWriter, r *http.Request) {
	seq, err := h.registry.ListProducers(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"producers": collect(seq),
	})
}

// Get handles GET /producers/{id}.
func (h *ProducerHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.registry.GetProducer(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PATCH /producers/{id}.
func (h *ProducerHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProducerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	p, err := h.registry.UpdateProducer(r.Context(), pathID(r), registry.ProducerUpdate{
		EnergyCapacity: req.EnergyCapacity,
		PricePerKWh:    req.PricePerKWh,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
