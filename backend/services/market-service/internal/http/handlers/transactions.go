package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/market"
)

// TransactionHandlers serves /transactions.
type TransactionHandlers struct {
	settlement Settlement
	logger     *zap.Logger
}

// NewTransactionHandlers returns handlers.
func NewTransactionHandlers(settlement Settlement, logger *zap.Logger) *TransactionHandlers {
	return &TransactionHandlers{settlement: settlement, logger: logger}
}

type executeTransactionRequest struct {
	ConsumerID string `json:"consumer_id"`
	ProducerID string `json:"producer_id"`
}

// Execute handles POST /transactions.
func (h *TransactionHandlers) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if strings.TrimSpace(req.ConsumerID) == "" {
		writeServiceError(w, h.logger, market.InvalidField("consumer_id", "is required"))
		return
	}
	if strings.TrimSpace(req.ProducerID) == "" {
		writeServiceError(w, h.logger, market.InvalidField("producer_id", "is required"))
		return
	}

	txn, err := h.settlement.ExecuteTransaction(r.Context(), req.ConsumerID, req.ProducerID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, txn)
}

// List handles GET /transactions.
func (h *TransactionHandlers) List(w http.ResponseWriter, r *http.Request) {
	seq, err := h.settlement.ListTransactions(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": collect(seq),
	})
}

// Get handles GET /transactions/{id}.
func (h *TransactionHandlers) Get(w http.ResponseWriter, r *http.Request) {
	txn, err := h.settlement.GetTransaction(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, txn)
}
