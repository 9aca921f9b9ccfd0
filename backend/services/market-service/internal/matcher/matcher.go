// Package matcher pairs a consumer with the first producer able to serve it.
package matcher

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/metrics"
	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

// Matcher runs first-fit lookups. It reads without locks; the result is
// advisory and settlement re-checks everything.
type Matcher struct {
	store  store.Collections
	logger *zap.Logger
}

// New builds a Matcher.
func New(st store.Collections, logger *zap.Logger) *Matcher {
	return &Matcher{store: st, logger: logger}
}

// FindMatch returns the id of the first producer, in registration order, with enough
// available energy at a unit price the consumer can afford. It never mutates state.
func (m *Matcher) FindMatch(ctx context.Context, consumerID string) (string, error) {
	producerID, err := m.findMatch(ctx, consumerID)
	metrics.RecordMatch(err)
	if err != nil {
		m.logger.Debug("no match", zap.String("consumer_id", consumerID), zap.Error(err))
		return "", err
	}
	m.logger.Debug("match found", zap.String("consumer_id", consumerID), zap.String("producer_id", producerID))
	return producerID, nil
}

func (m *Matcher) findMatch(ctx context.Context, consumerID string) (string, error) {
	opt, err := m.store.Consumers().Get(ctx, consumerID)
	if err != nil {
		return "", fmt.Errorf("matcher: load consumer: %w", err)
	}
	consumer, ok := opt.Get()
	if !ok {
		return "", market.NotFound("consumer", consumerID)
	}

	producers, err := m.store.Producers().Values(ctx)
	if err != nil {
		return "", fmt.Errorf("matcher: list producers: %w", err)
	}

	producer, found := lo.Find(producers, func(p models.Producer) bool {
		return Satisfies(p, consumer)
	})
	if !found {
		return "", fmt.Errorf("%w for consumer %s", market.ErrNoMatch, consumerID)
	}
	return producer.ID, nil
}

// Satisfies reports whether p can serve c's whole need within c's budget.
// With a zero need any producer qualifies.
func Satisfies(p models.Producer, c models.Consumer) bool {
	return p.AvailableEnergy.GreaterThanOrEqual(c.EnergyNeed) &&
		market.Affordable(p.PricePerKWh, c.EnergyNeed, c.Budget)
}
