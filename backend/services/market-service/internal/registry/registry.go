// Package registry creates, updates, removes and lists market participants.
package registry

import (
	"context"
	"fmt"
	"iter"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/lock"
	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

// ProducerUpdate carries the fields to change; nil leaves a field as is.
type ProducerUpdate struct {
	EnergyCapacity *decimal.Decimal
	PricePerKWh    *decimal.Decimal
}

// ConsumerUpdate carries the fields to change; nil leaves a field as is.
type ConsumerUpdate struct {
	EnergyNeed *decimal.Decimal
	Budget     *decimal.Decimal
}

// Option customises a Registry.
type Option func(*Registry)

// WithIDFunc replaces the identifier generator.
func WithIDFunc(fn market.IDFunc) Option {
	return func(r *Registry) { r.newID = fn }
}

// WithClock replaces the time source.
func WithClock(fn market.Clock) Option {
	return func(r *Registry) { r.now = fn }
}

// Registry owns producer and consumer records.
type Registry struct {
	store  store.Collections
	locks  *lock.KeyedMutex
	newID  market.IDFunc
	now    market.Clock
	logger *zap.Logger
}

// New builds a Registry. locks must be the instance shared with the settlement engine.
func New(st store.Collections, locks *lock.KeyedMutex, logger *zap.Logger, opts ...Option) *Registry {
	r := &Registry{
		store:  st,
		locks:  locks,
		newID:  market.NewID,
		now:    market.UTCNow,
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterProducer lists a new producer with its full capacity available.
func (r *Registry) RegisterProducer(ctx context.Context, name string, energyCapacity, pricePerKWh decimal.Decimal) (models.Producer, error) {
	name, err := market.ValidateName(name)
	if err != nil {
		return models.Producer{}, err
	}
	if err := market.NonNegative("energy_capacity", energyCapacity); err != nil {
		return models.Producer{}, err
	}
	if err := market.NonNegative("price_per_kwh", pricePerKWh); err != nil {
		return models.Producer{}, err
	}

	now := r.now()
	p := models.Producer{
		ID:              r.newID(market.ProducerPrefix),
		Name:            name,
		EnergyCapacity:  energyCapacity,
		PricePerKWh:     pricePerKWh,
		AvailableEnergy: energyCapacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := r.store.Producers().Insert(ctx, p.ID, p); err != nil {
		return models.Producer{}, fmt.Errorf("registry: save producer: %w", err)
	}

	r.logger.Info("producer registered",
		zap.String("producer_id", p.ID),
		zap.Stringer("energy_capacity", p.EnergyCapacity),
		zap.Stringer("price_per_kwh", p.PricePerKWh),
	)
	return p, nil
}

// RegisterConsumer adds a new consumer.
func (r *Registry) RegisterConsumer(ctx context.Context, name string, energyNeed, budget decimal.Decimal) (models.Consumer, error) {
	name, err := market.ValidateName(name)
	if err != nil {
		return models.Consumer{}, err
	}
	if err := market.NonNegative("energy_need", energyNeed); err != nil {
		return models.Consumer{}, err
	}
	if err := market.NonNegative("budget", budget); err != nil {
		return models.Consumer{}, err
	}

	now := r.now()
	c := models.Consumer{
		ID:         r.newID(market.ConsumerPrefix),
		Name:       name,
		EnergyNeed: energyNeed,
		Budget:     budget,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.store.Consumers().Insert(ctx, c.ID, c); err != nil {
		return models.Consumer{}, fmt.Errorf("registry: save consumer: %w", err)
	}

	r.logger.Info("consumer registered",
		zap.String("consumer_id", c.ID),
		zap.Stringer("energy_need", c.EnergyNeed),
		zap.Stringer("budget", c.Budget),
	)
	return c, nil
}

// UpdateProducer applies a partial update. Available energy is never changed here;
// lowering capacity below it fails with market.ErrInvariantViolation.
func (r *Registry) UpdateProducer(ctx context.Context, id string, upd ProducerUpdate) (models.Producer, error) {
	if upd.EnergyCapacity != nil {
		if err := market.NonNegative("energy_capacity", *upd.EnergyCapacity); err != nil {
			return models.Producer{}, err
		}
	}
	if upd.PricePerKWh != nil {
		if err := market.NonNegative("price_per_kwh", *upd.PricePerKWh); err != nil {
			return models.Producer{}, err
		}
	}

	unlock := r.locks.Lock(market.ProducerLockKey(id))
	defer unlock()

	p, err := r.GetProducer(ctx, id)
	if err != nil {
		return models.Producer{}, err
	}
	if upd.EnergyCapacity == nil && upd.PricePerKWh == nil {
		return p, nil
	}

	if upd.EnergyCapacity != nil {
		p.EnergyCapacity = *upd.EnergyCapacity
	}
	if upd.PricePerKWh != nil {
		p.PricePerKWh = *upd.PricePerKWh
	}
	if err := market.CheckProducer(p); err != nil {
		return models.Producer{}, err
	}
	p.UpdatedAt = r.now()

	if err := r.store.Producers().Insert(ctx, id, p); err != nil {
		return models.Producer{}, fmt.Errorf("registry: save producer: %w", err)
	}
	r.logger.Info("producer updated", zap.String("producer_id", id))
	return p, nil
}

// UpdateConsumer applies a partial update.
func (r *Registry) UpdateConsumer(ctx context.Context, id string, upd ConsumerUpdate) (models.Consumer, error) {
	if upd.EnergyNeed != nil {
		if err := market.NonNegative("energy_need", *upd.EnergyNeed); err != nil {
			return models.Consumer{}, err
		}
	}
	if upd.Budget != nil {
		if err := market.NonNegative("budget", *upd.Budget); err != nil {
			return models.Consumer{}, err
		}
	}

	unlock := r.locks.Lock(market.ConsumerLockKey(id))
	defer unlock()

	c, err := r.GetConsumer(ctx, id)
	if err != nil {
		return models.Consumer{}, err
	}
	if upd.EnergyNeed == nil && upd.Budget == nil {
		return c, nil
	}

	if upd.EnergyNeed != nil {
		c.EnergyNeed = *upd.EnergyNeed
	}
	if upd.Budget != nil {
		c.Budget = *upd.Budget
	}
	c.UpdatedAt = r.now()

	if err := r.store.Consumers().Insert(ctx, id, c); err != nil {
		return models.Consumer{}, fmt.Errorf("registry: save consumer: %w", err)
	}
	r.logger.Info("consumer updated", zap.String("consumer_id", id))
	return c, nil
}

// DeleteConsumer removes a consumer. Ledger entries referencing it are kept.
func (r *Registry) DeleteConsumer(ctx context.Context, id string) error {
	unlock := r.locks.Lock(market.ConsumerLockKey(id))
	defer unlock()

	if _, err := r.GetConsumer(ctx, id); err != nil {
		return err
	}
	if err := r.store.Consumers().Remove(ctx, id); err != nil {
		return fmt.Errorf("registry: delete consumer: %w", err)
	}
	r.logger.Info("consumer deleted", zap.String("consumer_id", id))
	return nil
}

// GetProducer returns one producer or market.ErrNotFound.
func (r *Registry) GetProducer(ctx context.Context, id string) (models.Producer, error) {
	opt, err := r.store.Producers().Get(ctx, id)
	if err != nil {
		return models.Producer{}, fmt.Errorf("registry: load producer: %w", err)
	}
	p, ok := opt.Get()
	if !ok {
		return models.Producer{}, market.NotFound("producer", id)
	}
	return p, nil
}

// GetConsumer returns one consumer or market.ErrNotFound.
func (r *Registry) GetConsumer(ctx context.Context, id string) (models.Consumer, error) {
	opt, err := r.store.Consumers().Get(ctx, id)
	if err != nil {
		return models.Consumer{}, fmt.Errorf("registry: load consumer: %w", err)
	}
	c, ok := opt.Get()
	if !ok {
		return models.Consumer{}, market.NotFound("consumer", id)
	}
	return c, nil
}

// ListProducers returns a snapshot of all producers in registration order.
// The sequence can be ranged over any number of times.
func (r *Registry) ListProducers(ctx context.Context) (iter.Seq[models.Producer], error) {
	producers, err := r.store.Producers().Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list producers: %w", err)
	}
	return slices.Values(producers), nil
}

// ListConsumers returns a snapshot of all consumers in registration order.
func (r *Registry) ListConsumers(ctx context.Context) (iter.Seq[models.Consumer], error) {
	consumers, err := r.store.Consumers().Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry: list consumers: %w", err)
	}
	return slices.Values(consumers), nil
}
