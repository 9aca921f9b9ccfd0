// Package settlement executes trades between a consumer and a producer.
package settlement

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"time"

	"go.uber.org/zap"

	"gridmarket/backend/services/market-service/internal/lock"
	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/metrics"
	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

// Publisher receives every committed transaction.
type Publisher interface {
	Publish(txn models.Transaction)
}

// Option customises an Engine.
type Option func(*Engine)

// WithIDFunc replaces the identifier generator.
func WithIDFunc(fn market.IDFunc) Option {
	return func(e *Engine) { e.newID = fn }
}

// WithClock replaces the time source.
func WithClock(fn market.Clock) Option {
	return func(e *Engine) { e.now = fn }
}

// WithPublisher sends committed transactions to p.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// Engine settles trades atomically.
type Engine struct {
	store     store.Store
	locks     *lock.KeyedMutex
	newID     market.IDFunc
	now       market.Clock
	publisher Publisher
	logger    *zap.Logger
}

// New builds an Engine. locks must be the instance shared with the registry.
func New(st store.Store, locks *lock.KeyedMutex, logger *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		locks:  locks,
		newID:  market.NewID,
		now:    market.UTCNow,
		logger: logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteTransaction sells the consumer's full energy need from the producer at the
// producer's current price. Both records are locked for the whole check-and-write, and
// the producer, consumer and ledger writes are committed together or not at all.
func (e *Engine) ExecuteTransaction(ctx context.Context, consumerID, producerID string) (models.Transaction, error) {
	start := time.Now()
	txn, err := e.commit(ctx, consumerID, producerID)

	metrics.RecordSettlement(err, txn.EnergyAmount, time.Since(start))
	if err != nil {
		fields := []zap.Field{
			zap.String("consumer_id", consumerID),
			zap.String("producer_id", producerID),
			zap.Error(err),
		}
		if market.IsBusinessRejection(err) {
			e.logger.Debug("settlement rejected", fields...)
		} else {
			e.logger.Error("settlement failed", fields...)
		}
		return models.Transaction{}, err
	}

	if e.publisher != nil {
		e.publisher.Publish(txn)
	}
	e.logger.Info("settlement committed",
		zap.String("transaction_id", txn.ID),
		zap.String("consumer_id", consumerID),
		zap.String("producer_id", producerID),
		zap.Stringer("energy_kwh", txn.EnergyAmount),
		zap.Stringer("total_price", txn.TotalPrice),
	)
	return txn, nil
}

// commit holds both record locks for the duration of the Atomic section.
func (e *Engine) commit(ctx context.Context, consumerID, producerID string) (models.Transaction, error) {
	unlock := e.locks.LockMany(market.ConsumerLockKey(consumerID), market.ProducerLockKey(producerID))
	defer unlock()

	var txn models.Transaction
	err := e.store.Atomic(ctx, func(ctx context.Context, tx store.Collections) error {
		var err error
		txn, err = e.settle(ctx, tx, consumerID, producerID)
		return err
	})
	return txn, err
}

func (e *Engine) settle(ctx context.Context, tx store.Collections, consumerID, producerID string) (models.Transaction, error) {
	consumerOpt, err := tx.Consumers().Get(ctx, consumerID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: load consumer: %w", err)
	}
	consumer, ok := consumerOpt.Get()
	if !ok {
		return models.Transaction{}, market.NotFound("consumer", consumerID)
	}
	producerOpt, err := tx.Producers().Get(ctx, producerID)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: load producer: %w", err)
	}
	producer, ok := producerOpt.Get()
	if !ok {
		return models.Transaction{}, market.NotFound("producer", producerID)
	}

	need := consumer.EnergyNeed
	if !need.IsPositive() {
		return models.Transaction{}, market.InvalidField("energy_need", "must be positive to settle")
	}
	if need.GreaterThan(producer.AvailableEnergy) {
		return models.Transaction{}, fmt.Errorf("%w: producer %s has %s kWh, consumer %s needs %s",
			market.ErrInsufficientEnergy, producerID, producer.AvailableEnergy, consumerID, need)
	}
	price := producer.PricePerKWh
	total := need.Mul(price)
	if consumer.Budget.LessThan(total) {
		return models.Transaction{}, fmt.Errorf("%w: consumer %s has %s, trade costs %s",
			market.ErrInsufficientBudget, consumerID, consumer.Budget, total)
	}

	now := e.now()
	producer.AvailableEnergy = producer.AvailableEnergy.Sub(need)
	producer.UpdatedAt = now
	consumer.Budget = consumer.Budget.Sub(total)
	consumer.UpdatedAt = now
	txn := models.Transaction{
		ID:           e.newID(market.TransactionPrefix),
		ProducerID:   producerID,
		ConsumerID:   consumerID,
		EnergyAmount: need,
		PricePerKWh:  price,
		TotalPrice:   total,
		CreatedAt:    now,
	}

	if err := checkAll(producer, consumer, txn); err != nil {
		return models.Transaction{}, err
	}

	if err := tx.Producers().Insert(ctx, producerID, producer); err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: save producer: %w", err)
	}
	if err := tx.Consumers().Insert(ctx, consumerID, consumer); err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: save consumer: %w", err)
	}
	if err := tx.Transactions().Insert(ctx, txn.ID, txn); err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: append ledger: %w", err)
	}
	return txn, nil
}

func checkAll(p models.Producer, c models.Consumer, t models.Transaction) error {
	if err := market.CheckProducer(p); err != nil {
		return err
	}
	if err := market.CheckConsumer(c); err != nil {
		return err
	}
	return market.CheckTransaction(t)
}

// GetTransaction returns one ledger entry or market.ErrNotFound.
func (e *Engine) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	opt, err := e.store.Transactions().Get(ctx, id)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("settlement: load transaction: %w", err)
	}
	txn, ok := opt.Get()
	if !ok {
		return models.Transaction{}, market.NotFound("transaction", id)
	}
	return txn, nil
}

// ListTransactions returns a snapshot of the ledger in settlement order.
func (e *Engine) ListTransactions(ctx context.Context) (iter.Seq[models.Transaction], error) {
	txns, err := e.store.Transactions().Values(ctx)
	if err != nil {
		return nil, fmt.Errorf("settlement: list transactions: %w", err)
	}
	return slices.Values(txns), nil
}
