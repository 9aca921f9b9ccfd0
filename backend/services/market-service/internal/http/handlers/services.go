package handlers

import (
	"context"
	"iter"

	"github.com/shopspring/decimal"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/registry"
)

// Registry is the participant API the handlers need.
type Registry interface {
	RegisterProducer(ctx context.Context, name string, energyCapacity, pricePerKWh decimal.Decimal) (models.Producer, error)
	RegisterConsumer(ctx context.Context, name string, energyNeed, budget decimal.Decimal) (models.Consumer, error)
	UpdateProducer(ctx context.Context, id string, upd registry.ProducerUpdate) (models.Producer, error)
	UpdateConsumer(ctx context.Context, id string, upd registry.ConsumerUpdate) (models.Consumer, error)
	DeleteConsumer(ctx context.Context, id string) error
	GetProducer(ctx context.Context, id string) (models.Producer, error)
	GetConsumer(ctx context.Context, id string) (models.Consumer, error)
	ListProducers(ctx context.Context) (iter.Seq[models.Producer], error)
	ListConsumers(ctx context.Context) (iter.Seq[models.Consumer], error)
}

// Matcher finds a producer for a consumer.
type Matcher interface {
	FindMatch(ctx context.Context, consumerID string) (string, error)
}

// Settlement executes and reads ledger entries.
type Settlement interface {
	ExecuteTransaction(ctx context.Context, consumerID, producerID string) (models.Transaction, error)
	GetTransaction(ctx context.Context, id string) (models.Transaction, error)
	ListTransactions(ctx context.Context) (iter.Seq[models.Transaction], error)
}
