// Package store defines the Ledger Store the market core persists through:
// three keyed collections plus an all-or-nothing Atomic section.
package store

import (
	"context"
	"errors"

	"github.com/samber/mo"

	"gridmarket/backend/services/market-service/internal/models"
)

// ErrClosed is returned by stores after Close.
var ErrClosed = errors.New("store: closed")

// Collection is a keyed set of records kept in insertion order.
type Collection[T any] interface {
	// Get returns the record or mo.None when id is absent.
	Get(ctx context.Context, id string) (mo.Option[T], error)
	// Insert upserts the record. Updating an existing id keeps its position.
	Insert(ctx context.Context, id string, record T) error
	// Values returns a snapshot of all records in insertion order.
	Values(ctx context.Context) ([]T, error)
}

// RemovableCollection adds deletion; only consumers are removable.
type RemovableCollection[T any] interface {
	Collection[T]
	Remove(ctx context.Context, id string) error
}

// Collections groups the three record kinds.
type Collections interface {
	Producers() Collection[models.Producer]
	Consumers() RemovableCollection[models.Consumer]
	Transactions() Collection[models.Transaction]
}

// Store is a Ledger Store backend.
type Store interface {
	Collections
	// Atomic runs fn against a transactional view. Writes made through the view become
	// visible together when fn returns nil and are discarded when it returns an error.
	Atomic(ctx context.Context, fn func(ctx context.Context, tx Collections) error) error
	Ping(ctx context.Context) error
	Close() error
}
