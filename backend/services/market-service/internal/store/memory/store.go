// Package memory is the in-process Ledger Store used by default and in tests.
package memory

import (
	"context"
	"sync"

	"github.com/samber/mo"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

// Store keeps all collections in maps guarded by one RWMutex.
type Store struct {
	mu           sync.RWMutex
	closed       bool
	producers    *table[models.Producer]
	consumers    *table[models.Consumer]
	transactions *table[models.Transaction]
}

// New returns an empty store.
func New() *Store {
	return &Store{
		producers:    newTable[models.Producer](),
		consumers:    newTable[models.Consumer](),
		transactions: newTable[models.Transaction](),
	}
}

// Producers returns the producer collection.
func (s *Store) Producers() store.Collection[models.Producer] {
	return &locked[models.Producer]{s: s, t: s.producers}
}

// Consumers returns the consumer collection.
func (s *Store) Consumers() store.RemovableCollection[models.Consumer] {
	return &locked[models.Consumer]{s: s, t: s.consumers}
}

// Transactions returns the ledger.
func (s *Store) Transactions() store.Collection[models.Transaction] {
	return &locked[models.Transaction]{s: s, t: s.transactions}
}

// Atomic stages fn's writes in a journal and applies them under the write lock.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Collections) error) error {
	journal := store.NewJournal(s)
	if err := fn(ctx, journal); err != nil {
		return err
	}
	if journal.Len() == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	return journal.Replay(ctx, unlocked{s})
}

// Ping reports whether the store is still open.
func (s *Store) Ping(context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return store.ErrClosed
	}
	return nil
}

// Close marks the store closed; further calls fail with store.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type table[T any] struct {
	rows  map[string]T
	order []string
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) get(id string) mo.Option[T] {
	if v, ok := t.rows[id]; ok {
		return mo.Some(v)
	}
	return mo.None[T]()
}

func (t *table[T]) insert(id string, record T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = record
}

func (t *table[T]) remove(id string) {
	if _, ok := t.rows[id]; !ok {
		return
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

func (t *table[T]) values() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// locked wraps a table with the store mutex.
type locked[T any] struct {
	s *Store
	t *table[T]
}

func (c *locked[T]) Get(_ context.Context, id string) (mo.Option[T], error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if c.s.closed {
		return mo.None[T](), store.ErrClosed
	}
	return c.t.get(id), nil
}

func (c *locked[T]) Insert(_ context.Context, id string, record T) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.closed {
		return store.ErrClosed
	}
	c.t.insert(id, record)
	return nil
}

func (c *locked[T]) Remove(_ context.Context, id string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	if c.s.closed {
		return store.ErrClosed
	}
	c.t.remove(id)
	return nil
}

func (c *locked[T]) Values(context.Context) ([]T, error) {
	c.s.mu.RLock()
	defer c.s.mu.RUnlock()
	if c.s.closed {
		return nil, store.ErrClosed
	}
	return c.t.values(), nil
}

// unlocked exposes the tables to Replay while the caller holds the write lock.
type unlocked struct {
	s *Store
}

func (u unlocked) Producers() store.Collection[models.Producer] {
	return raw[models.Producer]{u.s.producers}
}

func (u unlocked) Consumers() store.RemovableCollection[models.Consumer] {
	return raw[models.Consumer]{u.s.consumers}
}

func (u unlocked) Transactions() store.Collection[models.Transaction] {
	return raw[models.Transaction]{u.s.transactions}
}

type raw[T any] struct {
	t *table[T]
}

func (r raw[T]) Get(_ context.Context, id string) (mo.Option[T], error) { return r.t.get(id), nil }

func (r raw[T]) Insert(_ context.Context, id string, record T) error {
	r.t.insert(id, record)
	return nil
}

func (r raw[T]) Remove(_ context.Context, id string) error {
	r.t.remove(id)
	return nil
}

func (r raw[T]) Values(context.Context) ([]T, error) { return r.t.values(), nil }
