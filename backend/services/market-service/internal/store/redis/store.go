// Package redisstore is the Ledger Store backed by Redis.
//
// Each collection is a hash of id -> JSON record plus a sorted set that keeps
// insertion order, scored by a shared INCR sequence.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/samber/mo"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

const defaultPrefix = "market"

var errPipelineRead = errors.New("redisstore: reads are not available inside a pipeline")

// Store implements store.Store on a go-redis client.
type Store struct {
	client *redis.Client
	prefix string
}

// New returns a store that namespaces every key under prefix.
func New(client *redis.Client, prefix string) *Store {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) seqKey() string {
	return fmt.Sprintf("%s:seq", s.prefix)
}

func (s *Store) keys(collection string) keyspace {
	return keyspace{
		hash:  fmt.Sprintf("%s:%s", s.prefix, collection),
		order: fmt.Sprintf("%s:%s:order", s.prefix, collection),
	}
}

// Producers returns the producer collection.
func (s *Store) Producers() store.Collection[models.Producer] {
	return &collection[models.Producer]{s: s, keys: s.keys("producers")}
}

// Consumers returns the consumer collection.
func (s *Store) Consumers() store.RemovableCollection[models.Consumer] {
	return &collection[models.Consumer]{s: s, keys: s.keys("consumers")}
}

// Transactions returns the ledger.
func (s *Store) Transactions() store.Collection[models.Transaction] {
	return &collection[models.Transaction]{s: s, keys: s.keys("transactions")}
}

// Atomic stages fn's writes and then applies them in a single MULTI/EXEC block.
// Order sequence numbers are reserved up front so the block needs no reads.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx store.Collections) error) error {
	journal := store.NewJournal(s)
	if err := fn(ctx, journal); err != nil {
		return err
	}
	if journal.Len() == 0 {
		return nil
	}

	next, err := s.reserve(ctx, int64(journal.Inserts()))
	if err != nil {
		return err
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return journal.Replay(ctx, pipelined{s: s, pipe: pipe, next: next})
	})
	if err != nil {
		return fmt.Errorf("redisstore: exec: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

// reserve allocates n order scores and returns a generator over them.
func (s *Store) reserve(ctx context.Context, n int64) (func() float64, error) {
	if n == 0 {
		return func() float64 { return 0 }, nil
	}
	last, err := s.client.IncrBy(ctx, s.seqKey(), n).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: reserve sequence: %w", err)
	}
	cur := last - n
	return func() float64 {
		cur++
		return float64(cur)
	}, nil
}

type keyspace struct {
	hash  string
	order string
}

type collection[T any] struct {
	s    *Store
	keys keyspace
}

func (c *collection[T]) Get(ctx context.Context, id string) (mo.Option[T], error) {
	raw, err := c.s.client.HGet(ctx, c.keys.hash, id).Result()
	if errors.Is(err, redis.Nil) {
		return mo.None[T](), nil
	}
	if err != nil {
		return mo.None[T](), fmt.Errorf("redisstore: get %s: %w", id, err)
	}
	var record T
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return mo.None[T](), fmt.Errorf("redisstore: decode %s: %w", id, err)
	}
	return mo.Some(record), nil
}

func (c *collection[T]) Insert(ctx context.Context, id string, record T) error {
	next, err := c.s.reserve(ctx, 1)
	if err != nil {
		return err
	}
	_, err = c.s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		return queueInsert(ctx, pipe, c.keys, id, record, next())
	})
	if err != nil {
		return fmt.Errorf("redisstore: insert %s: %w", id, err)
	}
	return nil
}

func (c *collection[T]) Remove(ctx context.Context, id string) error {
	_, err := c.s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		queueRemove(ctx, pipe, c.keys, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: remove %s: %w", id, err)
	}
	return nil
}

func (c *collection[T]) Values(ctx context.Context) ([]T, error) {
	ids, err := c.s.client.ZRange(ctx, c.keys.order, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list order: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	raws, err := c.s.client.HMGet(ctx, c.keys.hash, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: list records: %w", err)
	}

	out := make([]T, 0, len(raws))
	for i, raw := range raws {
		str, ok := raw.(string)
		if !ok {
			// removed between ZRANGE and HMGET
			continue
		}
		var record T
		if err := json.Unmarshal([]byte(str), &record); err != nil {
			return nil, fmt.Errorf("redisstore: decode %s: %w", ids[i], err)
		}
		out = append(out, record)
	}
	return out, nil
}

func queueInsert[T any](ctx context.Context, pipe redis.Pipeliner, keys keyspace, id string, record T, score float64) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", id, err)
	}
	pipe.ZAddNX(ctx, keys.order, redis.Z{Score: score, Member: id})
	pipe.HSet(ctx, keys.hash, id, data)
	return nil
}

func queueRemove(ctx context.Context, pipe redis.Pipeliner, keys keyspace, id string) {
	pipe.ZRem(ctx, keys.order, id)
	pipe.HDel(ctx, keys.hash, id)
}

// pipelined queues Replay's writes into an open MULTI block.
type pipelined struct {
	s    *Store
	pipe redis.Pipeliner
	next func() float64
}

func (p pipelined) Producers() store.Collection[models.Producer] {
	return queued[models.Producer]{p: p, keys: p.s.keys("producers")}
}

func (p pipelined) Consumers() store.RemovableCollection[models.Consumer] {
	return queued[models.Consumer]{p: p, keys: p.s.keys("consumers")}
}

func (p pipelined) Transactions() store.Collection[models.Transaction] {
	return queued[models.Transaction]{p: p, keys: p.s.keys("transactions")}
}

type queued[T any] struct {
	p    pipelined
	keys keyspace
}

func (q queued[T]) Get(context.Context, string) (mo.Option[T], error) {
	return mo.None[T](), errPipelineRead
}

func (q queued[T]) Insert(ctx context.Context, id string, record T) error {
	return queueInsert(ctx, q.p.pipe, q.keys, id, record, q.p.next())
}

func (q queued[T]) Remove(ctx context.Context, id string) error {
	queueRemove(ctx, q.p.pipe, q.keys, id)
	return nil
}

func (q queued[T]) Values(context.Context) ([]T, error) {
	return nil, errPipelineRead
}
