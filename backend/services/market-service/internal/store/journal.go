package store

import (
	"context"
	"errors"

	"github.com/samber/mo"

	"gridmarket/backend/services/market-service/internal/models"
)

// Journal is a Collections view that buffers writes over a base store. Reads see the
// buffered writes first. Nothing reaches the base until Replay is called, which lets
// backends without native transactions implement Atomic as "stage, then apply at once".
type Journal struct {
	producers    *staged[models.Producer]
	consumers    *staged[models.Consumer]
	transactions *staged[models.Transaction]
}

// NewJournal stages writes on top of base.
func NewJournal(base Collections) *Journal {
	return &Journal{
		producers:    newStaged(base.Producers(), func(p models.Producer) string { return p.ID }),
		consumers:    newStaged[models.Consumer](base.Consumers(), func(c models.Consumer) string { return c.ID }),
		transactions: newStaged(base.Transactions(), func(t models.Transaction) string { return t.ID }),
	}
}

// Producers returns the staged producer collection.
func (j *Journal) Producers() Collection[models.Producer] { return j.producers }

// Consumers returns the staged consumer collection.
func (j *Journal) Consumers() RemovableCollection[models.Consumer] { return j.consumers }

// Transactions returns the staged ledger.
func (j *Journal) Transactions() Collection[models.Transaction] { return j.transactions }

// Len is the number of buffered writes.
func (j *Journal) Len() int {
	return len(j.producers.ops) + len(j.consumers.ops) + len(j.transactions.ops)
}

// Inserts is the number of buffered upserts.
func (j *Journal) Inserts() int {
	return j.producers.inserts() + j.consumers.inserts() + j.transactions.inserts()
}

// Replay applies the buffered writes to target in the order they were made,
// producers first, then consumers, then transactions.
func (j *Journal) Replay(ctx context.Context, target Collections) error {
	if err := j.producers.replay(ctx, target.Producers().Insert, nil); err != nil {
		return err
	}
	consumers := target.Consumers()
	if err := j.consumers.replay(ctx, consumers.Insert, consumers.Remove); err != nil {
		return err
	}
	return j.transactions.replay(ctx, target.Transactions().Insert, nil)
}

var errRemoveUnsupported = errors.New("store: remove not supported for this collection")

type op[T any] struct {
	id     string
	record mo.Option[T]
}

type staged[T any] struct {
	base   Collection[T]
	idOf   func(T) string
	latest map[string]mo.Option[T]
	ops    []op[T]
}

func newStaged[T any](base Collection[T], idOf func(T) string) *staged[T] {
	return &staged[T]{
		base:   base,
		idOf:   idOf,
		latest: make(map[string]mo.Option[T]),
	}
}

func (s *staged[T]) Get(ctx context.Context, id string) (mo.Option[T], error) {
	if rec, ok := s.latest[id]; ok {
		return rec, nil
	}
	return s.base.Get(ctx, id)
}

func (s *staged[T]) Insert(_ context.Context, id string, record T) error {
	s.latest[id] = mo.Some(record)
	s.ops = append(s.ops, op[T]{id: id, record: mo.Some(record)})
	return nil
}

func (s *staged[T]) Remove(_ context.Context, id string) error {
	s.latest[id] = mo.None[T]()
	s.ops = append(s.ops, op[T]{id: id, record: mo.None[T]()})
	return nil
}

func (s *staged[T]) Values(ctx context.Context) ([]T, error) {
	base, err := s.base.Values(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(base)+len(s.latest))
	seen := make(map[string]struct{}, len(base))
	for _, rec := range base {
		id := s.idOf(rec)
		seen[id] = struct{}{}
		if latest, ok := s.latest[id]; ok {
			if v, present := latest.Get(); present {
				out = append(out, v)
			}
			continue
		}
		out = append(out, rec)
	}
	for _, o := range s.ops {
		if _, ok := seen[o.id]; ok {
			continue
		}
		seen[o.id] = struct{}{}
		if v, present := s.latest[o.id].Get(); present {
			out = append(out, v)
		}
	}
	return out, nil
}

func (s *staged[T]) inserts() int {
	n := 0
	for _, o := range s.ops {
		if o.record.IsPresent() {
			n++
		}
	}
	return n
}

func (s *staged[T]) replay(ctx context.Context, insert func(context.Context, string, T) error, remove func(context.Context, string) error) error {
	for _, o := range s.ops {
		if v, ok := o.record.Get(); ok {
			if err := insert(ctx, o.id, v); err != nil {
				return err
			}
			continue
		}
		if remove == nil {
			return errRemoveUnsupported
		}
		if err := remove(ctx, o.id); err != nil {
			return err
		}
	}
	return nil
}
