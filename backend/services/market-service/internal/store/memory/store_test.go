package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
)

func producer(id, available string) models.Producer {
	return models.Producer{
		ID:              id,
		Name:            id,
		EnergyCapacity:  decimal.RequireFromString("100"),
		PricePerKWh:     decimal.RequireFromString("2"),
		AvailableEnergy: decimal.RequireFromString(available),
	}
}

func ids[T any](values []T, idOf func(T) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, idOf(v))
	}
	return out
}

func producerID(p models.Producer) string { return p.ID }

func TestInsertionOrderSurvivesUpdates(t *testing.T) {
	ctx := context.Background()
	s := New()
	producers := s.Producers()

	require.NoError(t, producers.Insert(ctx, "a", producer("a", "100")))
	require.NoError(t, producers.Insert(ctx, "b", producer("b", "100")))
	require.NoError(t, producers.Insert(ctx, "a", producer("a", "50")))

	values, err := producers.Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(values, producerID))
	assert.True(t, values[0].AvailableEnergy.Equal(decimal.RequireFromString("50")))
}

func TestGetAbsentIsNone(t *testing.T) {
	got, err := New().Consumers().Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}

func TestRemoveConsumer(t *testing.T) {
	ctx := context.Background()
	s := New()
	consumers := s.Consumers()
	require.NoError(t, consumers.Insert(ctx, "c1", models.Consumer{ID: "c1"}))
	require.NoError(t, consumers.Insert(ctx, "c2", models.Consumer{ID: "c2"}))

	require.NoError(t, consumers.Remove(ctx, "c1"))
	require.NoError(t, consumers.Remove(ctx, "c1"))

	got, err := consumers.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())

	values, err := consumers.Values(ctx)
	require.NoError(t, err)
	require.Len(t, values, 1)
	assert.Equal(t, "c2", values[0].ID)
}

func TestAtomicCommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Producers().Insert(ctx, "p", producer("p", "100")))

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Collections) error {
		if err := tx.Producers().Insert(ctx, "p", producer("p", "90")); err != nil {
			return err
		}
		// reads inside the section see the staged write
		staged, err := tx.Producers().Get(ctx, "p")
		if err != nil {
			return err
		}
		assert.Equal(t, "90", staged.MustGet().AvailableEnergy.String())
		return tx.Transactions().Insert(ctx, "t", models.Transaction{ID: "t", ProducerID: "p"})
	})
	require.NoError(t, err)

	p, err := s.Producers().Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "90", p.MustGet().AvailableEnergy.String())

	txns, err := s.Transactions().Values(ctx)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestAtomicDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Producers().Insert(ctx, "p", producer("p", "100")))
	boom := errors.New("boom")

	err := s.Atomic(ctx, func(ctx context.Context, tx store.Collections) error {
		if err := tx.Producers().Insert(ctx, "p", producer("p", "0")); err != nil {
			return err
		}
		if err := tx.Transactions().Insert(ctx, "t", models.Transaction{ID: "t"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	p, err := s.Producers().Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, "100", p.MustGet().AvailableEnergy.String())

	txns, err := s.Transactions().Values(ctx)
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestClosedStoreRejectsCalls(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Ping(ctx))
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(ctx), store.ErrClosed)
	_, err := s.Producers().Values(ctx)
	assert.ErrorIs(t, err, store.ErrClosed)
	err = s.Atomic(ctx, func(ctx context.Context, tx store.Collections) error {
		return tx.Consumers().Insert(ctx, "c", models.Consumer{ID: "c"})
	})
	assert.ErrorIs(t, err, store.ErrClosed)
}
