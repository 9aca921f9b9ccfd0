package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridmarket/backend/services/market-service/internal/models"
	"gridmarket/backend/services/market-service/internal/store"
	"gridmarket/backend/services/market-service/internal/store/memory"
)

func consumerIDs(values []models.Consumer) []string {
	out := make([]string, 0, len(values))
	for _, c := range values {
		out = append(out, c.ID)
	}
	return out
}

func TestJournalOverlaysBase(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, base.Consumers().Insert(ctx, id, models.Consumer{ID: id, Name: id}))
	}

	j := store.NewJournal(base)
	require.NoError(t, j.Consumers().Remove(ctx, "b"))
	require.NoError(t, j.Consumers().Insert(ctx, "c", models.Consumer{ID: "c", Name: "changed"}))
	require.NoError(t, j.Consumers().Insert(ctx, "d", models.Consumer{ID: "d", Name: "d"}))

	staged, err := j.Consumers().Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, consumerIDs(staged))
	assert.Equal(t, "changed", staged[1].Name)

	removed, err := j.Consumers().Get(ctx, "b")
	require.NoError(t, err)
	assert.True(t, removed.IsAbsent())

	// base untouched until replay
	untouched, err := base.Consumers().Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, consumerIDs(untouched))

	assert.Equal(t, 3, j.Len())
	assert.Equal(t, 2, j.Inserts())

	require.NoError(t, j.Replay(ctx, base))
	replayed, err := base.Consumers().Values(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, consumerIDs(replayed))
}

func TestJournalInsertThenRemoveLeavesNothing(t *testing.T) {
	ctx := context.Background()
	base := memory.New()
	j := store.NewJournal(base)

	require.NoError(t, j.Consumers().Insert(ctx, "x", models.Consumer{ID: "x"}))
	require.NoError(t, j.Consumers().Remove(ctx, "x"))

	values, err := j.Consumers().Values(ctx)
	require.NoError(t, err)
	assert.Empty(t, values)

	require.NoError(t, j.Replay(ctx, base))
	got, err := base.Consumers().Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.IsAbsent())
}
