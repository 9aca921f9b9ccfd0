package settlement

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"gridmarket/backend/services/market-service/internal/lock"
	"gridmarket/backend/services/market-service/internal/market"
	"gridmarket/backend/services/market-service/internal/registry"
	"gridmarket/backend/services/market-service/internal/store/memory"
)

// TestPropertyInvariantsHoldAfterAnySettlementSequence drives random registrations and
// settlement attempts and checks the record and ledger invariants after every step.
func TestPropertyInvariantsHoldAfterAnySettlementSequence(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		st := memory.New()
		locks := lock.NewKeyedMutex()
		reg := registry.New(st, locks, zap.NewNop())
		eng := New(st, locks, zap.NewNop())

		initialBudget := map[string]decimal.Decimal{}
		var producerIDs, consumerIDs []string

		nProducers := rapid.IntRange(1, 4).Draw(rt, "producers")
		for i := 0; i < nProducers; i++ {
			capacity := decimal.NewFromInt(rapid.Int64Range(0, 100).Draw(rt, "capacity"))
			price := decimal.New(rapid.Int64Range(0, 300).Draw(rt, "priceCents"), -2)
			p, err := reg.RegisterProducer(ctx, "p", capacity, price)
			if err != nil {
				rt.Fatalf("register producer: %v", err)
			}
			producerIDs = append(producerIDs, p.ID)
		}
		nConsumers := rapid.IntRange(1, 4).Draw(rt, "consumers")
		for i := 0; i < nConsumers; i++ {
			need := decimal.New(rapid.Int64Range(0, 400).Draw(rt, "needTenths"), -1)
			budget := decimal.New(rapid.Int64Range(0, 20000).Draw(rt, "budgetCents"), -2)
			c, err := reg.RegisterConsumer(ctx, "c", need, budget)
			if err != nil {
				rt.Fatalf("register consumer: %v", err)
			}
			consumerIDs = append(consumerIDs, c.ID)
			initialBudget[c.ID] = budget
		}

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			cid := rapid.SampledFrom(consumerIDs).Draw(rt, "consumer")
			pid := rapid.SampledFrom(producerIDs).Draw(rt, "producer")
			if _, err := eng.ExecuteTransaction(ctx, cid, pid); err != nil && !market.IsBusinessRejection(err) {
				rt.Fatalf("settlement failed: %v", err)
			}
			checkInvariants(rt, st, initialBudget)
		}
	})
}

func checkInvariants(rt *rapid.T, st *memory.Store, initialBudget map[string]decimal.Decimal) {
	ctx := context.Background()
	producers, err := st.Producers().Values(ctx)
	if err != nil {
		rt.Fatal(err)
	}
	consumers, err := st.Consumers().Values(ctx)
	if err != nil {
		rt.Fatal(err)
	}
	txns, err := st.Transactions().Values(ctx)
	if err != nil {
		rt.Fatal(err)
	}

	sold := map[string]decimal.Decimal{}
	spent := map[string]decimal.Decimal{}
	for _, t := range txns {
		if err := market.CheckTransaction(t); err != nil {
			rt.Fatal(err)
		}
		sold[t.ProducerID] = sold[t.ProducerID].Add(t.EnergyAmount)
		spent[t.ConsumerID] = spent[t.ConsumerID].Add(t.TotalPrice)
	}

	for _, p := range producers {
		if err := market.CheckProducer(p); err != nil {
			rt.Fatal(err)
		}
		if !sold[p.ID].Equal(p.SoldEnergy()) {
			rt.Fatalf("producer %s: ledger sold %s, record sold %s", p.ID, sold[p.ID], p.SoldEnergy())
		}
	}
	for _, c := range consumers {
		if err := market.CheckConsumer(c); err != nil {
			rt.Fatal(err)
		}
		if !initialBudget[c.ID].Sub(spent[c.ID]).Equal(c.Budget) {
			rt.Fatalf("consumer %s: budget %s does not reconcile with spend %s", c.ID, c.Budget, spent[c.ID])
		}
	}
}
