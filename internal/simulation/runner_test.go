package simulation

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-trade-lab/internal/analytics"
	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/generator"
	"watch-trade-lab/internal/storage/memory"
	"watch-trade-lab/internal/validation"
)

func testCatalog() generator.Catalog {
	// Values close together so most offer pairs are tradable.
	return generator.Catalog{
		"W00001": 1000,
		"W00002": 1050,
		"W00003": 1100,
		"W00004": 1150,
		"W00005": 1200,
	}
}

func testConfig(periods int) Config {
	return Config{
		Periods:      periods,
		InitialUsers: 12,
		GrowthRate:   0.5,
		TopUpFactor:  0.4,
		Rules:        validation.DefaultLoopRules(),
	}
}

func TestRunner_RequiresPeriods(t *testing.T) {
	r := NewRunner(RunnerOptions{Generator: generator.New(testCatalog(), rand.New(rand.NewSource(1)))})

	_, err := r.Run(context.Background(), "sim", Config{Periods: 0})
	assert.ErrorIs(t, err, ErrNoPeriods)
}

func TestRunner_GrowthAndPoolAccounting(t *testing.T) {
	r := NewRunner(RunnerOptions{
		Generator: generator.New(testCatalog(), rand.New(rand.NewSource(42))),
		Rng:       rand.New(rand.NewSource(42)),
	})

	result, err := r.Run(context.Background(), "sim-growth", testConfig(3))
	require.NoError(t, err)
	require.Len(t, result.Periods, 3)

	// Cohorts grow as initial * (1+growth)^period: 12, 18, 27.
	assert.Equal(t, 12, result.Periods[0].PoolSize)
	assert.Equal(t, result.Periods[0].Carried+18, result.Periods[1].PoolSize)
	assert.Equal(t, result.Periods[1].Carried+27, result.Periods[2].PoolSize)
	assert.Equal(t, 12+18+27, result.TotalUsers)

	for _, pr := range result.Periods {
		assert.LessOrEqual(t, pr.Carried, pr.PoolSize)
		assert.LessOrEqual(t, pr.Executed+pr.Declined+pr.Skipped, pr.LoopsFound)
	}
}

func TestRunner_SeededDeterminism(t *testing.T) {
	run := func() *Result {
		r := NewRunner(RunnerOptions{
			Generator: generator.New(testCatalog(), rand.New(rand.NewSource(7))),
			Rng:       rand.New(rand.NewSource(7)),
		})
		result, err := r.Run(context.Background(), "sim-seed", testConfig(3))
		require.NoError(t, err)
		return result
	}

	assert.Equal(t, run(), run())
}

func TestRunner_PersistsRecords(t *testing.T) {
	ctx := context.Background()

	offerStore := memory.NewOfferStore()
	loopStore := memory.NewLoopStore()
	outcomeStore := memory.NewOutcomeStore()
	aggStore := memory.NewRunAggregateStore()

	r := NewRunner(RunnerOptions{
		Generator:    generator.New(testCatalog(), rand.New(rand.NewSource(11))),
		OfferStore:   offerStore,
		LoopStore:    loopStore,
		OutcomeStore: outcomeStore,
		Aggregator:   analytics.NewAggregator(loopStore, outcomeStore, aggStore),
		Rng:          rand.New(rand.NewSource(11)),
	})

	result, err := r.Run(ctx, "sim-persist", testConfig(2))
	require.NoError(t, err)

	offers, err := offerStore.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, offers, result.TotalUsers)

	aggs, err := aggStore.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, aggs, 2)

	for i, pr := range result.Periods {
		loops, err := loopStore.GetByRunID(ctx, pr.RunID)
		require.NoError(t, err)
		assert.Len(t, loops, pr.LoopsFound)

		outcomes, err := outcomeStore.GetByRunID(ctx, pr.RunID)
		require.NoError(t, err)

		executed, declined := 0, 0
		for _, o := range outcomes {
			switch o.Status {
			case domain.OutcomeStatusExecuted:
				executed++
				assert.Positive(t, o.AcceptWeight)
			case domain.OutcomeStatusDeclined:
				declined++
			}
		}
		assert.Equal(t, pr.Executed, executed)
		assert.Equal(t, pr.Declined, declined)

		assert.Equal(t, pr.Period, aggs[i].Period)
		assert.Equal(t, pr.PoolSize, aggs[i].TotalOffers)
		assert.Equal(t, pr.LoopsFound, aggs[i].LoopsFound)
	}
}

func TestRunner_ExecutedUsersExitPool(t *testing.T) {
	ctx := context.Background()

	loopStore := memory.NewLoopStore()
	outcomeStore := memory.NewOutcomeStore()

	r := NewRunner(RunnerOptions{
		Generator:    generator.New(testCatalog(), rand.New(rand.NewSource(5))),
		LoopStore:    loopStore,
		OutcomeStore: outcomeStore,
		Rng:          rand.New(rand.NewSource(5)),
	})

	result, err := r.Run(ctx, "sim-exit", testConfig(2))
	require.NoError(t, err)

	executed, err := outcomeStore.GetByStatus(ctx, domain.OutcomeStatusExecuted)
	require.NoError(t, err)

	// A user who executed in period 1 must not appear in any period 2 outcome.
	exited := make(map[string]struct{})
	for _, o := range executed {
		if o.Period == 1 {
			for _, u := range o.Users {
				exited[u] = struct{}{}
			}
		}
	}

	all, err := outcomeStore.GetByRunID(ctx, result.Periods[1].RunID)
	require.NoError(t, err)
	for _, o := range all {
		if o.Status == domain.OutcomeStatusSkipped {
			continue
		}
		for _, u := range o.Users {
			_, wasExited := exited[u]
			assert.False(t, wasExited, "user %s traded after exiting", u)
		}
	}
}
