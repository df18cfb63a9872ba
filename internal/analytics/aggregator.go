package analytics

import (
	"context"
	"fmt"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// RunStats carries the pool-level counters the aggregator cannot derive
// from stored loops and outcomes alone.
type RunStats struct {
	Period      int
	TotalOffers int
	EdgesBuilt  int
}

// Aggregator computes run aggregates from discovered loops and outcomes.
type Aggregator struct {
	loopStore    storage.LoopStore
	outcomeStore storage.OutcomeStore
	aggStore     storage.RunAggregateStore

	now func() time.Time
}

// NewAggregator creates a new run aggregator.
func NewAggregator(loopStore storage.LoopStore, outcomeStore storage.OutcomeStore, aggStore storage.RunAggregateStore) *Aggregator {
	return &Aggregator{
		loopStore:    loopStore,
		outcomeStore: outcomeStore,
		aggStore:     aggStore,
		now:          time.Now,
	}
}

// WithClock overrides the time source. Used in tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// ComputeAggregate loads all loops and outcomes for a run and computes its
// aggregate. A run with zero loops still produces a (zero-valued) aggregate.
func (a *Aggregator) ComputeAggregate(ctx context.Context, runID string, stats RunStats) (*domain.RunAggregate, error) {
	loops, err := a.loopStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load loops for run %s: %w", runID, err)
	}

	outcomes, err := a.outcomeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load outcomes for run %s: %w", runID, err)
	}

	agg := computeFromRun(loops, outcomes)
	agg.RunID = runID
	agg.Period = stats.Period
	agg.TotalOffers = stats.TotalOffers
	agg.EdgesBuilt = stats.EdgesBuilt
	if stats.TotalOffers > 0 {
		agg.UsersMatchedPct = float64(agg.UsersMatched) / float64(stats.TotalOffers)
	}
	agg.CreatedAt = a.now().UnixMilli()

	return agg, nil
}

// ComputeAndStore computes the aggregate for a run and persists it.
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string, stats RunStats) (*domain.RunAggregate, error) {
	agg, err := a.ComputeAggregate(ctx, runID, stats)
	if err != nil {
		return nil, err
	}
	if err := a.aggStore.Insert(ctx, agg); err != nil {
		return nil, fmt.Errorf("store aggregate for run %s: %w", runID, err)
	}
	return agg, nil
}
