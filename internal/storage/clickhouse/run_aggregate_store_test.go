package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

func createTestAggregate(runID string, period int) *domain.RunAggregate {
	return &domain.RunAggregate{
		RunID:           runID,
		Period:          period,
		TotalOffers:     50,
		EdgesBuilt:      312,
		LoopsFound:      18,
		TwoWayFound:     11,
		ThreeWayFound:   7,
		Executed:        9,
		Declined:        9,
		ExecutionRate:   0.5,
		UsersMatched:    20,
		UsersMatchedPct: 0.4,
		TotalWatchValue: 48000,
		TotalCashFlow:   3600,
		EfficiencyMean:  0.89,
		EfficiencyMin:   0.71,
		EfficiencyMax:   0.99,
		FairnessMean:    0.87,
		AvgParticipants: 2.39,
		CreatedAt:       time.Now().UnixMilli(),
	}
}

func TestRunAggregateStore_InsertAndGetByRunID(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunAggregateStore(conn)

	agg := createTestAggregate("run-A", 1)
	require.NoError(t, store.Insert(ctx, agg))

	results, err := store.GetByRunID(ctx, "run-A")
	require.NoError(t, err)
	require.Len(t, results, 1)

	got := results[0]
	assert.Equal(t, agg.RunID, got.RunID)
	assert.Equal(t, agg.Period, got.Period)
	assert.Equal(t, agg.TotalOffers, got.TotalOffers)
	assert.Equal(t, agg.EdgesBuilt, got.EdgesBuilt)
	assert.Equal(t, agg.LoopsFound, got.LoopsFound)
	assert.Equal(t, agg.TwoWayFound, got.TwoWayFound)
	assert.Equal(t, agg.ThreeWayFound, got.ThreeWayFound)
	assert.Equal(t, agg.Executed, got.Executed)
	assert.Equal(t, agg.Declined, got.Declined)
	assert.InDelta(t, agg.ExecutionRate, got.ExecutionRate, 0.0001)
	assert.Equal(t, agg.UsersMatched, got.UsersMatched)
	assert.InDelta(t, agg.UsersMatchedPct, got.UsersMatchedPct, 0.0001)
	assert.InDelta(t, agg.TotalWatchValue, got.TotalWatchValue, 0.0001)
	assert.InDelta(t, agg.TotalCashFlow, got.TotalCashFlow, 0.0001)
	assert.InDelta(t, agg.EfficiencyMean, got.EfficiencyMean, 0.0001)
	assert.InDelta(t, agg.EfficiencyMin, got.EfficiencyMin, 0.0001)
	assert.InDelta(t, agg.EfficiencyMax, got.EfficiencyMax, 0.0001)
	assert.InDelta(t, agg.FairnessMean, got.FairnessMean, 0.0001)
	assert.InDelta(t, agg.AvgParticipants, got.AvgParticipants, 0.0001)
	assert.Equal(t, agg.CreatedAt, got.CreatedAt)
}

func TestRunAggregateStore_InsertDuplicate(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunAggregateStore(conn)

	agg := createTestAggregate("run-dup", 1)
	require.NoError(t, store.Insert(ctx, agg))

	err := store.Insert(ctx, agg)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestRunAggregateStore_InsertBulkAndGetAll(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunAggregateStore(conn)

	batch := []*domain.RunAggregate{
		createTestAggregate("run-A", 1),
		createTestAggregate("run-A", 2),
		createTestAggregate("run-B", 1),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Ordered by run_id then period.
	assert.Equal(t, "run-A", all[0].RunID)
	assert.Equal(t, 1, all[0].Period)
	assert.Equal(t, "run-A", all[1].RunID)
	assert.Equal(t, 2, all[1].Period)
	assert.Equal(t, "run-B", all[2].RunID)
}

func TestRunAggregateStore_InsertBulkDuplicateInBatch(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewRunAggregateStore(conn)

	batch := []*domain.RunAggregate{
		createTestAggregate("run-A", 1),
		createTestAggregate("run-A", 1),
	}

	err := store.InsertBulk(ctx, batch)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}
