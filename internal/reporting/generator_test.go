package reporting

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage/memory"
)

func seedStores(t *testing.T) (*memory.LoopStore, *memory.RunAggregateStore) {
	t.Helper()
	ctx := context.Background()

	loopStore := memory.NewLoopStore()
	aggStore := memory.NewRunAggregateStore()

	require.NoError(t, loopStore.InsertBulk(ctx, []*domain.TradeLoop{
		{
			LoopID: "loop-a", RunID: "run-1", LoopType: domain.LoopTypeTwoWay,
			Users: []string{"U1", "U2"}, Watches: []string{"W1", "W2"},
			TotalWatchValue: 2200, TotalCashFlow: 400,
			ValueEfficiency: 0.8462, RelativeFairnessScore: 0.9,
		},
		{
			LoopID: "loop-b", RunID: "run-1", LoopType: domain.LoopTypeThreeWay,
			Users: []string{"U3", "U4", "U5"}, Watches: []string{"W3", "W4", "W5"},
			TotalWatchValue: 3600, TotalCashFlow: 200,
			ValueEfficiency: 0.9474, RelativeFairnessScore: 0.85,
		},
	}))

	require.NoError(t, aggStore.Insert(context.Background(), &domain.RunAggregate{
		RunID: "run-1", Period: 1,
		TotalOffers: 10, LoopsFound: 2, TwoWayFound: 1, ThreeWayFound: 1,
		Executed: 1, Declined: 1, ExecutionRate: 0.5,
		UsersMatched: 2, UsersMatchedPct: 0.2,
		TotalWatchValue: 5800, TotalCashFlow: 600,
		EfficiencyMean: 0.8968, FairnessMean: 0.875,
	}))

	return loopStore, aggStore
}

func TestGenerator_Generate(t *testing.T) {
	loopStore, aggStore := seedStores(t)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(loopStore, aggStore).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixed, report.GeneratedAt)
	assert.Equal(t, 1, report.RunCount)
	assert.Equal(t, 1, report.PeriodCount)

	assert.Equal(t, 10, report.Summary.TotalOffers)
	assert.Equal(t, 2, report.Summary.LoopsFound)
	assert.InDelta(t, 0.5, report.Summary.ExecutionRate, 1e-9)
	assert.InDelta(t, 0.8968, report.Summary.EfficiencyMean, 1e-9)

	require.Len(t, report.TopLoops, 2)
	// Sorted by descending efficiency.
	assert.Equal(t, "loop-b", report.TopLoops[0].LoopID)
	assert.Equal(t, "loop-a", report.TopLoops[1].LoopID)
}

func TestGenerator_GenerateEmpty(t *testing.T) {
	gen := NewGenerator(memory.NewLoopStore(), memory.NewRunAggregateStore())

	report, err := gen.Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, report.RunCount)
	assert.Empty(t, report.Periods)
	assert.Empty(t, report.TopLoops)

	md := RenderMarkdown(report)
	assert.Contains(t, md, "No aggregated runs found.")
	assert.Contains(t, md, "No loops discovered.")
}

func TestRenderMarkdown(t *testing.T) {
	loopStore, aggStore := seedStores(t)

	fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	gen := NewGenerator(loopStore, aggStore).WithClock(func() time.Time { return fixed })

	report, err := gen.Generate(context.Background())
	require.NoError(t, err)

	md := RenderMarkdown(report)
	assert.Contains(t, md, "# Trade Matching Report")
	assert.Contains(t, md, "Generated: 2025-06-01T12:00:00Z")
	assert.Contains(t, md, "| Loops Found | 2 |")
	assert.Contains(t, md, "| run-1 | 1 | 10 | 2 |")
	assert.Contains(t, md, "loop-b")
}

func TestRenderLoopsCSV(t *testing.T) {
	rows := []LoopRow{
		{
			LoopID: "loop-a", RunID: "run-1", LoopType: domain.LoopTypeTwoWay,
			Users: []string{"U1", "U2"}, Watches: []string{"W1", "W2"},
			TotalWatchValue: 2200, TotalCashFlow: 400,
			ValueEfficiency: 0.8462, FairnessScore: 0.9,
		},
	}

	csv := RenderLoopsCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "loop_id,run_id,loop_type,users,watches,total_watch_value,total_cash_flow,value_efficiency,fairness_score", lines[0])
	assert.Equal(t, "loop-a,run-1,2-way,U1;U2,W1;W2,2200.00,400.00,0.846200,0.900000", lines[1])
}

func TestRenderOutcomesCSV(t *testing.T) {
	rows := []OutcomeRow{
		{
			OutcomeID: "out-a", LoopID: "loop-a", RunID: "run-1", Period: 1,
			Status: domain.OutcomeStatusExecuted, AcceptWeight: 0.85,
			Users: []string{"U1", "U2"}, LoopType: domain.LoopTypeTwoWay,
			ValueEfficiency: 0.8462, FairnessScore: 0.9,
		},
	}

	csv := RenderOutcomesCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "outcome_id,loop_id,run_id,period,status,accept_weight,users,loop_type,value_efficiency,fairness_score", lines[0])
	assert.Equal(t, "out-a,loop-a,run-1,1,EXECUTED,0.8500,U1;U2,2-way,0.846200,0.900000", lines[1])
}

func TestRenderPeriodsCSV(t *testing.T) {
	rows := []PeriodRow{
		{
			RunID: "run-1", Period: 1, TotalOffers: 10, LoopsFound: 2,
			TwoWayFound: 1, ThreeWayFound: 1, Executed: 1, Declined: 1,
			ExecutionRate: 0.5, UsersMatchedPct: 0.2,
			EfficiencyMean: 0.8968, FairnessMean: 0.875,
		},
	}

	csv := RenderPeriodsCSV(rows)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "run-1,1,10,2,1,1,1,1,0.500000,0.200000")
}
