package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"watch-trade-lab/internal/domain"
)

func loopFixture(loopID, loopType string, users []string, twv, tcf, eff, fair float64) *domain.TradeLoop {
	return &domain.TradeLoop{
		LoopID:                loopID,
		RunID:                 "run-A",
		LoopType:              loopType,
		Users:                 users,
		TotalWatchValue:       twv,
		TotalCashFlow:         tcf,
		ValueEfficiency:       eff,
		RelativeFairnessScore: fair,
	}
}

func TestComputeFromRun_Empty(t *testing.T) {
	agg := computeFromRun(nil, nil)

	assert.Equal(t, 0, agg.LoopsFound)
	assert.Equal(t, 0, agg.TwoWayFound)
	assert.Equal(t, 0, agg.ThreeWayFound)
	assert.Zero(t, agg.ExecutionRate)
	assert.Zero(t, agg.EfficiencyMean)
	assert.Zero(t, agg.EfficiencyMin)
	assert.Zero(t, agg.EfficiencyMax)
	assert.Zero(t, agg.AvgParticipants)
	assert.Equal(t, 0, agg.UsersMatched)
}

func TestComputeFromRun_LoopMetrics(t *testing.T) {
	loops := []*domain.TradeLoop{
		loopFixture("l1", domain.LoopTypeTwoWay, []string{"U1", "U2"}, 2200, 400, 0.8, 0.9),
		loopFixture("l2", domain.LoopTypeThreeWay, []string{"U3", "U4", "U5"}, 3300, 300, 0.9, 0.8),
		loopFixture("l3", domain.LoopTypeTwoWay, []string{"U1", "U6"}, 2000, 0, 1.0, 1.0),
	}

	agg := computeFromRun(loops, nil)

	assert.Equal(t, 3, agg.LoopsFound)
	assert.Equal(t, 2, agg.TwoWayFound)
	assert.Equal(t, 1, agg.ThreeWayFound)
	assert.InDelta(t, 7500, agg.TotalWatchValue, 1e-9)
	assert.InDelta(t, 700, agg.TotalCashFlow, 1e-9)
	assert.InDelta(t, 0.9, agg.EfficiencyMean, 1e-9)
	assert.InDelta(t, 0.8, agg.EfficiencyMin, 1e-9)
	assert.InDelta(t, 1.0, agg.EfficiencyMax, 1e-9)
	assert.InDelta(t, 0.9, agg.FairnessMean, 1e-9)
	// (2*2 + 3*1) / 3 loops
	assert.InDelta(t, 7.0/3.0, agg.AvgParticipants, 1e-9)
	// U1 participates twice but counts once.
	assert.Equal(t, 6, agg.UsersMatched)
}

func TestComputeFromRun_OutcomeMetrics(t *testing.T) {
	loops := []*domain.TradeLoop{
		loopFixture("l1", domain.LoopTypeTwoWay, []string{"U1", "U2"}, 2200, 400, 0.8, 0.9),
		loopFixture("l2", domain.LoopTypeTwoWay, []string{"U3", "U4"}, 2000, 200, 0.9, 0.9),
		loopFixture("l3", domain.LoopTypeTwoWay, []string{"U5", "U6"}, 2100, 100, 0.95, 0.9),
	}
	outcomes := []*domain.TradeOutcome{
		{OutcomeID: "o1", LoopID: "l1", Status: domain.OutcomeStatusExecuted, Users: []string{"U1", "U2"}},
		{OutcomeID: "o2", LoopID: "l2", Status: domain.OutcomeStatusDeclined, Users: []string{"U3", "U4"}},
		{OutcomeID: "o3", LoopID: "l3", Status: domain.OutcomeStatusExecuted, Users: []string{"U5", "U6"}},
	}

	agg := computeFromRun(loops, outcomes)

	assert.Equal(t, 2, agg.Executed)
	assert.Equal(t, 1, agg.Declined)
	assert.InDelta(t, 2.0/3.0, agg.ExecutionRate, 1e-9)
	// Only users from executed outcomes count as matched.
	assert.Equal(t, 4, agg.UsersMatched)
}

func TestComputeFromRun_SkippedOutcomesIgnored(t *testing.T) {
	outcomes := []*domain.TradeOutcome{
		{OutcomeID: "o1", Status: domain.OutcomeStatusSkipped, Users: []string{"U1", "U2"}},
	}

	agg := computeFromRun(nil, outcomes)

	assert.Equal(t, 0, agg.Executed)
	assert.Equal(t, 0, agg.Declined)
	assert.Zero(t, agg.ExecutionRate)
	assert.Equal(t, 0, agg.UsersMatched)
}
