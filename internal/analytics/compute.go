package analytics

import (
	"math"

	"watch-trade-lab/internal/domain"
)

// computeFromRun calculates aggregate metrics from the loops discovered in a
// run and the outcomes recorded for them. Outcomes may be empty for pure
// matching runs; the execution metrics are zero in that case.
func computeFromRun(loops []*domain.TradeLoop, outcomes []*domain.TradeOutcome) *domain.RunAggregate {
	agg := &domain.RunAggregate{
		LoopsFound: len(loops),
	}

	var (
		efficiencies []float64
		fairness     []float64
	)
	for _, l := range loops {
		switch l.LoopType {
		case domain.LoopTypeTwoWay:
			agg.TwoWayFound++
		case domain.LoopTypeThreeWay:
			agg.ThreeWayFound++
		}
		agg.TotalWatchValue += l.TotalWatchValue
		agg.TotalCashFlow += l.TotalCashFlow
		efficiencies = append(efficiencies, l.ValueEfficiency)
		fairness = append(fairness, l.RelativeFairnessScore)
	}

	agg.EfficiencyMean = computeMean(efficiencies)
	agg.EfficiencyMin, agg.EfficiencyMax = computeMinMax(efficiencies)
	agg.FairnessMean = computeMean(fairness)

	if len(loops) > 0 {
		agg.AvgParticipants = float64(2*agg.TwoWayFound+3*agg.ThreeWayFound) / float64(len(loops))
	}

	for _, o := range outcomes {
		switch o.Status {
		case domain.OutcomeStatusExecuted:
			agg.Executed++
		case domain.OutcomeStatusDeclined:
			agg.Declined++
		}
	}
	if decided := agg.Executed + agg.Declined; decided > 0 {
		agg.ExecutionRate = float64(agg.Executed) / float64(decided)
	}

	agg.UsersMatched = countMatchedUsers(loops, outcomes)

	return agg
}

// countMatchedUsers counts distinct users that ended up in an executed trade.
// When no outcomes were recorded (pure matching run) every loop participant
// counts as matched.
func countMatchedUsers(loops []*domain.TradeLoop, outcomes []*domain.TradeOutcome) int {
	users := make(map[string]struct{})
	if len(outcomes) == 0 {
		for _, l := range loops {
			for _, u := range l.Users {
				users[u] = struct{}{}
			}
		}
		return len(users)
	}

	for _, o := range outcomes {
		if o.Status != domain.OutcomeStatusExecuted {
			continue
		}
		for _, u := range o.Users {
			users[u] = struct{}{}
		}
	}
	return len(users)
}

// computeMean calculates the arithmetic mean. Returns 0 for an empty slice.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeMinMax returns the minimum and maximum. Returns (0, 0) for an empty slice.
func computeMinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}
