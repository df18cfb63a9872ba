package engine

import (
	"math"

	"watch-trade-lab/internal/domain"
)

// scoreLoop materializes a TradeLoop from an index cycle known to be valid.
// CashFlows[p] = value[p] - value[(p+1) mod n]: the compensation participant
// p owes (positive) or receives (negative) against the next participant in
// cycle order. ValueEfficiency is twv / (twv + tcf); when the total watch
// value is 0 the division is undefined and the score is pinned to 0.
func (g *Graph) scoreLoop(indexes []int, loopType string) domain.TradeLoop {
	n := len(indexes)

	users := make([]string, n)
	watches := make([]string, n)
	values := make([]float64, n)
	for p, idx := range indexes {
		users[p] = g.offers[idx].UserID
		watches[p] = g.offers[idx].WatchID
		values[p] = g.offers[idx].HaveValue
	}

	cashFlows := make([]float64, n)
	totalWatchValue := 0.0
	totalCashFlow := 0.0
	for p := 0; p < n; p++ {
		cashFlows[p] = values[p] - values[(p+1)%n]
		totalWatchValue += values[p]
		totalCashFlow += math.Abs(cashFlows[p])
	}

	efficiency := 0.0
	if totalWatchValue > 0 {
		efficiency = totalWatchValue / (totalWatchValue + totalCashFlow)
	}

	return domain.TradeLoop{
		LoopType:              loopType,
		Indexes:               indexes,
		Users:                 users,
		Watches:               watches,
		Values:                values,
		CashFlows:             cashFlows,
		TotalWatchValue:       totalWatchValue,
		TotalCashFlow:         totalCashFlow,
		ValueEfficiency:       efficiency,
		RelativeFairnessScore: fairnessScore(values),
	}
}

// fairnessScore measures how evenly value is distributed across the loop:
// 1 - stddev/mean over participant values, clamped to [0, 1]. A zero mean
// has no meaningful spread ratio and falls back to 0.5.
func fairnessScore(values []float64) float64 {
	n := float64(len(values))
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= n

	if mean == 0 {
		return 0.5
	}

	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	stddev := math.Sqrt(variance / n)

	score := 1 - stddev/mean
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
