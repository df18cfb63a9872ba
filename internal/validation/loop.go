package validation

import (
	"fmt"
	"math"

	"watch-trade-lab/internal/domain"
)

// cashBalanceTolerance absorbs float rounding when checking that signed
// cash flows around a cycle sum to zero.
const cashBalanceTolerance = 0.01

// LoopRules are the trade rules a discovered loop must satisfy before it is
// eligible for execution.
type LoopRules struct {
	MaxCashFlow       float64 // upper bound on total cash movement
	MinEfficiency     float64 // lower bound on value efficiency
	MaxValueDisparity float64 // upper bound on (max-min value spread)/mean value
}

// DefaultLoopRules mirrors the standard rule set: unlimited cash flow,
// at least 30% value efficiency, at most 50% value disparity.
func DefaultLoopRules() LoopRules {
	return LoopRules{
		MaxCashFlow:       math.Inf(1),
		MinEfficiency:     0.3,
		MaxValueDisparity: 0.5,
	}
}

// CheckLoop evaluates a loop against the rules. It returns every violated
// rule, not just the first, so rejected loops can be reported fully.
func (r LoopRules) CheckLoop(loop *domain.TradeLoop) (bool, []string) {
	var issues []string

	if loop.TotalCashFlow > r.MaxCashFlow {
		issues = append(issues, fmt.Sprintf(
			"cash flow %.2f exceeds limit %.2f", loop.TotalCashFlow, r.MaxCashFlow))
	}

	if loop.ValueEfficiency < r.MinEfficiency {
		issues = append(issues, fmt.Sprintf(
			"value efficiency %.4f below minimum %.2f", loop.ValueEfficiency, r.MinEfficiency))
	}

	if disparity, ok := valueDisparity(loop.Values); ok && disparity > r.MaxValueDisparity {
		issues = append(issues, fmt.Sprintf(
			"value disparity %.2f exceeds maximum %.2f", disparity, r.MaxValueDisparity))
	}

	if net := netCashFlow(loop.CashFlows); math.Abs(net) > cashBalanceTolerance {
		issues = append(issues, fmt.Sprintf(
			"cash flows don't balance: net flow = %.4f", net))
	}

	return len(issues) == 0, issues
}

// valueDisparity is the value spread relative to the mean participant value.
// Undefined (ok=false) when the mean is zero.
func valueDisparity(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}

	minV, maxV, sum := values[0], values[0], 0.0
	for _, v := range values {
		if v < minV {
			minV = v
		}
		if v > maxV {
			maxV = v
		}
		sum += v
	}

	mean := sum / float64(len(values))
	if mean == 0 {
		return 0, false
	}
	return (maxV - minV) / mean, true
}

func netCashFlow(flows []float64) float64 {
	net := 0.0
	for _, f := range flows {
		net += f
	}
	return net
}
