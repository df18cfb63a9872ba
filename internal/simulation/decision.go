package simulation

import "math/rand"

// AcceptWeight calculates the probability that a participant accepts a trade.
// Value efficiency is the primary factor, fairness the secondary one; the
// thresholds are quartiles observed over historical matching runs.
func AcceptWeight(valueEfficiency, fairnessScore float64) float64 {
	base := 0.5

	var efficiencyModifier float64
	switch {
	case valueEfficiency < 0.8:
		efficiencyModifier = -0.4
	case valueEfficiency < 0.8338:
		efficiencyModifier = 0.0
	case valueEfficiency < 0.86:
		efficiencyModifier = 0.15
	case valueEfficiency < 0.898:
		efficiencyModifier = 0.25
	default:
		efficiencyModifier = 0.35
	}

	var fairnessModifier float64
	switch {
	case fairnessScore < 0.7469:
		fairnessModifier = 0.0
	case fairnessScore < 0.7888:
		fairnessModifier = 0.03
	case fairnessScore < 0.8509:
		fairnessModifier = 0.08
	case fairnessScore < 0.9:
		fairnessModifier = 0.12
	default:
		fairnessModifier = 0.15
	}

	return base + efficiencyModifier + fairnessModifier
}

// drawDecisions draws an independent accept/decline decision per participant.
// Returns the decisions and whether every participant accepted.
func drawDecisions(weight float64, participants int, rng *rand.Rand) ([]bool, bool) {
	decisions := make([]bool, participants)
	all := true
	for i := range decisions {
		decisions[i] = rng.Float64() < weight
		if !decisions[i] {
			all = false
		}
	}
	return decisions, all
}
