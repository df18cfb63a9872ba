package engine

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-trade-lab/internal/domain"
)

func TestFindLoops_TwoWayScenario(t *testing.T) {
	offers := []domain.Offer{
		{UserID: "A", WatchID: "W1", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 200},
		{UserID: "B", WatchID: "W2", HaveValue: 1200, MinAcceptableValue: 1000, MaxCashTopUp: 300},
	}

	g := Build(offers)
	loops := g.FindLoops(10, rand.New(rand.NewSource(1)))

	require.Len(t, loops, 1)
	loop := loops[0]

	assert.Equal(t, domain.LoopTypeTwoWay, loop.LoopType)
	assert.Equal(t, []int{0, 1}, loop.Indexes)
	assert.Equal(t, []string{"A", "B"}, loop.Users)
	assert.Equal(t, []float64{-200, 200}, loop.CashFlows)
	assert.Equal(t, 2200.0, loop.TotalWatchValue)
	assert.Equal(t, 400.0, loop.TotalCashFlow)
	assert.InDelta(t, 0.8462, loop.ValueEfficiency, 0.0001)
}

func TestFindLoops_ThreeWayWithoutMutualEdges(t *testing.T) {
	// Constraints arranged so the cycle 0→1→2→0 is legal but no pair is
	// legal in both directions: minimums and top-ups each block one
	// direction of every non-cycle pair.
	offers := []domain.Offer{
		{UserID: "A", WatchID: "W1", HaveValue: 1000, MinAcceptableValue: 1300, MaxCashTopUp: 400},
		{UserID: "B", WatchID: "W2", HaveValue: 1200, MinAcceptableValue: 1000, MaxCashTopUp: 100},
		{UserID: "C", WatchID: "W3", HaveValue: 1400, MinAcceptableValue: 1100, MaxCashTopUp: 0},
	}

	g := Build(offers)

	// Cycle edges present.
	require.True(t, g.HasEdge(0, 1))
	require.True(t, g.HasEdge(1, 2))
	require.True(t, g.HasEdge(2, 0))
	// No mutual pair.
	require.False(t, g.HasEdge(1, 0))
	require.False(t, g.HasEdge(2, 1))
	require.False(t, g.HasEdge(0, 2))

	loops := g.FindLoops(10, rand.New(rand.NewSource(1)))

	require.Len(t, loops, 1)
	assert.Equal(t, domain.LoopTypeThreeWay, loops[0].LoopType)
	assert.Equal(t, []int{0, 1, 2}, loops[0].Indexes)
}

func TestFindLoops_SmallGraphOrderingConstraint(t *testing.T) {
	offers := mutuallyTradablePool(30)
	g := Build(offers)

	loops := g.FindLoops(DefaultMaxLoops(len(offers)), rand.New(rand.NewSource(7)))

	for _, loop := range loops {
		if loop.LoopType != domain.LoopTypeThreeWay {
			continue
		}
		i, j, k := loop.Indexes[0], loop.Indexes[1], loop.Indexes[2]
		require.True(t, i < j && j < k, "expected i<j<k, got %v", loop.Indexes)
		assert.True(t, g.HasEdge(i, j))
		assert.True(t, g.HasEdge(j, k))
		assert.True(t, g.HasEdge(k, i))
	}
}

func TestFindLoops_BudgetSplit(t *testing.T) {
	offers := mutuallyTradablePool(40)
	g := Build(offers)

	maxLoops := 10
	loops := g.FindLoops(maxLoops, rand.New(rand.NewSource(3)))

	require.LessOrEqual(t, len(loops), maxLoops)

	twoWay := 0
	for _, loop := range loops {
		if loop.LoopType == domain.LoopTypeTwoWay {
			twoWay++
		}
	}
	// Two-way search runs first and is capped at half the budget.
	assert.LessOrEqual(t, twoWay, maxLoops/2)
}

func TestFindLoops_ZeroBudget(t *testing.T) {
	g := Build(mutuallyTradablePool(10))

	assert.Nil(t, g.FindLoops(0, nil))
	assert.Nil(t, g.FindLoops(-5, nil))
}

func TestFindLoops_SamplingMode(t *testing.T) {
	// 101 offers pushes 3-way search into sampling mode.
	offers := mutuallyTradablePool(101)
	g := Build(offers)

	maxLoops := 20
	rng := rand.New(rand.NewSource(42))
	loops := g.FindLoops(maxLoops, rng)

	require.LessOrEqual(t, len(loops), maxLoops)

	seen := make(map[string]struct{})
	for _, loop := range loops {
		if loop.LoopType != domain.LoopTypeThreeWay {
			continue
		}
		a, b, c := loop.Indexes[0], loop.Indexes[1], loop.Indexes[2]
		require.True(t, g.HasEdge(a, b) && g.HasEdge(b, c) && g.HasEdge(c, a),
			"sampled triple %v is not a directed cycle", loop.Indexes)
		// Canonical rotation: smallest index leads.
		require.True(t, a < b && a < c, "triple %v not canonical", loop.Indexes)

		key := fmt.Sprintf("%d-%d-%d", a, b, c)
		_, dup := seen[key]
		require.False(t, dup, "duplicate cycle %v", loop.Indexes)
		seen[key] = struct{}{}
	}
}

func TestFindLoops_SamplingDeterministicWithSeed(t *testing.T) {
	offers := mutuallyTradablePool(150)
	g := Build(offers)

	a := g.FindLoops(30, rand.New(rand.NewSource(99)))
	b := g.FindLoops(30, rand.New(rand.NewSource(99)))

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Indexes, b[i].Indexes)
	}
}

func TestDefaultMaxLoops(t *testing.T) {
	assert.Equal(t, 20, DefaultMaxLoops(10))
	assert.Equal(t, 1000, DefaultMaxLoops(600))
	assert.Equal(t, 0, DefaultMaxLoops(0))
}

func TestStampRun(t *testing.T) {
	offers := []domain.Offer{
		{UserID: "A", WatchID: "W1", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 200},
		{UserID: "B", WatchID: "W2", HaveValue: 1200, MinAcceptableValue: 1000, MaxCashTopUp: 300},
	}
	g := Build(offers)
	loops := g.FindLoops(10, rand.New(rand.NewSource(1)))
	require.Len(t, loops, 1)

	StampRun("run-1", loops)

	assert.Equal(t, "run-1", loops[0].RunID)
	assert.NotEmpty(t, loops[0].LoopID)

	// Same run and participants stamp the same ID.
	again := g.FindLoops(10, rand.New(rand.NewSource(1)))
	StampRun("run-1", again)
	assert.Equal(t, loops[0].LoopID, again[0].LoopID)
}
