package engine

import (
	"math/rand"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/idhash"
)

// samplingThreshold is the pool size above which exhaustive 3-way search is
// replaced by randomized triple sampling.
const samplingThreshold = 100

// sampleAttemptFactor bounds large-graph sampling at maxLoops * factor draws.
const sampleAttemptFactor = 10

// DefaultMaxLoops returns the loop budget used when the caller does not
// supply one: min(1000, 2n).
func DefaultMaxLoops(offerCount int) int {
	if m := 2 * offerCount; m < 1000 {
		return m
	}
	return 1000
}

// FindLoops enumerates trade loops up to maxLoops: 2-way cycles first with a
// budget of maxLoops/2, then 3-way cycles with whatever budget remains.
// rng drives large-graph sampling; pass a seeded source for deterministic
// output, or nil for a time-seeded one. maxLoops <= 0 returns nil.
func (g *Graph) FindLoops(maxLoops int, rng *rand.Rand) []domain.TradeLoop {
	if maxLoops <= 0 || len(g.offers) == 0 {
		return nil
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	loops := g.findTwoWayLoops(maxLoops / 2)
	if remaining := maxLoops - len(loops); remaining > 0 {
		loops = append(loops, g.findThreeWayLoops(remaining, rng)...)
	}
	return loops
}

// findTwoWayLoops collects mutual-edge pairs in ascending (i, j) order until
// the budget is exhausted. Each pair is emitted once, with i < j.
func (g *Graph) findTwoWayLoops(budget int) []domain.TradeLoop {
	var loops []domain.TradeLoop
	for i := range g.adj {
		if len(loops) >= budget {
			break
		}
		for _, j := range g.adj[i] {
			if i < j && contains(g.adj[j], i) {
				loops = append(loops, g.scoreLoop([]int{i, j}, domain.LoopTypeTwoWay))
				if len(loops) >= budget {
					break
				}
			}
		}
	}
	return loops
}

// findThreeWayLoops enumerates directed triangles. Small pools are searched
// exhaustively under an i<j<k ordering constraint so rotations of the same
// cycle are not emitted twice. Large pools are sampled: shuffle the index
// population, test the first three indexes for a→b→c→a, and stop after
// budget*sampleAttemptFactor attempts or when the budget fills. Sampled
// triples are normalized to their canonical rotation and deduplicated, so a
// cycle rediscovered under a different rotation is not reported again.
func (g *Graph) findThreeWayLoops(budget int, rng *rand.Rand) []domain.TradeLoop {
	n := len(g.offers)
	var loops []domain.TradeLoop

	if n <= samplingThreshold {
		for i := 0; i < n; i++ {
			if len(loops) >= budget {
				break
			}
			for _, j := range g.adj[i] {
				if j <= i {
					continue
				}
				for _, k := range g.adj[j] {
					if k <= j {
						continue
					}
					if contains(g.adj[k], i) {
						loops = append(loops, g.scoreLoop([]int{i, j, k}, domain.LoopTypeThreeWay))
						if len(loops) >= budget {
							break
						}
					}
				}
				if len(loops) >= budget {
					break
				}
			}
		}
		return loops
	}

	nodes := make([]int, n)
	for i := range nodes {
		nodes[i] = i
	}

	seen := make(map[[3]int]struct{})
	maxAttempts := budget * sampleAttemptFactor
	for attempts := 0; attempts < maxAttempts && len(loops) < budget; attempts++ {
		rng.Shuffle(n, func(x, y int) { nodes[x], nodes[y] = nodes[y], nodes[x] })
		a, b, c := nodes[0], nodes[1], nodes[2]

		if contains(g.adj[a], b) && contains(g.adj[b], c) && contains(g.adj[c], a) {
			key := canonicalTriple(a, b, c)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			loops = append(loops, g.scoreLoop([]int{key[0], key[1], key[2]}, domain.LoopTypeThreeWay))
		}
	}
	return loops
}

// canonicalTriple rotates (a, b, c) so the smallest index comes first,
// preserving cycle direction.
func canonicalTriple(a, b, c int) [3]int {
	switch {
	case a <= b && a <= c:
		return [3]int{a, b, c}
	case b <= a && b <= c:
		return [3]int{b, c, a}
	default:
		return [3]int{c, a, b}
	}
}

// StampRun assigns the run ID and deterministic loop IDs to loops discovered
// in one matching run.
func StampRun(runID string, loops []domain.TradeLoop) {
	for i := range loops {
		loops[i].RunID = runID
		loops[i].LoopID = idhash.ComputeLoopID(runID, loops[i].LoopType, loops[i].Users)
	}
}
