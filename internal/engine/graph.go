// Package engine implements the trade-loop discovery core: directed exchange
// graph construction over a fixed offer pool, 2-way and 3-way cycle
// enumeration, and loop scoring.
package engine

import (
	"runtime"
	"sync"

	"watch-trade-lab/internal/domain"
)

// Graph is the directed exchange graph over an immutable offer pool.
// An edge i→j means offer i may legally give its watch to offer j.
// The adjacency structure is write-once: populated by Build and read-only
// afterwards. Each adjacency row is in ascending index order regardless of
// the worker count used to build it.
type Graph struct {
	offers []domain.Offer
	adj    [][]int
}

// Build constructs the exchange graph using one worker per CPU.
// An empty offer slice yields an empty graph, not an error.
func Build(offers []domain.Offer) *Graph {
	return BuildParallel(offers, runtime.GOMAXPROCS(0))
}

// BuildParallel constructs the exchange graph with an explicit worker count.
// Rows are partitioned into contiguous chunks; each worker owns its rows of
// the shared adjacency slice, so the result is identical for any worker
// count. workers < 1 falls back to 1.
func BuildParallel(offers []domain.Offer, workers int) *Graph {
	n := len(offers)
	g := &Graph{
		offers: offers,
		adj:    make([][]int, n),
	}
	if n == 0 {
		return g
	}

	if workers < 1 {
		workers = 1
	}
	if workers > n {
		workers = n
	}

	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := start + chunk
		if end > n {
			end = n
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				var row []int
				for j := 0; j < n; j++ {
					if i != j && canTrade(&offers[i], &offers[j]) {
						row = append(row, j)
					}
				}
				g.adj[i] = row
			}
		}(start, end)
	}
	wg.Wait()

	return g
}

// canTrade reports whether giver may legally pass their watch to receiver:
// the watches must differ, the giver's watch must meet the receiver's
// minimum bar, and any value excess must fit within the receiver's cash
// top-up limit.
func canTrade(giver, receiver *domain.Offer) bool {
	return giver.WatchID != receiver.WatchID &&
		giver.HaveValue >= receiver.MinAcceptableValue &&
		giver.HaveValue-receiver.HaveValue <= receiver.MaxCashTopUp
}

// Size returns the number of offers in the pool.
func (g *Graph) Size() int {
	return len(g.offers)
}

// EdgeCount returns the total number of directed edges.
func (g *Graph) EdgeCount() int {
	total := 0
	for _, row := range g.adj {
		total += len(row)
	}
	return total
}

// HasEdge reports whether the directed edge i→j exists.
func (g *Graph) HasEdge(i, j int) bool {
	return contains(g.adj[i], j)
}

// contains reports whether row holds target. Rows are short in practice;
// rows are sorted ascending so the scan can stop early.
func contains(row []int, target int) bool {
	for _, v := range row {
		if v == target {
			return true
		}
		if v > target {
			return false
		}
	}
	return false
}
