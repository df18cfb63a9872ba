package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watch-trade-lab/internal/domain"
)

func TestCanTrade(t *testing.T) {
	tests := []struct {
		name     string
		giver    domain.Offer
		receiver domain.Offer
		want     bool
	}{
		{
			name:     "legal exchange",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 1000},
			receiver: domain.Offer{WatchID: "W2", HaveValue: 1200, MinAcceptableValue: 1000, MaxCashTopUp: 300},
			want:     true,
		},
		{
			name:     "same watch model rejected",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 1000},
			receiver: domain.Offer{WatchID: "W1", HaveValue: 800, MinAcceptableValue: 500, MaxCashTopUp: 500},
			want:     false,
		},
		{
			name:     "giver value below receiver minimum",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 800},
			receiver: domain.Offer{WatchID: "W2", HaveValue: 900, MinAcceptableValue: 850, MaxCashTopUp: 100},
			want:     false,
		},
		{
			name:     "value gap exceeds receiver top-up",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 1500},
			receiver: domain.Offer{WatchID: "W2", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 400},
			want:     false,
		},
		{
			name:     "value gap exactly at top-up limit",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 1400},
			receiver: domain.Offer{WatchID: "W2", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 400},
			want:     true,
		},
		{
			name:     "cheaper watch satisfies top-up trivially",
			giver:    domain.Offer{WatchID: "W1", HaveValue: 950},
			receiver: domain.Offer{WatchID: "W2", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 0},
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canTrade(&tt.giver, &tt.receiver)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuild_EmptyPool(t *testing.T) {
	g := Build(nil)

	assert.Equal(t, 0, g.Size())
	assert.Equal(t, 0, g.EdgeCount())
	assert.Nil(t, g.FindLoops(100, nil))
}

func TestBuild_NoSelfLoops(t *testing.T) {
	// Identical constraints would make every pair legal; the index check
	// must still exclude i→i.
	offers := make([]domain.Offer, 10)
	for i := range offers {
		offers[i] = domain.Offer{
			UserID:             fmt.Sprintf("U%d", i),
			WatchID:            fmt.Sprintf("W%d", i),
			HaveValue:          1000,
			MinAcceptableValue: 0,
			MaxCashTopUp:       10000,
		}
	}

	g := Build(offers)
	for i := range offers {
		assert.False(t, g.HasEdge(i, i), "self-loop at index %d", i)
	}
}

func TestBuild_SpecScenarioEdges(t *testing.T) {
	// A(item=W1, have=1000, min=900, top=200), B(item=W2, have=1200,
	// min=1000, top=300): both directions must be legal.
	offers := []domain.Offer{
		{UserID: "A", WatchID: "W1", HaveValue: 1000, MinAcceptableValue: 900, MaxCashTopUp: 200},
		{UserID: "B", WatchID: "W2", HaveValue: 1200, MinAcceptableValue: 1000, MaxCashTopUp: 300},
	}

	g := Build(offers)

	assert.True(t, g.HasEdge(0, 1), "A→B: 1000≥1000 and 1000−1200=−200≤300")
	assert.True(t, g.HasEdge(1, 0), "B→A: 1200≥900 and 1200−1000=200≤200")
}

func TestBuildParallel_OrderIndependence(t *testing.T) {
	offers := mutuallyTradablePool(37)

	reference := BuildParallel(offers, 1)
	for _, workers := range []int{2, 3, 8, 64} {
		g := BuildParallel(offers, workers)
		require.Equal(t, reference.adj, g.adj, "adjacency differs with %d workers", workers)
	}
}

func TestBuild_AdjacencyRowsAscending(t *testing.T) {
	offers := mutuallyTradablePool(20)
	g := Build(offers)

	for i, row := range g.adj {
		for p := 1; p < len(row); p++ {
			require.Less(t, row[p-1], row[p], "row %d not ascending", i)
		}
	}
}

// mutuallyTradablePool builds n offers with distinct watches, staggered
// values, and constraints loose enough that most ordered pairs are legal.
func mutuallyTradablePool(n int) []domain.Offer {
	offers := make([]domain.Offer, n)
	for i := range offers {
		offers[i] = domain.Offer{
			UserID:             fmt.Sprintf("U%03d", i),
			WatchID:            fmt.Sprintf("W%03d", i),
			HaveValue:          1000 + float64(i%7)*50,
			MinAcceptableValue: 900,
			MaxCashTopUp:       500,
		}
	}
	return offers
}
