// Package generator produces synthetic offer populations for matching and
// simulation runs. All randomness flows through an injected *rand.Rand so a
// seeded source reproduces the exact same population.
package generator

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/idhash"
)

// Default profile constants: owners accept up to 20% less than their own
// watch's value, and will top up to 20% of it in cash.
const (
	defaultMinAcceptFactor = 0.8
	DefaultTopUpFactor     = 0.2
)

// Params controls one generated population.
type Params struct {
	Count       int
	Period      int     // stamped on offers and user IDs; 0 for ad hoc runs
	TopUpFactor float64 // 0 falls back to DefaultTopUpFactor
}

// Generator draws offers from a watch catalog.
type Generator struct {
	catalog Catalog
	watches []string // catalog keys in sorted order for deterministic draws
	rng     *rand.Rand
}

// New creates a generator over a catalog. rng must not be nil.
func New(catalog Catalog, rng *rand.Rand) *Generator {
	watches := make([]string, 0, len(catalog))
	for w := range catalog {
		watches = append(watches, w)
	}
	sort.Strings(watches)

	return &Generator{catalog: catalog, watches: watches, rng: rng}
}

// Generate produces p.Count offers. Each owner holds a random catalog watch
// with ±10% value variation; acceptance minimum and cash top-up derive from
// the held value.
func (g *Generator) Generate(p Params) ([]domain.Offer, error) {
	if len(g.watches) == 0 {
		return nil, fmt.Errorf("generate offers: empty catalog")
	}
	if p.Count < 0 {
		return nil, fmt.Errorf("generate offers: negative count %d", p.Count)
	}

	topUpFactor := p.TopUpFactor
	if topUpFactor == 0 {
		topUpFactor = DefaultTopUpFactor
	}

	offers := make([]domain.Offer, p.Count)
	for i := 0; i < p.Count; i++ {
		watch := g.watches[g.rng.Intn(len(g.watches))]
		base := g.catalog[watch]

		variation := g.rng.Float64()*0.2 - 0.1 // ±10%
		haveValue := round2(base * (1 + variation))

		userID := fmt.Sprintf("U%05d", i+1)
		if p.Period > 0 {
			userID = fmt.Sprintf("P%d-U%05d", p.Period, i+1)
		}

		offers[i] = domain.Offer{
			UserID:             userID,
			WatchID:            watch,
			Period:             p.Period,
			HaveValue:          haveValue,
			MinAcceptableValue: round2(haveValue * defaultMinAcceptFactor),
			MaxCashTopUp:       round2(haveValue * topUpFactor),
		}
		offers[i].OfferID = idhash.ComputeOfferID(
			offers[i].UserID, watch, haveValue,
			offers[i].MinAcceptableValue, offers[i].MaxCashTopUp, p.Period,
		)
	}

	return offers, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
