package reporting

import (
	"context"
	"sort"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// topLoopCount limits how many loops the report highlights.
const topLoopCount = 10

// Generator produces reports from stored data.
type Generator struct {
	loopStore storage.LoopStore
	aggStore  storage.RunAggregateStore
	now       func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(loopStore storage.LoopStore, aggStore storage.RunAggregateStore) *Generator {
	return &Generator{
		loopStore: loopStore,
		aggStore:  aggStore,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a report over every aggregated run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	aggs, err := g.aggStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{
		GeneratedAt: g.now(),
		PeriodCount: len(aggs),
	}

	runSet := make(map[string]struct{})
	for _, agg := range aggs {
		runSet[agg.RunID] = struct{}{}
		report.Periods = append(report.Periods, periodRow(agg))
		addToSummary(&report.Summary, agg)
	}
	report.RunCount = len(runSet)
	finishSummary(&report.Summary, aggs)

	topLoops, err := g.collectTopLoops(ctx, aggs)
	if err != nil {
		return nil, err
	}
	report.TopLoops = topLoops

	return report, nil
}

// collectTopLoops loads every aggregated run's loops and keeps the best by
// value efficiency.
func (g *Generator) collectTopLoops(ctx context.Context, aggs []*domain.RunAggregate) ([]LoopRow, error) {
	seen := make(map[string]struct{})
	var loops []*domain.TradeLoop

	for _, agg := range aggs {
		if _, ok := seen[agg.RunID]; ok {
			continue
		}
		seen[agg.RunID] = struct{}{}

		runLoops, err := g.loopStore.GetByRunID(ctx, agg.RunID)
		if err != nil {
			return nil, err
		}
		loops = append(loops, runLoops...)
	}

	sort.Slice(loops, func(i, j int) bool {
		if loops[i].ValueEfficiency != loops[j].ValueEfficiency {
			return loops[i].ValueEfficiency > loops[j].ValueEfficiency
		}
		return loops[i].LoopID < loops[j].LoopID
	})
	if len(loops) > topLoopCount {
		loops = loops[:topLoopCount]
	}

	rows := make([]LoopRow, 0, len(loops))
	for _, l := range loops {
		rows = append(rows, LoopRow{
			LoopID:          l.LoopID,
			RunID:           l.RunID,
			LoopType:        l.LoopType,
			Users:           l.Users,
			Watches:         l.Watches,
			TotalWatchValue: l.TotalWatchValue,
			TotalCashFlow:   l.TotalCashFlow,
			ValueEfficiency: l.ValueEfficiency,
			FairnessScore:   l.RelativeFairnessScore,
		})
	}
	return rows, nil
}

func periodRow(agg *domain.RunAggregate) PeriodRow {
	return PeriodRow{
		RunID:           agg.RunID,
		Period:          agg.Period,
		TotalOffers:     agg.TotalOffers,
		LoopsFound:      agg.LoopsFound,
		TwoWayFound:     agg.TwoWayFound,
		ThreeWayFound:   agg.ThreeWayFound,
		Executed:        agg.Executed,
		Declined:        agg.Declined,
		ExecutionRate:   agg.ExecutionRate,
		UsersMatchedPct: agg.UsersMatchedPct,
		EfficiencyMean:  agg.EfficiencyMean,
		FairnessMean:    agg.FairnessMean,
	}
}

func addToSummary(s *RunSummary, agg *domain.RunAggregate) {
	s.TotalOffers += agg.TotalOffers
	s.LoopsFound += agg.LoopsFound
	s.TwoWayFound += agg.TwoWayFound
	s.ThreeWayFound += agg.ThreeWayFound
	s.Executed += agg.Executed
	s.Declined += agg.Declined
	s.TotalWatchValue += agg.TotalWatchValue
	s.TotalCashFlow += agg.TotalCashFlow
}

// finishSummary computes the ratio fields once all aggregates are summed.
// Means are weighted by the number of loops in each period.
func finishSummary(s *RunSummary, aggs []*domain.RunAggregate) {
	if decided := s.Executed + s.Declined; decided > 0 {
		s.ExecutionRate = float64(s.Executed) / float64(decided)
	}

	var effSum, fairSum float64
	for _, agg := range aggs {
		effSum += agg.EfficiencyMean * float64(agg.LoopsFound)
		fairSum += agg.FairnessMean * float64(agg.LoopsFound)
	}
	if s.LoopsFound > 0 {
		s.EfficiencyMean = effSum / float64(s.LoopsFound)
		s.FairnessMean = fairSum / float64(s.LoopsFound)
	}
}
