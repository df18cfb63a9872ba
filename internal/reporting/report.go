package reporting

import "time"

// Report represents a matching/simulation report.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunCount    int
	PeriodCount int

	// Totals across all aggregated runs
	Summary RunSummary

	// Per-period rows (sorted by run_id, period)
	Periods []PeriodRow

	// Best discovered loops by value efficiency
	TopLoops []LoopRow
}

// RunSummary contains totals over every aggregated run.
type RunSummary struct {
	TotalOffers     int
	LoopsFound      int
	TwoWayFound     int
	ThreeWayFound   int
	Executed        int
	Declined        int
	ExecutionRate   float64
	TotalWatchValue float64
	TotalCashFlow   float64
	EfficiencyMean  float64
	FairnessMean    float64
}

// PeriodRow represents one aggregated run period.
type PeriodRow struct {
	RunID           string
	Period          int
	TotalOffers     int
	LoopsFound      int
	TwoWayFound     int
	ThreeWayFound   int
	Executed        int
	Declined        int
	ExecutionRate   float64
	UsersMatchedPct float64
	EfficiencyMean  float64
	FairnessMean    float64
}

// OutcomeRow represents one simulated decision on a loop.
type OutcomeRow struct {
	OutcomeID       string
	LoopID          string
	RunID           string
	Period          int
	Status          string
	AcceptWeight    float64
	Users           []string
	LoopType        string
	ValueEfficiency float64
	FairnessScore   float64
}

// LoopRow represents one discovered loop.
type LoopRow struct {
	LoopID          string
	RunID           string
	LoopType        string
	Users           []string
	Watches         []string
	TotalWatchValue float64
	TotalCashFlow   float64
	ValueEfficiency float64
	FairnessScore   float64
}
