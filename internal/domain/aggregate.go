package domain

// RunAggregate summarizes one match run (or one simulation period) for
// analytical storage. Corresponds to the run_aggregates table.
type RunAggregate struct {
	RunID  string
	Period int // 0 for ad hoc runs

	// Pool
	TotalOffers  int
	EdgesBuilt   int
	LoopsFound   int
	TwoWayFound  int
	ThreeWayFound int

	// Simulation outcomes (zero for pure matching runs)
	Executed      int
	Declined      int
	ExecutionRate float64 // executed / (executed + declined), 0 when no decisions
	UsersMatched  int
	UsersMatchedPct float64 // users matched / total offers

	// Loop quality over discovered loops
	TotalWatchValue float64
	TotalCashFlow   float64
	EfficiencyMean  float64
	EfficiencyMin   float64
	EfficiencyMax   float64
	FairnessMean    float64
	AvgParticipants float64 // (2*twoWay + 3*threeWay) / loops

	CreatedAt int64 // unix ms
}
