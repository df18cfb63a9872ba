package domain

// Outcome status codes
const (
	OutcomeStatusExecuted = "EXECUTED"
	OutcomeStatusDeclined = "DECLINED"
	OutcomeStatusSkipped  = "SKIPPED" // a participant was already committed elsewhere
)

// User status codes within a simulation period
const (
	UserStatusAvailable = "available"
	UserStatusMatched   = "matched"
	UserStatusDeclined  = "declined"
)

// TradeOutcome records the fate of one discovered loop during a simulation
// round: whether the participants accepted it, and the acceptance weight the
// decision was drawn against.
type TradeOutcome struct {
	OutcomeID string // deterministic hash
	LoopID    string
	RunID     string
	Period    int

	Status       string   // EXECUTED | DECLINED | SKIPPED
	AcceptWeight float64  // probability the loop was accepted with
	Users        []string // participants, cycle order

	LoopType        string
	TotalWatchValue float64
	TotalCashFlow   float64
	ValueEfficiency float64
	FairnessScore   float64
}
