package domain

// Loop type constants
const (
	LoopTypeTwoWay   = "2-way"
	LoopTypeThreeWay = "3-way"
)

// TradeLoop is a fully materialized closed exchange cycle: each participant
// passes their watch to the next participant in cycle order, with cash
// compensating any value gap. Records are immutable once produced and carry
// copies of the offer scalars they need for display; they hold no reference
// back to the offer pool.
type TradeLoop struct {
	LoopID   string // deterministic hash over participants, assigned at scoring
	RunID    string // match run the loop was discovered in
	LoopType string // "2-way" | "3-way"

	// Aligned by position in cycle order.
	Indexes []int     // offer indexes within the matched pool
	Users   []string  // user_id per position
	Watches []string  // watch_id per position
	Values  []float64 // have_value per position

	// CashFlows[p] is the value participant p must compensate (positive)
	// or receive (negative) relative to the next participant in cycle order.
	CashFlows []float64

	TotalWatchValue       float64 // sum of participant values
	TotalCashFlow         float64 // sum of absolute cash flows
	ValueEfficiency       float64 // twv / (twv + tcf); 0 when twv is 0
	RelativeFairnessScore float64 // 1 - stddev/mean of values, in [0, 1]
}

// Participants returns the number of positions in the cycle.
func (l *TradeLoop) Participants() int {
	return len(l.Indexes)
}
