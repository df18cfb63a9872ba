package domain

// Offer represents one party's standing barter offer: the watch they hold
// and the conditions under which they will accept another watch in trade.
// Offers are immutable once loaded into a matching pass.
type Offer struct {
	OfferID string // deterministic hash, assigned at the boundary
	UserID  string // party making the offer
	WatchID string // watch currently held
	Period  int    // simulation period the offer entered the pool (0 for ad hoc input)

	HaveValue          float64 // value of the held watch
	MinAcceptableValue float64 // minimum value required in the watch received
	MaxCashTopUp       float64 // maximum value gap the party will cover in cash
}
