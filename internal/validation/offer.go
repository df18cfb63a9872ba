// Package validation guards the engine boundary: raw offers are checked
// before they reach graph construction, and discovered loops are checked
// against trade rules before execution.
package validation

import (
	"errors"
	"fmt"
	"math"

	"watch-trade-lab/internal/domain"
)

// Validation errors
var (
	// ErrInvalidOffer is returned for an offer with missing identifiers
	// or non-finite / negative numeric fields.
	ErrInvalidOffer = errors.New("invalid offer")

	// ErrNoOffers is returned by callers whose contract requires a
	// non-empty offer set.
	ErrNoOffers = errors.New("no offers supplied")
)

// ValidateOffer checks a single raw offer. The engine assumes validated
// input, so every loader must call this first.
func ValidateOffer(o *domain.Offer) error {
	if o.UserID == "" {
		return fmt.Errorf("%w: empty user_id", ErrInvalidOffer)
	}
	if o.WatchID == "" {
		return fmt.Errorf("%w: empty watch_id (user %s)", ErrInvalidOffer, o.UserID)
	}

	fields := map[string]float64{
		"have_value":           o.HaveValue,
		"min_acceptable_value": o.MinAcceptableValue,
		"max_cash_top_up":      o.MaxCashTopUp,
	}
	for name, v := range fields {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite %s (user %s)", ErrInvalidOffer, name, o.UserID)
		}
		if v < 0 {
			return fmt.Errorf("%w: negative %s (user %s)", ErrInvalidOffer, name, o.UserID)
		}
	}

	return nil
}

// ValidateOffers checks a whole offer sequence, reporting the index of the
// first invalid entry.
func ValidateOffers(offers []domain.Offer) error {
	for i := range offers {
		if err := ValidateOffer(&offers[i]); err != nil {
			return fmt.Errorf("offer %d: %w", i, err)
		}
	}
	return nil
}
