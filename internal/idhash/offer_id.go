package idhash

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// ComputeOfferID computes a deterministic offer_id using SHA256.
// Formula: SHA256(user_id|watch_id|have_value|min_acceptable_value|max_cash_top_up|period)
// Returns the base58-encoded hash (44 characters).
func ComputeOfferID(
	userID string,
	watchID string,
	haveValue float64,
	minAcceptableValue float64,
	maxCashTopUp float64,
	period int,
) string {
	data := fmt.Sprintf("%s|%s|%.6f|%.6f|%.6f|%d",
		userID,
		watchID,
		haveValue,
		minAcceptableValue,
		maxCashTopUp,
		period,
	)

	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeLoopID computes a deterministic loop_id over the participants of a
// cycle in cycle order.
// Formula: SHA256(run_id|loop_type|user_1|user_2[|user_3])
// Returns the base58-encoded hash.
func ComputeLoopID(runID string, loopType string, users []string) string {
	data := fmt.Sprintf("%s|%s|%s", runID, loopType, strings.Join(users, "|"))
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// ComputeOutcomeID computes a deterministic outcome_id for a simulated
// decision on a loop.
// Formula: SHA256(loop_id|period|status)
func ComputeOutcomeID(loopID string, period int, status string) string {
	data := fmt.Sprintf("%s|%d|%s", loopID, period, status)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}
