package generator

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/idhash"
)

// offerJSON is the on-disk representation of an offer.
type offerJSON struct {
	OfferID            string  `json:"offer_id"`
	UserID             string  `json:"user_id"`
	WatchID            string  `json:"watch_id"`
	Period             int     `json:"period"`
	HaveValue          float64 `json:"have_value"`
	MinAcceptableValue float64 `json:"min_acceptable_value"`
	MaxCashTopUp       float64 `json:"max_cash_top_up"`
}

// SaveOffers writes offers to a JSON file.
func SaveOffers(path string, offers []domain.Offer) error {
	rows := make([]offerJSON, len(offers))
	for i, o := range offers {
		rows[i] = offerJSON{
			OfferID:            o.OfferID,
			UserID:             o.UserID,
			WatchID:            o.WatchID,
			Period:             o.Period,
			HaveValue:          o.HaveValue,
			MinAcceptableValue: o.MinAcceptableValue,
			MaxCashTopUp:       o.MaxCashTopUp,
		}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal offers: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write offers file: %w", err)
	}
	return nil
}

// LoadOffers reads offers from a JSON file.
func LoadOffers(path string) ([]domain.Offer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read offers file: %w", err)
	}

	var rows []offerJSON
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse offers file: %w", err)
	}

	offers := make([]domain.Offer, len(rows))
	for i, r := range rows {
		offers[i] = domain.Offer{
			OfferID:            r.OfferID,
			UserID:             r.UserID,
			WatchID:            r.WatchID,
			Period:             r.Period,
			HaveValue:          r.HaveValue,
			MinAcceptableValue: r.MinAcceptableValue,
			MaxCashTopUp:       r.MaxCashTopUp,
		}
	}
	return offers, nil
}

// LoadOffersFile reads offers from a JSON or CSV file, picked by extension.
func LoadOffersFile(path string) ([]domain.Offer, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadOffersCSV(path)
	}
	return LoadOffers(path)
}

// offerCSVHeader is the expected column order of an offers CSV file.
var offerCSVHeader = []string{
	"offer_id", "user_id", "watch_id", "period",
	"have_value", "min_acceptable_value", "max_cash_top_up",
}

// LoadOffersCSV reads offers from a CSV file with a header row.
// An empty offer_id column is filled with the deterministic hash.
func LoadOffersCSV(path string) ([]domain.Offer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open offers file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse offers csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("offers csv %s: missing header row", path)
	}
	if len(records[0]) != len(offerCSVHeader) {
		return nil, fmt.Errorf("offers csv %s: expected %d columns, got %d",
			path, len(offerCSVHeader), len(records[0]))
	}

	offers := make([]domain.Offer, 0, len(records)-1)
	for i, rec := range records[1:] {
		period, err := strconv.Atoi(rec[3])
		if err != nil {
			return nil, fmt.Errorf("offers csv row %d: period: %w", i+1, err)
		}
		haveValue, err := strconv.ParseFloat(rec[4], 64)
		if err != nil {
			return nil, fmt.Errorf("offers csv row %d: have_value: %w", i+1, err)
		}
		minValue, err := strconv.ParseFloat(rec[5], 64)
		if err != nil {
			return nil, fmt.Errorf("offers csv row %d: min_acceptable_value: %w", i+1, err)
		}
		topUp, err := strconv.ParseFloat(rec[6], 64)
		if err != nil {
			return nil, fmt.Errorf("offers csv row %d: max_cash_top_up: %w", i+1, err)
		}

		offerID := rec[0]
		if offerID == "" {
			offerID = idhash.ComputeOfferID(rec[1], rec[2], haveValue, minValue, topUp, period)
		}
		offers = append(offers, domain.Offer{
			OfferID:            offerID,
			UserID:             rec[1],
			WatchID:            rec[2],
			Period:             period,
			HaveValue:          haveValue,
			MinAcceptableValue: minValue,
			MaxCashTopUp:       topUp,
		})
	}
	return offers, nil
}
