package postgres

import (
	"context"
	"fmt"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// OfferStore implements storage.OfferStore using PostgreSQL.
type OfferStore struct {
	pool *Pool
}

// NewOfferStore creates a new OfferStore.
func NewOfferStore(pool *Pool) *OfferStore {
	return &OfferStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OfferStore = (*OfferStore)(nil)

const insertOfferQuery = `
	INSERT INTO offers (
		offer_id, user_id, watch_id, period,
		have_value, min_acceptable_value, max_cash_top_up
	) VALUES ($1, $2, $3, $4, $5, $6, $7)
`

const selectOfferColumns = `
	offer_id, user_id, watch_id, period,
	have_value, min_acceptable_value, max_cash_top_up
`

// Insert adds a new offer. Returns ErrDuplicateKey if offer_id exists.
func (s *OfferStore) Insert(ctx context.Context, o *domain.Offer) error {
	_, err := s.pool.Exec(ctx, insertOfferQuery,
		o.OfferID, o.UserID, o.WatchID, o.Period,
		o.HaveValue, o.MinAcceptableValue, o.MaxCashTopUp,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// InsertBulk adds multiple offers atomically. Fails entire batch on any duplicate.
func (s *OfferStore) InsertBulk(ctx context.Context, offers []*domain.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range offers {
		_, err := tx.Exec(ctx, insertOfferQuery,
			o.OfferID, o.UserID, o.WatchID, o.Period,
			o.HaveValue, o.MinAcceptableValue, o.MaxCashTopUp,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert offer in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves an offer by its ID. Returns ErrNotFound if not exists.
func (s *OfferStore) GetByID(ctx context.Context, offerID string) (*domain.Offer, error) {
	query := `SELECT ` + selectOfferColumns + ` FROM offers WHERE offer_id = $1`

	var o domain.Offer
	err := s.pool.QueryRow(ctx, query, offerID).Scan(
		&o.OfferID, &o.UserID, &o.WatchID, &o.Period,
		&o.HaveValue, &o.MinAcceptableValue, &o.MaxCashTopUp,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get offer by id: %w", err)
	}
	return &o, nil
}

// GetByPeriod retrieves all offers for a period, ordered by user_id ASC.
func (s *OfferStore) GetByPeriod(ctx context.Context, period int) ([]*domain.Offer, error) {
	query := `SELECT ` + selectOfferColumns + `
		FROM offers WHERE period = $1 ORDER BY user_id ASC, offer_id ASC`

	return s.queryOffers(ctx, query, period)
}

// GetAll retrieves every offer, ordered by user_id ASC.
func (s *OfferStore) GetAll(ctx context.Context) ([]*domain.Offer, error) {
	query := `SELECT ` + selectOfferColumns + `
		FROM offers ORDER BY user_id ASC, offer_id ASC`

	return s.queryOffers(ctx, query)
}

func (s *OfferStore) queryOffers(ctx context.Context, query string, args ...any) ([]*domain.Offer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query offers: %w", err)
	}
	defer rows.Close()

	var result []*domain.Offer
	for rows.Next() {
		var o domain.Offer
		if err := rows.Scan(
			&o.OfferID, &o.UserID, &o.WatchID, &o.Period,
			&o.HaveValue, &o.MinAcceptableValue, &o.MaxCashTopUp,
		); err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate offers: %w", err)
	}
	return result, nil
}
