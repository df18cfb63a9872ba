package postgres

import (
	"context"
	"fmt"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// OutcomeStore implements storage.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *Pool
}

// NewOutcomeStore creates a new OutcomeStore.
func NewOutcomeStore(pool *Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.OutcomeStore = (*OutcomeStore)(nil)

const insertOutcomeQuery = `
	INSERT INTO trade_outcomes (
		outcome_id, loop_id, run_id, period,
		status, accept_weight, users,
		loop_type, total_watch_value, total_cash_flow, value_efficiency, fairness_score
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const selectOutcomeColumns = `
	outcome_id, loop_id, run_id, period,
	status, accept_weight, users,
	loop_type, total_watch_value, total_cash_flow, value_efficiency, fairness_score
`

// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
func (s *OutcomeStore) Insert(ctx context.Context, o *domain.TradeOutcome) error {
	_, err := s.pool.Exec(ctx, insertOutcomeQuery, outcomeArgs(o)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade outcome: %w", err)
	}
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(ctx context.Context, outcomes []*domain.TradeOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, o := range outcomes {
		if _, err := tx.Exec(ctx, insertOutcomeQuery, outcomeArgs(o)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade outcome in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByRunID retrieves all outcomes of a run, ordered by outcome_id ASC.
func (s *OutcomeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeOutcome, error) {
	query := `SELECT ` + selectOutcomeColumns + `
		FROM trade_outcomes WHERE run_id = $1 ORDER BY outcome_id ASC`

	return s.queryOutcomes(ctx, query, runID)
}

// GetByUser retrieves all outcomes a user participated in,
// ordered by period ASC, outcome_id ASC.
func (s *OutcomeStore) GetByUser(ctx context.Context, userID string) ([]*domain.TradeOutcome, error) {
	query := `SELECT ` + selectOutcomeColumns + `
		FROM trade_outcomes WHERE $1 = ANY(users)
		ORDER BY period ASC, outcome_id ASC`

	return s.queryOutcomes(ctx, query, userID)
}

// GetByStatus retrieves all outcomes with the given status, ordered by outcome_id ASC.
func (s *OutcomeStore) GetByStatus(ctx context.Context, status string) ([]*domain.TradeOutcome, error) {
	query := `SELECT ` + selectOutcomeColumns + `
		FROM trade_outcomes WHERE status = $1 ORDER BY outcome_id ASC`

	return s.queryOutcomes(ctx, query, status)
}

func (s *OutcomeStore) queryOutcomes(ctx context.Context, query string, args ...any) ([]*domain.TradeOutcome, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade outcomes: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeOutcome
	for rows.Next() {
		var o domain.TradeOutcome
		if err := rows.Scan(
			&o.OutcomeID, &o.LoopID, &o.RunID, &o.Period,
			&o.Status, &o.AcceptWeight, &o.Users,
			&o.LoopType, &o.TotalWatchValue, &o.TotalCashFlow, &o.ValueEfficiency, &o.FairnessScore,
		); err != nil {
			return nil, fmt.Errorf("scan trade outcome: %w", err)
		}
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade outcomes: %w", err)
	}
	return result, nil
}

func outcomeArgs(o *domain.TradeOutcome) []any {
	return []any{
		o.OutcomeID, o.LoopID, o.RunID, o.Period,
		o.Status, o.AcceptWeight, o.Users,
		o.LoopType, o.TotalWatchValue, o.TotalCashFlow, o.ValueEfficiency, o.FairnessScore,
	}
}
