package postgres

import (
	"context"
	"fmt"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// LoopStore implements storage.LoopStore using PostgreSQL.
// Per-position fields are stored as Postgres arrays.
type LoopStore struct {
	pool *Pool
}

// NewLoopStore creates a new LoopStore.
func NewLoopStore(pool *Pool) *LoopStore {
	return &LoopStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LoopStore = (*LoopStore)(nil)

const insertLoopQuery = `
	INSERT INTO trade_loops (
		loop_id, run_id, loop_type,
		indexes, users, watches, watch_values, cash_flows,
		total_watch_value, total_cash_flow, value_efficiency, fairness_score
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const selectLoopColumns = `
	loop_id, run_id, loop_type,
	indexes, users, watches, watch_values, cash_flows,
	total_watch_value, total_cash_flow, value_efficiency, fairness_score
`

// Insert adds a new loop. Returns ErrDuplicateKey if loop_id exists.
func (s *LoopStore) Insert(ctx context.Context, l *domain.TradeLoop) error {
	_, err := s.pool.Exec(ctx, insertLoopQuery, loopArgs(l)...)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade loop: %w", err)
	}
	return nil
}

// InsertBulk adds multiple loops atomically. Fails entire batch on any duplicate.
func (s *LoopStore) InsertBulk(ctx context.Context, loops []*domain.TradeLoop) error {
	if len(loops) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, l := range loops {
		if _, err := tx.Exec(ctx, insertLoopQuery, loopArgs(l)...); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade loop in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// GetByID retrieves a loop by its ID. Returns ErrNotFound if not exists.
func (s *LoopStore) GetByID(ctx context.Context, loopID string) (*domain.TradeLoop, error) {
	query := `SELECT ` + selectLoopColumns + ` FROM trade_loops WHERE loop_id = $1`

	var l domain.TradeLoop
	var indexes []int32
	err := s.pool.QueryRow(ctx, query, loopID).Scan(
		&l.LoopID, &l.RunID, &l.LoopType,
		&indexes, &l.Users, &l.Watches, &l.Values, &l.CashFlows,
		&l.TotalWatchValue, &l.TotalCashFlow, &l.ValueEfficiency, &l.RelativeFairnessScore,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get trade loop by id: %w", err)
	}
	l.Indexes = fromInt32s(indexes)
	return &l, nil
}

// GetByRunID retrieves all loops of a run, ordered by loop_id ASC.
func (s *LoopStore) GetByRunID(ctx context.Context, runID string) ([]*domain.TradeLoop, error) {
	query := `SELECT ` + selectLoopColumns + `
		FROM trade_loops WHERE run_id = $1 ORDER BY loop_id ASC`

	return s.queryLoops(ctx, query, runID)
}

// GetByType retrieves all loops of a loop type, ordered by loop_id ASC.
func (s *LoopStore) GetByType(ctx context.Context, loopType string) ([]*domain.TradeLoop, error) {
	query := `SELECT ` + selectLoopColumns + `
		FROM trade_loops WHERE loop_type = $1 ORDER BY loop_id ASC`

	return s.queryLoops(ctx, query, loopType)
}

func (s *LoopStore) queryLoops(ctx context.Context, query string, args ...any) ([]*domain.TradeLoop, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trade loops: %w", err)
	}
	defer rows.Close()

	var result []*domain.TradeLoop
	for rows.Next() {
		var l domain.TradeLoop
		var indexes []int32
		if err := rows.Scan(
			&l.LoopID, &l.RunID, &l.LoopType,
			&indexes, &l.Users, &l.Watches, &l.Values, &l.CashFlows,
			&l.TotalWatchValue, &l.TotalCashFlow, &l.ValueEfficiency, &l.RelativeFairnessScore,
		); err != nil {
			return nil, fmt.Errorf("scan trade loop: %w", err)
		}
		l.Indexes = fromInt32s(indexes)
		result = append(result, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade loops: %w", err)
	}
	return result, nil
}

func loopArgs(l *domain.TradeLoop) []any {
	return []any{
		l.LoopID, l.RunID, l.LoopType,
		toInt32s(l.Indexes), l.Users, l.Watches, l.Values, l.CashFlows,
		l.TotalWatchValue, l.TotalCashFlow, l.ValueEfficiency, l.RelativeFairnessScore,
	}
}

func toInt32s(v []int) []int32 {
	out := make([]int32, len(v))
	for i, x := range v {
		out[i] = int32(x)
	}
	return out
}

func fromInt32s(v []int32) []int {
	out := make([]int, len(v))
	for i, x := range v {
		out[i] = int(x)
	}
	return out
}
