package clickhouse

import (
	"context"
	"fmt"
	"time"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// RunAggregateStore implements storage.RunAggregateStore using ClickHouse.
type RunAggregateStore struct {
	conn *Conn
}

// NewRunAggregateStore creates a new RunAggregateStore.
func NewRunAggregateStore(conn *Conn) *RunAggregateStore {
	return &RunAggregateStore{conn: conn}
}

// Compile-time interface check.
var _ storage.RunAggregateStore = (*RunAggregateStore)(nil)

const insertRunAggregateQuery = `
	INSERT INTO run_aggregates (
		run_id, period,
		total_offers, edges_built, loops_found, two_way_found, three_way_found,
		executed, declined, execution_rate, users_matched, users_matched_pct,
		total_watch_value, total_cash_flow,
		efficiency_mean, efficiency_min, efficiency_max,
		fairness_mean, avg_participants, created_at
	) VALUES (
		?, ?,
		?, ?, ?, ?, ?,
		?, ?, ?, ?, ?,
		?, ?,
		?, ?, ?,
		?, ?, ?
	)
`

const selectRunAggregateCols = `
	SELECT
		run_id, period,
		total_offers, edges_built, loops_found, two_way_found, three_way_found,
		executed, declined, execution_rate, users_matched, users_matched_pct,
		total_watch_value, total_cash_flow,
		efficiency_mean, efficiency_min, efficiency_max,
		fairness_mean, avg_participants, created_at
	FROM run_aggregates
`

// Insert adds a new aggregate. Returns ErrDuplicateKey if the
// (run_id, period) key already exists.
func (s *RunAggregateStore) Insert(ctx context.Context, a *domain.RunAggregate) error {
	// MergeTree doesn't enforce uniqueness, so check first for
	// append-only semantics.
	exists, err := s.exists(ctx, a.RunID, a.Period)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	if err := s.conn.Exec(ctx, insertRunAggregateQuery, aggregateArgs(a)...); err != nil {
		return fmt.Errorf("insert run aggregate: %w", err)
	}
	return nil
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *RunAggregateStore) InsertBulk(ctx context.Context, aggregates []*domain.RunAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[string]struct{})
	for _, a := range aggregates {
		key := fmt.Sprintf("%s|%d", a.RunID, a.Period)
		if _, dup := seen[key]; dup {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	for _, a := range aggregates {
		exists, err := s.exists(ctx, a.RunID, a.Period)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO run_aggregates (
			run_id, period,
			total_offers, edges_built, loops_found, two_way_found, three_way_found,
			executed, declined, execution_rate, users_matched, users_matched_pct,
			total_watch_value, total_cash_flow,
			efficiency_mean, efficiency_min, efficiency_max,
			fairness_mean, avg_participants, created_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, a := range aggregates {
		if err := batch.Append(aggregateArgs(a)...); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetByRunID retrieves all aggregates for a run ordered by period.
func (s *RunAggregateStore) GetByRunID(ctx context.Context, runID string) ([]*domain.RunAggregate, error) {
	query := selectRunAggregateCols + `
		WHERE run_id = ?
		ORDER BY period ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query by run: %w", err)
	}
	defer rows.Close()

	return scanRunAggregates(rows)
}

// GetAll retrieves all aggregates.
func (s *RunAggregateStore) GetAll(ctx context.Context) ([]*domain.RunAggregate, error) {
	query := selectRunAggregateCols + `
		ORDER BY run_id ASC, period ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all: %w", err)
	}
	defer rows.Close()

	return scanRunAggregates(rows)
}

// exists checks if an aggregate with the given key exists.
func (s *RunAggregateStore) exists(ctx context.Context, runID string, period int) (bool, error) {
	query := `
		SELECT count(*) FROM run_aggregates
		WHERE run_id = ? AND period = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, runID, int32(period)).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// aggregateArgs converts an aggregate into driver-typed insert arguments.
func aggregateArgs(a *domain.RunAggregate) []any {
	return []any{
		a.RunID, int32(a.Period),
		int64(a.TotalOffers), int64(a.EdgesBuilt), int64(a.LoopsFound),
		int64(a.TwoWayFound), int64(a.ThreeWayFound),
		int64(a.Executed), int64(a.Declined), a.ExecutionRate,
		int64(a.UsersMatched), a.UsersMatchedPct,
		a.TotalWatchValue, a.TotalCashFlow,
		a.EfficiencyMean, a.EfficiencyMin, a.EfficiencyMax,
		a.FairnessMean, a.AvgParticipants,
		time.UnixMilli(a.CreatedAt).UTC(),
	}
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanRunAggregates scans multiple rows into a slice.
func scanRunAggregates(rows chRows) ([]*domain.RunAggregate, error) {
	var aggregates []*domain.RunAggregate

	for rows.Next() {
		var (
			a         domain.RunAggregate
			period    int32
			counts    [8]int64
			createdAt time.Time
		)
		err := rows.Scan(
			&a.RunID, &period,
			&counts[0], &counts[1], &counts[2], &counts[3], &counts[4],
			&counts[5], &counts[6], &a.ExecutionRate, &counts[7], &a.UsersMatchedPct,
			&a.TotalWatchValue, &a.TotalCashFlow,
			&a.EfficiencyMean, &a.EfficiencyMin, &a.EfficiencyMax,
			&a.FairnessMean, &a.AvgParticipants, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		a.Period = int(period)
		a.TotalOffers = int(counts[0])
		a.EdgesBuilt = int(counts[1])
		a.LoopsFound = int(counts[2])
		a.TwoWayFound = int(counts[3])
		a.ThreeWayFound = int(counts[4])
		a.Executed = int(counts[5])
		a.Declined = int(counts[6])
		a.UsersMatched = int(counts[7])
		a.CreatedAt = createdAt.UnixMilli()
		aggregates = append(aggregates, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return aggregates, nil
}
