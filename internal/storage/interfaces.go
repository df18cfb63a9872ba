package storage

import (
	"context"

	"watch-trade-lab/internal/domain"
)

// OfferStore provides access to offers storage.
type OfferStore interface {
	// Insert adds a new offer. Returns ErrDuplicateKey if offer_id exists.
	Insert(ctx context.Context, o *domain.Offer) error

	// InsertBulk adds multiple offers atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, offers []*domain.Offer) error

	// GetByID retrieves an offer by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, offerID string) (*domain.Offer, error)

	// GetByPeriod retrieves all offers for a period, ordered by user_id ASC.
	GetByPeriod(ctx context.Context, period int) ([]*domain.Offer, error)

	// GetAll retrieves every offer, ordered by user_id ASC.
	GetAll(ctx context.Context) ([]*domain.Offer, error)
}

// LoopStore provides access to trade_loops storage.
type LoopStore interface {
	// Insert adds a new loop. Returns ErrDuplicateKey if loop_id exists.
	Insert(ctx context.Context, l *domain.TradeLoop) error

	// InsertBulk adds multiple loops atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, loops []*domain.TradeLoop) error

	// GetByID retrieves a loop by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, loopID string) (*domain.TradeLoop, error)

	// GetByRunID retrieves all loops of a run, ordered by loop_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeLoop, error)

	// GetByType retrieves all loops of a loop type, ordered by loop_id ASC.
	GetByType(ctx context.Context, loopType string) ([]*domain.TradeLoop, error)
}

// OutcomeStore provides access to trade_outcomes storage.
type OutcomeStore interface {
	// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
	Insert(ctx context.Context, o *domain.TradeOutcome) error

	// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, outcomes []*domain.TradeOutcome) error

	// GetByRunID retrieves all outcomes of a run, ordered by outcome_id ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.TradeOutcome, error)

	// GetByUser retrieves all outcomes a user participated in,
	// ordered by period ASC, outcome_id ASC.
	GetByUser(ctx context.Context, userID string) ([]*domain.TradeOutcome, error)

	// GetByStatus retrieves all outcomes with the given status,
	// ordered by outcome_id ASC.
	GetByStatus(ctx context.Context, status string) ([]*domain.TradeOutcome, error)
}

// RunAggregateStore provides access to run_aggregates storage.
type RunAggregateStore interface {
	// Insert adds a new aggregate. Returns ErrDuplicateKey if (run_id, period) exists.
	Insert(ctx context.Context, a *domain.RunAggregate) error

	// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, aggregates []*domain.RunAggregate) error

	// GetByRunID retrieves all aggregates of a run, ordered by period ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.RunAggregate, error)

	// GetAll retrieves every aggregate, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.RunAggregate, error)
}
