package memory

import (
	"context"
	"sort"
	"sync"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// OutcomeStore is an in-memory implementation of storage.OutcomeStore.
type OutcomeStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeOutcome // keyed by outcome_id
}

// NewOutcomeStore creates a new in-memory outcome store.
func NewOutcomeStore() *OutcomeStore {
	return &OutcomeStore{
		data: make(map[string]*domain.TradeOutcome),
	}
}

var _ storage.OutcomeStore = (*OutcomeStore)(nil)

// Insert adds a new outcome. Returns ErrDuplicateKey if outcome_id exists.
func (s *OutcomeStore) Insert(_ context.Context, o *domain.TradeOutcome) error {
	if o == nil || o.OutcomeID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.OutcomeID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[o.OutcomeID] = copyOutcome(o)
	return nil
}

// InsertBulk adds multiple outcomes atomically. Fails entire batch on any duplicate.
func (s *OutcomeStore) InsertBulk(_ context.Context, outcomes []*domain.TradeOutcome) error {
	if len(outcomes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o == nil || o.OutcomeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[o.OutcomeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[o.OutcomeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[o.OutcomeID] = struct{}{}
	}

	for _, o := range outcomes {
		s.data[o.OutcomeID] = copyOutcome(o)
	}
	return nil
}

// GetByRunID retrieves all outcomes of a run, ordered by outcome_id ASC.
func (s *OutcomeStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeOutcome, error) {
	return s.filter(func(o *domain.TradeOutcome) bool { return o.RunID == runID }), nil
}

// GetByUser retrieves all outcomes a user participated in,
// ordered by period ASC, outcome_id ASC.
func (s *OutcomeStore) GetByUser(_ context.Context, userID string) ([]*domain.TradeOutcome, error) {
	result := s.filter(func(o *domain.TradeOutcome) bool {
		for _, u := range o.Users {
			if u == userID {
				return true
			}
		}
		return false
	})

	sort.Slice(result, func(i, j int) bool {
		if result[i].Period != result[j].Period {
			return result[i].Period < result[j].Period
		}
		return result[i].OutcomeID < result[j].OutcomeID
	})
	return result, nil
}

// GetByStatus retrieves all outcomes with the given status, ordered by outcome_id ASC.
func (s *OutcomeStore) GetByStatus(_ context.Context, status string) ([]*domain.TradeOutcome, error) {
	return s.filter(func(o *domain.TradeOutcome) bool { return o.Status == status }), nil
}

func (s *OutcomeStore) filter(keep func(*domain.TradeOutcome) bool) []*domain.TradeOutcome {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeOutcome
	for _, o := range s.data {
		if keep(o) {
			result = append(result, copyOutcome(o))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].OutcomeID < result[j].OutcomeID
	})
	return result
}

func copyOutcome(o *domain.TradeOutcome) *domain.TradeOutcome {
	cp := *o
	cp.Users = append([]string(nil), o.Users...)
	return &cp
}
