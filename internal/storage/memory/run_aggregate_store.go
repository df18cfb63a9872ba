package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// RunAggregateStore is an in-memory implementation of storage.RunAggregateStore.
type RunAggregateStore struct {
	mu   sync.RWMutex
	data map[string]*domain.RunAggregate // keyed by run_id|period
}

// NewRunAggregateStore creates a new in-memory run aggregate store.
func NewRunAggregateStore() *RunAggregateStore {
	return &RunAggregateStore{
		data: make(map[string]*domain.RunAggregate),
	}
}

var _ storage.RunAggregateStore = (*RunAggregateStore)(nil)

func aggKey(a *domain.RunAggregate) string {
	return fmt.Sprintf("%s|%d", a.RunID, a.Period)
}

// Insert adds a new aggregate. Returns ErrDuplicateKey if (run_id, period) exists.
func (s *RunAggregateStore) Insert(_ context.Context, a *domain.RunAggregate) error {
	if a == nil || a.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := aggKey(a)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *a
	s.data[key] = &cp
	return nil
}

// InsertBulk adds multiple aggregates atomically. Fails entire batch on any duplicate.
func (s *RunAggregateStore) InsertBulk(_ context.Context, aggregates []*domain.RunAggregate) error {
	if len(aggregates) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(aggregates))
	for _, a := range aggregates {
		if a == nil || a.RunID == "" {
			return storage.ErrInvalidInput
		}
		key := aggKey(a)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, a := range aggregates {
		cp := *a
		s.data[aggKey(a)] = &cp
	}
	return nil
}

// GetByRunID retrieves all aggregates of a run, ordered by period ASC.
func (s *RunAggregateStore) GetByRunID(_ context.Context, runID string) ([]*domain.RunAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.RunAggregate
	for _, a := range s.data {
		if a.RunID == runID {
			cp := *a
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Period < result[j].Period
	})
	return result, nil
}

// GetAll retrieves every aggregate, ordered by created_at ASC.
func (s *RunAggregateStore) GetAll(_ context.Context) ([]*domain.RunAggregate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.RunAggregate, 0, len(s.data))
	for _, a := range s.data {
		cp := *a
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt < result[j].CreatedAt
		}
		return aggKey(result[i]) < aggKey(result[j])
	})
	return result, nil
}
