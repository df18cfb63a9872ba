package memory

import (
	"context"
	"sort"
	"sync"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// LoopStore is an in-memory implementation of storage.LoopStore.
type LoopStore struct {
	mu   sync.RWMutex
	data map[string]*domain.TradeLoop // keyed by loop_id
}

// NewLoopStore creates a new in-memory loop store.
func NewLoopStore() *LoopStore {
	return &LoopStore{
		data: make(map[string]*domain.TradeLoop),
	}
}

var _ storage.LoopStore = (*LoopStore)(nil)

// Insert adds a new loop. Returns ErrDuplicateKey if loop_id exists.
func (s *LoopStore) Insert(_ context.Context, l *domain.TradeLoop) error {
	if l == nil || l.LoopID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[l.LoopID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[l.LoopID] = copyLoop(l)
	return nil
}

// InsertBulk adds multiple loops atomically. Fails entire batch on any duplicate.
func (s *LoopStore) InsertBulk(_ context.Context, loops []*domain.TradeLoop) error {
	if len(loops) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(loops))
	for _, l := range loops {
		if l == nil || l.LoopID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[l.LoopID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[l.LoopID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[l.LoopID] = struct{}{}
	}

	for _, l := range loops {
		s.data[l.LoopID] = copyLoop(l)
	}
	return nil
}

// GetByID retrieves a loop by its ID. Returns ErrNotFound if not exists.
func (s *LoopStore) GetByID(_ context.Context, loopID string) (*domain.TradeLoop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, exists := s.data[loopID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyLoop(l), nil
}

// GetByRunID retrieves all loops of a run, ordered by loop_id ASC.
func (s *LoopStore) GetByRunID(_ context.Context, runID string) ([]*domain.TradeLoop, error) {
	return s.filter(func(l *domain.TradeLoop) bool { return l.RunID == runID }), nil
}

// GetByType retrieves all loops of a loop type, ordered by loop_id ASC.
func (s *LoopStore) GetByType(_ context.Context, loopType string) ([]*domain.TradeLoop, error) {
	return s.filter(func(l *domain.TradeLoop) bool { return l.LoopType == loopType }), nil
}

func (s *LoopStore) filter(keep func(*domain.TradeLoop) bool) []*domain.TradeLoop {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeLoop
	for _, l := range s.data {
		if keep(l) {
			result = append(result, copyLoop(l))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].LoopID < result[j].LoopID
	})
	return result
}

// copyLoop deep-copies a loop so callers cannot alias stored slices.
func copyLoop(l *domain.TradeLoop) *domain.TradeLoop {
	cp := *l
	cp.Indexes = append([]int(nil), l.Indexes...)
	cp.Users = append([]string(nil), l.Users...)
	cp.Watches = append([]string(nil), l.Watches...)
	cp.Values = append([]float64(nil), l.Values...)
	cp.CashFlows = append([]float64(nil), l.CashFlows...)
	return &cp
}
