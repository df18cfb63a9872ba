package memory

import (
	"context"
	"sort"
	"sync"

	"watch-trade-lab/internal/domain"
	"watch-trade-lab/internal/storage"
)

// OfferStore is an in-memory implementation of storage.OfferStore.
type OfferStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Offer // keyed by offer_id
}

// NewOfferStore creates a new in-memory offer store.
func NewOfferStore() *OfferStore {
	return &OfferStore{
		data: make(map[string]*domain.Offer),
	}
}

var _ storage.OfferStore = (*OfferStore)(nil)

// Insert adds a new offer. Returns ErrDuplicateKey if offer_id exists.
func (s *OfferStore) Insert(_ context.Context, o *domain.Offer) error {
	if o == nil || o.OfferID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.OfferID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *o
	s.data[o.OfferID] = &cp
	return nil
}

// InsertBulk adds multiple offers atomically. Fails entire batch on any duplicate.
func (s *OfferStore) InsertBulk(_ context.Context, offers []*domain.Offer) error {
	if len(offers) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(offers))
	for _, o := range offers {
		if o == nil || o.OfferID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[o.OfferID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[o.OfferID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[o.OfferID] = struct{}{}
	}

	for _, o := range offers {
		cp := *o
		s.data[o.OfferID] = &cp
	}
	return nil
}

// GetByID retrieves an offer by its ID. Returns ErrNotFound if not exists.
func (s *OfferStore) GetByID(_ context.Context, offerID string) (*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, exists := s.data[offerID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *o
	return &cp, nil
}

// GetByPeriod retrieves all offers for a period, ordered by user_id ASC.
func (s *OfferStore) GetByPeriod(_ context.Context, period int) ([]*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Offer
	for _, o := range s.data {
		if o.Period == period {
			cp := *o
			result = append(result, &cp)
		}
	}

	sortOffers(result)
	return result, nil
}

// GetAll retrieves every offer, ordered by user_id ASC.
func (s *OfferStore) GetAll(_ context.Context) ([]*domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.Offer, 0, len(s.data))
	for _, o := range s.data {
		cp := *o
		result = append(result, &cp)
	}

	sortOffers(result)
	return result, nil
}

func sortOffers(offers []*domain.Offer) {
	sort.Slice(offers, func(i, j int) bool {
		if offers[i].UserID != offers[j].UserID {
			return offers[i].UserID < offers[j].UserID
		}
		return offers[i].OfferID < offers[j].OfferID
	})
}
