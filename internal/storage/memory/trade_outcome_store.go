package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// TradeOutcomeStore is an in-memory implementation of storage.TradeOutcomeStore.
type TradeOutcomeStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.TradeOutcome // keyed by signal_id
	signalTime map[string]int64                // signal_id -> timestamp for range queries
}

// NewTradeOutcomeStore creates a new in-memory trade outcome store.
func NewTradeOutcomeStore() *TradeOutcomeStore {
	return &TradeOutcomeStore{
		data:       make(map[string]*domain.TradeOutcome),
		signalTime: make(map[string]int64),
	}
}

// Insert adds a new outcome. Returns ErrDuplicateKey if signal_id exists.
// The signal timestamp is recorded alongside so range queries work
// without a join.
func (s *TradeOutcomeStore) Insert(_ context.Context, o *domain.TradeOutcome, signalTimestamp int64) error {
	if o == nil || o.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[o.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *o
	s.data[o.SignalID] = &cp
	s.signalTime[o.SignalID] = signalTimestamp
	return nil
}

// GetBySignalIDs retrieves outcomes for the given signal ids.
func (s *TradeOutcomeStore) GetBySignalIDs(_ context.Context, signalIDs []string) ([]*domain.TradeOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeOutcome
	for _, id := range signalIDs {
		if o, exists := s.data[id]; exists {
			cp := *o
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].SignalID < result[j].SignalID
	})

	return result, nil
}

// GetByTimeRange retrieves outcomes whose signal fired within [start, end].
func (s *TradeOutcomeStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.TradeOutcome, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.TradeOutcome
	for id, o := range s.data {
		ts := s.signalTime[id]
		if ts >= start && ts <= end {
			cp := *o
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if s.signalTime[result[i].SignalID] != s.signalTime[result[j].SignalID] {
			return s.signalTime[result[i].SignalID] < s.signalTime[result[j].SignalID]
		}
		return result[i].SignalID < result[j].SignalID
	})

	return result, nil
}

var _ storage.TradeOutcomeStore = (*TradeOutcomeStore)(nil)
