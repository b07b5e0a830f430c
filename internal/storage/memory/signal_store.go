package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu         sync.RWMutex
	data       map[string]*domain.SignalRow // keyed by signal_id
	queryCount int
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{
		data: make(map[string]*domain.SignalRow),
	}
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, r *domain.SignalRow) error {
	if r == nil || r.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *r
	s.data[r.SignalID] = &cp
	return nil
}

// GetByTimeRange retrieves signals within [start, end] (inclusive, ms),
// ordered by timestamp ASC.
func (s *SignalStore) GetByTimeRange(_ context.Context, start, end int64) ([]*domain.SignalRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queryCount++

	var result []*domain.SignalRow
	for _, r := range s.data {
		if r.Timestamp >= start && r.Timestamp <= end {
			cp := *r
			result = append(result, &cp)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].SignalID < result[j].SignalID
	})

	return result, nil
}

// QueryCount reports how many range queries have been served. Used by
// tests asserting the loader cache avoids repeat queries.
func (s *SignalStore) QueryCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.queryCount
}

var _ storage.SignalStore = (*SignalStore)(nil)
