package memory

import (
	"context"
	"sort"
	"sync"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// PriceHistoryStore is an in-memory implementation of storage.PriceHistoryStore.
type PriceHistoryStore struct {
	mu   sync.RWMutex
	data []*domain.PriceObservation
}

// NewPriceHistoryStore creates a new in-memory price history store.
func NewPriceHistoryStore() *PriceHistoryStore {
	return &PriceHistoryStore{}
}

// InsertBulk appends observations. Duplicates are not checked; price
// history is raw observation data, not a keyed record set.
func (s *PriceHistoryStore) InsertBulk(_ context.Context, points []*domain.PriceObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range points {
		if p == nil || p.TokenMint == "" {
			return storage.ErrInvalidInput
		}
		cp := *p
		s.data = append(s.data, &cp)
	}
	return nil
}

// GetByTokensAndRange retrieves observations for all given tokens within
// [start, end] (inclusive, ms), ordered by (token, time) ASC.
func (s *PriceHistoryStore) GetByTokensAndRange(_ context.Context, tokens []string, start, end int64) ([]*domain.PriceObservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wanted := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		wanted[t] = struct{}{}
	}

	var result []*domain.PriceObservation
	for _, p := range s.data {
		if _, ok := wanted[p.TokenMint]; !ok {
			continue
		}
		if p.TimestampMs < start || p.TimestampMs > end {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].TokenMint != result[j].TokenMint {
			return result[i].TokenMint < result[j].TokenMint
		}
		return result[i].TimestampMs < result[j].TimestampMs
	})

	return result, nil
}

var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)
