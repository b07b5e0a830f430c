package memory

import (
	"context"
	"sync"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// LiveConfigStore is an in-memory implementation of storage.LiveConfigStore.
type LiveConfigStore struct {
	mu        sync.RWMutex
	weights   *domain.ScoringWeights
	threshold *domain.Threshold
	sizing    *domain.PositionSizing
	exitRules *domain.ExitRules
}

// NewLiveConfigStore creates a new in-memory live config store.
func NewLiveConfigStore() *LiveConfigStore {
	return &LiveConfigStore{}
}

// GetWeights retrieves the live scoring weights.
func (s *LiveConfigStore) GetWeights(_ context.Context) (*domain.ScoringWeights, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.weights == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.weights
	return &cp, nil
}

// UpsertWeights writes the live scoring weights.
func (s *LiveConfigStore) UpsertWeights(_ context.Context, w *domain.ScoringWeights) error {
	if w == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *w
	s.weights = &cp
	return nil
}

// GetThreshold retrieves the live score threshold.
func (s *LiveConfigStore) GetThreshold(_ context.Context) (*domain.Threshold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.threshold == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.threshold
	return &cp, nil
}

// UpsertThreshold writes the live score threshold.
func (s *LiveConfigStore) UpsertThreshold(_ context.Context, t *domain.Threshold) error {
	if t == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *t
	s.threshold = &cp
	return nil
}

// GetSizing retrieves the live position-sizing policy.
func (s *LiveConfigStore) GetSizing(_ context.Context) (*domain.PositionSizing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.sizing == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.sizing
	return &cp, nil
}

// UpsertSizing writes the live position-sizing policy.
func (s *LiveConfigStore) UpsertSizing(_ context.Context, p *domain.PositionSizing) error {
	if p == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *p
	s.sizing = &cp
	return nil
}

// GetExitRules retrieves the live exit-rule policy.
func (s *LiveConfigStore) GetExitRules(_ context.Context) (*domain.ExitRules, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.exitRules == nil {
		return nil, storage.ErrNotFound
	}
	cp := *s.exitRules
	return &cp, nil
}

// UpsertExitRules writes the live exit-rule policy.
func (s *LiveConfigStore) UpsertExitRules(_ context.Context, e *domain.ExitRules) error {
	if e == nil {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *e
	s.exitRules = &cp
	return nil
}

var _ storage.LiveConfigStore = (*LiveConfigStore)(nil)
