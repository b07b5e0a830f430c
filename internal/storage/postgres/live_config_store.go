package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// Config record keys.
const (
	keyWeights   = "scoring_weights"
	keyThreshold = "score_threshold"
	keySizing    = "position_sizing"
	keyExitRules = "exit_rules"
)

// LiveConfigStore implements storage.LiveConfigStore using PostgreSQL.
// Each sub-config is one keyed JSONB record in the live_config table.
type LiveConfigStore struct {
	pool *Pool
}

// NewLiveConfigStore creates a new LiveConfigStore.
func NewLiveConfigStore(pool *Pool) *LiveConfigStore {
	return &LiveConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LiveConfigStore = (*LiveConfigStore)(nil)

// GetWeights retrieves the live scoring weights.
func (s *LiveConfigStore) GetWeights(ctx context.Context) (*domain.ScoringWeights, error) {
	var w domain.ScoringWeights
	if err := s.get(ctx, keyWeights, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// UpsertWeights writes the live scoring weights.
func (s *LiveConfigStore) UpsertWeights(ctx context.Context, w *domain.ScoringWeights) error {
	return s.upsert(ctx, keyWeights, w)
}

// GetThreshold retrieves the live score threshold.
func (s *LiveConfigStore) GetThreshold(ctx context.Context) (*domain.Threshold, error) {
	var t domain.Threshold
	if err := s.get(ctx, keyThreshold, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertThreshold writes the live score threshold.
func (s *LiveConfigStore) UpsertThreshold(ctx context.Context, t *domain.Threshold) error {
	return s.upsert(ctx, keyThreshold, t)
}

// GetSizing retrieves the live position-sizing policy.
func (s *LiveConfigStore) GetSizing(ctx context.Context) (*domain.PositionSizing, error) {
	var p domain.PositionSizing
	if err := s.get(ctx, keySizing, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpsertSizing writes the live position-sizing policy.
func (s *LiveConfigStore) UpsertSizing(ctx context.Context, p *domain.PositionSizing) error {
	return s.upsert(ctx, keySizing, p)
}

// GetExitRules retrieves the live exit-rule policy.
func (s *LiveConfigStore) GetExitRules(ctx context.Context) (*domain.ExitRules, error) {
	var e domain.ExitRules
	if err := s.get(ctx, keyExitRules, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertExitRules writes the live exit-rule policy.
func (s *LiveConfigStore) UpsertExitRules(ctx context.Context, e *domain.ExitRules) error {
	return s.upsert(ctx, keyExitRules, e)
}

// get reads one keyed record and unmarshals it into dest.
func (s *LiveConfigStore) get(ctx context.Context, key string, dest any) error {
	query := `SELECT value FROM live_config WHERE key = $1`

	var raw []byte
	if err := s.pool.QueryRow(ctx, query, key).Scan(&raw); err != nil {
		if isNotFoundError(err) {
			return storage.ErrNotFound
		}
		return fmt.Errorf("get live config %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("decode live config %s: %w", key, err)
	}
	return nil
}

// upsert writes one keyed record, replacing any previous value.
func (s *LiveConfigStore) upsert(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode live config %s: %w", key, err)
	}

	query := `
		INSERT INTO live_config (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`

	if _, err := s.pool.Exec(ctx, query, key, raw); err != nil {
		return fmt.Errorf("upsert live config %s: %w", key, err)
	}
	return nil
}
