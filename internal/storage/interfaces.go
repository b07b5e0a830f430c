package storage

import (
	"context"

	"smartmoney-lab/internal/domain"
)

// SignalStore provides read access to stored wallet signals.
type SignalStore interface {
	// GetByTimeRange retrieves signals with timestamp within [start, end]
	// (inclusive, ms), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SignalRow, error)
}

// TradeOutcomeStore provides read access to realized trade outcomes.
type TradeOutcomeStore interface {
	// GetBySignalIDs retrieves outcomes for the given signal ids.
	// Signals without a matched outcome are simply absent.
	GetBySignalIDs(ctx context.Context, signalIDs []string) ([]*domain.TradeOutcome, error)

	// GetByTimeRange retrieves outcomes whose signal fired within
	// [start, end] (inclusive, ms).
	GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeOutcome, error)
}

// PriceHistoryStore provides batched read access to price observations.
type PriceHistoryStore interface {
	// GetByTokensAndRange retrieves observations for all given tokens
	// within [start, end] (inclusive, ms) in one query, ordered by
	// (token_mint, timestamp_ms) ASC.
	GetByTokensAndRange(ctx context.Context, tokens []string, start, end int64) ([]*domain.PriceObservation, error)
}

// LiveConfigStore provides read/upsert access to the live trading
// configuration, one keyed record per sub-config.
type LiveConfigStore interface {
	// GetWeights retrieves the live scoring weights. Returns ErrNotFound if unset.
	GetWeights(ctx context.Context) (*domain.ScoringWeights, error)

	// UpsertWeights writes the live scoring weights.
	UpsertWeights(ctx context.Context, w *domain.ScoringWeights) error

	// GetThreshold retrieves the live score threshold. Returns ErrNotFound if unset.
	GetThreshold(ctx context.Context) (*domain.Threshold, error)

	// UpsertThreshold writes the live score threshold.
	UpsertThreshold(ctx context.Context, t *domain.Threshold) error

	// GetSizing retrieves the live position-sizing policy. Returns ErrNotFound if unset.
	GetSizing(ctx context.Context) (*domain.PositionSizing, error)

	// UpsertSizing writes the live position-sizing policy.
	UpsertSizing(ctx context.Context, s *domain.PositionSizing) error

	// GetExitRules retrieves the live exit-rule policy. Returns ErrNotFound if unset.
	GetExitRules(ctx context.Context) (*domain.ExitRules, error)

	// UpsertExitRules writes the live exit-rule policy.
	UpsertExitRules(ctx context.Context, e *domain.ExitRules) error
}

// ResultStore provides insert-only persistence of terminal results.
type ResultStore interface {
	// Insert persists a terminal result. Returns ErrDuplicateKey if the
	// run id exists.
	Insert(ctx context.Context, r *domain.BacktestResult) error

	// GetByID retrieves a result by run id. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error)
}
