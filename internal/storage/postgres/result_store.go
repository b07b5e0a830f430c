package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// maxStoredRows caps the trade and comparison lists persisted per
// result. Full totals survive in the count columns; rows past the cap
// are summarized by count only.
const maxStoredRows = 500

// ResultStore implements storage.ResultStore using PostgreSQL.
type ResultStore struct {
	pool *Pool
}

// NewResultStore creates a new ResultStore.
func NewResultStore(pool *Pool) *ResultStore {
	return &ResultStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ResultStore = (*ResultStore)(nil)

// Insert persists a terminal result. Returns ErrDuplicateKey if the run
// id exists.
func (s *ResultStore) Insert(ctx context.Context, r *domain.BacktestResult) error {
	configJSON, err := json.Marshal(r.Config)
	if err != nil {
		return fmt.Errorf("encode result config: %w", err)
	}
	comparisonJSON, err := json.Marshal(r.Comparison)
	if err != nil {
		return fmt.Errorf("encode result metrics: %w", err)
	}

	trades := r.Trades
	if len(trades) > maxStoredRows {
		trades = trades[:maxStoredRows]
	}
	tradesJSON, err := json.Marshal(trades)
	if err != nil {
		return fmt.Errorf("encode result trades: %w", err)
	}

	comparisons := r.Comparisons
	if len(comparisons) > maxStoredRows {
		comparisons = comparisons[:maxStoredRows]
	}
	comparisonsJSON, err := json.Marshal(comparisons)
	if err != nil {
		return fmt.Errorf("encode result comparisons: %w", err)
	}

	query := `
		INSERT INTO backtest_results (
			run_id, status, started_at, completed_at, duration_ms,
			total_signals, simulated_count, config, metrics,
			trades, comparisons, error
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err = s.pool.Exec(ctx, query,
		r.RunID, r.Status, r.StartedAt, r.CompletedAt, r.DurationMs,
		r.TotalSignals, r.SimulatedCount, configJSON, comparisonJSON,
		tradesJSON, comparisonsJSON, r.Error,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest result: %w", err)
	}
	return nil
}

// GetByID retrieves a result by run id. Returns ErrNotFound if not exists.
func (s *ResultStore) GetByID(ctx context.Context, runID string) (*domain.BacktestResult, error) {
	query := `
		SELECT
			run_id, status, started_at, completed_at, duration_ms,
			total_signals, simulated_count, config, metrics,
			trades, comparisons, error
		FROM backtest_results
		WHERE run_id = $1
	`

	var (
		r               domain.BacktestResult
		configJSON      []byte
		metricsJSON     []byte
		tradesJSON      []byte
		comparisonsJSON []byte
	)
	err := s.pool.QueryRow(ctx, query, runID).Scan(
		&r.RunID, &r.Status, &r.StartedAt, &r.CompletedAt, &r.DurationMs,
		&r.TotalSignals, &r.SimulatedCount, &configJSON, &metricsJSON,
		&tradesJSON, &comparisonsJSON, &r.Error,
	)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest result by id: %w", err)
	}

	if err := json.Unmarshal(configJSON, &r.Config); err != nil {
		return nil, fmt.Errorf("decode result config: %w", err)
	}
	if err := json.Unmarshal(metricsJSON, &r.Comparison); err != nil {
		return nil, fmt.Errorf("decode result metrics: %w", err)
	}
	if err := json.Unmarshal(tradesJSON, &r.Trades); err != nil {
		return nil, fmt.Errorf("decode result trades: %w", err)
	}
	if err := json.Unmarshal(comparisonsJSON, &r.Comparisons); err != nil {
		return nil, fmt.Errorf("decode result comparisons: %w", err)
	}
	return &r, nil
}
