package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// SignalStore implements storage.SignalStore using PostgreSQL.
type SignalStore struct {
	pool *Pool
}

// NewSignalStore creates a new SignalStore.
func NewSignalStore(pool *Pool) *SignalStore {
	return &SignalStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SignalStore = (*SignalStore)(nil)

// GetByTimeRange retrieves signals within [start, end] (inclusive, ms),
// ordered by timestamp ASC.
func (s *SignalStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.SignalRow, error) {
	query := `
		SELECT
			signal_id, timestamp_ms, token_mint, wallet_address, score,
			factor_wallet_reputation, factor_token_metrics, factor_liquidity,
			factor_holder_distribution, factor_momentum
		FROM signals
		WHERE timestamp_ms >= $1 AND timestamp_ms <= $2
		ORDER BY timestamp_ms ASC, signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get signals by time range: %w", err)
	}
	defer rows.Close()

	return scanSignalRows(rows)
}

// Insert adds a new signal. Returns ErrDuplicateKey if signal_id exists.
// Used by the adjacent ingestion service and by tests; the backtest
// engine itself only reads.
func (s *SignalStore) Insert(ctx context.Context, r *domain.SignalRow) error {
	query := `
		INSERT INTO signals (
			signal_id, timestamp_ms, token_mint, wallet_address, score,
			factor_wallet_reputation, factor_token_metrics, factor_liquidity,
			factor_holder_distribution, factor_momentum
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := s.pool.Exec(ctx, query,
		r.SignalID, r.Timestamp, r.TokenMint, r.WalletAddress, r.Score,
		r.Factors.WalletReputation, r.Factors.TokenMetrics, r.Factors.Liquidity,
		r.Factors.HolderDistribution, r.Factors.Momentum,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

// scanSignalRows scans all rows into SignalRow records.
func scanSignalRows(rows pgx.Rows) ([]*domain.SignalRow, error) {
	var result []*domain.SignalRow
	for rows.Next() {
		var r domain.SignalRow
		err := rows.Scan(
			&r.SignalID, &r.Timestamp, &r.TokenMint, &r.WalletAddress, &r.Score,
			&r.Factors.WalletReputation, &r.Factors.TokenMetrics, &r.Factors.Liquidity,
			&r.Factors.HolderDistribution, &r.Factors.Momentum,
		)
		if err != nil {
			return nil, fmt.Errorf("scan signal row: %w", err)
		}
		result = append(result, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signal rows: %w", err)
	}
	return result, nil
}
