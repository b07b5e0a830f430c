package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// TradeOutcomeStore implements storage.TradeOutcomeStore using PostgreSQL.
type TradeOutcomeStore struct {
	pool *Pool
}

// NewTradeOutcomeStore creates a new TradeOutcomeStore.
func NewTradeOutcomeStore(pool *Pool) *TradeOutcomeStore {
	return &TradeOutcomeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeOutcomeStore = (*TradeOutcomeStore)(nil)

// GetBySignalIDs retrieves outcomes for the given signal ids.
func (s *TradeOutcomeStore) GetBySignalIDs(ctx context.Context, signalIDs []string) ([]*domain.TradeOutcome, error) {
	if len(signalIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT signal_id, entry_price, exit_price, pnl, win
		FROM trade_outcomes
		WHERE signal_id = ANY($1)
		ORDER BY signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, signalIDs)
	if err != nil {
		return nil, fmt.Errorf("get trade outcomes by signal ids: %w", err)
	}
	defer rows.Close()

	return scanTradeOutcomes(rows)
}

// GetByTimeRange retrieves outcomes whose signal fired within [start, end].
func (s *TradeOutcomeStore) GetByTimeRange(ctx context.Context, start, end int64) ([]*domain.TradeOutcome, error) {
	query := `
		SELECT o.signal_id, o.entry_price, o.exit_price, o.pnl, o.win
		FROM trade_outcomes o
		JOIN signals s ON s.signal_id = o.signal_id
		WHERE s.timestamp_ms >= $1 AND s.timestamp_ms <= $2
		ORDER BY s.timestamp_ms ASC, o.signal_id ASC
	`

	rows, err := s.pool.Query(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("get trade outcomes by time range: %w", err)
	}
	defer rows.Close()

	return scanTradeOutcomes(rows)
}

// Insert adds a new outcome. Returns ErrDuplicateKey if signal_id exists.
func (s *TradeOutcomeStore) Insert(ctx context.Context, o *domain.TradeOutcome) error {
	query := `
		INSERT INTO trade_outcomes (signal_id, entry_price, exit_price, pnl, win)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.pool.Exec(ctx, query, o.SignalID, o.EntryPrice, o.ExitPrice, o.PnL, o.Win)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert trade outcome: %w", err)
	}
	return nil
}

// scanTradeOutcomes scans all rows into TradeOutcome records.
func scanTradeOutcomes(rows pgx.Rows) ([]*domain.TradeOutcome, error) {
	var result []*domain.TradeOutcome
	for rows.Next() {
		var o domain.TradeOutcome
		if err := rows.Scan(&o.SignalID, &o.EntryPrice, &o.ExitPrice, &o.PnL, &o.Win); err != nil {
			return nil, fmt.Errorf("scan trade outcome: %w", err)
		}
		result = append(result, &o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade outcomes: %w", err)
	}
	return result, nil
}
