package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/storage"
)

// PriceHistoryStore implements storage.PriceHistoryStore using ClickHouse.
// Price observations are append-heavy timeseries data; the engine reads
// them in one batched query per run.
type PriceHistoryStore struct {
	conn *Conn
}

// NewPriceHistoryStore creates a new PriceHistoryStore.
func NewPriceHistoryStore(conn *Conn) *PriceHistoryStore {
	return &PriceHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PriceHistoryStore = (*PriceHistoryStore)(nil)

// GetByTokensAndRange retrieves observations for all given tokens within
// [start, end] (inclusive, ms) in one query, ordered by (token, time) ASC.
func (s *PriceHistoryStore) GetByTokensAndRange(ctx context.Context, tokens []string, start, end int64) ([]*domain.PriceObservation, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	query := `
		SELECT token_mint, timestamp_ms, price
		FROM price_history
		WHERE token_mint IN (?) AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY token_mint ASC, timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, tokens, start, end)
	if err != nil {
		return nil, fmt.Errorf("query price history: %w", err)
	}
	defer rows.Close()

	return scanPriceObservations(rows)
}

// InsertBulk adds multiple observations in one batch. Used by the
// adjacent ingestion service and by tests; the engine only reads.
func (s *PriceHistoryStore) InsertBulk(ctx context.Context, points []*domain.PriceObservation) error {
	if len(points) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO price_history (token_mint, timestamp_ms, price)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, p := range points {
		if err := batch.Append(p.TokenMint, p.TimestampMs, p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// scanPriceObservations scans all rows into PriceObservation records.
func scanPriceObservations(rows driver.Rows) ([]*domain.PriceObservation, error) {
	var result []*domain.PriceObservation
	for rows.Next() {
		var p domain.PriceObservation
		if err := rows.Scan(&p.TokenMint, &p.TimestampMs, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price observation: %w", err)
		}
		result = append(result, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price observations: %w", err)
	}
	return result, nil
}
