// Package histdata loads and joins the historical records a backtest
// replays: signals, their realized outcomes, and forward price paths.
package histdata

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"smartmoney-lab/internal/domain"
	"smartmoney-lab/internal/idhash"
	"smartmoney-lab/internal/observability"
	"smartmoney-lab/internal/solana"
	"smartmoney-lab/internal/storage"
)

// maxPathPoints caps the forward price path retained per signal to
// bound memory on dense price histories.
const maxPathPoints = 100

// Loader builds HistoricalSignal records for a time window and
// memoizes them by exact (start, end) key for the process lifetime.
type Loader struct {
	signals  storage.SignalStore
	outcomes storage.TradeOutcomeStore
	prices   storage.PriceHistoryStore
	logger   zerolog.Logger
	metrics  *observability.Metrics

	mu    sync.RWMutex
	cache map[string][]*domain.HistoricalSignal
}

// NewLoader creates a new Loader.
func NewLoader(signals storage.SignalStore, outcomes storage.TradeOutcomeStore, prices storage.PriceHistoryStore, logger zerolog.Logger) *Loader {
	return &Loader{
		signals:  signals,
		outcomes: outcomes,
		prices:   prices,
		logger:   logger,
		cache:    make(map[string][]*domain.HistoricalSignal),
	}
}

// WithMetrics attaches Prometheus metrics for cache hit accounting.
func (l *Loader) WithMetrics(m *observability.Metrics) *Loader {
	l.metrics = m
	return l
}

// Load returns the joined historical signals for [start, end]
// (inclusive, ms). The returned slice and its records are read-only:
// cache hits return the same backing data without re-querying any
// store. A store failure aborts the load; nothing is cached.
func (l *Loader) Load(ctx context.Context, start, end int64) ([]*domain.HistoricalSignal, error) {
	if end < start {
		return nil, domain.ErrInvalidWindow
	}

	key := idhash.ComputeRangeKey(start, end)

	l.mu.RLock()
	cached, hit := l.cache[key]
	l.mu.RUnlock()
	if hit {
		if l.metrics != nil {
			l.metrics.CacheHits.Inc()
		}
		return cached, nil
	}
	if l.metrics != nil {
		l.metrics.CacheMisses.Inc()
	}

	rows, err := l.signals.GetByTimeRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("load signals: %w", err)
	}

	valid := l.validateRows(rows)
	if len(valid) == 0 {
		l.mu.Lock()
		l.cache[key] = nil
		l.mu.Unlock()
		return nil, nil
	}

	ids := make([]string, 0, len(valid))
	for _, r := range valid {
		ids = append(ids, r.SignalID)
	}

	outcomes, err := l.outcomes.GetBySignalIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load trade outcomes: %w", err)
	}
	outcomeByID := make(map[string]*domain.TradeOutcome, len(outcomes))
	for _, o := range outcomes {
		outcomeByID[o.SignalID] = o
	}

	// One batched price query for the union of referenced tokens,
	// never one query per token.
	observations, err := l.prices.GetByTokensAndRange(ctx, uniqueTokens(valid), start, end)
	if err != nil {
		return nil, fmt.Errorf("load price history: %w", err)
	}
	pricesByToken := groupByToken(observations)

	signals := make([]*domain.HistoricalSignal, 0, len(valid))
	for _, r := range valid {
		signals = append(signals, buildSignal(r, outcomeByID[r.SignalID], pricesByToken[r.TokenMint]))
	}

	l.mu.Lock()
	l.cache[key] = signals
	l.mu.Unlock()

	return signals, nil
}

// ClearCache drops all memoized signal sets. The next Load for any
// window re-queries the stores.
func (l *Loader) ClearCache() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string][]*domain.HistoricalSignal)
}

// validateRows drops malformed rows at the boundary so downstream
// stages never re-check field presence. Invalid rows are logged and
// skipped, not fatal.
func (l *Loader) validateRows(rows []*domain.SignalRow) []*domain.SignalRow {
	valid := make([]*domain.SignalRow, 0, len(rows))
	for _, r := range rows {
		if r.SignalID == "" {
			l.logger.Warn().Msg("skipping signal row with empty id")
			continue
		}
		if err := solana.ValidateMint(r.TokenMint); err != nil {
			l.logger.Warn().Str("signal_id", r.SignalID).Err(err).Msg("skipping signal with bad token mint")
			continue
		}
		if err := solana.ValidateWallet(r.WalletAddress); err != nil {
			l.logger.Warn().Str("signal_id", r.SignalID).Err(err).Msg("skipping signal with bad wallet address")
			continue
		}
		valid = append(valid, r)
	}
	return valid
}

// buildSignal joins one signal row with its outcome and price path.
func buildSignal(r *domain.SignalRow, outcome *domain.TradeOutcome, tokenPrices []*domain.PriceObservation) *domain.HistoricalSignal {
	sig := &domain.HistoricalSignal{
		SignalID:      r.SignalID,
		Timestamp:     r.Timestamp,
		TokenMint:     r.TokenMint,
		WalletAddress: r.WalletAddress,
		Score:         r.Score,
		Factors:       r.Factors,
	}

	if outcome != nil {
		sig.ActuallyTraded = true
		sig.ActualEntryPrice = outcome.EntryPrice
		sig.ActualExitPrice = outcome.ExitPrice
		sig.ActualPnL = outcome.PnL
	}

	// Forward subset: observations at/after the signal's own timestamp.
	// tokenPrices arrive time-sorted from the store.
	for _, p := range tokenPrices {
		if p.TimestampMs < r.Timestamp {
			continue
		}
		if len(sig.PricePath) == 0 {
			sig.PriceAtSignal = p.Price
			sig.MaxPriceAfter = p.Price
			sig.MinPriceAfter = p.Price
		} else {
			if p.Price.GreaterThan(sig.MaxPriceAfter) {
				sig.MaxPriceAfter = p.Price
			}
			if p.Price.LessThan(sig.MinPriceAfter) {
				sig.MinPriceAfter = p.Price
			}
		}
		if len(sig.PricePath) < maxPathPoints {
			sig.PricePath = append(sig.PricePath, domain.PricePoint{
				TimestampMs: p.TimestampMs,
				Price:       p.Price,
			})
		}
	}

	return sig
}

// uniqueTokens returns the deduplicated token set of the given rows.
func uniqueTokens(rows []*domain.SignalRow) []string {
	seen := make(map[string]struct{}, len(rows))
	tokens := make([]string, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.TokenMint]; ok {
			continue
		}
		seen[r.TokenMint] = struct{}{}
		tokens = append(tokens, r.TokenMint)
	}
	return tokens
}

// groupByToken groups observations by token, preserving time order.
func groupByToken(observations []*domain.PriceObservation) map[string][]*domain.PriceObservation {
	grouped := make(map[string][]*domain.PriceObservation)
	for _, p := range observations {
		grouped[p.TokenMint] = append(grouped[p.TokenMint], p)
	}
	return grouped
}
