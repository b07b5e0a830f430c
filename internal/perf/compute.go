// Package perf reduces trade lists to aggregate performance metrics.
// The actual and the simulated ledger are both computed here, through
// the same function, so their formulas can never diverge.
package perf

import (
	"sort"

	"github.com/shopspring/decimal"

	"smartmoney-lab/internal/domain"
)

// Trade is the neutral view Compute reduces over: a realized trade and
// a simulated trade look identical to the metrics formulas.
type Trade struct {
	ID   string
	Time int64 // ms
	PnL  decimal.Decimal
}

// Compute calculates all metrics from a trade list. The input order
// does not matter: trades are sorted by time (then id) before the
// order-dependent reductions, so a reshuffled list yields identical
// aggregates.
func Compute(trades []Trade) domain.PerformanceMetrics {
	n := len(trades)
	m := domain.PerformanceMetrics{
		TotalPnL:    decimal.Zero,
		GrossProfit: decimal.Zero,
		GrossLoss:   decimal.Zero,
		AvgWin:      decimal.Zero,
		AvgLoss:     decimal.Zero,
		WinRate:     decimal.Zero,
		MaxDrawdown: decimal.Zero,
	}
	if n == 0 {
		return m
	}

	sorted := make([]Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Time != sorted[j].Time {
			return sorted[i].Time < sorted[j].Time
		}
		return sorted[i].ID < sorted[j].ID
	})

	m.TotalTrades = n
	for _, t := range sorted {
		m.TotalPnL = m.TotalPnL.Add(t.PnL)
		if t.PnL.IsPositive() {
			m.WinningTrades++
			m.GrossProfit = m.GrossProfit.Add(t.PnL)
		} else {
			// PnL <= 0 counts as a loss everywhere, streaks included.
			m.LosingTrades++
			m.GrossLoss = m.GrossLoss.Sub(t.PnL)
		}
	}

	// Averages default to zero when the relevant count is zero.
	if m.WinningTrades > 0 {
		m.AvgWin = m.GrossProfit.Div(decimal.NewFromInt(int64(m.WinningTrades)))
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = m.GrossLoss.Div(decimal.NewFromInt(int64(m.LosingTrades)))
	}
	m.WinRate = decimal.NewFromInt(int64(m.WinningTrades)).Div(decimal.NewFromInt(int64(n)))

	m.MaxDrawdown = computeMaxDrawdown(sorted)
	m.MaxConsecutiveLosses = computeMaxConsecutiveLosses(sorted)

	return m
}

// computeMaxDrawdown finds the worst peak-to-trough gap on cumulative
// PnL. Trades must be in chronological order.
func computeMaxDrawdown(sorted []Trade) decimal.Decimal {
	cumulative := decimal.Zero
	peak := decimal.Zero
	maxDrawdown := decimal.Zero

	for _, t := range sorted {
		cumulative = cumulative.Add(t.PnL)
		if cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		drawdown := peak.Sub(cumulative)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}
	return maxDrawdown
}

// computeMaxConsecutiveLosses finds the longest streak of PnL <= 0,
// reset on any win. Trades must be in chronological order.
func computeMaxConsecutiveLosses(sorted []Trade) int {
	maxStreak := 0
	currentStreak := 0

	for _, t := range sorted {
		if t.PnL.IsPositive() {
			currentStreak = 0
			continue
		}
		currentStreak++
		if currentStreak > maxStreak {
			maxStreak = currentStreak
		}
	}
	return maxStreak
}

// FromSimulated adapts simulated trades to the neutral view.
func FromSimulated(trades []*domain.SimulatedTrade) []Trade {
	result := make([]Trade, 0, len(trades))
	for _, t := range trades {
		result = append(result, Trade{ID: t.SignalID, Time: t.EntryTime, PnL: t.NetPnL})
	}
	return result
}

// FromActual adapts realized outcomes to the neutral view. Signals
// that were never traded contribute nothing.
func FromActual(signals []*domain.HistoricalSignal) []Trade {
	var result []Trade
	for _, s := range signals {
		if !s.ActuallyTraded {
			continue
		}
		result = append(result, Trade{ID: s.SignalID, Time: s.Timestamp, PnL: s.ActualPnL})
	}
	return result
}
